package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dealerlink/easysync/internal/models"
)

// UpsertVehicle inserts or replaces a vehicle keyed by
// (dealership, stock number). Remote inventory is authoritative for
// mapped fields; the raw payload is kept verbatim for auditing.
func (s *Store) UpsertVehicle(ctx context.Context, v *models.Vehicle) error {
	urlsJSON, err := json.Marshal(v.ImageURLs)
	if err != nil {
		return fmt.Errorf("marshal image urls: %w", err)
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO vehicles
            (dealership_id, stock_number, yard_code, make, model, variant, year, price,
             odometer, colour, vin, registration, transmission, fuel_type, body_type,
             description, image_urls, raw_payload, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(dealership_id, stock_number) DO UPDATE SET
            yard_code = excluded.yard_code,
            make = excluded.make,
            model = excluded.model,
            variant = excluded.variant,
            year = excluded.year,
            price = excluded.price,
            odometer = excluded.odometer,
            colour = excluded.colour,
            vin = excluded.vin,
            registration = excluded.registration,
            transmission = excluded.transmission,
            fuel_type = excluded.fuel_type,
            body_type = excluded.body_type,
            description = excluded.description,
            image_urls = excluded.image_urls,
            raw_payload = excluded.raw_payload,
            updated_at = excluded.updated_at
    `, v.DealershipID, v.StockNumber, v.YardCode, v.Make, v.Model, v.Variant, v.Year,
		v.Price, v.Odometer, v.Colour, v.VIN, v.Registration, v.Transmission,
		v.FuelType, v.BodyType, v.Description, string(urlsJSON), v.RawPayload, now, now)
	if err != nil {
		return fmt.Errorf("upsert vehicle: %w", err)
	}
	// LastInsertId is unreliable for the update arm of the upsert, so
	// read the row id back.
	err = s.db.QueryRowContext(ctx,
		"SELECT id FROM vehicles WHERE dealership_id = ? AND stock_number = ?",
		v.DealershipID, v.StockNumber).Scan(&v.ID)
	if err != nil {
		return fmt.Errorf("upsert vehicle: %w", err)
	}
	return nil
}

// VehicleByID loads a vehicle.
func (s *Store) VehicleByID(ctx context.Context, id int64) (*models.Vehicle, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, dealership_id, stock_number, yard_code, make, model, variant, year,
               price, odometer, colour, vin, registration, transmission, fuel_type,
               body_type, description, image_urls, raw_payload, created_at, updated_at
        FROM vehicles WHERE id = ?
    `, id)
	return scanVehicle(row)
}

// VehicleByStockNumber loads a vehicle by its remote stock number.
func (s *Store) VehicleByStockNumber(ctx context.Context, dealershipID, stockNumber string) (*models.Vehicle, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, dealership_id, stock_number, yard_code, make, model, variant, year,
               price, odometer, colour, vin, registration, transmission, fuel_type,
               body_type, description, image_urls, raw_payload, created_at, updated_at
        FROM vehicles WHERE dealership_id = ? AND stock_number = ?
    `, dealershipID, stockNumber)
	return scanVehicle(row)
}

func scanVehicle(row *sql.Row) (*models.Vehicle, error) {
	var v models.Vehicle
	var urlsJSON string
	err := row.Scan(&v.ID, &v.DealershipID, &v.StockNumber, &v.YardCode, &v.Make,
		&v.Model, &v.Variant, &v.Year, &v.Price, &v.Odometer, &v.Colour, &v.VIN,
		&v.Registration, &v.Transmission, &v.FuelType, &v.BodyType, &v.Description,
		&urlsJSON, &v.RawPayload, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan vehicle: %w", err)
	}
	if err := json.Unmarshal([]byte(urlsJSON), &v.ImageURLs); err != nil {
		return nil, fmt.Errorf("parse image urls: %w", err)
	}
	return &v, nil
}
