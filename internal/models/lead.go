package models

import "time"

// LeadStatus is the local lead lifecycle state.
type LeadStatus string

const (
	LeadNew        LeadStatus = "New"
	LeadInProgress LeadStatus = "InProgress"
	LeadWon        LeadStatus = "Won"
	LeadLost       LeadStatus = "Lost"
	LeadDeleted    LeadStatus = "Deleted"
)

// Lead is a locally stored sales lead. RemoteLeadNumber links it to the
// EasyCars record once the lead has been pushed; vehicle linkage is by
// identifier, never a live object reference.
type Lead struct {
	ID               int64
	DealershipID     string
	RemoteLeadNumber string
	FirstName        string
	LastName         string
	Email            string
	Phone            string
	Comments         string
	VehicleID        *int64
	Status           LeadStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Linked reports whether the lead has an EasyCars counterpart.
func (l *Lead) Linked() bool { return l.RemoteLeadNumber != "" }

// Vehicle is a locally stored inventory record mapped from a remote
// advertisement stock item. RawPayload keeps the untranslated remote
// JSON for auditing.
type Vehicle struct {
	ID           int64
	DealershipID string
	StockNumber  string
	YardCode     string
	Make         string
	Model        string
	Variant      string
	Year         int
	Price        float64
	Odometer     int
	Colour       string
	VIN          string
	Registration string
	Transmission string
	FuelType     string
	BodyType     string
	Description  string
	ImageURLs    []string
	RawPayload   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
