package store_test

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerlink/easysync/internal/events"
	"github.com/dealerlink/easysync/internal/models"
	"github.com/dealerlink/easysync/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	logger := events.NewTestLogger(events.ErrorLevel, io.Discard)
	s, err := store.Open(filepath.Join(t.TempDir(), "easysync.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustCredential(t *testing.T, dealershipID string) *models.Credential {
	t.Helper()
	cred, err := models.NewCredential(dealershipID,
		"enc-client-id", "enc-client-secret", "enc-account-id", "enc-account-secret",
		models.EnvTest, "NTH")
	require.NoError(t, err)
	return cred
}

func TestStore_CredentialRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cred := mustCredential(t, "dealer-1")
	require.NoError(t, s.CreateCredential(ctx, cred))
	assert.NotZero(t, cred.ID)

	loaded, err := s.CredentialByDealership(ctx, "dealer-1")
	require.NoError(t, err)
	assert.Equal(t, "enc-account-secret", loaded.AccountSecret)
	assert.Equal(t, models.EnvTest, loaded.Environment)
	assert.Equal(t, "NTH", loaded.YardCode)
	assert.True(t, loaded.Active)
	assert.Nil(t, loaded.LastSyncedAt)

	exists, err := s.CredentialExists(ctx, "dealer-1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestStore_CredentialNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CredentialByDealership(context.Background(), "nope")
	assert.ErrorIs(t, err, models.ErrCredentialNotFound)
}

func TestStore_CredentialUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cred := mustCredential(t, "dealer-1")
	require.NoError(t, s.CreateCredential(ctx, cred))

	require.NoError(t, cred.Update("new-client-id", "", "", "new-account-secret",
		models.EnvProduction, "STH", false))
	require.NoError(t, s.UpdateCredential(ctx, cred))

	loaded, err := s.CredentialByDealership(ctx, "dealer-1")
	require.NoError(t, err)
	assert.Equal(t, "new-client-id", loaded.ClientID)
	assert.Equal(t, "enc-client-secret", loaded.ClientSecret, "empty update keeps the old value")
	assert.Equal(t, "new-account-secret", loaded.AccountSecret)
	assert.Equal(t, models.EnvProduction, loaded.Environment)
	assert.False(t, loaded.Active)
}

func TestStore_TouchLastSynced(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cred := mustCredential(t, "dealer-1")
	require.NoError(t, s.CreateCredential(ctx, cred))

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.TouchLastSynced(ctx, "dealer-1", at))

	loaded, err := s.CredentialByDealership(ctx, "dealer-1")
	require.NoError(t, err)
	require.NotNil(t, loaded.LastSyncedAt)
	assert.WithinDuration(t, at, *loaded.LastSyncedAt, time.Second)
}

func TestStore_DeleteCredential(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateCredential(ctx, mustCredential(t, "dealer-1")))
	require.NoError(t, s.DeleteCredential(ctx, "dealer-1"))

	exists, err := s.CredentialExists(ctx, "dealer-1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStore_VehicleUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v := &models.Vehicle{
		DealershipID: "dealer-1",
		StockNumber:  "S001",
		Make:         "Toyota",
		Model:        "Corolla",
		Year:         2021,
		Price:        25990,
		ImageURLs:    []string{"images/S001/000.jpg"},
		RawPayload:   `{"StockNumber":"S001"}`,
	}
	require.NoError(t, s.UpsertVehicle(ctx, v))
	firstID := v.ID
	require.NotZero(t, firstID)

	// Same stock number updates in place.
	v2 := &models.Vehicle{
		DealershipID: "dealer-1",
		StockNumber:  "S001",
		Make:         "Toyota",
		Model:        "Corolla",
		Year:         2021,
		Price:        23990,
	}
	require.NoError(t, s.UpsertVehicle(ctx, v2))

	loaded, err := s.VehicleByStockNumber(ctx, "dealer-1", "S001")
	require.NoError(t, err)
	assert.Equal(t, firstID, loaded.ID)
	assert.Equal(t, float64(23990), loaded.Price)

	byID, err := s.VehicleByID(ctx, firstID)
	require.NoError(t, err)
	assert.Equal(t, "S001", byID.StockNumber)
}

func TestStore_VehicleScopedByDealership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertVehicle(ctx, &models.Vehicle{
		DealershipID: "dealer-1", StockNumber: "S001", Make: "Toyota",
	}))
	require.NoError(t, s.UpsertVehicle(ctx, &models.Vehicle{
		DealershipID: "dealer-2", StockNumber: "S001", Make: "Mazda",
	}))

	v1, err := s.VehicleByStockNumber(ctx, "dealer-1", "S001")
	require.NoError(t, err)
	v2, err := s.VehicleByStockNumber(ctx, "dealer-2", "S001")
	require.NoError(t, err)
	assert.NotEqual(t, v1.ID, v2.ID)
	assert.Equal(t, "Toyota", v1.Make)
	assert.Equal(t, "Mazda", v2.Make)
}

func TestStore_LeadLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	lead := &models.Lead{
		DealershipID: "dealer-1",
		FirstName:    "Ann",
		LastName:     "Lee",
		Email:        "ann@example.com",
	}
	require.NoError(t, s.CreateLead(ctx, lead))
	require.NotZero(t, lead.ID)
	assert.Equal(t, models.LeadNew, lead.Status)

	// Unlinked leads are excluded from the linked listing.
	linked, err := s.LinkedLeads(ctx, "dealer-1")
	require.NoError(t, err)
	assert.Empty(t, linked)

	require.NoError(t, s.SetRemoteLeadNumber(ctx, lead.ID, "EC-1001"))
	linked, err = s.LinkedLeads(ctx, "dealer-1")
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, "EC-1001", linked[0].RemoteLeadNumber)

	// Metadata update leaves status alone.
	linked[0].FirstName = "Annette"
	require.NoError(t, s.UpdateLeadMetadata(ctx, linked[0]))
	require.NoError(t, s.SetLeadStatus(ctx, lead.ID, models.LeadWon))

	loaded, err := s.LeadByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "Annette", loaded.FirstName)
	assert.Equal(t, models.LeadWon, loaded.Status)
}

func TestStore_LeadVehicleLink(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v := &models.Vehicle{DealershipID: "dealer-1", StockNumber: "S001"}
	require.NoError(t, s.UpsertVehicle(ctx, v))

	lead := &models.Lead{
		DealershipID: "dealer-1",
		FirstName:    "Ann",
		LastName:     "Lee",
		VehicleID:    &v.ID,
	}
	require.NoError(t, s.CreateLead(ctx, lead))

	loaded, err := s.LeadByID(ctx, lead.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.VehicleID)
	assert.Equal(t, v.ID, *loaded.VehicleID)
}

func TestStore_ConflictResolveOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	lead := &models.Lead{DealershipID: "dealer-1", FirstName: "Ann", LastName: "Lee"}
	require.NoError(t, s.CreateLead(ctx, lead))

	conflict := models.NewLeadStatusConflict("dealer-1", lead.ID, "EC-1",
		models.LeadWon, models.RemoteLeadLost)
	require.NoError(t, s.CreateConflict(ctx, conflict))

	open, err := s.UnresolvedConflictForLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, conflict.ID, open.ID)

	at := time.Now().UTC()
	require.NoError(t, s.MarkConflictResolved(ctx, conflict.ID, models.ResolveLocal, "jane", at))

	// Second resolution fails with the dedicated error.
	err = s.MarkConflictResolved(ctx, conflict.ID, models.ResolveRemote, "bob", at)
	assert.ErrorIs(t, err, models.ErrConflictResolved)

	// A missing conflict is reported as such.
	err = s.MarkConflictResolved(ctx, 9999, models.ResolveLocal, "jane", at)
	assert.ErrorIs(t, err, models.ErrNotFound)

	resolved, err := s.ConflictByID(ctx, conflict.ID)
	require.NoError(t, err)
	assert.True(t, resolved.Resolved)
	assert.Equal(t, models.ResolveLocal, resolved.Resolution)
	assert.Equal(t, "jane", resolved.ResolvedBy)
	require.NotNil(t, resolved.ResolvedAt)

	_, err = s.UnresolvedConflictForLead(ctx, lead.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestStore_UnresolvedConflictsListing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		lead := &models.Lead{DealershipID: "dealer-1", FirstName: "A", LastName: "B"}
		require.NoError(t, s.CreateLead(ctx, lead))
		c := models.NewLeadStatusConflict("dealer-1", lead.ID, "EC-1",
			models.LeadNew, models.RemoteLeadWon)
		require.NoError(t, s.CreateConflict(ctx, c))
		if i == 0 {
			require.NoError(t, s.MarkConflictResolved(ctx, c.ID, models.ResolveLocal, "jane", time.Now().UTC()))
		}
	}

	open, err := s.UnresolvedConflicts(ctx, "dealer-1")
	require.NoError(t, err)
	assert.Len(t, open, 2)
}

func TestStore_SyncLogHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	appendLog := func(syncType models.SyncType, status models.SyncStatus) {
		result := models.NewSyncResult()
		result.RecordSuccess()
		if status != models.SyncSuccess {
			result.Fail("remote unavailable")
		}
		result.Finalize(time.Now().Add(-time.Second))
		log := models.NewSyncLog("dealer-1", syncType, result)
		log.Status = status
		require.NoError(t, s.AppendSyncLog(ctx, log))
		// Keep created_at ordering deterministic.
		time.Sleep(5 * time.Millisecond)
	}

	appendLog(models.SyncTypeStock, models.SyncSuccess)
	appendLog(models.SyncTypeLead, models.SyncFailed)
	appendLog(models.SyncTypeStock, models.SyncPartialSuccess)

	t.Run("history newest first", func(t *testing.T) {
		entries, err := s.SyncHistory(ctx, "dealer-1", 1, 10, nil)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, models.SyncPartialSuccess, entries[0].Status)
		assert.Equal(t, models.SyncSuccess, entries[2].Status)
	})

	t.Run("type filter", func(t *testing.T) {
		leadType := models.SyncTypeLead
		entries, err := s.SyncHistory(ctx, "dealer-1", 1, 10, &leadType)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, models.SyncFailed, entries[0].Status)
		require.Len(t, entries[0].Errors, 1)
		assert.Contains(t, entries[0].Errors[0], "remote unavailable")
	})

	t.Run("pagination", func(t *testing.T) {
		page1, err := s.SyncHistory(ctx, "dealer-1", 1, 2, nil)
		require.NoError(t, err)
		page2, err := s.SyncHistory(ctx, "dealer-1", 2, 2, nil)
		require.NoError(t, err)
		assert.Len(t, page1, 2)
		assert.Len(t, page2, 1)
		assert.NotEqual(t, page1[0].ID, page2[0].ID)
	})

	t.Run("last sync", func(t *testing.T) {
		last, err := s.LastSync(ctx, "dealer-1", nil)
		require.NoError(t, err)
		assert.Equal(t, models.SyncTypeStock, last.Type)
		assert.Equal(t, models.SyncPartialSuccess, last.Status)

		stockType := models.SyncTypeStock
		lastStock, err := s.LastSync(ctx, "dealer-1", &stockType)
		require.NoError(t, err)
		assert.Equal(t, last.ID, lastStock.ID)

		_, err = s.LastSync(ctx, "dealer-unknown", nil)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestStore_Settings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	t.Run("sync enabled by default", func(t *testing.T) {
		enabled, err := s.SyncEnabled(ctx)
		require.NoError(t, err)
		assert.True(t, enabled)
	})

	t.Run("kill switch round trip", func(t *testing.T) {
		require.NoError(t, s.SetSyncEnabled(ctx, false))
		enabled, err := s.SyncEnabled(ctx)
		require.NoError(t, err)
		assert.False(t, enabled)

		require.NoError(t, s.SetSyncEnabled(ctx, true))
		enabled, err = s.SyncEnabled(ctx)
		require.NoError(t, err)
		assert.True(t, enabled)
	})

	t.Run("auto-sync roster", func(t *testing.T) {
		require.NoError(t, s.SetAutoSync(ctx, "dealer-1", true))
		require.NoError(t, s.SetAutoSync(ctx, "dealer-2", true))
		require.NoError(t, s.SetAutoSync(ctx, "dealer-3", false))

		roster, err := s.AutoSyncDealerships(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"dealer-1", "dealer-2"}, roster)

		require.NoError(t, s.SetAutoSync(ctx, "dealer-2", false))
		roster, err = s.AutoSyncDealerships(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"dealer-1"}, roster)
	})
}
