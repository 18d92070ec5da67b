package shipmentstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"freight/internal/core/domain/model/kernel"
	"freight/internal/core/domain/model/shipment"
	"freight/internal/core/ports"
	"freight/internal/pkg/errs"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// steppingClock returns a clock that advances one second per call.
func steppingClock() func() time.Time {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		at = at.Add(time.Second)
		return at
	}
}

func newDraft(t *testing.T, company string) *shipment.Shipment {
	t.Helper()
	s, err := shipment.NewDraft(company, "u1", shipment.QuickShip, shipment.Content{
		Carrier: "Day & Ross",
		ShipTo: &shipment.Address{
			CompanyName: "Harbor Supply", Street1: "9 Pier Rd", City: "Boston",
			StateProvince: "MA", PostalCode: "02110", Country: "US",
		},
		Packages: []shipment.Package{{Description: "Crate", Quantity: 1, Weight: 40, Length: 20, Width: 20, Height: 20}},
		Rates: []shipment.RateLine{{
			Code: "FSC", ChargeName: "Fuel",
			Cost:   decimal.NewNullDecimal(decimal.RequireFromString("12.5")),
			Charge: decimal.NewNullDecimal(decimal.RequireFromString("15")),
		}},
	})
	require.NoError(t, err)
	require.NoError(t, s.MarkDraftSaved())
	return s
}

func insert(t *testing.T, store *SQLiteStore, s *shipment.Shipment) kernel.UUID {
	t.Helper()
	key, err := store.Insert(context.Background(), s)
	require.NoError(t, err)
	require.NoError(t, s.AssignKey(key))
	return key
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	store := setupTestStore(t)
	require.NoError(t, runMigrations(store.db.DB))
}

func TestSQLiteStore_InsertAndGet(t *testing.T) {
	store := setupTestStore(t)
	store.now = steppingClock()
	draft := newDraft(t, "ACME")
	key := insert(t, store, draft)

	loaded, err := store.GetByKey(context.Background(), key)
	require.NoError(t, err)

	assert.True(t, loaded.Key().IsEqual(key))
	assert.Equal(t, shipment.QuickShip, loaded.CreationMethod())
	assert.Equal(t, shipment.Draft, loaded.Status())
	assert.Equal(t, 1, loaded.DraftVersion())
	assert.Equal(t, time.Date(2026, 3, 1, 9, 0, 1, 0, time.UTC), loaded.CreatedAt())
	assert.Equal(t, "02110", loaded.Content().ShipTo.PostalCode)
	assert.True(t, decimal.RequireFromString("12.5").Equal(loaded.Content().Rates[0].Cost.Decimal))
	assert.Equal(t, draft.Totals().TotalWeight, loaded.Totals().TotalWeight)
}

func TestSQLiteStore_InsertRejectsPersistedShipment(t *testing.T) {
	store := setupTestStore(t)
	draft := newDraft(t, "ACME")
	insert(t, store, draft)

	_, err := store.Insert(context.Background(), draft)
	require.ErrorIs(t, err, errs.ErrValueIsInvalid)
}

func TestSQLiteStore_GetByKeyMissing(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetByKey(context.Background(), kernel.NewUUID())
	require.ErrorIs(t, err, errs.ErrObjectNotFound)
}

func TestSQLiteStore_UpdateBooksRecord(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	store.now = steppingClock()
	draft := newDraft(t, "ACME")
	key := insert(t, store, draft)

	id, err := kernel.NewShipmentID("ACME", "22234X")
	require.NoError(t, err)
	require.NoError(t, draft.Book(id, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, store.Update(ctx, draft))

	loaded, err := store.GetByKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, shipment.Booked, loaded.Status())
	assert.Equal(t, "ACME-22234X", loaded.ShipmentID().String())
	assert.Equal(t, shipment.DocumentsPending, loaded.DocumentsState())
	require.NotNil(t, loaded.BookedAt())
	assert.Equal(t, 2, loaded.BookedAt().Day())
	assert.True(t, loaded.UpdatedAt().After(loaded.CreatedAt()))

	found, err := store.FindWhere(ctx, ports.Criteria{
		ports.FieldStatus:         "booked",
		ports.FieldDocumentsState: "pending",
	}, 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.True(t, found[0].Key().IsEqual(key))
}

func TestSQLiteStore_UpdateUnknownKey(t *testing.T) {
	store := setupTestStore(t)
	draft := newDraft(t, "ACME")
	require.NoError(t, draft.AssignKey(kernel.NewUUID()))

	err := store.Update(context.Background(), draft)
	require.ErrorIs(t, err, errs.ErrObjectNotFound)
}

func TestSQLiteStore_UpdateNeverReplacesShipmentIDOrUnbooks(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	draft := newDraft(t, "ACME")
	key := insert(t, store, draft)

	// Three writers that all read the draft before any of them wrote.
	first, second, resave := draft.Clone(), draft.Clone(), draft.Clone()

	firstID, err := kernel.NewShipmentID("ACME", "22234X")
	require.NoError(t, err)
	require.NoError(t, first.Book(firstID, time.Now()))
	require.NoError(t, store.Update(ctx, first))

	secondID, err := kernel.NewShipmentID("ACME", "22299Q")
	require.NoError(t, err)
	require.NoError(t, second.Book(secondID, time.Now()))
	err = store.Update(ctx, second)
	require.ErrorIs(t, err, errs.ErrStaleWrite)

	require.NoError(t, resave.MarkDraftSaved())
	err = store.Update(ctx, resave)
	require.ErrorIs(t, err, errs.ErrStaleWrite)

	// The winner can still record its document results.
	require.NoError(t, first.BeginDocumentAttempt(time.Now()))
	first.RecordDocumentStep(shipment.StepBOL, nil, time.Now())
	require.NoError(t, store.Update(ctx, first))

	loaded, err := store.GetByKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, shipment.Booked, loaded.Status())
	assert.Equal(t, "ACME-22234X", loaded.ShipmentID().String())
	assert.Equal(t, shipment.DocumentsPartial, loaded.DocumentsState())

	count, err := store.CountByField(ctx, ports.FieldShipmentID, "ACME-22299Q")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSQLiteStore_FindDocumentRetries(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	booked := func(code string, bookedAt time.Time, attempts int, lastAttempt time.Time, stepErr error) *shipment.Shipment {
		s := newDraft(t, "ACME")
		id, err := kernel.NewShipmentID("ACME", code)
		require.NoError(t, err)
		require.NoError(t, s.Book(id, bookedAt))
		for range attempts {
			require.NoError(t, s.BeginDocumentAttempt(lastAttempt))
			s.RecordDocumentStep(shipment.StepBOL, stepErr, lastAttempt)
			s.RecordDocumentStep(shipment.StepCarrierConfirmation, stepErr, lastAttempt)
		}
		insert(t, store, s)
		return s
	}

	insert(t, store, newDraft(t, "ACME"))
	booked("22222C", base, 1, base.Add(time.Hour), nil)
	booked("22222X", base, 3, base.Add(time.Minute), errors.New("down"))
	recent := booked("22222R", base, 2, base.Add(3*time.Hour), errors.New("down"))
	old := booked("22222L", base, 1, base.Add(time.Hour), errors.New("down"))
	neverRun := booked("22222N", base.Add(2*time.Hour), 0, time.Time{}, nil)

	found, err := store.FindDocumentRetries(ctx, 3, 0)
	require.NoError(t, err)

	var ids []string
	for _, s := range found {
		ids = append(ids, s.ShipmentID().String())
	}
	assert.Equal(t, []string{
		old.ShipmentID().String(),
		neverRun.ShipmentID().String(),
		recent.ShipmentID().String(),
	}, ids)
	assert.Equal(t, 1, found[0].Documents().Attempts)

	limited, err := store.FindDocumentRetries(ctx, 3, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.True(t, limited[0].Key().IsEqual(old.Key()))
}

func TestSQLiteStore_ShipmentIDIsUnique(t *testing.T) {
	store := setupTestStore(t)
	id, err := kernel.NewShipmentID("ACME", "22234X")
	require.NoError(t, err)

	first := newDraft(t, "ACME")
	require.NoError(t, first.AssignShipmentID(id))
	insert(t, store, first)

	second := newDraft(t, "ACME")
	require.NoError(t, second.AssignShipmentID(id))
	_, err = store.Insert(context.Background(), second)
	require.Error(t, err)
}

func TestSQLiteStore_FindOrdersByMostRecentUpdate(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	store.now = steppingClock()

	older := newDraft(t, "ACME")
	olderKey := insert(t, store, older)
	newerKey := insert(t, store, newDraft(t, "ACME"))
	insert(t, store, newDraft(t, "GLOBEX"))

	found, err := store.FindByField(ctx, ports.FieldCompanyID, "ACME", 0)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.True(t, found[0].Key().IsEqual(newerKey))

	require.NoError(t, store.Update(ctx, older))
	found, err = store.FindByField(ctx, ports.FieldCompanyID, "ACME", 1)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.True(t, found[0].Key().IsEqual(olderKey))

	count, err := store.CountByField(ctx, ports.FieldCompanyID, "ACME")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSQLiteStore_RejectsUnknownFields(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.CountByField(context.Background(), ports.Field("content; DROP TABLE shipments"), "x")
	require.ErrorIs(t, err, errs.ErrValueIsInvalid)

	_, err = store.FindWhere(context.Background(), nil, 1)
	require.True(t, errors.Is(err, errs.ErrValueIsRequired))
}

func TestWhereClause_IsDeterministic(t *testing.T) {
	where, args, err := whereClause(ports.Criteria{
		ports.FieldStatus:    "draft",
		ports.FieldCompanyID: "ACME",
	})
	require.NoError(t, err)
	assert.Equal(t, "company_id = ? AND status = ?", where)
	assert.Equal(t, []any{"ACME", "draft"}, args)
}
