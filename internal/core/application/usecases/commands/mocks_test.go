package commands_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"freight/internal/adapters/out/sqlite/shipmentstore"
	"freight/internal/core/application/documents"
	"freight/internal/core/application/usecases/commands"
	"freight/internal/core/domain/model/kernel"
	"freight/internal/core/domain/model/shipment"
	"freight/internal/core/ports"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockShipmentStore struct{ mock.Mock }

func (m *MockShipmentStore) CountByField(ctx context.Context, field ports.Field, value string) (int64, error) {
	args := m.Called(ctx, field, value)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockShipmentStore) FindByField(
	ctx context.Context, field ports.Field, value string, limit int,
) ([]*shipment.Shipment, error) {
	args := m.Called(ctx, field, value, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*shipment.Shipment), args.Error(1)
}

func (m *MockShipmentStore) GetByKey(ctx context.Context, key kernel.UUID) (*shipment.Shipment, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipment.Shipment), args.Error(1)
}

func (m *MockShipmentStore) Insert(ctx context.Context, s *shipment.Shipment) (kernel.UUID, error) {
	args := m.Called(ctx, s)
	return args.Get(0).(kernel.UUID), args.Error(1)
}

func (m *MockShipmentStore) Update(ctx context.Context, s *shipment.Shipment) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

type MockEventPublisher struct{ mock.Mock }

func (m *MockEventPublisher) Publish(ctx context.Context, event ports.ShipmentEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockNotifier struct{ mock.Mock }

func (m *MockNotifier) NotifyBooked(ctx context.Context, n ports.BookingNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

type MockAllocator struct{ mock.Mock }

func (m *MockAllocator) Handle(ctx context.Context, cmd commands.AllocateShipmentIDCommand) (kernel.ShipmentID, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(kernel.ShipmentID), args.Error(1)
}

type MockDocumentRunner struct{ mock.Mock }

func (m *MockDocumentRunner) Run(ctx context.Context, req ports.DocumentRequest) documents.Report {
	args := m.Called(ctx, req)
	return args.Get(0).(documents.Report)
}

func (m *MockDocumentRunner) RunPending(
	ctx context.Context, req ports.DocumentRequest, pending []shipment.DocumentStep,
) documents.Report {
	args := m.Called(ctx, req, pending)
	return args.Get(0).(documents.Report)
}

// staleReadStore is a real SQLite store whose next GetByKey returns an old
// copy of a record, as seen by a request that read it before another wrote.
type staleReadStore struct {
	*shipmentstore.SQLiteStore
	stale *shipment.Shipment
}

func (s *staleReadStore) GetByKey(ctx context.Context, key kernel.UUID) (*shipment.Shipment, error) {
	if s.stale != nil && s.stale.Key().IsEqual(key) {
		old := s.stale
		s.stale = nil
		return old.Clone(), nil
	}
	return s.SQLiteStore.GetByKey(ctx, key)
}

// openStoreWithDraft opens an in-memory store holding one saved draft.
func openStoreWithDraft(t *testing.T) (*shipmentstore.SQLiteStore, *shipment.Shipment) {
	t.Helper()
	store, err := shipmentstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	draft, err := shipment.NewDraft("ACME", "u1", shipment.Advanced, bookableContent())
	require.NoError(t, err)
	require.NoError(t, draft.MarkDraftSaved())
	key, err := store.Insert(t.Context(), draft)
	require.NoError(t, err)
	require.NoError(t, draft.AssignKey(key))
	return store, draft
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func eventOfType(t ports.EventType) any {
	return mock.MatchedBy(func(e ports.ShipmentEvent) bool { return e.Type == t })
}

func mustShipmentID(t *testing.T, s string) kernel.ShipmentID {
	t.Helper()
	id, err := kernel.ParseShipmentID(s)
	require.NoError(t, err)
	return id
}

func money(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func address(postal, country string) *shipment.Address {
	return &shipment.Address{
		CompanyName:   "Maple Freight",
		Street1:       "1 Front St",
		City:          "Toronto",
		StateProvince: "ON",
		PostalCode:    postal,
		Country:       country,
	}
}

func bookableContent() shipment.Content {
	return shipment.Content{
		Carrier:        "Purolator",
		CarrierDetails: shipment.CarrierDetails{Name: "Purolator", SCAC: "PURO"},
		ShipFrom:       address("M5J 2N8", "CA"),
		ShipTo:         address("10001", "US"),
		Packages: []shipment.Package{
			{Description: "Skid", Quantity: 2, Weight: 250, Length: 48, Width: 40, Height: 40},
		},
		Rates: []shipment.RateLine{
			{Code: "FRT", ChargeName: "Freight", Cost: money("80"), Charge: money("100")},
		},
	}
}

// storedDraft is a draft as a store would return it after one save.
func storedDraft(t *testing.T, company string, method shipment.CreationMethod, content shipment.Content) *shipment.Shipment {
	t.Helper()
	s, err := shipment.NewDraft(company, "user-1", method, content)
	require.NoError(t, err)
	require.NoError(t, s.MarkDraftSaved())
	require.NoError(t, s.AssignKey(kernel.NewUUID()))
	return s
}

func storedBooked(t *testing.T, id kernel.ShipmentID) *shipment.Shipment {
	t.Helper()
	s := storedDraft(t, id.CompanyID(), shipment.Advanced, bookableContent())
	require.NoError(t, s.Book(id, s.CreatedAt()))
	return s
}
