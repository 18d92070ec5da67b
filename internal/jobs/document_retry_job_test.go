package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"freight/internal/adapters/out/sqlite/shipmentstore"
	"freight/internal/core/application/usecases/commands"
	"freight/internal/core/domain/model/kernel"
	"freight/internal/core/domain/model/shipment"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockFinder struct{ mock.Mock }

func (m *MockFinder) FindDocumentRetries(ctx context.Context, maxAttempts, limit int) ([]*shipment.Shipment, error) {
	args := m.Called(ctx, maxAttempts, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*shipment.Shipment), args.Error(1)
}

type MockRetrier struct{ mock.Mock }

func (m *MockRetrier) Handle(ctx context.Context, cmd commands.RetryDocumentsCommand) (*shipment.Shipment, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipment.Shipment), args.Error(1)
}

var sweepStart = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// bookedShipment returns a stored booked shipment with the given number of
// failed document attempts, the last one at lastAttempt.
func bookedShipment(t *testing.T, code string, bookedAt time.Time, attempts int, lastAttempt time.Time) *shipment.Shipment {
	t.Helper()
	s := unsavedBookedShipment(t, code, bookedAt, attempts, lastAttempt)
	require.NoError(t, s.AssignKey(kernel.NewUUID()))
	return s
}

func unsavedBookedShipment(t *testing.T, code string, bookedAt time.Time, attempts int, lastAttempt time.Time) *shipment.Shipment {
	t.Helper()
	s, err := shipment.NewDraft("ACME", "u1", shipment.Advanced, shipment.Content{
		Packages: []shipment.Package{{Description: "Skid", Quantity: 1, Weight: 10, Length: 10, Width: 10, Height: 10}},
		Rates: []shipment.RateLine{{
			Code: "FRT", ChargeName: "Freight",
			Cost:   decimal.NewNullDecimal(decimal.NewFromInt(1)),
			Charge: decimal.NewNullDecimal(decimal.NewFromInt(2)),
		}},
	})
	require.NoError(t, err)
	id, err := kernel.NewShipmentID("ACME", code)
	require.NoError(t, err)
	require.NoError(t, s.Book(id, bookedAt))
	for range attempts {
		require.NoError(t, s.BeginDocumentAttempt(lastAttempt))
		s.RecordDocumentStep(shipment.StepBOL, errors.New("down"), lastAttempt)
	}
	return s
}

func newTestJob(finder *MockFinder, retrier *MockRetrier) *DocumentRetryJob {
	job := NewDocumentRetryJob(finder, retrier, DocumentRetryConfig{
		MaxAttempts: 3,
		Batch:       10,
		BaseBackoff: time.Minute,
		Grace:       2 * time.Minute,
	}, discardLogger())
	job.now = func() time.Time { return sweepStart }
	return job
}

func TestDocumentRetryJob_RunOnce(t *testing.T) {
	ctx := t.Context()
	finder := new(MockFinder)
	retrier := new(MockRetrier)

	justBooked := bookedShipment(t, "22222A", sweepStart.Add(-time.Minute), 0, time.Time{})
	stranded := bookedShipment(t, "22222B", sweepStart.Add(-time.Hour), 0, time.Time{})
	cooling := bookedShipment(t, "22222C", sweepStart.Add(-time.Hour), 2, sweepStart.Add(-90*time.Second))
	due := bookedShipment(t, "22222D", sweepStart.Add(-time.Hour), 2, sweepStart.Add(-3*time.Minute))

	finder.On("FindDocumentRetries", ctx, 3, 10).
		Return([]*shipment.Shipment{stranded, due, cooling, justBooked}, nil).Once()

	for _, s := range []*shipment.Shipment{stranded, due} {
		cmd, err := commands.NewRetryDocumentsCommand(s.Key())
		require.NoError(t, err)
		retrier.On("Handle", ctx, cmd).Return(s, nil).Once()
	}

	retried, err := newTestJob(finder, retrier).RunOnce(ctx)

	require.NoError(t, err)
	assert.Equal(t, 2, retried)
	finder.AssertExpectations(t)
	retrier.AssertExpectations(t)
}

func TestDocumentRetryJob_RunOnceKeepsGoingAfterFailures(t *testing.T) {
	ctx := t.Context()
	finder := new(MockFinder)
	retrier := new(MockRetrier)

	first := bookedShipment(t, "22222A", sweepStart.Add(-time.Hour), 0, time.Time{})
	second := bookedShipment(t, "22222B", sweepStart.Add(-time.Hour), 0, time.Time{})

	finder.On("FindDocumentRetries", ctx, 3, 10).Return([]*shipment.Shipment{first, second}, nil).Once()

	firstCmd, _ := commands.NewRetryDocumentsCommand(first.Key())
	secondCmd, _ := commands.NewRetryDocumentsCommand(second.Key())
	retrier.On("Handle", ctx, firstCmd).Return(nil, errors.New("write conflict")).Once()
	retrier.On("Handle", ctx, secondCmd).Return(second, nil).Once()

	retried, err := newTestJob(finder, retrier).RunOnce(ctx)

	assert.Equal(t, 1, retried)
	require.Error(t, err)
	assert.ErrorContains(t, err, "write conflict")
	retrier.AssertExpectations(t)
}

func TestDocumentRetryJob_RunOnceFinderFailure(t *testing.T) {
	ctx := t.Context()
	finder := new(MockFinder)
	retrier := new(MockRetrier)
	finder.On("FindDocumentRetries", ctx, 3, 10).Return(nil, errors.New("db gone")).Once()

	retried, err := newTestJob(finder, retrier).RunOnce(ctx)

	assert.Zero(t, retried)
	assert.ErrorContains(t, err, "find shipments with missing documents: db gone")
	retrier.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
}

func TestDocumentRetryJob_ExhaustedShipmentsDoNotCrowdOutDueOnes(t *testing.T) {
	ctx := t.Context()
	store, err := shipmentstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	save := func(s *shipment.Shipment) *shipment.Shipment {
		key, insertErr := store.Insert(ctx, s)
		require.NoError(t, insertErr)
		require.NoError(t, s.AssignKey(key))
		return s
	}

	due := save(unsavedBookedShipment(t, "22200A", sweepStart.Add(-3*time.Hour), 1, sweepStart.Add(-2*time.Hour)))
	for i := range 10 {
		save(unsavedBookedShipment(t, "22322"+string(kernel.ShipmentCodeAlphabet[i]), sweepStart.Add(-time.Hour), 3, sweepStart.Add(-time.Minute)))
	}

	retrier := new(MockRetrier)
	cmd, err := commands.NewRetryDocumentsCommand(due.Key())
	require.NoError(t, err)
	retrier.On("Handle", ctx, cmd).Return(due, nil).Once()

	job := NewDocumentRetryJob(store, retrier, DocumentRetryConfig{
		MaxAttempts: 3,
		Batch:       10,
		BaseBackoff: time.Minute,
	}, discardLogger())
	job.now = func() time.Time { return sweepStart }

	retried, err := job.RunOnce(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, retried)
	retrier.AssertExpectations(t)
}

func TestDocumentRetryJob_StartRejectsBadSchedule(t *testing.T) {
	job := NewDocumentRetryJob(new(MockFinder), new(MockRetrier),
		DocumentRetryConfig{Schedule: "every now and then"}, discardLogger())

	require.Error(t, job.Start())
}

func TestDocumentRetryConfig_Defaults(t *testing.T) {
	c := DocumentRetryConfig{}.withDefaults()

	assert.Equal(t, DefaultRetrySchedule, c.Schedule)
	assert.Equal(t, DefaultRetryMaxAttempts, c.MaxAttempts)
	assert.Equal(t, DefaultRetryBatch, c.Batch)
	assert.Equal(t, DefaultRetryBaseBackoff, c.BaseBackoff)
	assert.Equal(t, DefaultRetryMaxBackoff, c.MaxBackoff)
	assert.Equal(t, DefaultRetryGrace, c.Grace)
}
