package commands_test

import (
	"errors"
	"testing"

	"freight/internal/core/application/usecases/commands"
	"freight/internal/core/domain/model/shipment"
	"freight/internal/core/ports"
	"freight/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func lastSymbol(n int) int { return n - 1 }

func taken(t *testing.T) []*shipment.Shipment {
	return []*shipment.Shipment{storedDraft(t, "ACME", shipment.QuickShip, shipment.Content{})}
}

func TestNewAllocateShipmentIDCommand(t *testing.T) {
	cmd, err := commands.NewAllocateShipmentIDCommand("ACME")
	require.NoError(t, err)
	require.NoError(t, cmd.Validate())
	assert.Equal(t, "ACME", cmd.CompanyID())

	_, err = commands.NewAllocateShipmentIDCommand("")
	require.ErrorIs(t, err, errs.ErrValueIsRequired)

	var zero commands.AllocateShipmentIDCommand
	require.ErrorIs(t, zero.Validate(), commands.ErrAllocateShipmentIDCommandIsNotConstructed)
}

func TestAllocateShipmentIDCommandHandler_FirstCandidateIsSequential(t *testing.T) {
	ctx := t.Context()
	store := new(MockShipmentStore)
	mock.InOrder(
		store.On("CountByField", ctx, ports.FieldCompanyID, "ACME").Return(int64(4), nil).Once(),
		store.On("FindByField", ctx, ports.FieldShipmentID, "ACME-227ZZZ", 1).Return(nil, nil).Once(),
	)
	handler := commands.NewAllocateShipmentIDCommandHandler(store, lastSymbol, discardLogger())
	cmd, _ := commands.NewAllocateShipmentIDCommand("ACME")

	id, err := handler.Handle(ctx, cmd)

	require.NoError(t, err)
	assert.Equal(t, "ACME-227ZZZ", id.String())
	store.AssertExpectations(t)
}

func TestAllocateShipmentIDCommandHandler_CollisionFallsBackToRandom(t *testing.T) {
	ctx := t.Context()
	store := new(MockShipmentStore)
	mock.InOrder(
		store.On("CountByField", ctx, ports.FieldCompanyID, "ACME").Return(int64(0), nil).Once(),
		store.On("FindByField", ctx, ports.FieldShipmentID, "ACME-223ZZZ", 1).Return(taken(t), nil).Once(),
		store.On("FindByField", ctx, ports.FieldShipmentID, "ACME-ZZZZZZ", 1).Return([]*shipment.Shipment{}, nil).Once(),
	)
	handler := commands.NewAllocateShipmentIDCommandHandler(store, lastSymbol, discardLogger())
	cmd, _ := commands.NewAllocateShipmentIDCommand("ACME")

	id, err := handler.Handle(ctx, cmd)

	require.NoError(t, err)
	assert.Equal(t, "ACME-ZZZZZZ", id.String())
	store.AssertExpectations(t)
}

func TestAllocateShipmentIDCommandHandler_Exhausted(t *testing.T) {
	ctx := t.Context()
	store := new(MockShipmentStore)
	store.On("CountByField", ctx, ports.FieldCompanyID, "ACME").Return(int64(10), nil).Once()
	store.On("FindByField", ctx, ports.FieldShipmentID, mock.Anything, 1).
		Return(taken(t), nil).Times(commands.MaxAllocationAttempts)
	handler := commands.NewAllocateShipmentIDCommandHandler(store, nil, discardLogger())
	cmd, _ := commands.NewAllocateShipmentIDCommand("ACME")

	id, err := handler.Handle(ctx, cmd)

	require.ErrorIs(t, err, errs.ErrAllocationExhausted)
	assert.True(t, id.IsZero())
	le, ok := errs.AsLifecycleError(err)
	require.True(t, ok)
	assert.Equal(t, errs.KindAllocationExhausted, le.Kind)
	assert.Contains(t, le.Message, "15 attempts")
	store.AssertExpectations(t)
	store.AssertNumberOfCalls(t, "FindByField", 15)
}

func TestAllocateShipmentIDCommandHandler_CountFailureUsesRandomCodes(t *testing.T) {
	ctx := t.Context()
	store := new(MockShipmentStore)
	mock.InOrder(
		store.On("CountByField", ctx, ports.FieldCompanyID, "ACME").Return(int64(0), errors.New("timeout")).Once(),
		store.On("FindByField", ctx, ports.FieldShipmentID, "ACME-ZZZZZZ", 1).Return(nil, nil).Once(),
	)
	handler := commands.NewAllocateShipmentIDCommandHandler(store, lastSymbol, discardLogger())
	cmd, _ := commands.NewAllocateShipmentIDCommand("ACME")

	id, err := handler.Handle(ctx, cmd)

	require.NoError(t, err)
	assert.Equal(t, "ACME-ZZZZZZ", id.String())
	store.AssertExpectations(t)
}

func TestAllocateShipmentIDCommandHandler_LookupFailureIsPersistenceFailure(t *testing.T) {
	ctx := t.Context()
	lookupErr := errors.New("store offline")
	store := new(MockShipmentStore)
	store.On("CountByField", ctx, ports.FieldCompanyID, "ACME").Return(int64(0), nil).Once()
	store.On("FindByField", ctx, ports.FieldShipmentID, mock.Anything, 1).Return(nil, lookupErr).Once()
	handler := commands.NewAllocateShipmentIDCommandHandler(store, nil, discardLogger())
	cmd, _ := commands.NewAllocateShipmentIDCommand("ACME")

	_, err := handler.Handle(ctx, cmd)

	require.ErrorIs(t, err, errs.ErrPersistenceFailed)
	assert.NotErrorIs(t, err, errs.ErrAllocationExhausted)
	le, ok := errs.AsLifecycleError(err)
	require.True(t, ok)
	assert.Equal(t, lookupErr, le.Cause)
	store.AssertExpectations(t)
	store.AssertNumberOfCalls(t, "FindByField", 1)
}

func TestAllocateShipmentIDCommandHandler_RejectsUnconstructedCommand(t *testing.T) {
	store := new(MockShipmentStore)
	handler := commands.NewAllocateShipmentIDCommandHandler(store, nil, discardLogger())

	_, err := handler.Handle(t.Context(), commands.AllocateShipmentIDCommand{})

	require.ErrorIs(t, err, commands.ErrAllocateShipmentIDCommandIsNotConstructed)
	store.AssertNotCalled(t, "CountByField", mock.Anything, mock.Anything, mock.Anything)
}
