package commands_test

import (
	"errors"
	"testing"
	"time"

	"freight/internal/core/application/usecases/commands"
	"freight/internal/core/domain/model/kernel"
	"freight/internal/core/domain/model/shipment"
	"freight/internal/core/ports"
	"freight/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewSaveDraftCommand(t *testing.T) {
	t.Run("requires company and user", func(t *testing.T) {
		_, err := commands.NewSaveDraftCommand("", "", shipment.QuickShip, kernel.UUID{}, kernel.ShipmentID{}, shipment.Content{})

		require.ErrorIs(t, err, errs.ErrValueIsRequired)
		assert.Contains(t, err.Error(), "companyID")
		assert.Contains(t, err.Error(), "userID")
	})

	t.Run("rejects unknown editor", func(t *testing.T) {
		_, err := commands.NewSaveDraftCommand("ACME", "u1", "wizard", kernel.UUID{}, kernel.ShipmentID{}, shipment.Content{})
		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})

	t.Run("rejects a shipment id of another company", func(t *testing.T) {
		_, err := commands.NewSaveDraftCommand("ACME", "u1", shipment.QuickShip, kernel.UUID{},
			mustShipmentID(t, "OTHER-223ABC"), shipment.Content{})
		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})

	t.Run("copies content", func(t *testing.T) {
		content := bookableContent()
		cmd, err := commands.NewSaveDraftCommand("ACME", "u1", shipment.QuickShip, kernel.UUID{}, kernel.ShipmentID{}, content)
		require.NoError(t, err)

		content.Packages[0].Weight = 1

		assert.InDelta(t, 250.0, cmd.Content().Packages[0].Weight, 1e-9)
		require.NoError(t, cmd.Validate())
	})
}

func TestSaveDraftCommandHandler_FirstSaveInserts(t *testing.T) {
	ctx := t.Context()
	key := kernel.NewUUID()
	store := new(MockShipmentStore)
	publisher := new(MockEventPublisher)
	store.On("Insert", ctx, mock.MatchedBy(func(s *shipment.Shipment) bool {
		return s.DraftVersion() == 1 && !s.IsPersisted() && s.Totals().TotalPieces == 2
	})).Return(key, nil).Once()
	publisher.On("Publish", ctx, eventOfType(ports.EventDraftSaved)).Return(nil).Once()

	handler := commands.NewSaveDraftCommandHandler(store, publisher, discardLogger())
	cmd, _ := commands.NewSaveDraftCommand("ACME", "u1", shipment.Advanced, kernel.UUID{}, kernel.ShipmentID{}, bookableContent())

	draft, err := handler.Handle(ctx, cmd)

	require.NoError(t, err)
	assert.True(t, draft.Key().IsEqual(key))
	assert.Equal(t, 1, draft.DraftVersion())
	assert.Equal(t, shipment.StateDraftPersisted, draft.LifecycleState())
	assert.Equal(t, shipment.Advanced, draft.CreationMethod())
	store.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestSaveDraftCommandHandler_LaterSaveUpdates(t *testing.T) {
	ctx := t.Context()
	existing := storedDraft(t, "ACME", shipment.Advanced, shipment.Content{})
	store := new(MockShipmentStore)
	publisher := new(MockEventPublisher)
	mock.InOrder(
		store.On("GetByKey", ctx, existing.Key()).Return(existing, nil).Once(),
		store.On("Update", ctx, existing).Return(nil).Once(),
	)
	publisher.On("Publish", ctx, mock.Anything).Return(nil).Once()

	handler := commands.NewSaveDraftCommandHandler(store, publisher, discardLogger())
	cmd, _ := commands.NewSaveDraftCommand("ACME", "u2", shipment.Advanced, existing.Key(), kernel.ShipmentID{}, bookableContent())

	draft, err := handler.Handle(ctx, cmd)

	require.NoError(t, err)
	assert.Equal(t, 2, draft.DraftVersion())
	assert.Equal(t, "user-1", draft.CreatedBy())
	assert.Equal(t, "Purolator", draft.Content().Carrier)
	store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	store.AssertExpectations(t)
}

func TestSaveDraftCommandHandler_PreallocatedIDReusesRecord(t *testing.T) {
	ctx := t.Context()
	id := mustShipmentID(t, "ACME-223ABC")
	existing := storedDraft(t, "ACME", shipment.QuickShip, shipment.Content{})
	require.NoError(t, existing.AssignShipmentID(id))

	store := new(MockShipmentStore)
	mock.InOrder(
		store.On("FindByField", ctx, ports.FieldShipmentID, "ACME-223ABC", 1).
			Return([]*shipment.Shipment{existing}, nil).Once(),
		store.On("Update", ctx, existing).Return(nil).Once(),
	)

	handler := commands.NewSaveDraftCommandHandler(store, nil, discardLogger())
	cmd, _ := commands.NewSaveDraftCommand("ACME", "u1", shipment.QuickShip, kernel.UUID{}, id, bookableContent())

	draft, err := handler.Handle(ctx, cmd)

	require.NoError(t, err)
	assert.True(t, draft.Key().IsEqual(existing.Key()))
	assert.Equal(t, id, draft.ShipmentID())
	store.AssertExpectations(t)
}

func TestSaveDraftCommandHandler_PreallocatedIDOnNewDraft(t *testing.T) {
	ctx := t.Context()
	id := mustShipmentID(t, "ACME-223ABC")
	store := new(MockShipmentStore)
	store.On("FindByField", ctx, ports.FieldShipmentID, "ACME-223ABC", 1).Return(nil, nil).Once()
	store.On("Insert", ctx, mock.MatchedBy(func(s *shipment.Shipment) bool {
		return s.ShipmentID().IsEqual(id)
	})).Return(kernel.NewUUID(), nil).Once()

	handler := commands.NewSaveDraftCommandHandler(store, nil, discardLogger())
	cmd, _ := commands.NewSaveDraftCommand("ACME", "u1", shipment.QuickShip, kernel.UUID{}, id, shipment.Content{})

	_, err := handler.Handle(ctx, cmd)

	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestSaveDraftCommandHandler_Rejections(t *testing.T) {
	t.Run("booked record", func(t *testing.T) {
		ctx := t.Context()
		booked := storedBooked(t, mustShipmentID(t, "ACME-223ABC"))
		store := new(MockShipmentStore)
		store.On("GetByKey", ctx, booked.Key()).Return(booked, nil).Once()

		handler := commands.NewSaveDraftCommandHandler(store, nil, discardLogger())
		cmd, _ := commands.NewSaveDraftCommand("ACME", "u1", shipment.Advanced, booked.Key(), kernel.ShipmentID{}, bookableContent())

		_, err := handler.Handle(ctx, cmd)

		require.ErrorIs(t, err, errs.ErrInvalidTransition)
		store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("cross edit", func(t *testing.T) {
		ctx := t.Context()
		existing := storedDraft(t, "ACME", shipment.QuickShip, shipment.Content{})
		store := new(MockShipmentStore)
		store.On("GetByKey", ctx, existing.Key()).Return(existing, nil).Once()

		handler := commands.NewSaveDraftCommandHandler(store, nil, discardLogger())
		cmd, _ := commands.NewSaveDraftCommand("ACME", "u1", shipment.Advanced, existing.Key(), kernel.ShipmentID{}, bookableContent())

		_, err := handler.Handle(ctx, cmd)

		require.ErrorIs(t, err, errs.ErrCrossEditRejected)
		store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("record of another company", func(t *testing.T) {
		ctx := t.Context()
		existing := storedDraft(t, "OTHER", shipment.QuickShip, shipment.Content{})
		store := new(MockShipmentStore)
		store.On("GetByKey", ctx, existing.Key()).Return(existing, nil).Once()

		handler := commands.NewSaveDraftCommandHandler(store, nil, discardLogger())
		cmd, _ := commands.NewSaveDraftCommand("ACME", "u1", shipment.QuickShip, existing.Key(), kernel.ShipmentID{}, shipment.Content{})

		_, err := handler.Handle(ctx, cmd)

		require.ErrorIs(t, err, errs.ErrObjectNotFound)
	})
}

func TestSaveDraftCommandHandler_StoreFailure(t *testing.T) {
	ctx := t.Context()
	store := new(MockShipmentStore)
	store.On("Insert", ctx, mock.Anything).Return(kernel.UUID{}, errors.New("disk full")).Once()

	handler := commands.NewSaveDraftCommandHandler(store, nil, discardLogger())
	cmd, _ := commands.NewSaveDraftCommand("ACME", "u1", shipment.QuickShip, kernel.UUID{}, kernel.ShipmentID{}, shipment.Content{})

	draft, err := handler.Handle(ctx, cmd)

	require.ErrorIs(t, err, errs.ErrPersistenceFailed)
	assert.Nil(t, draft)
	assert.Contains(t, err.Error(), "disk full")
}

func TestSaveDraftCommandHandler_PublishFailureIsIgnored(t *testing.T) {
	ctx := t.Context()
	store := new(MockShipmentStore)
	publisher := new(MockEventPublisher)
	store.On("Insert", ctx, mock.Anything).Return(kernel.NewUUID(), nil).Once()
	publisher.On("Publish", ctx, mock.Anything).Return(errors.New("broker down")).Once()

	handler := commands.NewSaveDraftCommandHandler(store, publisher, discardLogger())
	cmd, _ := commands.NewSaveDraftCommand("ACME", "u1", shipment.QuickShip, kernel.UUID{}, kernel.ShipmentID{}, shipment.Content{})

	_, err := handler.Handle(ctx, cmd)

	require.NoError(t, err)
	publisher.AssertExpectations(t)
}

func TestSaveDraftCommandHandler_StaleSaveDoesNotUnbook(t *testing.T) {
	ctx := t.Context()
	store, draft := openStoreWithDraft(t)
	staleView := draft.Clone()

	booked := draft.Clone()
	require.NoError(t, booked.Book(mustShipmentID(t, "ACME-224ZQ6"), time.Now()))
	require.NoError(t, store.Update(ctx, booked))

	handler := commands.NewSaveDraftCommandHandler(&staleReadStore{SQLiteStore: store, stale: staleView}, nil, discardLogger())
	cmd, err := commands.NewSaveDraftCommand("ACME", "u1", shipment.Advanced, draft.Key(), kernel.ShipmentID{}, bookableContent())
	require.NoError(t, err)

	_, err = handler.Handle(ctx, cmd)

	require.ErrorIs(t, err, errs.ErrInvalidTransition)
	stored, err := store.GetByKey(ctx, draft.Key())
	require.NoError(t, err)
	assert.Equal(t, shipment.Booked, stored.Status())
	assert.Equal(t, "ACME-224ZQ6", stored.ShipmentID().String())
}
