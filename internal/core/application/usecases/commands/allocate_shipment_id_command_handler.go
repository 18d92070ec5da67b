package commands

import (
	"context"
	"log/slog"

	"freight/internal/core/domain/model/kernel"
	"freight/internal/core/ports"
	"freight/internal/pkg/errs"
	"freight/internal/pkg/metrics"
)

// MaxAllocationAttempts bounds the candidates tried before giving up.
const MaxAllocationAttempts = 15

// AllocateShipmentIDCommandHandler picks a shipment id that is not in use.
//
// The first candidate is seeded from the company's record count so ids grow
// roughly in order; later candidates are fully random. Every candidate is
// checked against the store before it is returned. A failed check is reported
// as persistence_failed right away, since no candidate can be verified while
// the store is unreachable. The check and the later write are not atomic, so
// two concurrent bookings can in rare cases pick the same id.
type AllocateShipmentIDCommandHandler struct {
	index  ShipmentIDIndex
	pick   kernel.SymbolPicker
	logger *slog.Logger
}

func NewAllocateShipmentIDCommandHandler(
	index ShipmentIDIndex,
	pick kernel.SymbolPicker,
	logger *slog.Logger,
) AllocateShipmentIDCommandHandler {
	if pick == nil {
		pick = kernel.RandomSymbol
	}
	return AllocateShipmentIDCommandHandler{
		index:  index,
		pick:   pick,
		logger: logger.With("component", "ShipmentIDAllocator"),
	}
}

func (h AllocateShipmentIDCommandHandler) Handle(ctx context.Context, cmd AllocateShipmentIDCommand) (kernel.ShipmentID, error) {
	if err := cmd.Validate(); err != nil {
		return kernel.ShipmentID{}, err
	}
	company := cmd.CompanyID()

	seeded := true
	count, err := h.index.CountByField(ctx, ports.FieldCompanyID, company)
	if err != nil {
		h.logger.Warn("could not count company shipments, using random codes", "company_id", company, "error", err)
		seeded = false
	}

	var lastErr error
	for attempt := 1; attempt <= MaxAllocationAttempts; attempt++ {
		if err = ctx.Err(); err != nil {
			lastErr = err
			break
		}

		code := kernel.RandomShipmentCode(h.pick)
		if attempt == 1 && seeded {
			code = kernel.SequentialShipmentCode(count+1, h.pick)
		}
		candidate, err := kernel.NewShipmentID(company, code)
		if err != nil {
			return kernel.ShipmentID{}, err
		}

		taken, err := h.index.FindByField(ctx, ports.FieldShipmentID, candidate.String(), 1)
		if err != nil {
			metrics.RecordAllocation(attempt, metrics.ResultError)
			h.logger.Error("shipment id lookup failed", "candidate", candidate.String(), "attempt", attempt, "error", err)
			return kernel.ShipmentID{}, errs.NewPersistenceFailedError(err)
		}
		if len(taken) == 0 {
			metrics.RecordAllocation(attempt, metrics.ResultOK)
			h.logger.Debug("allocated shipment id", "shipment_id", candidate.String(), "attempt", attempt)
			return candidate, nil
		}
	}

	metrics.RecordAllocation(MaxAllocationAttempts, metrics.ResultExhausted)
	h.logger.Error("shipment id allocation exhausted", "company_id", company, "attempts", MaxAllocationAttempts)
	if lastErr != nil {
		return kernel.ShipmentID{}, errs.NewAllocationExhaustedErrorWithCause(company, MaxAllocationAttempts, lastErr)
	}
	return kernel.ShipmentID{}, errs.NewAllocationExhaustedError(company, MaxAllocationAttempts)
}
