package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordAllocation(t *testing.T) {
	before := testutil.ToFloat64(singleton().allocationTotal.WithLabelValues(ResultOK))

	RecordAllocation(2, ResultOK)

	assert.InDelta(t, before+1, testutil.ToFloat64(singleton().allocationTotal.WithLabelValues(ResultOK)), 1e-9)
}

func TestRecordBookingAndDraftSave(t *testing.T) {
	bookings := testutil.ToFloat64(singleton().bookingTotal.WithLabelValues(ResultInvalid))
	saves := testutil.ToFloat64(singleton().draftSaveTotal.WithLabelValues(ResultError))

	RecordBooking(ResultInvalid)
	RecordDraftSave(ResultError)

	assert.InDelta(t, bookings+1, testutil.ToFloat64(singleton().bookingTotal.WithLabelValues(ResultInvalid)), 1e-9)
	assert.InDelta(t, saves+1, testutil.ToFloat64(singleton().draftSaveTotal.WithLabelValues(ResultError)), 1e-9)
}

func TestRecordDocumentStep(t *testing.T) {
	before := testutil.ToFloat64(singleton().documentStepTotal.WithLabelValues("bol", ResultFailed))

	RecordDocumentStep("bol", false, 150*time.Millisecond)

	assert.InDelta(t, before+1, testutil.ToFloat64(singleton().documentStepTotal.WithLabelValues("bol", ResultFailed)), 1e-9)
}

func TestSingletonIsShared(t *testing.T) {
	assert.Same(t, singleton(), singleton())
}
