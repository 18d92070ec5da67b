package http

import (
	"errors"
	"net/http"

	"freight/internal/pkg/errs"
)

const (
	kindBadRequest = "bad_request"
	kindNotFound   = "not_found"
	kindInternal   = "internal"
)

type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	State   string `json:"state,omitempty"`
}

// statusFor maps a command or query failure to its HTTP status and response body.
func statusFor(err error) (int, errorResponse) {
	if le, ok := errs.AsLifecycleError(err); ok {
		return lifecycleStatus(le.Kind), errorResponse{Kind: string(le.Kind), Message: le.Message}
	}

	switch {
	case errors.Is(err, errs.ErrObjectNotFound):
		return http.StatusNotFound, errorResponse{Kind: kindNotFound, Message: "shipment not found"}
	case errors.Is(err, errs.ErrValueIsRequired),
		errors.Is(err, errs.ErrValueIsInvalid),
		errors.Is(err, errs.ErrValueIsOutOfRange):
		return http.StatusBadRequest, errorResponse{Kind: kindBadRequest, Message: err.Error()}
	default:
		return http.StatusInternalServerError, errorResponse{Kind: kindInternal, Message: "internal error"}
	}
}

func lifecycleStatus(kind errs.Kind) int {
	switch kind {
	case errs.KindValidationFailed:
		return http.StatusUnprocessableEntity
	case errs.KindAllocationExhausted:
		return http.StatusServiceUnavailable
	case errs.KindPersistenceFailed, errs.KindDocumentStepFailed:
		return http.StatusBadGateway
	case errs.KindCrossEditRejected, errs.KindInvalidTransition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
