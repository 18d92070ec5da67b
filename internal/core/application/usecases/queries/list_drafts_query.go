package queries

import (
	"errors"
	"strings"

	"freight/internal/pkg/errs"
	"freight/internal/pkg/guard"
)

const (
	DefaultDraftListLimit = 50
	MaxDraftListLimit     = 200
)

var ErrListDraftsQueryIsNotConstructed = errors.New(
	"ListDraftsQuery must be created via NewListDraftsQuery constructor",
)

// ListDraftsQuery lists the open drafts of a company, most recently updated first.
type ListDraftsQuery struct {
	companyID string
	limit     int

	guard guard.ConstructorGuard
}

// NewListDraftsQuery falls back to DefaultDraftListLimit when limit is zero.
func NewListDraftsQuery(companyID string, limit int) (ListDraftsQuery, error) {
	companyID = strings.TrimSpace(companyID)
	if companyID == "" {
		return ListDraftsQuery{}, errs.NewValueIsRequiredError("companyID")
	}
	if limit == 0 {
		limit = DefaultDraftListLimit
	}
	if limit < 1 || limit > MaxDraftListLimit {
		return ListDraftsQuery{}, errs.NewValueIsOutOfRangeError("limit", limit, 1, MaxDraftListLimit)
	}
	return ListDraftsQuery{companyID: companyID, limit: limit, guard: guard.NewConstructorGuard()}, nil
}

func (q ListDraftsQuery) Validate() error {
	return q.guard.Validate(ErrListDraftsQueryIsNotConstructed)
}

func (q ListDraftsQuery) CompanyID() string {
	return q.companyID
}

func (q ListDraftsQuery) Limit() int {
	return q.limit
}
