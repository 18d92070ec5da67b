package shipment

import (
	"fmt"

	"freight/internal/pkg/errs"
)

// Status is the persisted status of a shipment record.
//
//	Draft ──┬──> Booked
//	   ^    │
//	   │    v
//	   └── Error
//
// Booked is terminal.
type Status int

const (
	// Unknown catches uninitialized values.
	Unknown Status = iota
	Draft
	Booked
	Error
)

func getStatusStrings() map[Status]string {
	return map[Status]string{
		Unknown: "unknown",
		Draft:   "draft",
		Booked:  "booked",
		Error:   "error",
	}
}

// ParseStatus accepts the stored string form of a status.
func ParseStatus(s string) (Status, error) {
	for status, str := range getStatusStrings() {
		if str == s && status != Unknown {
			return status, nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%q is not a valid status", s))
}

func (s Status) Validate() error {
	if s != Draft && s != Booked && s != Error {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%d is not a valid status", s))
	}
	return nil
}

func (s Status) String() string {
	if str, ok := getStatusStrings()[s]; ok {
		return str
	}
	return "unknown"
}

// ValidateEdit reports whether content may still be changed in this status.
func (s Status) ValidateEdit() error {
	if s != Draft && s != Error {
		return errs.NewInvalidTransitionError(s.String(), Draft.String())
	}
	return nil
}

// Book moves a draft to Booked.
func (s Status) Book() (Status, error) {
	if s != Draft {
		return Unknown, errs.NewInvalidTransitionError(s.String(), Booked.String())
	}
	return Booked, nil
}

// Fail moves a draft whose booking attempt broke down to Error.
func (s Status) Fail() (Status, error) {
	if s != Draft {
		return Unknown, errs.NewInvalidTransitionError(s.String(), Error.String())
	}
	return Error, nil
}

// Retry returns a failed shipment to Draft. Saving a draft is a no-op transition.
func (s Status) Retry() (Status, error) {
	if s != Error && s != Draft {
		return Unknown, errs.NewInvalidTransitionError(s.String(), Draft.String())
	}
	return Draft, nil
}
