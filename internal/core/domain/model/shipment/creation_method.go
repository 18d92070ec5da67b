package shipment

import (
	"fmt"

	"freight/internal/pkg/errs"
)

// CreationMethod records which editor created a shipment. A shipment may only
// ever be edited from the editor that created it.
type CreationMethod string

const (
	QuickShip CreationMethod = "quickship"
	Advanced  CreationMethod = "advanced"
)

func ParseCreationMethod(s string) (CreationMethod, error) {
	m := CreationMethod(s)
	if err := m.Validate(); err != nil {
		return "", err
	}
	return m, nil
}

func (m CreationMethod) Validate() error {
	if m != QuickShip && m != Advanced {
		return errs.NewValueIsInvalidErrorWithCause("creationMethod", fmt.Errorf("%q is not a creation method", string(m)))
	}
	return nil
}

func (m CreationMethod) String() string {
	return string(m)
}
