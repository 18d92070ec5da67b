package kernel

import (
	"errors"
	"math/rand/v2"
	"strings"

	"freight/internal/pkg/errs"
	"freight/internal/pkg/guard"
)

// ShipmentCodeAlphabet holds the 32 symbols a shipment code is drawn from.
// 0, O, 1 and I are left out so codes survive being read over the phone.
const ShipmentCodeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

const (
	ShipmentCodeLength   = 6
	sequentialCodeDigits = 3
	shipmentIDSeparator  = "-"
)

var ErrShipmentIDIsNotConstructed = errs.NewValueIsRequiredError(
	"shipment id must be created via NewShipmentID or ParseShipmentID")

// SymbolPicker returns an index in [0, n). Allocation takes it as a parameter
// so tests can make the random half of a code deterministic.
type SymbolPicker func(n int) int

// RandomSymbol is the production SymbolPicker.
func RandomSymbol(n int) int {
	return rand.IntN(n) //nolint:gosec // codes are unique, not secret
}

// ShipmentID is the human-facing identifier "{companyID}-{CODE}". It is
// assigned to a shipment at most once.
type ShipmentID struct {
	companyID string
	code      string
	guard     guard.ConstructorGuard
}

func NewShipmentID(companyID string, code string) (ShipmentID, error) {
	id := ShipmentID{guard: guard.NewConstructorGuard()}
	if err := errors.Join(id.setCompanyID(companyID), id.setCode(code)); err != nil {
		return ShipmentID{}, err
	}
	return id, nil
}

// ParseShipmentID splits s on its last separator, so company ids that contain
// a dash themselves still parse.
func ParseShipmentID(s string) (ShipmentID, error) {
	i := strings.LastIndex(s, shipmentIDSeparator)
	if i < 0 {
		return ShipmentID{}, errs.NewValueIsInvalidErrorWithCause("shipmentID",
			errors.New("missing separator between company and code"))
	}
	return NewShipmentID(s[:i], s[i+1:])
}

func IsWellFormedShipmentID(s string) bool {
	_, err := ParseShipmentID(s)
	return err == nil
}

// SequentialShipmentCode encodes n in base 32 as the first three symbols and
// appends three random ones. Counts past 32^3 keep only their low digits.
func SequentialShipmentCode(n int64, pick SymbolPicker) string {
	if n < 0 {
		n = 0
	}
	base := int64(len(ShipmentCodeAlphabet))
	prefix := make([]byte, sequentialCodeDigits)
	for i := sequentialCodeDigits - 1; i >= 0; i-- {
		prefix[i] = ShipmentCodeAlphabet[n%base]
		n /= base
	}
	return string(prefix) + randomSymbols(ShipmentCodeLength-sequentialCodeDigits, pick)
}

func RandomShipmentCode(pick SymbolPicker) string {
	return randomSymbols(ShipmentCodeLength, pick)
}

func randomSymbols(count int, pick SymbolPicker) string {
	if pick == nil {
		pick = RandomSymbol
	}
	var sb strings.Builder
	sb.Grow(count)
	for range count {
		sb.WriteByte(ShipmentCodeAlphabet[pick(len(ShipmentCodeAlphabet))])
	}
	return sb.String()
}

func (id *ShipmentID) setCompanyID(companyID string) error {
	if strings.TrimSpace(companyID) == "" {
		return errs.NewValueIsRequiredError("companyID")
	}
	id.companyID = companyID
	return nil
}

func (id *ShipmentID) setCode(code string) error {
	if len(code) != ShipmentCodeLength {
		return errs.NewValueIsOutOfRangeError("shipment code length", len(code), ShipmentCodeLength, ShipmentCodeLength)
	}
	for _, r := range code {
		if !strings.ContainsRune(ShipmentCodeAlphabet, r) {
			return errs.NewValueIsInvalidErrorWithCause("shipment code",
				errors.New("symbol "+string(r)+" is not part of the code alphabet"))
		}
	}
	id.code = code
	return nil
}

func (id ShipmentID) CompanyID() string {
	return id.companyID
}

func (id ShipmentID) Code() string {
	return id.code
}

// String returns "" for an unassigned id.
func (id ShipmentID) String() string {
	if id.IsZero() {
		return ""
	}
	return id.companyID + shipmentIDSeparator + id.code
}

func (id ShipmentID) IsZero() bool {
	return id.code == ""
}

func (id ShipmentID) IsEqual(other ShipmentID) bool {
	return id.companyID == other.companyID && id.code == other.code
}

func (id ShipmentID) Validate() error {
	return id.guard.Validate(ErrShipmentIDIsNotConstructed)
}
