package kernel

import (
	"fmt"

	"freight/internal/pkg/errs"

	"github.com/shopspring/decimal"
)

// UnitSystem selects pounds/inches or kilograms/centimetres for a package.
type UnitSystem string

const (
	UnitSystemImperial UnitSystem = "imperial"
	UnitSystemMetric   UnitSystem = "metric"
)

var (
	poundsToKilograms = decimal.RequireFromString("0.453592")
	kilogramsToPounds = decimal.RequireFromString("2.20462")
	inchesToCm        = decimal.RequireFromString("2.54")
)

func ParseUnitSystem(s string) (UnitSystem, error) {
	u := UnitSystem(s)
	if err := u.Validate(); err != nil {
		return "", err
	}
	return u, nil
}

func (u UnitSystem) Validate() error {
	switch u {
	case UnitSystemImperial, UnitSystemMetric:
		return nil
	default:
		return errs.NewValueIsInvalidErrorWithCause("unitSystem", fmt.Errorf("unknown unit system %q", string(u)))
	}
}

func (u UnitSystem) String() string {
	return string(u)
}

// WeightUnit is the display label for weights in this system.
func (u UnitSystem) WeightUnit() string {
	if u == UnitSystemMetric {
		return "kg"
	}
	return "lbs"
}

// LengthUnit is the display label for dimensions in this system.
func (u UnitSystem) LengthUnit() string {
	if u == UnitSystemMetric {
		return "cm"
	}
	return "in"
}

// Conversions round half away from zero. Weights keep two decimals, lengths one.
// A round trip is not guaranteed to return the starting value.

func LbsToKg(lbs float64) float64 {
	return decimal.NewFromFloat(lbs).Mul(poundsToKilograms).Round(2).InexactFloat64()
}

func KgToLbs(kg float64) float64 {
	return decimal.NewFromFloat(kg).Mul(kilogramsToPounds).Round(2).InexactFloat64()
}

func InToCm(in float64) float64 {
	return decimal.NewFromFloat(in).Mul(inchesToCm).Round(1).InexactFloat64()
}

func CmToIn(cm float64) float64 {
	return decimal.NewFromFloat(cm).Div(inchesToCm).Round(1).InexactFloat64()
}

// ConvertWeight converts a weight between systems; same-system calls return w unchanged.
func ConvertWeight(w float64, from, to UnitSystem) float64 {
	switch {
	case from == to:
		return w
	case to == UnitSystemMetric:
		return LbsToKg(w)
	default:
		return KgToLbs(w)
	}
}

// ConvertLength converts a dimension between systems; same-system calls return l unchanged.
func ConvertLength(l float64, from, to UnitSystem) float64 {
	switch {
	case from == to:
		return l
	case to == UnitSystemMetric:
		return InToCm(l)
	default:
		return CmToIn(l)
	}
}
