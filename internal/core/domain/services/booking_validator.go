package services

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"freight/internal/core/domain/model/shipment"
	"freight/internal/pkg/errs"
)

const (
	MinPackages = 1
	MaxPackages = 99

	MinPackageWeight = 0.1
	MaxPackageWeight = 30000

	MinDimension = 1
	MaxDimension = 999

	MinQuantity = 1
	MaxQuantity = 999
)

// AddressRole says which side of the shipment an address sits on.
type AddressRole string

const (
	ShipFrom AddressRole = "ship-from"
	ShipTo   AddressRole = "ship-to"
)

var (
	canadianPostalCode = regexp.MustCompile(`^[A-Za-z]\d[A-Za-z] ?\d[A-Za-z]\d$`)
	usZipCode          = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
)

// RateCodes is the fixed set of accessorial and freight charge codes.
var RateCodes = []string{
	"FRT", "FSC", "ACC", "APT", "LGP", "LGD", "RSP", "RSD", "IDL",
	"HAZ", "DET", "LTD", "NTF", "COD", "BRK", "DTY", "TAX",
}

// BookingValidator checks that shipment content is complete enough to book.
// It is pure: every method returns the first problem found as a
// validation_failed LifecycleError whose message can be shown as-is.
type BookingValidator struct{}

func NewBookingValidator() BookingValidator {
	return BookingValidator{}
}

// ValidateForBooking runs carrier, ship-from, ship-to, packages and rates in
// that order and stops at the first failure.
func (v BookingValidator) ValidateForBooking(c shipment.Content) error {
	if strings.TrimSpace(c.Carrier) == "" {
		return errs.NewValidationFailedError("carrier is required")
	}
	if err := v.ValidateAddress(c.ShipFrom, ShipFrom); err != nil {
		return err
	}
	if err := v.ValidateAddress(c.ShipTo, ShipTo); err != nil {
		return err
	}
	if err := v.ValidatePackages(c.Packages); err != nil {
		return err
	}
	return v.ValidateRates(c.Rates)
}

func (v BookingValidator) ValidateAddress(addr *shipment.Address, role AddressRole) error {
	if addr == nil {
		return errs.NewValidationFailedError(fmt.Sprintf("%s address is required", role))
	}

	required := []struct {
		label string
		value string
	}{
		{"company name", addr.CompanyName},
		{"street address", addr.Street1},
		{"city", addr.City},
		{"state/province", addr.StateProvince},
		{"postal code", addr.PostalCode},
		{"country", addr.Country},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return errs.NewValidationFailedError(fmt.Sprintf("%s %s is required", role, f.label))
		}
	}

	postal := strings.TrimSpace(addr.PostalCode)
	switch NormalizeCountry(addr.Country) {
	case "CA":
		if !canadianPostalCode.MatchString(postal) {
			return errs.NewValidationFailedError(
				fmt.Sprintf("%s postal code %q is not a valid Canadian postal code (A1A 1A1)", role, postal))
		}
	case "US":
		if !usZipCode.MatchString(postal) {
			return errs.NewValidationFailedError(
				fmt.Sprintf("%s ZIP code %q is not a valid US ZIP code (12345 or 12345-6789)", role, postal))
		}
	}
	return nil
}

func (v BookingValidator) ValidatePackages(pkgs []shipment.Package) error {
	if len(pkgs) < MinPackages {
		return errs.NewValidationFailedError("at least one package is required")
	}
	if len(pkgs) > MaxPackages {
		return errs.NewValidationFailedError(fmt.Sprintf("a maximum of %d packages is allowed", MaxPackages))
	}

	for i, p := range pkgs {
		line := i + 1
		if strings.TrimSpace(p.Description) == "" {
			return errs.NewValidationFailedError(fmt.Sprintf("package %d: description is required", line))
		}
		if p.Weight < MinPackageWeight || p.Weight > MaxPackageWeight {
			return errs.NewValidationFailedError(
				fmt.Sprintf("package %d: weight must be between %v and %v", line, MinPackageWeight, MaxPackageWeight))
		}
		dims := []struct {
			name  string
			value float64
		}{{"length", p.Length}, {"width", p.Width}, {"height", p.Height}}
		for _, d := range dims {
			if d.value < MinDimension || d.value > MaxDimension {
				return errs.NewValidationFailedError(
					fmt.Sprintf("package %d: %s must be between %d and %d", line, d.name, MinDimension, MaxDimension))
			}
		}
		if p.Quantity < MinQuantity || p.Quantity > MaxQuantity {
			return errs.NewValidationFailedError(
				fmt.Sprintf("package %d: quantity must be a whole number between %d and %d", line, MinQuantity, MaxQuantity))
		}
		if p.DeclaredValue.Valid && p.DeclaredValue.Decimal.IsNegative() {
			return errs.NewValidationFailedError(fmt.Sprintf("package %d: declared value cannot be negative", line))
		}
	}
	return nil
}

// ValidateRates ignores lines left completely blank. Every other line must
// carry a known code, a charge name, and non-negative cost and charge.
func (v BookingValidator) ValidateRates(rates []shipment.RateLine) error {
	complete := 0
	for i, r := range rates {
		if r.IsBlank() {
			continue
		}
		line := i + 1
		code := strings.ToUpper(strings.TrimSpace(r.Code))
		if code != "" && !IsRateCode(code) {
			return errs.NewValidationFailedError(fmt.Sprintf("rate line %d: invalid rate code %q", line, r.Code))
		}
		switch {
		case code == "":
			return errs.NewValidationFailedError(fmt.Sprintf("rate line %d: code is required", line))
		case strings.TrimSpace(r.ChargeName) == "":
			return errs.NewValidationFailedError(fmt.Sprintf("rate line %d: charge name is required", line))
		case !r.Cost.Valid:
			return errs.NewValidationFailedError(fmt.Sprintf("rate line %d: cost is required", line))
		case r.Cost.Decimal.IsNegative():
			return errs.NewValidationFailedError(fmt.Sprintf("rate line %d: cost cannot be negative", line))
		case !r.Charge.Valid:
			return errs.NewValidationFailedError(fmt.Sprintf("rate line %d: charge is required", line))
		case r.Charge.Decimal.IsNegative():
			return errs.NewValidationFailedError(fmt.Sprintf("rate line %d: charge cannot be negative", line))
		}
		complete++
	}
	if complete == 0 {
		return errs.NewValidationFailedError("at least one complete rate line is required")
	}
	return nil
}

func IsRateCode(code string) bool {
	return slices.Contains(RateCodes, strings.ToUpper(strings.TrimSpace(code)))
}

// NormalizeCountry maps accepted spellings of Canada and the United States to
// their ISO-3166 alpha-2 codes. Anything else is returned upper-cased.
func NormalizeCountry(country string) string {
	c := strings.ToUpper(strings.TrimSpace(country))
	switch c {
	case "CA", "CAN", "CANADA":
		return "CA"
	case "US", "USA", "UNITED STATES", "UNITED STATES OF AMERICA":
		return "US"
	default:
		return c
	}
}
