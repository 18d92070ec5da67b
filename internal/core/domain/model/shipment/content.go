package shipment

import (
	"fmt"
	"slices"
	"strings"

	"freight/internal/core/domain/model/kernel"
	"freight/internal/pkg/errs"

	"github.com/shopspring/decimal"
)

// Address is a ship-from or ship-to party.
type Address struct {
	CompanyName   string `json:"companyName"`
	ContactName   string `json:"contactName,omitempty"`
	Street1       string `json:"street1"`
	Street2       string `json:"street2,omitempty"`
	City          string `json:"city"`
	StateProvince string `json:"stateProvince"`
	PostalCode    string `json:"postalCode"`
	Country       string `json:"country"`
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
}

// Package is one handling unit line. Weight and dimensions are expressed in
// UnitSystem; an empty UnitSystem means the shipment default.
type Package struct {
	Description           string              `json:"description"`
	PackagingType         string              `json:"packagingType,omitempty"`
	Quantity              int                 `json:"quantity"`
	Weight                float64             `json:"weight"`
	Length                float64             `json:"length"`
	Width                 float64             `json:"width"`
	Height                float64             `json:"height"`
	UnitSystem            kernel.UnitSystem   `json:"unitSystem,omitempty"`
	FreightClass          string              `json:"freightClass,omitempty"`
	DeclaredValue         decimal.NullDecimal `json:"declaredValue"`
	DeclaredValueCurrency string              `json:"declaredValueCurrency,omitempty"`
}

// ConvertTo returns the package with weight and all three dimensions expressed
// in target. A package already in target is returned unchanged.
func (p Package) ConvertTo(from, target kernel.UnitSystem) Package {
	if p.UnitSystem != "" {
		from = p.UnitSystem
	}
	if from == target {
		p.UnitSystem = target
		return p
	}
	p.Weight = kernel.ConvertWeight(p.Weight, from, target)
	p.Length = kernel.ConvertLength(p.Length, from, target)
	p.Width = kernel.ConvertLength(p.Width, from, target)
	p.Height = kernel.ConvertLength(p.Height, from, target)
	p.UnitSystem = target
	return p
}

// RateLine is one charge on the shipment.
type RateLine struct {
	Code           string              `json:"code"`
	ChargeName     string              `json:"chargeName"`
	Cost           decimal.NullDecimal `json:"cost"`
	CostCurrency   string              `json:"costCurrency,omitempty"`
	Charge         decimal.NullDecimal `json:"charge"`
	ChargeCurrency string              `json:"chargeCurrency,omitempty"`
}

// IsBlank reports a line the user added but never filled in.
func (r RateLine) IsBlank() bool {
	return strings.TrimSpace(r.Code) == "" &&
		strings.TrimSpace(r.ChargeName) == "" &&
		!r.Cost.Valid &&
		!r.Charge.Valid
}

// Info carries the descriptive header of a shipment.
type Info struct {
	ShipDate        string   `json:"shipDate,omitempty"`
	Reference       string   `json:"reference,omitempty"`
	PurchaseOrder   string   `json:"purchaseOrder,omitempty"`
	BillType        string   `json:"billType,omitempty"`
	ServiceLevel    string   `json:"serviceLevel,omitempty"`
	SpecialServices []string `json:"specialServices,omitempty"`
	Notes           string   `json:"notes,omitempty"`
}

// CarrierDetails is what the document generators need to know about the carrier.
type CarrierDetails struct {
	CarrierID    string `json:"carrierId,omitempty"`
	Name         string `json:"name,omitempty"`
	SCAC         string `json:"scac,omitempty"`
	ContactEmail string `json:"contactEmail,omitempty"`
}

// Content is the user-editable part of a shipment.
type Content struct {
	Info           Info              `json:"info"`
	ShipFrom       *Address          `json:"shipFrom,omitempty"`
	ShipTo         *Address          `json:"shipTo,omitempty"`
	Packages       []Package         `json:"packages"`
	Rates          []RateLine        `json:"rates"`
	Carrier        string            `json:"carrier,omitempty"`
	CarrierDetails CarrierDetails    `json:"carrierDetails"`
	UnitSystem     kernel.UnitSystem `json:"unitSystem,omitempty"`
}

// DefaultUnitSystem is UnitSystem, or imperial when none was chosen.
func (c Content) DefaultUnitSystem() kernel.UnitSystem {
	if c.UnitSystem == "" {
		return kernel.UnitSystemImperial
	}
	return c.UnitSystem
}

// ConvertPackage converts the package at index i to system.
func (c *Content) ConvertPackage(i int, system kernel.UnitSystem) error {
	if err := system.Validate(); err != nil {
		return err
	}
	if i < 0 || i >= len(c.Packages) {
		return errs.NewValueIsOutOfRangeError("package index", i, 0, len(c.Packages)-1)
	}
	c.Packages[i] = c.Packages[i].ConvertTo(c.DefaultUnitSystem(), system)
	return nil
}

// ConvertAllPackages converts every package to system and makes it the shipment default.
func (c *Content) ConvertAllPackages(system kernel.UnitSystem) error {
	if err := system.Validate(); err != nil {
		return err
	}
	from := c.DefaultUnitSystem()
	for i := range c.Packages {
		c.Packages[i] = c.Packages[i].ConvertTo(from, system)
	}
	c.UnitSystem = system
	return nil
}

// Clone returns a deep copy, so callers can keep editing theirs.
func (c Content) Clone() Content {
	out := c
	if c.ShipFrom != nil {
		from := *c.ShipFrom
		out.ShipFrom = &from
	}
	if c.ShipTo != nil {
		to := *c.ShipTo
		out.ShipTo = &to
	}
	out.Packages = slices.Clone(c.Packages)
	out.Rates = slices.Clone(c.Rates)
	out.Info.SpecialServices = slices.Clone(c.Info.SpecialServices)
	return out
}

// Totals are derived from content on every save and never edited directly.
type Totals struct {
	TotalWeight       float64         `json:"totalWeight"`
	TotalPieces       int             `json:"totalPieces"`
	TotalPackageCount int             `json:"totalPackageCount"`
	TotalCharges      decimal.Decimal `json:"totalCharges"`
}

// ComputeTotals sums packages and charges. Weights are summed in the shipment
// default unit system.
func ComputeTotals(c Content) Totals {
	unit := c.DefaultUnitSystem()
	weight := decimal.Zero
	pieces := 0
	for _, p := range c.Packages {
		from := unit
		if p.UnitSystem != "" {
			from = p.UnitSystem
		}
		w := kernel.ConvertWeight(p.Weight, from, unit)
		weight = weight.Add(decimal.NewFromFloat(w).Mul(decimal.NewFromInt(int64(p.Quantity))))
		pieces += p.Quantity
	}
	charges := decimal.Zero
	for _, r := range c.Rates {
		if r.Charge.Valid {
			charges = charges.Add(r.Charge.Decimal)
		}
	}
	return Totals{
		TotalWeight:       weight.Round(2).InexactFloat64(),
		TotalPieces:       pieces,
		TotalPackageCount: len(c.Packages),
		TotalCharges:      charges,
	}
}

func (t Totals) String() string {
	return fmt.Sprintf("%d packages, %d pieces, %.2f weight, %s charges",
		t.TotalPackageCount, t.TotalPieces, t.TotalWeight, t.TotalCharges.StringFixed(2))
}
