// Package tax implements the municipal property tax schedule.
//
// Built land is taxed on its covered surface, a reference price per surface
// bracket and a rate that grows with the municipal services it receives.
// Unbuilt land is taxed on its total surface at a price per urban density.
// All arithmetic is done in decimal and rounded half-up to the cent.
package tax

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/baladia/taxe/internal/models"
)

// ErrInvalidAttributes is returned by ValidateAttributes.
var ErrInvalidAttributes = errors.New("invalid taxable attributes")

var (
	baseRate  = decimal.RequireFromString("0.02")
	fixedRate = decimal.RequireFromString("0.04")

	rateTier1 = decimal.RequireFromString("0.08")
	rateTier2 = decimal.RequireFromString("0.10")
	rateTier3 = decimal.RequireFromString("0.12")
	rateTier4 = decimal.RequireFromString("0.14")

	densityHigh   = decimal.RequireFromString("0.30")
	densityMedium = decimal.RequireFromString("0.09")
	densityLow    = decimal.RequireFromString("0.03")
)

// Attributes are the taxable inputs of a property.
// Missing numeric inputs are zero and a missing density is low.
type Attributes struct {
	Density        models.Density
	OtherServices  string
	Services       []string
	CoveredSurface float64
	TotalSurface   float64
}

// HasOther reports whether an "other services" text is present.
func (a Attributes) HasOther() bool {
	return strings.TrimSpace(a.OtherServices) != ""
}

// AttributesOf extracts the taxable attributes of p.
func AttributesOf(p *models.Property) Attributes {
	a := Attributes{
		Services:      p.Services,
		OtherServices: p.OtherServices,
	}
	if p.CoveredSurface != nil {
		a.CoveredSurface = *p.CoveredSurface
	}
	if p.TotalSurface != nil {
		a.TotalSurface = *p.TotalSurface
	}
	if p.Density != nil {
		a.Density = *p.Density
	}
	return a
}

// ValidateAttributes rejects negative or non-finite surfaces.
func ValidateAttributes(a Attributes) error {
	if err := checkSurface("covered surface", a.CoveredSurface); err != nil {
		return err
	}
	return checkSurface("total surface", a.TotalSurface)
}

func checkSurface(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be a finite number", ErrInvalidAttributes, name)
	}
	if v < 0 {
		return fmt.Errorf("%w: %s must not be negative, got %v", ErrInvalidAttributes, name, v)
	}
	return nil
}

// PriceReference returns the reference price per surface bracket.
// Bracket upper bounds are inclusive.
func PriceReference(coveredSurface float64) decimal.Decimal {
	switch {
	case coveredSurface <= 100:
		return decimal.NewFromInt(150)
	case coveredSurface <= 200:
		return decimal.NewFromInt(200)
	case coveredSurface <= 400:
		return decimal.NewFromInt(250)
	default:
		return decimal.NewFromInt(300)
	}
}

// SurfaceCategory returns the 1-based surface bracket shown on tax notices.
func SurfaceCategory(coveredSurface float64) int {
	switch {
	case coveredSurface <= 100:
		return 1
	case coveredSurface <= 200:
		return 2
	case coveredSurface <= 400:
		return 3
	default:
		return 4
	}
}

// ServiceRate returns the rate applied for n services.
// An "other services" declaration forces the top rate whatever the count.
func ServiceRate(n int, hasOther bool) decimal.Decimal {
	return serviceTier(n, hasOther).rate
}

// ServiceCategory returns the 1-based service tier shown on tax notices.
func ServiceCategory(n int, hasOther bool) int {
	return serviceTier(n, hasOther).category
}

type tier struct {
	rate     decimal.Decimal
	category int
}

func serviceTier(n int, hasOther bool) tier {
	switch {
	case n > 6 || hasOther:
		return tier{rate: rateTier4, category: 4}
	case n <= 2:
		return tier{rate: rateTier1, category: 1}
	case n <= 4:
		return tier{rate: rateTier2, category: 2}
	default:
		return tier{rate: rateTier3, category: 3}
	}
}

// DensityPrice returns the price per square metre of unbuilt land.
// Unknown or empty densities are priced as low.
func DensityPrice(d models.Density) decimal.Decimal {
	switch d {
	case models.DensityHigh:
		return densityHigh
	case models.DensityMedium:
		return densityMedium
	default:
		return densityLow
	}
}

// Breakdown details how an amount was derived.
type Breakdown struct {
	PriceReference   *decimal.Decimal    `json:"priceReference,omitempty"`
	ServiceRate      *decimal.Decimal    `json:"serviceRate,omitempty"`
	Base             *decimal.Decimal    `json:"base,omitempty"`
	ServiceComponent *decimal.Decimal    `json:"serviceComponent,omitempty"`
	FixedComponent   *decimal.Decimal    `json:"fixedComponent,omitempty"`
	DensityPrice     *decimal.Decimal    `json:"densityPrice,omitempty"`
	Amount           decimal.Decimal     `json:"amount"`
	Type             models.PropertyType `json:"propertyType"`
	Density          models.Density      `json:"urbanDensity,omitempty"`
	Surface          float64             `json:"surface"`
	SurfaceCategory  int                 `json:"surfaceCategory,omitempty"`
	ServiceCategory  int                 `json:"serviceCategory,omitempty"`
	ServiceCount     int                 `json:"serviceCount,omitempty"`
	HasOther         bool                `json:"hasOther,omitempty"`
}

// Compute returns the tax amount of a property of type t, rounded to the cent.
func Compute(t models.PropertyType, a Attributes) decimal.Decimal {
	return Explain(t, a).Amount
}

// Explain computes the tax amount and the intermediate values behind it.
func Explain(t models.PropertyType, a Attributes) Breakdown {
	if t == models.PropertyTypeUnbuilt {
		density := a.Density
		if density == "" {
			density = models.DensityLow
		}
		price := DensityPrice(density)
		return Breakdown{
			Type:         t,
			Surface:      a.TotalSurface,
			Density:      density,
			DensityPrice: &price,
			Amount:       decimal.NewFromFloat(a.TotalSurface).Mul(price).Round(2),
		}
	}

	n := len(a.Services)
	hasOther := a.HasOther()
	price := PriceReference(a.CoveredSurface)
	st := serviceTier(n, hasOther)

	base := decimal.NewFromFloat(a.CoveredSurface).Mul(price).Mul(baseRate)
	service := base.Mul(st.rate)
	fixed := base.Mul(fixedRate)

	return Breakdown{
		Type:             models.PropertyTypeBuilt,
		Surface:          a.CoveredSurface,
		PriceReference:   &price,
		SurfaceCategory:  SurfaceCategory(a.CoveredSurface),
		ServiceRate:      &st.rate,
		ServiceCategory:  st.category,
		ServiceCount:     n,
		HasOther:         hasOther,
		Base:             &base,
		ServiceComponent: &service,
		FixedComponent:   &fixed,
		Amount:           service.Add(fixed).Round(2),
	}
}
