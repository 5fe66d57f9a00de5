package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PropertyType distinguishes built land (bâti) from vacant land (non bâti).
type PropertyType string

const (
	PropertyTypeBuilt   PropertyType = "built"
	PropertyTypeUnbuilt PropertyType = "unbuilt"
)

// ParsePropertyType accepts the canonical values and the legacy French labels.
func ParsePropertyType(s string) (PropertyType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "built", "bati", "bâti":
		return PropertyTypeBuilt, nil
	case "unbuilt", "non bati", "non bâti", "non_bati":
		return PropertyTypeUnbuilt, nil
	default:
		return "", fmt.Errorf("unknown property type %q", s)
	}
}

// UnmarshalText normalizes legacy labels when decoding JSON or form values.
func (t *PropertyType) UnmarshalText(text []byte) error {
	parsed, err := ParsePropertyType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Density is the urban density class used to price unbuilt land.
type Density string

const (
	DensityHigh   Density = "high"
	DensityMedium Density = "medium"
	DensityLow    Density = "low"
)

// ParseDensity accepts the canonical values and the legacy French labels.
func ParseDensity(s string) (Density, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "haute":
		return DensityHigh, nil
	case "medium", "moyenne":
		return DensityMedium, nil
	case "low", "basse":
		return DensityLow, nil
	default:
		return "", fmt.Errorf("unknown urban density %q", s)
	}
}

// UnmarshalText normalizes legacy labels when decoding JSON or form values.
func (d *Density) UnmarshalText(text []byte) error {
	parsed, err := ParseDensity(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// PropertyStatus is the lifecycle status of a property with respect to oppositions.
type PropertyStatus string

const (
	PropertyStatusActive             PropertyStatus = "active"
	PropertyStatusOppositionPending  PropertyStatus = "opposition_pending"
	PropertyStatusOppositionApproved PropertyStatus = "opposition_approved"
	// PropertyStatusOppositionRefused is only kept for historical records;
	// a refusal returns the property to active.
	PropertyStatusOppositionRefused PropertyStatus = "opposition_refused"
)

// Valid reports whether s is one of the known statuses.
func (s PropertyStatus) Valid() bool {
	switch s {
	case PropertyStatusActive, PropertyStatusOppositionPending,
		PropertyStatusOppositionApproved, PropertyStatusOppositionRefused:
		return true
	}
	return false
}

// Owner identifies the taxpayer. It is embedded in the property record.
type Owner struct {
	CIN       string `json:"cin" validate:"required,max=50"`
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=100"`
	Address   string `json:"address" validate:"required,max=255"`
	Phone     string `json:"phone" validate:"required,max=50"`
}

// Property is a taxable real-estate unit (an "article").
// Nullable columns use pointers to distinguish between zero values and NULL.
type Property struct {
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	TaxStartDate   time.Time       `json:"taxStartDate"`
	Location       *Coordinates    `json:"location,omitempty"`
	CoveredSurface *float64        `json:"coveredSurface,omitempty" validate:"omitempty,gte=0"`
	TotalSurface   *float64        `json:"totalSurface,omitempty" validate:"omitempty,gte=0"`
	Density        *Density        `json:"urbanDensity,omitempty" validate:"omitempty,oneof=high medium low"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
	Owner          Owner           `json:"owner"`
	Type           PropertyType    `json:"propertyType" validate:"required,oneof=built unbuilt"`
	Status         PropertyStatus  `json:"status"`
	Arrondissement string          `json:"arrondissement" validate:"required,max=100"`
	Zone           string          `json:"zone" validate:"required,max=100"`
	Street         string          `json:"street" validate:"required,max=100"`
	OtherServices  string          `json:"otherServices,omitempty"`
	Services       []string        `json:"services"`
	ID             int64           `json:"id"`
	Archived       bool            `json:"archived"`
}

// CanBeOpposed reports whether a new opposition may be submitted against the
// property in its current status.
func (p *Property) CanBeOpposed() bool {
	if p.Archived {
		return false
	}
	return p.Status == PropertyStatusActive || p.Status == PropertyStatusOppositionApproved
}

// Normalize brings the taxable attributes into canonical form. Built
// properties get distinct services with the baseline service always present;
// unbuilt properties carry no services at all.
func (p *Property) Normalize() {
	if p.Type == PropertyTypeBuilt {
		p.Services = NormalizeServices(p.Services)
		p.OtherServices = strings.TrimSpace(p.OtherServices)
	} else {
		p.Services = []string{}
		p.OtherServices = ""
	}
	p.Arrondissement = strings.TrimSpace(p.Arrondissement)
	p.Zone = strings.TrimSpace(p.Zone)
	p.Street = strings.TrimSpace(p.Street)
}

// PropertyPatch is a partial update. Nil fields are left untouched.
type PropertyPatch struct {
	TaxStartDate   *time.Time
	Location       *Coordinates
	ClearLocation  bool
	CoveredSurface *float64
	TotalSurface   *float64
	Density        *Density
	TaxAmount      *decimal.Decimal
	Owner          *Owner
	Status         *PropertyStatus
	Arrondissement *string
	Zone           *string
	Street         *string
	OtherServices  *string
	Services       []string
	Archived       *bool
}

// IsEmpty reports whether the patch would change nothing.
func (p PropertyPatch) IsEmpty() bool {
	return p.TaxStartDate == nil && p.Location == nil && !p.ClearLocation &&
		p.CoveredSurface == nil && p.TotalSurface == nil && p.Density == nil &&
		p.TaxAmount == nil && p.Owner == nil && p.Status == nil &&
		p.Arrondissement == nil && p.Zone == nil && p.Street == nil &&
		p.OtherServices == nil && p.Services == nil && p.Archived == nil
}

// PropertyFilter narrows property listings. Zero values mean "any".
type PropertyFilter struct {
	Status         PropertyStatus
	Type           PropertyType
	Arrondissement string
	Archived       *bool
	Limit          int
	Offset         int
}
