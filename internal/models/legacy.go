package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LegacyDateLayout is the date format of dateDebutImposition.
const LegacyDateLayout = "2006-01-02"

// LegacyArticle reads the article records exported by the former application.
// Two shapes exist: a flat one with French column names and a nested one that
// groups the same fields under general, location, owner and bati_details.
// Nested values win over flat ones when both are present.
type LegacyArticle struct {
	General        *legacyGeneral  `json:"general,omitempty"`
	Location       *legacyLocation `json:"location,omitempty"`
	Owner          *legacyOwner    `json:"owner,omitempty"`
	BatiDetails    *legacyBati     `json:"bati_details,omitempty"`
	NonBatiDetails *legacyNonBati  `json:"non_bati_details,omitempty"`

	legacyGeneral
	legacyLocation
	legacyOwner
	legacyBati
	legacyNonBati
	Archive bool `json:"archive,omitempty"`
}

type legacyGeneral struct {
	ID                  *int64 `json:"id,omitempty"`
	TypeDePropriete     string `json:"typeDePropriete,omitempty"`
	DateDebutImposition string `json:"dateDebutImposition,omitempty"`
}

type legacyLocation struct {
	Arrondissement string `json:"arrondissement,omitempty"`
	Zone           string `json:"zone,omitempty"`
	Rue            string `json:"rue,omitempty"`
	X              string `json:"x,omitempty"`
	Y              string `json:"y,omitempty"`
}

type legacyOwner struct {
	CIN       string `json:"cin,omitempty"`
	Nom       string `json:"nom,omitempty"`
	Prenom    string `json:"prenom,omitempty"`
	Email     string `json:"email,omitempty"`
	Adresse   string `json:"adresse,omitempty"`
	Telephone string `json:"telephone,omitempty"`
}

type legacyBati struct {
	SurfaceCouverte *legacyNumber   `json:"surfaceCouverte,omitempty"`
	Services        []legacyService `json:"services,omitempty"`
	AutreService    string          `json:"autreService,omitempty"`
}

type legacyNonBati struct {
	SurfaceTotale *legacyNumber `json:"surfaceTotale,omitempty"`
	DensiteUrbain string        `json:"densiteUrbain,omitempty"`
}

type legacyService struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
}

// legacyNumber decodes numeric columns that were exported either as JSON
// numbers or as strings.
type legacyNumber float64

func (n *legacyNumber) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", s, err)
	}
	*n = legacyNumber(f)
	return nil
}

// ParseLegacyArticle decodes one legacy article document.
func ParseLegacyArticle(data []byte) (*LegacyArticle, error) {
	var a LegacyArticle
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to decode legacy article: %w", err)
	}
	return &a, nil
}

func pick(nested, flat string) string {
	if strings.TrimSpace(nested) != "" {
		return nested
	}
	return flat
}

// ToProperty converts the legacy record to the canonical Property.
// The tax amount is left zero; callers recompute it.
func (a *LegacyArticle) ToProperty() (*Property, error) {
	gen, loc, own := a.legacyGeneral, a.legacyLocation, a.legacyOwner
	bati, nonBati := a.legacyBati, a.legacyNonBati
	if a.General != nil {
		gen.TypeDePropriete = pick(a.General.TypeDePropriete, gen.TypeDePropriete)
		gen.DateDebutImposition = pick(a.General.DateDebutImposition, gen.DateDebutImposition)
		if a.General.ID != nil {
			gen.ID = a.General.ID
		}
	}
	if a.Location != nil {
		loc.Arrondissement = pick(a.Location.Arrondissement, loc.Arrondissement)
		loc.Zone = pick(a.Location.Zone, loc.Zone)
		loc.Rue = pick(a.Location.Rue, loc.Rue)
		loc.X = pick(a.Location.X, loc.X)
		loc.Y = pick(a.Location.Y, loc.Y)
	}
	if a.Owner != nil {
		own.CIN = pick(a.Owner.CIN, own.CIN)
		own.Nom = pick(a.Owner.Nom, own.Nom)
		own.Prenom = pick(a.Owner.Prenom, own.Prenom)
		own.Email = pick(a.Owner.Email, own.Email)
		own.Adresse = pick(a.Owner.Adresse, own.Adresse)
		own.Telephone = pick(a.Owner.Telephone, own.Telephone)
	}
	if a.BatiDetails != nil {
		if a.BatiDetails.SurfaceCouverte != nil {
			bati.SurfaceCouverte = a.BatiDetails.SurfaceCouverte
		}
		if a.BatiDetails.Services != nil {
			bati.Services = a.BatiDetails.Services
		}
		bati.AutreService = pick(a.BatiDetails.AutreService, bati.AutreService)
	}
	if a.NonBatiDetails != nil {
		if a.NonBatiDetails.SurfaceTotale != nil {
			nonBati.SurfaceTotale = a.NonBatiDetails.SurfaceTotale
		}
		nonBati.DensiteUrbain = pick(a.NonBatiDetails.DensiteUrbain, nonBati.DensiteUrbain)
	}

	propertyType, err := ParsePropertyType(gen.TypeDePropriete)
	if err != nil {
		return nil, err
	}

	p := &Property{
		Type:           propertyType,
		Status:         PropertyStatusActive,
		Arrondissement: loc.Arrondissement,
		Zone:           loc.Zone,
		Street:         loc.Rue,
		Owner: Owner{
			CIN:       own.CIN,
			FirstName: own.Prenom,
			LastName:  own.Nom,
			Email:     own.Email,
			Address:   own.Adresse,
			Phone:     own.Telephone,
		},
		Archived: a.Archive,
	}
	if gen.ID != nil {
		p.ID = *gen.ID
	}

	if gen.DateDebutImposition != "" {
		start, err := time.Parse(LegacyDateLayout, gen.DateDebutImposition)
		if err != nil {
			return nil, fmt.Errorf("invalid dateDebutImposition %q: %w", gen.DateDebutImposition, err)
		}
		p.TaxStartDate = start
	}

	// x is the longitude and y the latitude, as drawn on the map.
	if loc.X != "" && loc.Y != "" {
		lng, errX := strconv.ParseFloat(strings.TrimSpace(loc.X), 64)
		lat, errY := strconv.ParseFloat(strings.TrimSpace(loc.Y), 64)
		if errX == nil && errY == nil {
			p.Location = &Coordinates{Lat: lat, Lng: lng}
		}
	}

	if nonBati.SurfaceTotale != nil {
		v := float64(*nonBati.SurfaceTotale)
		p.TotalSurface = &v
	}
	if nonBati.DensiteUrbain != "" {
		d, err := ParseDensity(nonBati.DensiteUrbain)
		if err != nil {
			return nil, err
		}
		p.Density = &d
	}

	if propertyType == PropertyTypeBuilt {
		if bati.SurfaceCouverte != nil {
			v := float64(*bati.SurfaceCouverte)
			p.CoveredSurface = &v
		}
		services := make([]string, 0, len(bati.Services))
		for _, s := range bati.Services {
			services = append(services, s.ID)
		}
		p.Services = services
		p.OtherServices = bati.AutreService
	}

	p.Normalize()
	return p, nil
}
