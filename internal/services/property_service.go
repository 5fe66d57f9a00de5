package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/baladia/taxe/internal/logger"
	"github.com/baladia/taxe/internal/metrics"
	"github.com/baladia/taxe/internal/models"
	"github.com/baladia/taxe/internal/repository"
	"github.com/baladia/taxe/internal/tax"
)

// UpdatePropertyInput is a partial edit of a property. Nil fields are left
// untouched; Type may only repeat the current type.
type UpdatePropertyInput struct {
	Type           *models.PropertyType
	TaxStartDate   *time.Time
	Location       *models.Coordinates
	Owner          *models.Owner
	Arrondissement *string
	Zone           *string
	Street         *string
	CoveredSurface *float64
	TotalSurface   *float64
	Density        *models.Density
	OtherServices  *string
	Services       []string
	ClearLocation  bool
}

// PropertyService defines the property registry operations.
type PropertyService interface {
	// CreateProperty validates p, computes its tax and stores it as active.
	CreateProperty(ctx context.Context, p *models.Property) (*models.Property, error)

	// UpdateProperty edits a property and recomputes its tax.
	// Returns ErrConflict while an opposition is pending or the property is archived.
	UpdateProperty(ctx context.Context, id int64, in UpdatePropertyInput) (*models.Property, error)

	// GetProperty returns one property or ErrPropertyNotFound.
	GetProperty(ctx context.Context, id int64) (*models.Property, error)

	// ListProperties returns the properties matching filter.
	ListProperties(ctx context.Context, filter models.PropertyFilter) ([]*models.Property, error)

	// ArchiveProperty soft-deletes a property.
	ArchiveProperty(ctx context.Context, id int64) (*models.Property, error)

	// RestoreProperty brings an archived property back.
	RestoreProperty(ctx context.Context, id int64) (*models.Property, error)
}

// propertyService is the concrete implementation of PropertyService.
type propertyService struct {
	properties repository.PropertyRepository
	tx         Transactor
	validate   *validator.Validate
	log        *logger.Logger
	now        func() time.Time
}

// NewPropertyService creates a new instance of PropertyService.
func NewPropertyService(properties repository.PropertyRepository, tx Transactor, log *logger.Logger) PropertyService {
	runner, _ := transactorOrDirect(tx)
	return &propertyService{
		properties: properties,
		tx:         runner,
		validate:   newValidator(),
		log:        log.WithComponent("property_service"),
		now:        time.Now,
	}
}

// newValidator reports field errors under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// checkProperty validates a normalized property as a whole.
func (s *propertyService) checkProperty(p *models.Property) error {
	verr := newValidationError()

	if err := s.validate.Struct(p); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("%w: %w", ErrValidation, err)
		}
		for _, fe := range fieldErrs {
			verr.add(fieldPath(fe), describeFieldError(fe))
		}
	}

	if p.TaxStartDate.IsZero() {
		verr.add("taxStartDate", "is required")
	} else if p.TaxStartDate.After(s.now()) {
		verr.add("taxStartDate", "must not be in the future")
	}

	if p.Location != nil {
		if err := p.Location.Validate(); err != nil {
			verr.add("location", err.Error())
		}
	}

	if err := models.ValidateLocation(p.Arrondissement, p.Zone, p.Street); err != nil {
		verr.add("street", err.Error())
	}

	switch p.Type {
	case models.PropertyTypeBuilt:
		for _, id := range p.Services {
			if !models.IsKnownService(id) {
				verr.add("services", fmt.Sprintf("unknown service %q", id))
			}
		}
	case models.PropertyTypeUnbuilt:
		if p.CoveredSurface != nil {
			verr.add("coveredSurface", "only applies to built properties")
		}
	}

	if err := tax.ValidateAttributes(tax.AttributesOf(p)); err != nil {
		verr.add("surface", err.Error())
	}

	return verr.errOrNil()
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed on '%s' validation", fe.Tag())
	}
}

// CreateProperty stores a new property.
func (s *propertyService) CreateProperty(ctx context.Context, p *models.Property) (*models.Property, error) {
	candidate := *p
	candidate.ID = 0
	candidate.Status = models.PropertyStatusActive
	candidate.Archived = false
	candidate.Normalize()

	if err := s.checkProperty(&candidate); err != nil {
		s.log.Warn("Rejected property creation", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}

	candidate.TaxAmount = tax.Compute(candidate.Type, tax.AttributesOf(&candidate))
	metrics.TaxComputed(string(candidate.Type))

	created, err := s.properties.Insert(ctx, &candidate)
	if err != nil {
		s.log.Error("Failed to insert property", err, map[string]interface{}{
			"property_type": string(candidate.Type),
		})
		return nil, persistenceError("insert property", err)
	}

	s.log.Info("Property created", map[string]interface{}{
		"property_id": created.ID,
		"type":        string(created.Type),
		"tax_amount":  created.TaxAmount.StringFixed(2),
	})
	return created, nil
}

// UpdateProperty merges in into the stored property and writes the difference.
func (s *propertyService) UpdateProperty(ctx context.Context, id int64, in UpdatePropertyInput) (*models.Property, error) {
	var updated *models.Property
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		current, err := s.properties.FindByID(ctx, id)
		if err != nil {
			return persistenceError("find property", err)
		}
		if current == nil {
			return ErrPropertyNotFound
		}
		if in.Type != nil && *in.Type != current.Type {
			return ErrPropertyTypeImmutable
		}
		if current.Archived {
			return ErrPropertyArchived
		}
		if current.Status == models.PropertyStatusOppositionPending {
			return ErrPropertyLocked
		}

		next := mergeProperty(*current, in)
		next.Normalize()
		if err := s.checkProperty(&next); err != nil {
			return err
		}
		next.TaxAmount = tax.Compute(next.Type, tax.AttributesOf(&next))

		patch := diffProperty(current, &next)
		if patch.IsEmpty() {
			updated = current
			return nil
		}

		updated, err = s.properties.Update(ctx, id, patch)
		if err == nil && updated == nil {
			err = repository.ErrUnexpectedRowCount
		}
		if err != nil {
			return persistenceError("update property", err)
		}
		if patch.TaxAmount != nil {
			metrics.TaxComputed(string(next.Type))
		}
		return nil
	})
	if err != nil {
		fields := map[string]interface{}{"property_id": id}
		if errors.Is(err, ErrPersistence) {
			s.log.Error("Property update failed", err, fields)
		} else {
			fields["error"] = err.Error()
			s.log.Warn("Rejected property update", fields)
		}
		return nil, err
	}

	s.log.Info("Property updated", map[string]interface{}{
		"property_id": updated.ID,
		"tax_amount":  updated.TaxAmount.StringFixed(2),
	})
	return updated, nil
}

func mergeProperty(p models.Property, in UpdatePropertyInput) models.Property {
	if in.TaxStartDate != nil {
		p.TaxStartDate = *in.TaxStartDate
	}
	if in.ClearLocation {
		p.Location = nil
	} else if in.Location != nil {
		loc := *in.Location
		p.Location = &loc
	}
	if in.Owner != nil {
		p.Owner = *in.Owner
	}
	if in.Arrondissement != nil {
		p.Arrondissement = *in.Arrondissement
	}
	if in.Zone != nil {
		p.Zone = *in.Zone
	}
	if in.Street != nil {
		p.Street = *in.Street
	}
	if in.CoveredSurface != nil {
		v := *in.CoveredSurface
		p.CoveredSurface = &v
	}
	if in.TotalSurface != nil {
		v := *in.TotalSurface
		p.TotalSurface = &v
	}
	if in.Density != nil {
		d := *in.Density
		p.Density = &d
	}
	if in.Services != nil {
		p.Services = in.Services
	}
	if in.OtherServices != nil {
		p.OtherServices = *in.OtherServices
	}
	return p
}

// diffProperty builds the patch turning cur into next.
func diffProperty(cur, next *models.Property) models.PropertyPatch {
	var patch models.PropertyPatch

	if !cur.TaxStartDate.Equal(next.TaxStartDate) {
		patch.TaxStartDate = &next.TaxStartDate
	}
	switch {
	case next.Location == nil && cur.Location != nil:
		patch.ClearLocation = true
	case next.Location != nil && (cur.Location == nil || *cur.Location != *next.Location):
		patch.Location = next.Location
	}
	if cur.Owner != next.Owner {
		patch.Owner = &next.Owner
	}
	if cur.Arrondissement != next.Arrondissement {
		patch.Arrondissement = &next.Arrondissement
	}
	if cur.Zone != next.Zone {
		patch.Zone = &next.Zone
	}
	if cur.Street != next.Street {
		patch.Street = &next.Street
	}
	if !equalFloat(cur.CoveredSurface, next.CoveredSurface) {
		patch.CoveredSurface = next.CoveredSurface
	}
	if !equalFloat(cur.TotalSurface, next.TotalSurface) {
		patch.TotalSurface = next.TotalSurface
	}
	if !equalDensity(cur.Density, next.Density) {
		patch.Density = next.Density
	}
	if !equalStrings(cur.Services, next.Services) {
		patch.Services = next.Services
	}
	if cur.OtherServices != next.OtherServices {
		patch.OtherServices = &next.OtherServices
	}
	if !cur.TaxAmount.Equal(next.TaxAmount) {
		patch.TaxAmount = &next.TaxAmount
	}
	return patch
}

func equalFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalDensity(a, b *models.Density) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// GetProperty returns one property by id.
func (s *propertyService) GetProperty(ctx context.Context, id int64) (*models.Property, error) {
	p, err := s.properties.FindByID(ctx, id)
	if err != nil {
		s.log.Error("Failed to query property", err, map[string]interface{}{
			"property_id": id,
		})
		return nil, persistenceError("find property", err)
	}
	if p == nil {
		return nil, ErrPropertyNotFound
	}
	return p, nil
}

// ListProperties returns a page of properties.
func (s *propertyService) ListProperties(ctx context.Context, filter models.PropertyFilter) ([]*models.Property, error) {
	verr := newValidationError()
	if filter.Status != "" && !filter.Status.Valid() {
		verr.add("status", fmt.Sprintf("unknown property status %q", filter.Status))
	}
	if filter.Type != "" && filter.Type != models.PropertyTypeBuilt && filter.Type != models.PropertyTypeUnbuilt {
		verr.add("type", fmt.Sprintf("unknown property type %q", filter.Type))
	}
	if err := verr.errOrNil(); err != nil {
		return nil, err
	}

	properties, err := s.properties.List(ctx, filter)
	if err != nil {
		s.log.Error("Failed to list properties", err, map[string]interface{}{
			"status": string(filter.Status),
			"type":   string(filter.Type),
		})
		return nil, persistenceError("list properties", err)
	}

	s.log.Debug("Properties listed", map[string]interface{}{
		"count": len(properties),
	})
	return properties, nil
}

// ArchiveProperty marks a property archived.
func (s *propertyService) ArchiveProperty(ctx context.Context, id int64) (*models.Property, error) {
	return s.setArchived(ctx, id, true)
}

// RestoreProperty clears the archived flag.
func (s *propertyService) RestoreProperty(ctx context.Context, id int64) (*models.Property, error) {
	return s.setArchived(ctx, id, false)
}

func (s *propertyService) setArchived(ctx context.Context, id int64, archived bool) (*models.Property, error) {
	var updated *models.Property
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		current, err := s.properties.FindByID(ctx, id)
		if err != nil {
			return persistenceError("find property", err)
		}
		if current == nil {
			return ErrPropertyNotFound
		}
		if current.Archived == archived {
			updated = current
			return nil
		}
		if archived && current.Status == models.PropertyStatusOppositionPending {
			return ErrPropertyLocked
		}

		updated, err = s.properties.Update(ctx, id, models.PropertyPatch{Archived: &archived})
		if err == nil && updated == nil {
			err = repository.ErrUnexpectedRowCount
		}
		if err != nil {
			return persistenceError("archive property", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Property archive flag changed", map[string]interface{}{
		"property_id": id,
		"archived":    archived,
	})
	return updated, nil
}
