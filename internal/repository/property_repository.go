package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/baladia/taxe/internal/database"
	"github.com/baladia/taxe/internal/models"
)

// PropertyRepository defines the interface for property data access operations.
type PropertyRepository interface {
	// FindByID returns the property with the given id.
	// Returns nil, nil if no property is found (not an error).
	FindByID(ctx context.Context, id int64) (*models.Property, error)

	// Insert stores a new property and returns it with its id and timestamps.
	Insert(ctx context.Context, p *models.Property) (*models.Property, error)

	// Update applies a partial patch and returns the updated property.
	// Returns nil, nil if no property matched.
	Update(ctx context.Context, id int64, patch models.PropertyPatch) (*models.Property, error)

	// List returns the properties matching the filter ordered by id.
	List(ctx context.Context, filter models.PropertyFilter) ([]*models.Property, error)
}

// propertyRepository is the concrete implementation of PropertyRepository.
type propertyRepository struct {
	db *database.Database
}

// NewPropertyRepository creates a new instance of PropertyRepository.
func NewPropertyRepository(db *database.Database) PropertyRepository {
	return &propertyRepository{db: db}
}

const propertyColumns = `
	id,
	property_type,
	tax_start_date,
	arrondissement,
	zone,
	street,
	latitude,
	longitude,
	owner_cin,
	owner_first_name,
	owner_last_name,
	owner_email,
	owner_address,
	owner_phone,
	covered_surface,
	total_surface,
	urban_density,
	services,
	other_services,
	tax_amount::text,
	status,
	archived,
	created_at,
	updated_at`

func scanProperty(row pgx.Row) (*models.Property, error) {
	var (
		p        models.Property
		lat, lng *float64
		density  *string
		tax      string
	)

	err := row.Scan(
		&p.ID,
		&p.Type,
		&p.TaxStartDate,
		&p.Arrondissement,
		&p.Zone,
		&p.Street,
		&lat,
		&lng,
		&p.Owner.CIN,
		&p.Owner.FirstName,
		&p.Owner.LastName,
		&p.Owner.Email,
		&p.Owner.Address,
		&p.Owner.Phone,
		&p.CoveredSurface,
		&p.TotalSurface,
		&density,
		&p.Services,
		&p.OtherServices,
		&tax,
		&p.Status,
		&p.Archived,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan property row: %w", err)
	}

	if lat != nil && lng != nil {
		p.Location = &models.Coordinates{Lat: *lat, Lng: *lng}
	}
	if density != nil {
		d := models.Density(*density)
		p.Density = &d
	}
	if p.TaxAmount, err = decimal.NewFromString(tax); err != nil {
		return nil, fmt.Errorf("failed to parse tax amount %q for property %d: %w", tax, p.ID, err)
	}
	if p.Services == nil {
		p.Services = []string{}
	}

	return &p, nil
}

func densityValue(d *models.Density) *string {
	if d == nil {
		return nil
	}
	s := string(*d)
	return &s
}

// FindByID queries the database for a single property.
func (r *propertyRepository) FindByID(ctx context.Context, id int64) (*models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE id = $1`

	rows, err := r.db.Conn(ctx).Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query property %d: %w", id, err)
	}

	p, err := collectOne(rows, scanProperty)
	if err != nil {
		return nil, fmt.Errorf("failed to read property %d: %w", id, err)
	}
	return p, nil
}

// Insert stores the property. Status defaults to active when unset.
func (r *propertyRepository) Insert(ctx context.Context, p *models.Property) (*models.Property, error) {
	status := p.Status
	if status == "" {
		status = models.PropertyStatusActive
	}
	services := p.Services
	if services == nil {
		services = []string{}
	}

	var lat, lng *float64
	if p.Location != nil {
		lat, lng = &p.Location.Lat, &p.Location.Lng
	}

	query := `
		INSERT INTO properties (
			property_type, tax_start_date, arrondissement, zone, street,
			latitude, longitude,
			owner_cin, owner_first_name, owner_last_name, owner_email, owner_address, owner_phone,
			covered_surface, total_surface, urban_density, services, other_services,
			tax_amount, status, archived
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7,
			$8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18,
			$19::text::numeric, $20, $21
		)
		RETURNING ` + propertyColumns

	rows, err := r.db.Conn(ctx).Query(ctx, query,
		string(p.Type), p.TaxStartDate, p.Arrondissement, p.Zone, p.Street,
		lat, lng,
		p.Owner.CIN, p.Owner.FirstName, p.Owner.LastName, p.Owner.Email, p.Owner.Address, p.Owner.Phone,
		p.CoveredSurface, p.TotalSurface, densityValue(p.Density), services, p.OtherServices,
		p.TaxAmount.StringFixed(2), string(status), p.Archived,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert property: %w", mapWriteError(err))
	}

	created, err := collectOne(rows, scanProperty)
	if err != nil {
		return nil, fmt.Errorf("failed to insert property: %w", err)
	}
	if created == nil {
		return nil, fmt.Errorf("failed to insert property: %w", ErrUnexpectedRowCount)
	}
	return created, nil
}

// Update applies the non-nil fields of patch and refreshes updated_at.
func (r *propertyRepository) Update(ctx context.Context, id int64, patch models.PropertyPatch) (*models.Property, error) {
	var st statement

	if patch.TaxStartDate != nil {
		st.set("tax_start_date", *patch.TaxStartDate)
	}
	switch {
	case patch.ClearLocation:
		st.setExpr("latitude = NULL")
		st.setExpr("longitude = NULL")
	case patch.Location != nil:
		st.set("latitude", patch.Location.Lat)
		st.set("longitude", patch.Location.Lng)
	}
	if patch.CoveredSurface != nil {
		st.set("covered_surface", *patch.CoveredSurface)
	}
	if patch.TotalSurface != nil {
		st.set("total_surface", *patch.TotalSurface)
	}
	if patch.Density != nil {
		st.set("urban_density", string(*patch.Density))
	}
	if patch.TaxAmount != nil {
		st.setExpr("tax_amount = " + st.arg(patch.TaxAmount.StringFixed(2)) + "::text::numeric")
	}
	if patch.Owner != nil {
		st.set("owner_cin", patch.Owner.CIN)
		st.set("owner_first_name", patch.Owner.FirstName)
		st.set("owner_last_name", patch.Owner.LastName)
		st.set("owner_email", patch.Owner.Email)
		st.set("owner_address", patch.Owner.Address)
		st.set("owner_phone", patch.Owner.Phone)
	}
	if patch.Status != nil {
		st.set("status", string(*patch.Status))
	}
	if patch.Arrondissement != nil {
		st.set("arrondissement", *patch.Arrondissement)
	}
	if patch.Zone != nil {
		st.set("zone", *patch.Zone)
	}
	if patch.Street != nil {
		st.set("street", *patch.Street)
	}
	if patch.OtherServices != nil {
		st.set("other_services", *patch.OtherServices)
	}
	if patch.Services != nil {
		st.set("services", patch.Services)
	}
	if patch.Archived != nil {
		st.set("archived", *patch.Archived)
	}
	st.setExpr("updated_at = NOW()")
	st.where("id = %s", id)

	query := `UPDATE properties SET ` + st.setClause() + st.whereClause() + ` RETURNING ` + propertyColumns

	rows, err := r.db.Conn(ctx).Query(ctx, query, st.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update property %d: %w", id, mapWriteError(err))
	}

	updated, err := collectOne(rows, scanProperty)
	if err != nil {
		return nil, fmt.Errorf("failed to update property %d: %w", id, err)
	}
	return updated, nil
}

// List returns a page of properties. Results are never nil.
func (r *propertyRepository) List(ctx context.Context, filter models.PropertyFilter) ([]*models.Property, error) {
	var st statement

	if filter.Status != "" {
		st.where("status = %s", string(filter.Status))
	}
	if filter.Type != "" {
		st.where("property_type = %s", string(filter.Type))
	}
	if filter.Arrondissement != "" {
		st.where("arrondissement = %s", filter.Arrondissement)
	}
	if filter.Archived != nil {
		st.where("archived = %s", *filter.Archived)
	}

	limit, offset := listBounds(filter.Limit, filter.Offset)
	query := `SELECT ` + propertyColumns + ` FROM properties` + st.whereClause() +
		` ORDER BY id LIMIT ` + st.arg(limit) + ` OFFSET ` + st.arg(offset)

	rows, err := r.db.Conn(ctx).Query(ctx, query, st.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}

	properties, err := collectAll(rows, scanProperty)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	return properties, nil
}
