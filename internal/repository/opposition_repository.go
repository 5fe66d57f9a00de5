package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/baladia/taxe/internal/database"
	"github.com/baladia/taxe/internal/models"
)

// OppositionRepository defines the interface for opposition data access operations.
type OppositionRepository interface {
	// FindByID returns nil, nil if no opposition is found.
	FindByID(ctx context.Context, id int64) (*models.Opposition, error)

	// FindPendingByPropertyID returns the pending opposition of a property, or nil, nil.
	FindPendingByPropertyID(ctx context.Context, propertyID int64) (*models.Opposition, error)

	// Insert stores a new opposition. A second pending opposition for the
	// same property fails with ErrDuplicate.
	Insert(ctx context.Context, o *models.Opposition) (*models.Opposition, error)

	// Update applies a partial patch. When patch.ExpectedStatus is set the row
	// is only updated if its current status matches.
	// Returns nil, nil if no opposition matched.
	Update(ctx context.Context, id int64, patch models.OppositionPatch) (*models.Opposition, error)

	// List returns oppositions oldest first.
	List(ctx context.Context, filter models.OppositionFilter) ([]*models.Opposition, error)
}

type oppositionRepository struct {
	db *database.Database
}

// NewOppositionRepository creates a new instance of OppositionRepository.
func NewOppositionRepository(db *database.Database) OppositionRepository {
	return &oppositionRepository{db: db}
}

const oppositionColumns = `
	id,
	property_id,
	proposed_covered_surface,
	proposed_services,
	proposed_other_services,
	reason,
	submitted_by,
	status,
	reviewed_by,
	review_notes,
	resolved_at,
	created_at,
	updated_at`

func scanOpposition(row pgx.Row) (*models.Opposition, error) {
	var o models.Opposition
	err := row.Scan(
		&o.ID,
		&o.PropertyID,
		&o.ProposedCoveredSurface,
		&o.ProposedServices,
		&o.ProposedOtherServices,
		&o.Reason,
		&o.SubmittedBy,
		&o.Status,
		&o.ReviewedBy,
		&o.ReviewNotes,
		&o.ResolvedAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan opposition row: %w", err)
	}
	return &o, nil
}

func (r *oppositionRepository) FindByID(ctx context.Context, id int64) (*models.Opposition, error) {
	query := `SELECT ` + oppositionColumns + ` FROM oppositions WHERE id = $1`

	rows, err := r.db.Conn(ctx).Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query opposition %d: %w", id, err)
	}

	o, err := collectOne(rows, scanOpposition)
	if err != nil {
		return nil, fmt.Errorf("failed to read opposition %d: %w", id, err)
	}
	return o, nil
}

func (r *oppositionRepository) FindPendingByPropertyID(ctx context.Context, propertyID int64) (*models.Opposition, error) {
	query := `SELECT ` + oppositionColumns + `
		FROM oppositions
		WHERE property_id = $1 AND status = $2
		ORDER BY created_at
		LIMIT 1`

	rows, err := r.db.Conn(ctx).Query(ctx, query, propertyID, string(models.OppositionStatusPending))
	if err != nil {
		return nil, fmt.Errorf("failed to query pending opposition for property %d: %w", propertyID, err)
	}

	o, err := collectOne(rows, scanOpposition)
	if err != nil {
		return nil, fmt.Errorf("failed to read pending opposition for property %d: %w", propertyID, err)
	}
	return o, nil
}

func (r *oppositionRepository) Insert(ctx context.Context, o *models.Opposition) (*models.Opposition, error) {
	status := o.Status
	if status == "" {
		status = models.OppositionStatusPending
	}

	query := `
		INSERT INTO oppositions (
			property_id, proposed_covered_surface, proposed_services, proposed_other_services,
			reason, submitted_by, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + oppositionColumns

	rows, err := r.db.Conn(ctx).Query(ctx, query,
		o.PropertyID, o.ProposedCoveredSurface, o.ProposedServices, o.ProposedOtherServices,
		o.Reason, o.SubmittedBy, string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert opposition: %w", mapWriteError(err))
	}

	created, err := collectOne(rows, scanOpposition)
	if err != nil {
		return nil, fmt.Errorf("failed to insert opposition: %w", err)
	}
	if created == nil {
		return nil, fmt.Errorf("failed to insert opposition: %w", ErrUnexpectedRowCount)
	}
	return created, nil
}

func (r *oppositionRepository) Update(ctx context.Context, id int64, patch models.OppositionPatch) (*models.Opposition, error) {
	var st statement

	if patch.Status != nil {
		st.set("status", string(*patch.Status))
	}
	if patch.ClearReview {
		st.setExpr("reviewed_by = NULL")
		st.setExpr("review_notes = NULL")
		st.setExpr("resolved_at = NULL")
	} else {
		if patch.ReviewedBy != nil {
			st.set("reviewed_by", *patch.ReviewedBy)
		}
		if patch.ReviewNotes != nil {
			st.set("review_notes", *patch.ReviewNotes)
		}
		if patch.ResolvedAt != nil {
			st.set("resolved_at", *patch.ResolvedAt)
		}
	}
	st.setExpr("updated_at = NOW()")
	st.where("id = %s", id)
	if patch.ExpectedStatus != nil {
		st.where("status = %s", string(*patch.ExpectedStatus))
	}

	query := `UPDATE oppositions SET ` + st.setClause() + st.whereClause() + ` RETURNING ` + oppositionColumns

	rows, err := r.db.Conn(ctx).Query(ctx, query, st.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update opposition %d: %w", id, mapWriteError(err))
	}

	updated, err := collectOne(rows, scanOpposition)
	if err != nil {
		return nil, fmt.Errorf("failed to update opposition %d: %w", id, err)
	}
	return updated, nil
}

func (r *oppositionRepository) List(ctx context.Context, filter models.OppositionFilter) ([]*models.Opposition, error) {
	var st statement

	if filter.Status != "" {
		st.where("status = %s", string(filter.Status))
	}
	if filter.PropertyID != 0 {
		st.where("property_id = %s", filter.PropertyID)
	}
	if filter.SubmittedBy != "" {
		st.where("submitted_by = %s", filter.SubmittedBy)
	}

	limit, offset := listBounds(filter.Limit, filter.Offset)
	query := `SELECT ` + oppositionColumns + ` FROM oppositions` + st.whereClause() +
		` ORDER BY created_at, id LIMIT ` + st.arg(limit) + ` OFFSET ` + st.arg(offset)

	rows, err := r.db.Conn(ctx).Query(ctx, query, st.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list oppositions: %w", err)
	}

	oppositions, err := collectAll(rows, scanOpposition)
	if err != nil {
		return nil, fmt.Errorf("failed to list oppositions: %w", err)
	}
	return oppositions, nil
}
