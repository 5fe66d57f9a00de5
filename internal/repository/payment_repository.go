package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/baladia/taxe/internal/database"
	"github.com/baladia/taxe/internal/models"
)

// PaymentRepository defines the interface for payment data access operations.
type PaymentRepository interface {
	// InsertBatch stores the payments in one round trip. A year already paid
	// for the property fails with ErrDuplicate.
	InsertBatch(ctx context.Context, payments []*models.Payment) ([]*models.Payment, error)

	// ListByProperty returns the payments of a property ordered by year.
	ListByProperty(ctx context.Context, propertyID int64) ([]*models.Payment, error)
}

type paymentRepository struct {
	db *database.Database
}

// NewPaymentRepository creates a new instance of PaymentRepository.
func NewPaymentRepository(db *database.Database) PaymentRepository {
	return &paymentRepository{db: db}
}

const paymentColumns = `
	id,
	property_id,
	year,
	amount::text,
	paid_at,
	receipt_number,
	method,
	notes,
	created_by,
	created_at`

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var (
		p      models.Payment
		amount string
	)
	err := row.Scan(
		&p.ID,
		&p.PropertyID,
		&p.Year,
		&amount,
		&p.PaidAt,
		&p.ReceiptNumber,
		&p.Method,
		&p.Notes,
		&p.CreatedBy,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan payment row: %w", err)
	}
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("failed to parse payment amount %q: %w", amount, err)
	}
	return &p, nil
}

func (r *paymentRepository) InsertBatch(ctx context.Context, payments []*models.Payment) ([]*models.Payment, error) {
	if len(payments) == 0 {
		return []*models.Payment{}, nil
	}

	query := `
		INSERT INTO payments (
			property_id, year, amount, paid_at, receipt_number, method, notes, created_by
		) VALUES ($1, $2, $3::text::numeric, $4, $5, $6, $7, $8)
		RETURNING ` + paymentColumns

	batch := &pgx.Batch{}
	for _, p := range payments {
		batch.Queue(query,
			p.PropertyID, p.Year, p.Amount.StringFixed(2), p.PaidAt,
			p.ReceiptNumber, string(p.Method), p.Notes, p.CreatedBy,
		)
	}

	results := r.db.Conn(ctx).SendBatch(ctx, batch)

	created := make([]*models.Payment, 0, len(payments))
	var batchErr error
	for i := range payments {
		p, err := scanPayment(results.QueryRow())
		if err != nil {
			batchErr = fmt.Errorf("failed to insert payment for year %d: %w", payments[i].Year, mapWriteError(err))
			break
		}
		created = append(created, p)
	}

	if err := results.Close(); err != nil && batchErr == nil {
		batchErr = fmt.Errorf("failed to insert payments: %w", mapWriteError(err))
	}
	if batchErr != nil {
		return nil, batchErr
	}
	return created, nil
}

func (r *paymentRepository) ListByProperty(ctx context.Context, propertyID int64) ([]*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE property_id = $1 ORDER BY year, id`

	rows, err := r.db.Conn(ctx).Query(ctx, query, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments for property %d: %w", propertyID, err)
	}

	payments, err := collectAll(rows, scanPayment)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments for property %d: %w", propertyID, err)
	}
	return payments, nil
}
