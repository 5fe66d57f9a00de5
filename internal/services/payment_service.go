package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/baladia/taxe/internal/logger"
	"github.com/baladia/taxe/internal/metrics"
	"github.com/baladia/taxe/internal/models"
	"github.com/baladia/taxe/internal/repository"
)

// CreatePaymentInput settles one or more tax years of a property under a single receipt.
type CreatePaymentInput struct {
	Notes      *string
	Method     models.PaymentMethod
	CreatedBy  string
	Years      []int
	PropertyID int64
}

// PaymentReceipt is the result of a recorded payment.
type PaymentReceipt struct {
	Total         decimal.Decimal   `json:"total"`
	ReceiptNumber string            `json:"receiptNumber"`
	Payments      []*models.Payment `json:"payments"`
}

// PaymentService defines the tax collection operations.
type PaymentService interface {
	// CreatePayment records one payment per year at the current tax amount.
	// Returns ErrValidation for bad years or a zero tax, ErrNotFound for an
	// unknown property and ErrConflict when a year is already paid.
	CreatePayment(ctx context.Context, in CreatePaymentInput) (*PaymentReceipt, error)

	// GetPaymentStatus lists every year from the first taxed year to the
	// current one with its paid flag.
	GetPaymentStatus(ctx context.Context, propertyID int64) (*models.PaymentStatement, error)
}

// paymentService is the concrete implementation of PaymentService.
type paymentService struct {
	properties repository.PropertyRepository
	payments   repository.PaymentRepository
	tx         Transactor
	log        *logger.Logger
	now        func() time.Time
	suffix     func() int
}

// NewPaymentService creates a new instance of PaymentService.
func NewPaymentService(
	properties repository.PropertyRepository,
	payments repository.PaymentRepository,
	tx Transactor,
	log *logger.Logger,
) PaymentService {
	runner, _ := transactorOrDirect(tx)
	return &paymentService{
		properties: properties,
		payments:   payments,
		tx:         runner,
		log:        log.WithComponent("payment_service"),
		now:        time.Now,
		suffix:     func() int { return rand.IntN(1000) },
	}
}

// receiptNumber formats REC-<last 6 digits of the unix millis>-<3 random digits>.
func (s *paymentService) receiptNumber(at time.Time) string {
	return fmt.Sprintf("REC-%06d-%03d", at.UnixMilli()%1_000_000, s.suffix()%1000)
}

// CreatePayment records the payment of the requested years.
func (s *paymentService) CreatePayment(ctx context.Context, in CreatePaymentInput) (*PaymentReceipt, error) {
	verr := newValidationError()
	if strings.TrimSpace(in.CreatedBy) == "" {
		return nil, ErrMissingUser
	}
	method, err := models.ParsePaymentMethod(string(in.Method))
	if err != nil {
		verr.add("method", err.Error())
	}
	if len(in.Years) == 0 {
		verr.add("years", "at least one year is required")
	}
	years := slices.Clone(in.Years)
	slices.Sort(years)
	if len(slices.Compact(slices.Clone(years))) != len(years) {
		verr.add("years", "years must be distinct")
	}
	if err := verr.errOrNil(); err != nil {
		return nil, err
	}

	now := s.now()
	var receipt *PaymentReceipt
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		prop, err := s.properties.FindByID(ctx, in.PropertyID)
		if err != nil {
			return persistenceError("find property", err)
		}
		if prop == nil {
			return ErrPropertyNotFound
		}
		if !prop.TaxAmount.IsPositive() {
			verr.add("propertyId", "property has no tax to collect")
			return verr
		}

		first, last := prop.TaxStartDate.Year(), now.Year()
		for _, y := range years {
			if y < first || y > last {
				verr.add("years", fmt.Sprintf("year %d is outside %d-%d", y, first, last))
			}
		}
		if err := verr.errOrNil(); err != nil {
			return err
		}

		existing, err := s.payments.ListByProperty(ctx, prop.ID)
		if err != nil {
			return persistenceError("list payments", err)
		}
		for _, p := range existing {
			if slices.Contains(years, p.Year) {
				return fmt.Errorf("%w: %d", ErrYearAlreadyPaid, p.Year)
			}
		}

		number := s.receiptNumber(now)
		batch := make([]*models.Payment, 0, len(years))
		for _, y := range years {
			batch = append(batch, &models.Payment{
				PropertyID:    prop.ID,
				Year:          y,
				Amount:        prop.TaxAmount,
				PaidAt:        now,
				ReceiptNumber: number,
				Method:        method,
				Notes:         in.Notes,
				CreatedBy:     in.CreatedBy,
			})
		}

		stored, err := s.payments.InsertBatch(ctx, batch)
		if err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrYearAlreadyPaid
			}
			return persistenceError("insert payments", err)
		}

		total := decimal.Zero
		for _, p := range stored {
			total = total.Add(p.Amount)
		}
		receipt = &PaymentReceipt{ReceiptNumber: number, Payments: stored, Total: total}
		return nil
	})
	if err != nil {
		fields := map[string]interface{}{
			"property_id": in.PropertyID,
			"years":       in.Years,
		}
		if errors.Is(err, ErrPersistence) {
			s.log.Error("Payment recording failed", err, fields)
		} else {
			fields["error"] = err.Error()
			s.log.Warn("Rejected payment", fields)
		}
		return nil, err
	}

	metrics.PaymentsRecorded(len(receipt.Payments))
	s.log.Info("Payment recorded", map[string]interface{}{
		"property_id":    in.PropertyID,
		"receipt_number": receipt.ReceiptNumber,
		"years":          years,
		"total":          receipt.Total.StringFixed(2),
	})
	return receipt, nil
}

// GetPaymentStatus builds the yearly statement of a property.
func (s *paymentService) GetPaymentStatus(ctx context.Context, propertyID int64) (*models.PaymentStatement, error) {
	prop, err := s.properties.FindByID(ctx, propertyID)
	if err != nil {
		s.log.Error("Failed to query property", err, map[string]interface{}{
			"property_id": propertyID,
		})
		return nil, persistenceError("find property", err)
	}
	if prop == nil {
		return nil, ErrPropertyNotFound
	}

	payments, err := s.payments.ListByProperty(ctx, propertyID)
	if err != nil {
		s.log.Error("Failed to list payments", err, map[string]interface{}{
			"property_id": propertyID,
		})
		return nil, persistenceError("list payments", err)
	}
	byYear := make(map[int]*models.Payment, len(payments))
	for _, p := range payments {
		byYear[p.Year] = p
	}

	statement := &models.PaymentStatement{
		PropertyID: propertyID,
		TotalDue:   decimal.Zero,
		TotalPaid:  decimal.Zero,
		Years:      []models.YearPaymentStatus{},
	}
	for y := prop.TaxStartDate.Year(); y <= s.now().Year(); y++ {
		row := models.YearPaymentStatus{Year: y, Amount: prop.TaxAmount}
		if p, ok := byYear[y]; ok {
			row.Paid = true
			row.Payment = p
			row.Amount = p.Amount
			statement.TotalPaid = statement.TotalPaid.Add(p.Amount)
		} else {
			statement.TotalDue = statement.TotalDue.Add(prop.TaxAmount)
		}
		statement.Years = append(statement.Years, row)
	}
	return statement, nil
}
