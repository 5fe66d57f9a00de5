package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/baladia/taxe/internal/logger"
	"github.com/baladia/taxe/internal/models"
	"github.com/baladia/taxe/internal/repository"
)

func newTestPaymentService(props *MockPropertyRepository, payments *MockPaymentRepository) *paymentService {
	svc := NewPaymentService(props, payments, &countingTransactor{}, logger.Nop()).(*paymentService)
	svc.now = func() time.Time { return fixedNow }
	svc.suffix = func() int { return 7 }
	return svc
}

func storeBatch(payments []*models.Payment) []*models.Payment {
	stored := make([]*models.Payment, 0, len(payments))
	for i, p := range payments {
		copied := *p
		copied.ID = int64(i + 1)
		copied.CreatedAt = fixedNow
		stored = append(stored, &copied)
	}
	return stored
}

func TestCreatePayment_Success(t *testing.T) {
	// Arrange
	props := new(MockPropertyRepository)
	payments := new(MockPaymentRepository)
	service := newTestPaymentService(props, payments)

	props.On("FindByID", mock.Anything, int64(1)).Return(builtProperty(1, 80, models.ServicePublicLighting), nil)
	payments.On("ListByProperty", mock.Anything, int64(1)).Return([]*models.Payment{}, nil)
	payments.On("InsertBatch", mock.Anything, mock.MatchedBy(func(batch []*models.Payment) bool {
		return len(batch) == 2 && batch[0].Year == 2023 && batch[1].Year == 2024 &&
			batch[0].ReceiptNumber == batch[1].ReceiptNumber &&
			batch[0].Method == models.PaymentMethodCheck
	})).Return(storeBatch, nil)

	// Act
	receipt, err := service.CreatePayment(context.Background(), CreatePaymentInput{
		PropertyID: 1,
		Years:      []int{2024, 2023},
		Method:     "chèque",
		CreatedBy:  "collector-1",
	})

	// Assert
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^REC-\d{6}-\d{3}$`), receipt.ReceiptNumber)
	assert.Equal(t, fmt.Sprintf("REC-%06d-007", fixedNow.UnixMilli()%1_000_000), receipt.ReceiptNumber)
	assert.Len(t, receipt.Payments, 2)
	assert.Equal(t, "57.60", receipt.Total.StringFixed(2))
	payments.AssertExpectations(t)
}

func TestCreatePayment_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		property *models.Property
		existing []*models.Payment
		in       CreatePaymentInput
		want     error
	}{
		{
			name:     "no years",
			property: builtProperty(1, 80),
			in:       CreatePaymentInput{PropertyID: 1, Method: models.PaymentMethodCash, CreatedBy: "c"},
			want:     ErrValidation,
		},
		{
			name:     "duplicate years in request",
			property: builtProperty(1, 80),
			in:       CreatePaymentInput{PropertyID: 1, Years: []int{2022, 2022}, Method: models.PaymentMethodCash, CreatedBy: "c"},
			want:     ErrValidation,
		},
		{
			name:     "unknown method",
			property: builtProperty(1, 80),
			in:       CreatePaymentInput{PropertyID: 1, Years: []int{2022}, Method: "barter", CreatedBy: "c"},
			want:     ErrValidation,
		},
		{
			name:     "year before the tax start date",
			property: builtProperty(1, 80),
			in:       CreatePaymentInput{PropertyID: 1, Years: []int{2019}, Method: models.PaymentMethodCash, CreatedBy: "c"},
			want:     ErrValidation,
		},
		{
			name:     "future year",
			property: builtProperty(1, 80),
			in:       CreatePaymentInput{PropertyID: 1, Years: []int{2026}, Method: models.PaymentMethodCash, CreatedBy: "c"},
			want:     ErrValidation,
		},
		{
			name:     "zero tax",
			property: builtProperty(1, 0),
			in:       CreatePaymentInput{PropertyID: 1, Years: []int{2022}, Method: models.PaymentMethodCash, CreatedBy: "c"},
			want:     ErrValidation,
		},
		{
			name:     "unknown property",
			property: nil,
			in:       CreatePaymentInput{PropertyID: 1, Years: []int{2022}, Method: models.PaymentMethodCash, CreatedBy: "c"},
			want:     ErrPropertyNotFound,
		},
		{
			name:     "year already paid",
			property: builtProperty(1, 80),
			existing: []*models.Payment{{PropertyID: 1, Year: 2022}},
			in:       CreatePaymentInput{PropertyID: 1, Years: []int{2022, 2023}, Method: models.PaymentMethodCash, CreatedBy: "c"},
			want:     ErrYearAlreadyPaid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			props := new(MockPropertyRepository)
			payments := new(MockPaymentRepository)
			service := newTestPaymentService(props, payments)

			props.On("FindByID", mock.Anything, int64(1)).Return(tt.property, nil).Maybe()
			payments.On("ListByProperty", mock.Anything, int64(1)).Return(tt.existing, nil).Maybe()

			receipt, err := service.CreatePayment(context.Background(), tt.in)

			assert.Nil(t, receipt)
			assert.ErrorIs(t, err, tt.want)
			payments.AssertNotCalled(t, "InsertBatch")
		})
	}
}

func TestCreatePayment_DuplicateInsertIsConflict(t *testing.T) {
	props := new(MockPropertyRepository)
	payments := new(MockPaymentRepository)
	service := newTestPaymentService(props, payments)

	props.On("FindByID", mock.Anything, int64(1)).Return(builtProperty(1, 80), nil)
	payments.On("ListByProperty", mock.Anything, int64(1)).Return(nil, nil)
	payments.On("InsertBatch", mock.Anything, mock.Anything).Return(nil, repository.ErrDuplicate)

	_, err := service.CreatePayment(context.Background(), CreatePaymentInput{
		PropertyID: 1, Years: []int{2024}, Method: models.PaymentMethodCash, CreatedBy: "c",
	})

	assert.ErrorIs(t, err, ErrConflict)
}

func TestCreatePayment_StoreFailure(t *testing.T) {
	props := new(MockPropertyRepository)
	payments := new(MockPaymentRepository)
	service := newTestPaymentService(props, payments)

	props.On("FindByID", mock.Anything, int64(1)).Return(builtProperty(1, 80), nil)
	payments.On("ListByProperty", mock.Anything, int64(1)).Return(nil, errors.New("too many connections"))

	_, err := service.CreatePayment(context.Background(), CreatePaymentInput{
		PropertyID: 1, Years: []int{2024}, Method: models.PaymentMethodCash, CreatedBy: "c",
	})

	assert.ErrorIs(t, err, ErrPersistence)
}

func TestGetPaymentStatus(t *testing.T) {
	// Arrange
	props := new(MockPropertyRepository)
	payments := new(MockPaymentRepository)
	service := newTestPaymentService(props, payments)

	prop := builtProperty(1, 80, models.ServicePublicLighting)
	paid := &models.Payment{
		ID:         1,
		PropertyID: 1,
		Year:       2022,
		Amount:     decimal.RequireFromString("25.00"),
	}
	props.On("FindByID", mock.Anything, int64(1)).Return(prop, nil)
	payments.On("ListByProperty", mock.Anything, int64(1)).Return([]*models.Payment{paid}, nil)

	// Act
	statement, err := service.GetPaymentStatus(context.Background(), 1)

	// Assert
	require.NoError(t, err)
	require.Len(t, statement.Years, 5) // 2021 through 2025
	assert.Equal(t, 2021, statement.Years[0].Year)
	assert.False(t, statement.Years[0].Paid)
	assert.True(t, statement.Years[1].Paid)
	assert.Equal(t, paid, statement.Years[1].Payment)
	assert.Equal(t, "25.00", statement.TotalPaid.StringFixed(2))
	assert.Equal(t, "115.20", statement.TotalDue.StringFixed(2))
}

func TestGetPaymentStatus_NotFound(t *testing.T) {
	props := new(MockPropertyRepository)
	payments := new(MockPaymentRepository)
	service := newTestPaymentService(props, payments)
	props.On("FindByID", mock.Anything, int64(5)).Return(nil, nil)

	_, err := service.GetPaymentStatus(context.Background(), 5)

	assert.ErrorIs(t, err, ErrPropertyNotFound)
	payments.AssertNotCalled(t, "ListByProperty")
}
