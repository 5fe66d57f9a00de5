package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/baladia/taxe/internal/models"
	"github.com/baladia/taxe/internal/tax"
)

// MockPropertyRepository is a mock implementation of PropertyRepository for testing.
// Return values may be functions of the call arguments.
type MockPropertyRepository struct {
	mock.Mock
}

func (m *MockPropertyRepository) FindByID(ctx context.Context, id int64) (*models.Property, error) {
	args := m.Called(ctx, id)
	if fn, ok := args.Get(0).(func(int64) *models.Property); ok {
		return fn(id), args.Error(1)
	}
	p, _ := args.Get(0).(*models.Property)
	return p, args.Error(1)
}

func (m *MockPropertyRepository) Insert(ctx context.Context, p *models.Property) (*models.Property, error) {
	args := m.Called(ctx, p)
	if fn, ok := args.Get(0).(func(*models.Property) *models.Property); ok {
		return fn(p), args.Error(1)
	}
	created, _ := args.Get(0).(*models.Property)
	return created, args.Error(1)
}

func (m *MockPropertyRepository) Update(ctx context.Context, id int64, patch models.PropertyPatch) (*models.Property, error) {
	args := m.Called(ctx, id, patch)
	if fn, ok := args.Get(0).(func(int64, models.PropertyPatch) *models.Property); ok {
		return fn(id, patch), args.Error(1)
	}
	p, _ := args.Get(0).(*models.Property)
	return p, args.Error(1)
}

func (m *MockPropertyRepository) List(ctx context.Context, filter models.PropertyFilter) ([]*models.Property, error) {
	args := m.Called(ctx, filter)
	list, _ := args.Get(0).([]*models.Property)
	return list, args.Error(1)
}

// MockOppositionRepository is a mock implementation of OppositionRepository for testing.
type MockOppositionRepository struct {
	mock.Mock
}

func (m *MockOppositionRepository) FindByID(ctx context.Context, id int64) (*models.Opposition, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(*models.Opposition)
	return o, args.Error(1)
}

func (m *MockOppositionRepository) FindPendingByPropertyID(ctx context.Context, propertyID int64) (*models.Opposition, error) {
	args := m.Called(ctx, propertyID)
	o, _ := args.Get(0).(*models.Opposition)
	return o, args.Error(1)
}

func (m *MockOppositionRepository) Insert(ctx context.Context, o *models.Opposition) (*models.Opposition, error) {
	args := m.Called(ctx, o)
	if fn, ok := args.Get(0).(func(*models.Opposition) *models.Opposition); ok {
		return fn(o), args.Error(1)
	}
	created, _ := args.Get(0).(*models.Opposition)
	return created, args.Error(1)
}

func (m *MockOppositionRepository) Update(ctx context.Context, id int64, patch models.OppositionPatch) (*models.Opposition, error) {
	args := m.Called(ctx, id, patch)
	if fn, ok := args.Get(0).(func(int64, models.OppositionPatch) *models.Opposition); ok {
		return fn(id, patch), args.Error(1)
	}
	o, _ := args.Get(0).(*models.Opposition)
	return o, args.Error(1)
}

func (m *MockOppositionRepository) List(ctx context.Context, filter models.OppositionFilter) ([]*models.Opposition, error) {
	args := m.Called(ctx, filter)
	list, _ := args.Get(0).([]*models.Opposition)
	return list, args.Error(1)
}

// MockPaymentRepository is a mock implementation of PaymentRepository for testing.
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) InsertBatch(ctx context.Context, payments []*models.Payment) ([]*models.Payment, error) {
	args := m.Called(ctx, payments)
	if fn, ok := args.Get(0).(func([]*models.Payment) []*models.Payment); ok {
		return fn(payments), args.Error(1)
	}
	stored, _ := args.Get(0).([]*models.Payment)
	return stored, args.Error(1)
}

func (m *MockPaymentRepository) ListByProperty(ctx context.Context, propertyID int64) ([]*models.Payment, error) {
	args := m.Called(ctx, propertyID)
	list, _ := args.Get(0).([]*models.Payment)
	return list, args.Error(1)
}

// countingTransactor runs fn directly and counts the calls.
type countingTransactor struct {
	calls int
}

func (t *countingTransactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

var fixedNow = time.Date(2025, time.March, 14, 10, 30, 0, 0, time.UTC)

func builtProperty(id int64, coveredSurface float64, services ...string) *models.Property {
	surface := coveredSurface
	p := &models.Property{
		ID:             id,
		Type:           models.PropertyTypeBuilt,
		TaxStartDate:   time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC),
		Arrondissement: "Tunis",
		Zone:           "Médina",
		Street:         "Kasbah",
		Owner: models.Owner{
			CIN:       "08123456",
			FirstName: "Amel",
			LastName:  "Ben Salah",
			Email:     "amel.bensalah@example.tn",
			Address:   "12 Kasbah, Tunis",
			Phone:     "+216 71 000 000",
		},
		CoveredSurface: &surface,
		Services:       models.NormalizeServices(services),
		Status:         models.PropertyStatusActive,
	}
	p.TaxAmount = tax.Compute(p.Type, tax.AttributesOf(p))
	return p
}

func unbuiltProperty(id int64, totalSurface float64, density models.Density) *models.Property {
	surface := totalSurface
	p := builtProperty(id, 0)
	p.Type = models.PropertyTypeUnbuilt
	p.CoveredSurface = nil
	p.TotalSurface = &surface
	p.Density = &density
	p.Services = []string{}
	p.TaxAmount = tax.Compute(p.Type, tax.AttributesOf(p))
	return p
}

// readProperty returns a fresh copy of p on every call, like a database read.
func readProperty(p *models.Property) func(int64) *models.Property {
	return func(int64) *models.Property {
		copied := *p
		return &copied
	}
}

// applyPropertyPatch mimics the repository update on a copy of p.
func applyPropertyPatch(p *models.Property) func(int64, models.PropertyPatch) *models.Property {
	return func(_ int64, patch models.PropertyPatch) *models.Property {
		next := *p
		if patch.CoveredSurface != nil {
			next.CoveredSurface = patch.CoveredSurface
		}
		if patch.TotalSurface != nil {
			next.TotalSurface = patch.TotalSurface
		}
		if patch.Services != nil {
			next.Services = patch.Services
		}
		if patch.OtherServices != nil {
			next.OtherServices = *patch.OtherServices
		}
		if patch.TaxAmount != nil {
			next.TaxAmount = *patch.TaxAmount
		}
		if patch.Status != nil {
			next.Status = *patch.Status
		}
		if patch.Archived != nil {
			next.Archived = *patch.Archived
		}
		if patch.Owner != nil {
			next.Owner = *patch.Owner
		}
		if patch.Street != nil {
			next.Street = *patch.Street
		}
		next.UpdatedAt = fixedNow
		*p = next
		copied := next
		return &copied
	}
}

// applyOppositionPatch mimics the guarded repository update on o.
func applyOppositionPatch(o *models.Opposition) func(int64, models.OppositionPatch) *models.Opposition {
	return func(_ int64, patch models.OppositionPatch) *models.Opposition {
		if patch.ExpectedStatus != nil && o.Status != *patch.ExpectedStatus {
			return nil
		}
		if patch.Status != nil {
			o.Status = *patch.Status
		}
		if patch.ClearReview {
			o.ReviewedBy, o.ReviewNotes, o.ResolvedAt = nil, nil, nil
		}
		if patch.ReviewedBy != nil {
			o.ReviewedBy = patch.ReviewedBy
		}
		if patch.ReviewNotes != nil {
			o.ReviewNotes = patch.ReviewNotes
		}
		if patch.ResolvedAt != nil {
			o.ResolvedAt = patch.ResolvedAt
		}
		o.UpdatedAt = fixedNow
		copied := *o
		return &copied
	}
}
