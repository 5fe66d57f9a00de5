package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/baladia/taxe/internal/authz"
	"github.com/baladia/taxe/internal/logger"
	"github.com/baladia/taxe/internal/middleware"
	"github.com/baladia/taxe/internal/models"
	"github.com/baladia/taxe/internal/services"
)

// MockPropertyService is a mock implementation of services.PropertyService.
type MockPropertyService struct {
	mock.Mock
}

func (m *MockPropertyService) CreateProperty(ctx context.Context, p *models.Property) (*models.Property, error) {
	args := m.Called(ctx, p)
	created, _ := args.Get(0).(*models.Property)
	return created, args.Error(1)
}

func (m *MockPropertyService) UpdateProperty(ctx context.Context, id int64, in services.UpdatePropertyInput) (*models.Property, error) {
	args := m.Called(ctx, id, in)
	p, _ := args.Get(0).(*models.Property)
	return p, args.Error(1)
}

func (m *MockPropertyService) GetProperty(ctx context.Context, id int64) (*models.Property, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*models.Property)
	return p, args.Error(1)
}

func (m *MockPropertyService) ListProperties(ctx context.Context, filter models.PropertyFilter) ([]*models.Property, error) {
	args := m.Called(ctx, filter)
	list, _ := args.Get(0).([]*models.Property)
	return list, args.Error(1)
}

func (m *MockPropertyService) ArchiveProperty(ctx context.Context, id int64) (*models.Property, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*models.Property)
	return p, args.Error(1)
}

func (m *MockPropertyService) RestoreProperty(ctx context.Context, id int64) (*models.Property, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*models.Property)
	return p, args.Error(1)
}

// MockOppositionService is a mock implementation of services.OppositionService.
type MockOppositionService struct {
	mock.Mock
}

func (m *MockOppositionService) SubmitOpposition(ctx context.Context, in services.SubmitOppositionInput) (*models.Opposition, error) {
	args := m.Called(ctx, in)
	o, _ := args.Get(0).(*models.Opposition)
	return o, args.Error(1)
}

func (m *MockOppositionService) ReviewOpposition(ctx context.Context, in services.ReviewOppositionInput) (*services.ReviewResult, error) {
	args := m.Called(ctx, in)
	r, _ := args.Get(0).(*services.ReviewResult)
	return r, args.Error(1)
}

func (m *MockOppositionService) GetOpposition(ctx context.Context, id int64) (*models.Opposition, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(*models.Opposition)
	return o, args.Error(1)
}

func (m *MockOppositionService) ListOppositions(ctx context.Context, filter models.OppositionFilter) ([]*models.Opposition, error) {
	args := m.Called(ctx, filter)
	list, _ := args.Get(0).([]*models.Opposition)
	return list, args.Error(1)
}

// MockPaymentService is a mock implementation of services.PaymentService.
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) CreatePayment(ctx context.Context, in services.CreatePaymentInput) (*services.PaymentReceipt, error) {
	args := m.Called(ctx, in)
	r, _ := args.Get(0).(*services.PaymentReceipt)
	return r, args.Error(1)
}

func (m *MockPaymentService) GetPaymentStatus(ctx context.Context, propertyID int64) (*models.PaymentStatement, error) {
	args := m.Called(ctx, propertyID)
	s, _ := args.Get(0).(*models.PaymentStatement)
	return s, args.Error(1)
}

// testAPI is the full router wired to mocked services.
type testAPI struct {
	router      *gin.Engine
	properties  *MockPropertyService
	oppositions *MockOppositionService
	payments    *MockPaymentService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.Nop()
	authorizer, err := authz.New(log)
	require.NoError(t, err)

	api := &testAPI{
		router:      gin.New(),
		properties:  new(MockPropertyService),
		oppositions: new(MockOppositionService),
		payments:    new(MockPaymentService),
	}
	api.router.Use(middleware.RequestID(), middleware.Logger(log), middleware.Identity())
	RegisterRoutes(api.router, Handlers{
		Health:      NewHealthHandler(&stubPinger{}, "test"),
		Tax:         NewTaxHandler(),
		Properties:  NewPropertyHandler(api.properties),
		Oppositions: NewOppositionHandler(api.oppositions),
		Payments:    NewPaymentHandler(api.payments),
	}, authorizer)
	return api
}

// do sends a request as user-1 holding role. An empty role sends no identity.
func (api *testAPI) do(method, path, body string, role models.Role) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set(middleware.UserIDHeader, "user-1")
		req.Header.Set(middleware.UserRoleHeader, string(role))
	}
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	return w
}
