package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "github.com/baladia/taxe/internal/errors"
	"github.com/baladia/taxe/internal/models"
	"github.com/baladia/taxe/internal/services"
)

func pendingOpposition(id int64) *models.Opposition {
	surface := 120.0
	return &models.Opposition{
		ID:                     id,
		PropertyID:             7,
		Reason:                 "La surface couverte a été mal mesurée",
		SubmittedBy:            "user-1",
		Status:                 models.OppositionStatusPending,
		ProposedCoveredSurface: &surface,
	}
}

func TestOppositionHandler_Submit(t *testing.T) {
	// Arrange
	api := newTestAPI(t)
	api.oppositions.On("SubmitOpposition", mock.Anything, mock.MatchedBy(func(in services.SubmitOppositionInput) bool {
		return in.PropertyID == 7 &&
			in.SubmittedBy == "user-1" &&
			in.ProposedCoveredSurface != nil && *in.ProposedCoveredSurface == 120 &&
			in.ProposedServices == nil
	})).Return(pendingOpposition(3), nil)

	// Act
	w := api.do(http.MethodPost, "/api/v1/oppositions",
		`{"propertyId":7,"reason":"La surface couverte a été mal mesurée","proposedCoveredSurface":120}`,
		models.RoleCitizen)

	// Assert
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var response OppositionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, int64(3), response.Opposition.ID)
	assert.Equal(t, models.OppositionStatusPending, response.Opposition.Status)
	api.oppositions.AssertExpectations(t)
}

func TestOppositionHandler_Submit_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		role       models.Role
		serviceErr error
		wantHTTP   int
	}{
		{
			name:     "anonymous caller",
			body:     `{"propertyId":7,"reason":"surface erronée"}`,
			wantHTTP: http.StatusUnauthorized,
		},
		{
			name:     "missing property id",
			body:     `{"reason":"surface erronée"}`,
			role:     models.RoleCitizen,
			wantHTTP: http.StatusBadRequest,
		},
		{
			name:       "reason too short",
			body:       `{"propertyId":7,"reason":"trop"}`,
			role:       models.RoleCitizen,
			serviceErr: services.ErrReasonTooShort,
			wantHTTP:   http.StatusBadRequest,
		},
		{
			name:       "property already has a pending opposition",
			body:       `{"propertyId":7,"reason":"surface erronée"}`,
			role:       models.RoleCitizen,
			serviceErr: services.ErrPendingOppositionExists,
			wantHTTP:   http.StatusConflict,
		},
		{
			name:       "unknown property",
			body:       `{"propertyId":7,"reason":"surface erronée"}`,
			role:       models.RoleCitizen,
			serviceErr: services.ErrPropertyNotFound,
			wantHTTP:   http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)
			if tt.serviceErr != nil {
				api.oppositions.On("SubmitOpposition", mock.Anything, mock.Anything).Return(nil, tt.serviceErr)
			}

			w := api.do(http.MethodPost, "/api/v1/oppositions", tt.body, tt.role)

			assert.Equal(t, tt.wantHTTP, w.Code)
			if tt.serviceErr == nil {
				api.oppositions.AssertNotCalled(t, "SubmitOpposition")
			}
		})
	}
}

func TestOppositionHandler_Review(t *testing.T) {
	// Arrange
	api := newTestAPI(t)
	approved := pendingOpposition(3)
	approved.Status = models.OppositionStatusApproved
	reviewer := "user-1"
	approved.ReviewedBy = &reviewer

	api.oppositions.On("ReviewOpposition", mock.Anything, mock.MatchedBy(func(in services.ReviewOppositionInput) bool {
		return in.OppositionID == 3 &&
			in.Decision == services.DecisionApprove &&
			in.ReviewerID == "user-1" &&
			in.ReviewNotes != nil && *in.ReviewNotes == "Mesure vérifiée sur place"
	})).Return(&services.ReviewResult{
		Opposition: approved,
		Property:   storedProperty(7),
		Status:     models.OppositionStatusApproved,
		AppliedChanges: &services.AppliedChanges{
			PreviousTax: decimal.RequireFromString("28.80"),
			NewTax:      decimal.RequireFromString("57.60"),
			Fields:      []services.FieldChange{{Field: "coveredSurface", Previous: 80.0, New: 120.0}},
		},
	}, nil)

	// Act
	w := api.do(http.MethodPost, "/api/v1/oppositions/3/review",
		`{"decision":"approve","reviewNotes":"Mesure vérifiée sur place"}`, models.RoleCollector)

	// Assert
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var response services.ReviewResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, models.OppositionStatusApproved, response.Status)
	require.NotNil(t, response.AppliedChanges)
	assert.Equal(t, "57.60", response.AppliedChanges.NewTax.StringFixed(2))
	assert.Empty(t, response.ApplyError)
	api.oppositions.AssertExpectations(t)
}

func TestOppositionHandler_Review_ApplyFailureIsReported(t *testing.T) {
	api := newTestAPI(t)
	refused := pendingOpposition(3)
	refused.Status = models.OppositionStatusRefused
	api.oppositions.On("ReviewOpposition", mock.Anything, mock.Anything).Return(&services.ReviewResult{
		Opposition: refused,
		Status:     models.OppositionStatusRefused,
		ApplyError: "persistence failure: update property: deadlock detected",
	}, nil)

	w := api.do(http.MethodPost, "/api/v1/oppositions/3/review", `{"decision":"approve"}`, models.RoleCouncilMember)

	require.Equal(t, http.StatusOK, w.Code)
	var response services.ReviewResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, models.OppositionStatusRefused, response.Status)
	assert.NotEmpty(t, response.ApplyError)
}

func TestOppositionHandler_Review_Errors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		role       models.Role
		serviceErr error
		wantHTTP   int
		wantCode   string
	}{
		{
			name:     "agent cannot review",
			path:     "/api/v1/oppositions/3/review",
			body:     `{"decision":"approve"}`,
			role:     models.RoleAgent,
			wantHTTP: http.StatusForbidden,
			wantCode: apierrors.ErrForbidden,
		},
		{
			name:     "unknown decision",
			path:     "/api/v1/oppositions/3/review",
			body:     `{"decision":"maybe"}`,
			role:     models.RoleCollector,
			wantHTTP: http.StatusBadRequest,
			wantCode: apierrors.ErrValidation,
		},
		{
			name:     "invalid id",
			path:     "/api/v1/oppositions/0/review",
			body:     `{"decision":"reject"}`,
			role:     models.RoleCollector,
			wantHTTP: http.StatusBadRequest,
			wantCode: apierrors.ErrBadRequest,
		},
		{
			name:       "already reviewed",
			path:       "/api/v1/oppositions/3/review",
			body:       `{"decision":"reject"}`,
			role:       models.RoleCollector,
			serviceErr: services.ErrOppositionNotPending,
			wantHTTP:   http.StatusConflict,
			wantCode:   apierrors.ErrConflict,
		},
		{
			name:       "unknown opposition",
			path:       "/api/v1/oppositions/3/review",
			body:       `{"decision":"reject"}`,
			role:       models.RoleCollector,
			serviceErr: services.ErrOppositionNotFound,
			wantHTTP:   http.StatusNotFound,
			wantCode:   apierrors.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)
			if tt.serviceErr != nil {
				api.oppositions.On("ReviewOpposition", mock.Anything, mock.Anything).Return(nil, tt.serviceErr)
			}

			w := api.do(http.MethodPost, tt.path, tt.body, tt.role)

			assert.Equal(t, tt.wantHTTP, w.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, w.Body.Bytes()).Error.Code)
			if tt.serviceErr == nil {
				api.oppositions.AssertNotCalled(t, "ReviewOpposition")
			}
		})
	}
}

func TestOppositionHandler_GetAndList(t *testing.T) {
	api := newTestAPI(t)
	api.oppositions.On("GetOpposition", mock.Anything, int64(3)).Return(pendingOpposition(3), nil)
	api.oppositions.On("ListOppositions", mock.Anything, models.OppositionFilter{
		Status:     models.OppositionStatusPending,
		PropertyID: 7,
		Limit:      5,
	}).Return([]*models.Opposition{pendingOpposition(3)}, nil)

	w := api.do(http.MethodGet, "/api/v1/oppositions/3", "", models.RoleAgent)
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodGet, "/api/v1/oppositions?status=pending&propertyId=7&limit=5", "", models.RoleAgent)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var response OppositionListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 1, response.Count)

	w = api.do(http.MethodGet, "/api/v1/oppositions", "", models.RoleCitizen)
	assert.Equal(t, http.StatusForbidden, w.Code)
	api.oppositions.AssertExpectations(t)
}
