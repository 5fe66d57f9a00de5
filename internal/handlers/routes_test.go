package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/baladia/taxe/internal/models"
)

// Every row is rejected before reaching a handler, so no service mock is primed.
func TestRegisterRoutes_Permissions(t *testing.T) {
	tests := []struct {
		method string
		path   string
		role   models.Role
		want   int
	}{
		{http.MethodGet, "/api/v1/properties", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/properties", models.RoleCitizen, http.StatusForbidden},
		{http.MethodPost, "/api/v1/properties", models.RoleCitizen, http.StatusForbidden},
		{http.MethodPut, "/api/v1/properties/1", models.RoleCitizen, http.StatusForbidden},
		{http.MethodPost, "/api/v1/properties/1/restore", models.RoleCouncilMember, http.StatusForbidden},
		{http.MethodGet, "/api/v1/properties/1/payments", models.RoleCitizen, http.StatusForbidden},
		{http.MethodPost, "/api/v1/oppositions", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/oppositions/1", models.RoleCitizen, http.StatusForbidden},
		{http.MethodPost, "/api/v1/oppositions/1/review", models.RoleCitizen, http.StatusForbidden},
		{http.MethodPost, "/api/v1/payments", "", http.StatusUnauthorized},
	}

	api := newTestAPI(t)
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path+" as "+string(tt.role), func(t *testing.T) {
			w := api.do(tt.method, tt.path, `{}`, tt.role)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRegisterRoutes_PublicEndpoints(t *testing.T) {
	api := newTestAPI(t)

	for _, path := range []string{"/health", "/health/ready", "/api/v1/info", "/api/v1/locations"} {
		t.Run(path, func(t *testing.T) {
			w := api.do(http.MethodGet, path, "", "")
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}
