package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/baladia/taxe/internal/errors"
	"github.com/baladia/taxe/internal/models"
)

func TestTaxHandler_Quote(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		wantAmount   string
		wantServices []string
	}{
		{
			name:         "built with one declared service",
			body:         `{"propertyType":"built","coveredSurface":80,"services":["public_lighting"]}`,
			wantAmount:   "28.80",
			wantServices: []string{models.ServiceCleaning, models.ServicePublicLighting},
		},
		{
			name:         "built with legacy service labels",
			body:         `{"propertyType":"bâti","coveredSurface":120,"services":["Éclairage public","Nettoyage"]}`,
			wantAmount:   "57.60",
			wantServices: []string{models.ServiceCleaning, models.ServicePublicLighting},
		},
		{
			name:         "unbuilt high density",
			body:         `{"propertyType":"unbuilt","totalSurface":1000,"urbanDensity":"haute","services":["paved_roads"]}`,
			wantAmount:   "300.00",
			wantServices: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)

			w := api.do(http.MethodPost, "/api/v1/tax/quote", tt.body, "")

			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			var response QuoteResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.wantAmount, response.Breakdown.Amount.StringFixed(2))
			assert.Equal(t, tt.wantServices, response.Services)
		})
	}
}

func TestTaxHandler_Quote_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{name: "unknown service", body: `{"propertyType":"built","coveredSurface":80,"services":["valet"]}`, field: "services"},
		{name: "negative surface", body: `{"propertyType":"built","coveredSurface":-1}`, field: "surface"},
		{name: "missing type", body: `{"coveredSurface":80}`, field: "propertyType"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)

			w := api.do(http.MethodPost, "/api/v1/tax/quote", tt.body, "")

			assert.Equal(t, http.StatusBadRequest, w.Code)
			response := decodeError(t, w.Body.Bytes())
			assert.Equal(t, apierrors.ErrValidation, response.Error.Code)
			assert.Contains(t, response.Error.Details, tt.field)
		})
	}
}

func TestTaxHandler_Locations(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/api/v1/locations", "", "")

	require.Equal(t, http.StatusOK, w.Code)
	var response LocationsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.NotEmpty(t, response.Arrondissements)
	assert.Equal(t, "Tunis", response.Arrondissements[0].ID)
	assert.Len(t, response.Services, len(models.ServiceCatalog))
}
