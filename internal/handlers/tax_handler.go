package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/baladia/taxe/internal/errors"
	"github.com/baladia/taxe/internal/models"
	"github.com/baladia/taxe/internal/tax"
)

// TaxHandler serves the tax quote and the reference tables used to fill
// property forms. Nothing it does is persisted.
type TaxHandler struct{}

// NewTaxHandler creates a new TaxHandler instance.
func NewTaxHandler() *TaxHandler {
	return &TaxHandler{}
}

// QuoteRequest is the body of POST /api/v1/tax/quote.
type QuoteRequest struct {
	CoveredSurface *float64            `json:"coveredSurface"`
	TotalSurface   *float64            `json:"totalSurface"`
	Density        *models.Density     `json:"urbanDensity"`
	Type           models.PropertyType `json:"propertyType" binding:"required"`
	OtherServices  string              `json:"otherServices"`
	Services       []string            `json:"services"`
}

// QuoteResponse is the computed tax with the values behind it.
type QuoteResponse struct {
	Breakdown tax.Breakdown `json:"breakdown"`
	Services  []string      `json:"services"`
}

// LocationsResponse is the reference data for property forms.
type LocationsResponse struct {
	Arrondissements []models.Arrondissement `json:"arrondissements"`
	Services        []models.ServiceInfo    `json:"services"`
}

// Quote handles POST /api/v1/tax/quote.
func (h *TaxHandler) Quote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Invalid quote payload")
		return
	}

	p := &models.Property{
		Type:           req.Type,
		CoveredSurface: req.CoveredSurface,
		TotalSurface:   req.TotalSurface,
		Density:        req.Density,
		Services:       req.Services,
		OtherServices:  req.OtherServices,
	}
	if p.Type == models.PropertyTypeUnbuilt {
		p.CoveredSurface = nil
	}
	p.Normalize()

	fields := map[string]string{}
	for _, id := range p.Services {
		if !models.IsKnownService(id) {
			fields["services"] = fmt.Sprintf("unknown service %q", id)
			break
		}
	}
	attrs := tax.AttributesOf(p)
	if err := tax.ValidateAttributes(attrs); err != nil {
		fields["surface"] = err.Error()
	}
	if len(fields) > 0 {
		apierrors.FieldErrors(c, "Validation failed for one or more fields", fields)
		return
	}

	c.JSON(http.StatusOK, QuoteResponse{
		Breakdown: tax.Explain(p.Type, attrs),
		Services:  p.Services,
	})
}

// Locations handles GET /api/v1/locations.
func (h *TaxHandler) Locations(c *gin.Context) {
	c.JSON(http.StatusOK, LocationsResponse{
		Arrondissements: models.Locations,
		Services:        models.ServiceCatalog,
	})
}
