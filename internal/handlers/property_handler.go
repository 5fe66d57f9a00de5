package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apierrors "github.com/baladia/taxe/internal/errors"
	"github.com/baladia/taxe/internal/middleware"
	"github.com/baladia/taxe/internal/models"
	"github.com/baladia/taxe/internal/services"
)

// PropertyHandler handles property registry HTTP requests.
type PropertyHandler struct {
	service services.PropertyService
}

// NewPropertyHandler creates a new PropertyHandler instance.
func NewPropertyHandler(service services.PropertyService) *PropertyHandler {
	return &PropertyHandler{
		service: service,
	}
}

// CreatePropertyRequest is the body of POST /api/v1/properties.
// Attribute validation beyond presence is done by the property service so
// that every field error is reported at once.
type CreatePropertyRequest struct {
	Location       *models.Coordinates `json:"location"`
	CoveredSurface *float64            `json:"coveredSurface"`
	TotalSurface   *float64            `json:"totalSurface"`
	Density        *models.Density     `json:"urbanDensity"`
	Owner          models.Owner        `json:"owner"`
	Type           models.PropertyType `json:"propertyType" binding:"required"`
	TaxStartDate   string              `json:"taxStartDate" binding:"required"`
	Arrondissement string              `json:"arrondissement" binding:"required"`
	Zone           string              `json:"zone" binding:"required"`
	Street         string              `json:"street" binding:"required"`
	OtherServices  string              `json:"otherServices"`
	Services       []string            `json:"services"`
}

// UpdatePropertyRequest is the body of PUT /api/v1/properties/:id.
// Omitted fields are left untouched.
type UpdatePropertyRequest struct {
	Type           *models.PropertyType `json:"propertyType"`
	TaxStartDate   *string              `json:"taxStartDate"`
	Location       *models.Coordinates  `json:"location"`
	Owner          *models.Owner        `json:"owner"`
	Arrondissement *string              `json:"arrondissement"`
	Zone           *string              `json:"zone"`
	Street         *string              `json:"street"`
	CoveredSurface *float64             `json:"coveredSurface"`
	TotalSurface   *float64             `json:"totalSurface"`
	Density        *models.Density      `json:"urbanDensity"`
	OtherServices  *string              `json:"otherServices"`
	Services       []string             `json:"services"`
	ClearLocation  bool                 `json:"clearLocation"`
}

// ListPropertiesQuery holds the query parameters of GET /api/v1/properties.
type ListPropertiesQuery struct {
	Archived       *bool  `form:"archived"`
	Status         string `form:"status"`
	Type           string `form:"propertyType"`
	Arrondissement string `form:"arrondissement"`
	PageQuery
}

// PropertyResponse wraps a single property.
type PropertyResponse struct {
	Property *models.Property `json:"property"`
}

// PropertyListResponse wraps a property listing.
type PropertyListResponse struct {
	Properties []*models.Property `json:"properties"`
	Count      int                `json:"count"`
}

// Create handles POST /api/v1/properties.
func (h *PropertyHandler) Create(c *gin.Context) {
	var req CreatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Invalid property payload")
		return
	}

	startDate, err := parseDate(req.TaxStartDate)
	if err != nil {
		apierrors.FieldErrors(c, "Validation failed for one or more fields", map[string]string{
			"taxStartDate": "must be a date (YYYY-MM-DD)",
		})
		return
	}

	property := &models.Property{
		Type:           req.Type,
		TaxStartDate:   startDate,
		Location:       req.Location,
		Arrondissement: req.Arrondissement,
		Zone:           req.Zone,
		Street:         req.Street,
		Owner:          req.Owner,
		CoveredSurface: req.CoveredSurface,
		TotalSurface:   req.TotalSurface,
		Density:        req.Density,
		Services:       req.Services,
		OtherServices:  req.OtherServices,
	}

	created, err := h.service.CreateProperty(c.Request.Context(), property)
	if err != nil {
		apierrors.FromService(c, err)
		return
	}

	if log := middleware.GetLogger(c); log != nil {
		log.Info("Property created", map[string]interface{}{
			"property_id": created.ID,
			"tax_amount":  created.TaxAmount.StringFixed(2),
		})
	}

	c.JSON(http.StatusCreated, PropertyResponse{Property: created})
}

// Get handles GET /api/v1/properties/:id.
func (h *PropertyHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "property")
	if !ok {
		return
	}

	property, err := h.service.GetProperty(c.Request.Context(), id)
	if err != nil {
		apierrors.FromService(c, err)
		return
	}

	c.JSON(http.StatusOK, PropertyResponse{Property: property})
}

// List handles GET /api/v1/properties.
func (h *PropertyHandler) List(c *gin.Context) {
	var query ListPropertiesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err, "Invalid query parameters")
		return
	}

	filter := models.PropertyFilter{
		Status:         models.PropertyStatus(query.Status),
		Arrondissement: strings.TrimSpace(query.Arrondissement),
		Archived:       query.Archived,
		Limit:          query.Limit,
		Offset:         query.Offset,
	}
	if query.Type != "" {
		t, err := models.ParsePropertyType(query.Type)
		if err != nil {
			apierrors.BadRequest(c, err.Error(), nil)
			return
		}
		filter.Type = t
	}

	properties, err := h.service.ListProperties(c.Request.Context(), filter)
	if err != nil {
		apierrors.FromService(c, err)
		return
	}
	if properties == nil {
		properties = []*models.Property{}
	}

	c.JSON(http.StatusOK, PropertyListResponse{
		Properties: properties,
		Count:      len(properties),
	})
}

// Update handles PUT /api/v1/properties/:id.
func (h *PropertyHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "property")
	if !ok {
		return
	}

	var req UpdatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Invalid property payload")
		return
	}

	in := services.UpdatePropertyInput{
		Type:           req.Type,
		Location:       req.Location,
		Owner:          req.Owner,
		Arrondissement: req.Arrondissement,
		Zone:           req.Zone,
		Street:         req.Street,
		CoveredSurface: req.CoveredSurface,
		TotalSurface:   req.TotalSurface,
		Density:        req.Density,
		OtherServices:  req.OtherServices,
		Services:       req.Services,
		ClearLocation:  req.ClearLocation,
	}
	if req.TaxStartDate != nil {
		startDate, err := parseDate(*req.TaxStartDate)
		if err != nil {
			apierrors.FieldErrors(c, "Validation failed for one or more fields", map[string]string{
				"taxStartDate": "must be a date (YYYY-MM-DD)",
			})
			return
		}
		in.TaxStartDate = &startDate
	}

	updated, err := h.service.UpdateProperty(c.Request.Context(), id, in)
	if err != nil {
		apierrors.FromService(c, err)
		return
	}

	c.JSON(http.StatusOK, PropertyResponse{Property: updated})
}

// Archive handles POST /api/v1/properties/:id/archive.
func (h *PropertyHandler) Archive(c *gin.Context) {
	h.setArchived(c, true)
}

// Restore handles POST /api/v1/properties/:id/restore.
func (h *PropertyHandler) Restore(c *gin.Context) {
	h.setArchived(c, false)
}

func (h *PropertyHandler) setArchived(c *gin.Context, archived bool) {
	id, ok := pathID(c, "property")
	if !ok {
		return
	}

	var (
		property *models.Property
		err      error
	)
	if archived {
		property, err = h.service.ArchiveProperty(c.Request.Context(), id)
	} else {
		property, err = h.service.RestoreProperty(c.Request.Context(), id)
	}
	if err != nil {
		apierrors.FromService(c, err)
		return
	}

	c.JSON(http.StatusOK, PropertyResponse{Property: property})
}
