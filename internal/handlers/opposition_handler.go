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

// OppositionHandler handles opposition workflow HTTP requests.
type OppositionHandler struct {
	service services.OppositionService
}

// NewOppositionHandler creates a new OppositionHandler instance.
func NewOppositionHandler(service services.OppositionService) *OppositionHandler {
	return &OppositionHandler{
		service: service,
	}
}

// SubmitOppositionRequest is the body of POST /api/v1/oppositions.
// The submitter is taken from the caller identity.
type SubmitOppositionRequest struct {
	ProposedCoveredSurface *float64 `json:"proposedCoveredSurface"`
	ProposedOtherServices  *string  `json:"proposedOtherServices"`
	Reason                 string   `json:"reason" binding:"required"`
	ProposedServices       []string `json:"proposedServices"`
	PropertyID             int64    `json:"propertyId" binding:"required,min=1"`
}

// ReviewOppositionRequest is the body of POST /api/v1/oppositions/:id/review.
type ReviewOppositionRequest struct {
	ReviewNotes *string `json:"reviewNotes"`
	Decision    string  `json:"decision" binding:"required,oneof=approve reject"`
}

// ListOppositionsQuery holds the query parameters of GET /api/v1/oppositions.
type ListOppositionsQuery struct {
	Status      string `form:"status"`
	SubmittedBy string `form:"submittedBy"`
	PropertyID  int64  `form:"propertyId" binding:"omitempty,min=1"`
	PageQuery
}

// OppositionResponse wraps a single opposition.
type OppositionResponse struct {
	Opposition *models.Opposition `json:"opposition"`
}

// OppositionListResponse wraps an opposition listing.
type OppositionListResponse struct {
	Oppositions []*models.Opposition `json:"oppositions"`
	Count       int                  `json:"count"`
}

// Submit handles POST /api/v1/oppositions.
func (h *OppositionHandler) Submit(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}

	var req SubmitOppositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Invalid opposition payload")
		return
	}

	opposition, err := h.service.SubmitOpposition(c.Request.Context(), services.SubmitOppositionInput{
		PropertyID:             req.PropertyID,
		Reason:                 req.Reason,
		SubmittedBy:            caller.UserID,
		ProposedCoveredSurface: req.ProposedCoveredSurface,
		ProposedServices:       req.ProposedServices,
		ProposedOtherServices:  req.ProposedOtherServices,
	})
	if err != nil {
		apierrors.FromService(c, err)
		return
	}

	c.JSON(http.StatusCreated, OppositionResponse{Opposition: opposition})
}

// Review handles POST /api/v1/oppositions/:id/review.
// An approval that could not be applied still answers 200; the response
// carries the refusal and the reason in applyError.
func (h *OppositionHandler) Review(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "opposition")
	if !ok {
		return
	}

	var req ReviewOppositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Invalid review payload")
		return
	}

	result, err := h.service.ReviewOpposition(c.Request.Context(), services.ReviewOppositionInput{
		OppositionID: id,
		Decision:     services.Decision(req.Decision),
		ReviewerID:   caller.UserID,
		ReviewNotes:  req.ReviewNotes,
	})
	if err != nil {
		apierrors.FromService(c, err)
		return
	}

	if result.ApplyError != "" {
		if log := middleware.GetLogger(c); log != nil {
			log.Warn("Approved opposition recorded as refused", map[string]interface{}{
				"opposition_id": id,
				"apply_error":   result.ApplyError,
			})
		}
	}

	c.JSON(http.StatusOK, result)
}

// Get handles GET /api/v1/oppositions/:id.
func (h *OppositionHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "opposition")
	if !ok {
		return
	}

	opposition, err := h.service.GetOpposition(c.Request.Context(), id)
	if err != nil {
		apierrors.FromService(c, err)
		return
	}

	c.JSON(http.StatusOK, OppositionResponse{Opposition: opposition})
}

// List handles GET /api/v1/oppositions.
func (h *OppositionHandler) List(c *gin.Context) {
	var query ListOppositionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err, "Invalid query parameters")
		return
	}

	oppositions, err := h.service.ListOppositions(c.Request.Context(), models.OppositionFilter{
		Status:      models.OppositionStatus(strings.TrimSpace(query.Status)),
		PropertyID:  query.PropertyID,
		SubmittedBy: strings.TrimSpace(query.SubmittedBy),
		Limit:       query.Limit,
		Offset:      query.Offset,
	})
	if err != nil {
		apierrors.FromService(c, err)
		return
	}
	if oppositions == nil {
		oppositions = []*models.Opposition{}
	}

	c.JSON(http.StatusOK, OppositionListResponse{
		Oppositions: oppositions,
		Count:       len(oppositions),
	})
}
