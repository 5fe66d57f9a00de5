package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/baladia/taxe/internal/errors"
	"github.com/baladia/taxe/internal/models"
	"github.com/baladia/taxe/internal/services"
)

// PaymentHandler handles tax collection HTTP requests.
type PaymentHandler struct {
	service services.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler instance.
func NewPaymentHandler(service services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		service: service,
	}
}

// CreatePaymentRequest is the body of POST /api/v1/payments.
type CreatePaymentRequest struct {
	Notes      *string `json:"notes"`
	Method     string  `json:"method" binding:"required"`
	Years      []int   `json:"years" binding:"required,min=1,dive,min=1900"`
	PropertyID int64   `json:"propertyId" binding:"required,min=1"`
}

// Create handles POST /api/v1/payments.
func (h *PaymentHandler) Create(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}

	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Invalid payment payload")
		return
	}

	receipt, err := h.service.CreatePayment(c.Request.Context(), services.CreatePaymentInput{
		PropertyID: req.PropertyID,
		Years:      req.Years,
		Method:     models.PaymentMethod(req.Method),
		Notes:      req.Notes,
		CreatedBy:  caller.UserID,
	})
	if err != nil {
		apierrors.FromService(c, err)
		return
	}

	c.JSON(http.StatusCreated, receipt)
}

// Statement handles GET /api/v1/properties/:id/payments.
func (h *PaymentHandler) Statement(c *gin.Context) {
	id, ok := pathID(c, "property")
	if !ok {
		return
	}

	statement, err := h.service.GetPaymentStatus(c.Request.Context(), id)
	if err != nil {
		apierrors.FromService(c, err)
		return
	}

	c.JSON(http.StatusOK, statement)
}
