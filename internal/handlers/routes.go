package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/baladia/taxe/internal/authz"
	"github.com/baladia/taxe/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by RegisterRoutes.
type Handlers struct {
	Health      *HealthHandler
	Tax         *TaxHandler
	Properties  *PropertyHandler
	Oppositions *OppositionHandler
	Payments    *PaymentHandler
}

// RegisterRoutes mounts the API on router. Business routes require the
// gateway identity and the permission listed next to them; health, reference
// data and quotes are public.
func RegisterRoutes(router gin.IRouter, h Handlers, authorizer middleware.Authorizer) {
	allow := func(p authz.Permission) gin.HandlerFunc {
		return middleware.RequirePermission(authorizer, p)
	}

	router.GET("/health", h.Health.Health)
	router.GET("/health/ready", h.Health.Ready)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/info", h.Health.Info)
		v1.GET("/locations", h.Tax.Locations)
		v1.POST("/tax/quote", h.Tax.Quote)

		properties := v1.Group("/properties")
		{
			properties.POST("", allow(authz.PropertiesWrite), h.Properties.Create)
			properties.GET("", allow(authz.PropertiesRead), h.Properties.List)
			properties.GET("/:id", allow(authz.PropertiesRead), h.Properties.Get)
			properties.PUT("/:id", allow(authz.PropertiesWrite), h.Properties.Update)
			properties.POST("/:id/archive", allow(authz.PropertiesArchive), h.Properties.Archive)
			properties.POST("/:id/restore", allow(authz.PropertiesArchive), h.Properties.Restore)
			properties.GET("/:id/payments", allow(authz.PaymentsRead), h.Payments.Statement)
		}

		oppositions := v1.Group("/oppositions")
		{
			oppositions.POST("", allow(authz.OppositionsSubmit), h.Oppositions.Submit)
			oppositions.GET("", allow(authz.OppositionsRead), h.Oppositions.List)
			oppositions.GET("/:id", allow(authz.OppositionsRead), h.Oppositions.Get)
			oppositions.POST("/:id/review", allow(authz.OppositionsReview), h.Oppositions.Review)
		}

		v1.POST("/payments", allow(authz.PaymentsWrite), h.Payments.Create)
	}
}
