package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/nexesmission/ardhi-backend/internal/middleware"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(e *echo.Echo, authMiddleware *middleware.APIKeyAuthMiddleware, rateLimiter *middleware.RateLimiter, saleHandler *SaleHandler, paymentHandler *PaymentHandler, templateHandler *TemplateHandler, recordHandler *RecordHandler, recurrenceHandler *RecurrenceHandler, wsHandler *WebSocketHandler) {
	// API version 1
	api := e.Group("/api/v1")
	api.Use(authMiddleware.Authenticate())
	api.Use(middleware.RateLimitMiddleware(rateLimiter))

	// Sale routes
	sales := api.Group("/sales")
	sales.POST("", saleHandler.CreateSale)
	sales.POST("/preview", saleHandler.PreviewSale)
	sales.GET("", saleHandler.GetSales)
	sales.GET("/:id", saleHandler.GetSale)
	sales.GET("/:id/summary", saleHandler.GetSaleSummary)
	sales.DELETE("/:id", saleHandler.DeleteSale)

	// Payment and installment routes
	sales.POST("/:id/payments", paymentHandler.ApplyPayment)
	sales.GET("/:id/payments", paymentHandler.GetPayments)
	sales.GET("/:id/installments", paymentHandler.GetInstallments)

	// Recurring template routes
	templates := api.Group("/templates")
	templates.POST("", templateHandler.CreateTemplate)
	templates.GET("", templateHandler.GetTemplates)
	templates.GET("/:id", templateHandler.GetTemplate)
	templates.PUT("/:id", templateHandler.UpdateTemplate)
	templates.PATCH("/:id/toggle-active", templateHandler.ToggleActive)
	templates.DELETE("/:id", templateHandler.DeleteTemplate)
	templates.GET("/:id/records", recordHandler.GetTemplateRecords)

	// Cash record routes
	records := api.Group("/records")
	records.POST("", recordHandler.CreateRecord)
	records.GET("", recordHandler.GetRecords)

	// Scheduler-facing routes
	internal := e.Group("/internal")
	internal.Use(authMiddleware.Authenticate())
	internal.POST("/recurrence/run", recurrenceHandler.RunDue)
	internal.POST("/installments/sweep-late", paymentHandler.SweepLate)

	// WebSocket endpoint (key checked inside the handler)
	e.GET("/ws", wsHandler.HandleWS)
}
