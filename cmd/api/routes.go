package main

import (
	"net/http"
	"time"

	"callrecovery/internal/auth"
	"callrecovery/internal/httpapi"
	"callrecovery/internal/metrics"
	"callrecovery/internal/webhook"
	"callrecovery/pkg/utils"

	"github.com/gin-gonic/gin"
)

// routeDeps is everything the router needs. Auth nil leaves /v1 unmounted.
type routeDeps struct {
	DB      utils.Pinger
	Webhook *webhook.VapiHandler
	API     httpapi.Handlers
	Auth    *auth.Manager
	Metrics *metrics.Metrics
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	r.GET("/healthz", func(c *gin.Context) {
		if d.DB != nil {
			if err := utils.HealthCheck(c.Request.Context(), d.DB, 2*time.Second); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	// Provider webhooks (public, shared-secret protected when configured).
	if d.Webhook != nil {
		r.POST("/webhooks/vapi", d.Webhook.Handle)
	}

	if d.Auth == nil {
		return
	}
	v1 := r.Group("/v1")
	v1.Use(auth.RequireAccessToken(d.Auth))
	{
		v1.GET("/me", d.API.Me)
		v1.GET("/calls", d.API.ListCalls)
		v1.GET("/calls/summary", d.API.Summary)
		v1.GET("/calls/hot-leads", d.API.HotLeads)
	}
}
