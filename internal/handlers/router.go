// Package handlers binds the HTTP surface to the services behind it.
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Keoroanthony/customer-gateway/internal/auth"
	"github.com/Keoroanthony/customer-gateway/internal/customers"
	"github.com/Keoroanthony/customer-gateway/internal/health"
	"github.com/Keoroanthony/customer-gateway/internal/middleware"
)

type RouterConfig struct {
	Customers *customers.Service
	Gate      *auth.Gate
	Health    *health.Aggregator
	Metrics   *middleware.Metrics
	Gatherer  prometheus.Gatherer
	Log       *zap.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	// Metrics sits outside Lifecycle so it records the rendered status.
	r.Use(cfg.Metrics.Handler(), middleware.Lifecycle(cfg.Log))
	r.NoRoute(middleware.NotFound)
	r.NoMethod(middleware.MethodNotAllowed)

	hh := NewHealthHandler(cfg.Health)
	r.GET("/health/live", hh.Live)
	r.GET("/health/ready", hh.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))

	ch := NewCustomerHandler(cfg.Customers)
	api := r.Group("/customers")
	api.Use(cfg.Gate.RequireAuth())
	{
		api.GET("", ch.ListCustomers)
		api.POST("", ch.CreateCustomer)
		api.GET("/:id", ch.GetCustomer)
		api.PUT("/:id", ch.UpdateCustomer)
		api.DELETE("/:id", ch.DeleteCustomer)
	}

	return r
}
