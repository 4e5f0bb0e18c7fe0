package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Check is one dependency the health endpoint pings.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks,omitempty"`
}

type HealthHandler struct {
	serviceName string
	version     string
	checks      []Check
}

func NewHealthHandler(serviceName, version string, checks ...Check) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		checks:      checks,
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	status := "healthy"
	code := http.StatusOK

	results := make(map[string]string, len(h.checks))
	for _, chk := range h.checks {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		err := chk.Ping(pingCtx)
		cancel()

		if err != nil {
			results[chk.Name] = "down"
			status = "degraded"
			code = http.StatusServiceUnavailable
		} else {
			results[chk.Name] = "up"
		}
	}

	c.JSON(code, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		Checks:    results,
	})
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}
