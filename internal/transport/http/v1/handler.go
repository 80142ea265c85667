// Package v1 provides the HTTP handlers of the session REST surface.
package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/domain"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers the session routes on g, which must already
// carry the identity middleware, and the health probe on e.
func (h *Handler) RegisterRoutes(e *echo.Echo, g *echo.Group) {
	g.GET("/sessions", h.ListSessions)
	g.POST("/sessions", h.CreateSession)
	g.DELETE("/sessions", h.DeleteAllSessions)
	g.POST("/sessions/chat", h.AppendMessage)
	g.GET("/sessions/current", h.CurrentSession)
	g.GET("/sessions/:id", h.GetSession)
	g.PUT("/sessions/:id", h.UpdateSession)
	g.DELETE("/sessions/:id", h.DeleteSession)
	g.GET("/sessions/:id/export", h.ExportSession)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	status := h.service.Health(c.Request().Context())
	status["version"] = "0.1.0"
	return c.JSON(http.StatusOK, status)
}

// errorResponse maps the domain error taxonomy onto HTTP status codes.
func errorResponse(c echo.Context, err error) error {
	var (
		validation  *domain.ValidationError
		notFound    *domain.NotFoundError
		upstream    *domain.UpstreamStreamError
		timeout     *domain.TimeoutError
		persistence *domain.PersistenceError
	)

	status := http.StatusInternalServerError
	body := map[string]string{"error": err.Error()}
	switch {
	case errors.As(err, &validation):
		status = http.StatusBadRequest
		body["field"] = validation.Field
		body["reason"] = validation.Reason
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &timeout):
		status = http.StatusGatewayTimeout
	case errors.As(err, &upstream):
		status = http.StatusBadGateway
	case errors.As(err, &persistence):
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, body)
}
