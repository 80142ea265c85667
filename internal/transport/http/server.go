// Package http provides the HTTP server implementation for the resume chat
// service.
package http

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/config"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/service"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/transport/http/identity"
	v1 "github.com/TheIchigoSimp/HackNova-Hackathon/internal/transport/http/v1"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/transport/ws"
)

// NewServer creates and configures the HTTP server. It serves the session
// REST surface under /v1, the chat relay at /v1/chat/ws and the health probe.
func NewServer(svc *service.Service, relay *ws.Relay, cfg *config.Config, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(requestLogger(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, cfg.UserIDHeader},
	}))

	// Handlers
	v1Handler := v1.NewHandler(svc)

	// Register Routes
	api := e.Group("/v1", identity.Middleware(cfg.UserIDHeader))
	v1Handler.RegisterRoutes(e, api)
	api.GET("/chat/ws", relay.HandleWebSocket)

	return e
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
			}
			if userID := identity.UserID(c); userID != "" {
				attrs = append(attrs, "user_id", userID)
			}
			if v.Error != nil {
				logger.Error("request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			logger.Info("request", attrs...)
			return nil
		},
	})
}
