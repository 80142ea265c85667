package v1

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/domain"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/export"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/transport/http/identity"
)

// ListSessions lists the caller's session summaries, newest first.
// GET /v1/sessions?limit=N
func (h *Handler) ListSessions(c echo.Context) error {
	ctx := c.Request().Context()

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
		}
		limit = n
	}

	sessions, err := h.service.ListSessions(ctx, identity.UserID(c), limit)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"sessions": sessions,
	})
}

// CreateSession creates a new session.
// POST /v1/sessions
func (h *Handler) CreateSession(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	session, err := h.service.CreateSession(ctx, identity.UserID(c), req)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"session": session,
	})
}

// GetSession returns one session with its messages.
// GET /v1/sessions/:id
func (h *Handler) GetSession(c echo.Context) error {
	ctx := c.Request().Context()

	session, err := h.service.GetSession(ctx, identity.UserID(c), c.Param("id"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"session": session,
	})
}

// CurrentSession returns the caller's most recently updated session, or a
// null session when there is none.
// GET /v1/sessions/current
func (h *Handler) CurrentSession(c echo.Context) error {
	ctx := c.Request().Context()

	session, err := h.service.CurrentSession(ctx, identity.UserID(c))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"session": session,
	})
}

// UpdateSession merges title and snapshot into a session.
// PUT /v1/sessions/:id
func (h *Handler) UpdateSession(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.UpdateSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	session, err := h.service.UpdateSession(ctx, identity.UserID(c), c.Param("id"), req)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"session": session,
	})
}

// AppendMessage appends one message to a session.
// POST /v1/sessions/chat
func (h *Handler) AppendMessage(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.AppendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	session, err := h.service.AppendMessage(ctx, identity.UserID(c), req)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"session": session,
	})
}

// DeleteSession deletes one session.
// DELETE /v1/sessions/:id
func (h *Handler) DeleteSession(c echo.Context) error {
	ctx := c.Request().Context()

	deleted, err := h.service.DeleteSession(ctx, identity.UserID(c), c.Param("id"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"deleted": deleted,
	})
}

// DeleteAllSessions deletes every session of the caller.
// DELETE /v1/sessions
func (h *Handler) DeleteAllSessions(c echo.Context) error {
	ctx := c.Request().Context()

	n, err := h.service.DeleteAllSessions(ctx, identity.UserID(c))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"deletedCount": n,
	})
}

// ExportSession downloads a session transcript.
// GET /v1/sessions/:id/export?format=json|jsonl|yaml|markdown
func (h *Handler) ExportSession(c echo.Context) error {
	ctx := c.Request().Context()

	exporter, err := export.NewExporter(c.QueryParam("format"))
	if err != nil {
		return errorResponse(c, err)
	}

	session, err := h.service.GetSession(ctx, identity.UserID(c), c.Param("id"))
	if err != nil {
		return errorResponse(c, err)
	}

	var buf bytes.Buffer
	if err := exporter.Export(session, &buf); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", export.Filename(session, exporter)))
	return c.Blob(http.StatusOK, exporter.ContentType(), buf.Bytes())
}
