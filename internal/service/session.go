package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/domain"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/repository"
)

func (s *Service) CreateSession(ctx context.Context, userID string, req domain.CreateSessionRequest) (*domain.Session, error) {
	if err := s.validate(ctx, userID, map[string]interface{}{
		"op":       "create_session",
		"threadId": req.ThreadID,
	}); err != nil {
		return nil, err
	}

	in := store.NewSession{
		UserID:   userID,
		ThreadID: strings.TrimSpace(req.ThreadID),
		Title:    req.Title,
		Filename: req.Filename,
	}
	if req.Snapshot != nil {
		in.Snapshot = *req.Snapshot
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	session, err := s.store.Create(ctx, in)
	if err != nil {
		return nil, translate("create", "", err)
	}
	s.logger.Info("session created", "session_id", session.ID, "user_id", userID, "thread_id", session.ThreadID)
	return session, nil
}

func (s *Service) ListSessions(ctx context.Context, userID string, limit int) ([]domain.SessionSummary, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.listLimit()
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	summaries, err := s.store.ListSummaries(ctx, userID, limit)
	if err != nil {
		return nil, translate("list", "", err)
	}
	return summaries, nil
}

func (s *Service) GetSession(ctx context.Context, userID, id string) (*domain.Session, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(id) == "" {
		return nil, &domain.ValidationError{Field: "id", Reason: "is required"}
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	session, err := s.store.GetByID(ctx, userID, id)
	if err != nil {
		return nil, translate("get", id, err)
	}
	return session, nil
}

// CurrentSession returns the user's most recently updated session with its
// messages, or nil when the user has none.
func (s *Service) CurrentSession(ctx context.Context, userID string) (*domain.Session, error) {
	summaries, err := s.ListSessions(ctx, userID, 1)
	if err != nil {
		return nil, err
	}
	latest, ok := domain.SelectMostRecent(summaries)
	if !ok {
		return nil, nil
	}
	session, err := s.GetSession(ctx, userID, latest.ID)
	var notFound *domain.NotFoundError
	if errors.As(err, &notFound) {
		// Deleted between the two reads.
		return nil, nil
	}
	return session, err
}

func (s *Service) AppendMessage(ctx context.Context, userID string, req domain.AppendMessageRequest) (*domain.Session, error) {
	if err := s.validate(ctx, userID, map[string]interface{}{
		"op":            "append_message",
		"role":          string(req.Role),
		"content":       req.Content,
		"content_bytes": len(req.Content),
	}); err != nil {
		return nil, err
	}

	sel := domain.MostRecent()
	if id := strings.TrimSpace(req.SessionID); id != "" {
		sel = domain.ByID(id)
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	session, err := s.store.AppendMessage(ctx, userID, sel, req.Role, req.Content)
	if err != nil {
		return nil, translate("append", sel.ID, err)
	}
	return session, nil
}

func (s *Service) UpdateSession(ctx context.Context, userID, id string, req domain.UpdateSessionRequest) (*domain.Session, error) {
	input := map[string]interface{}{"op": "update_session"}
	if req.Title != nil {
		input["title"] = *req.Title
	}
	if err := s.validate(ctx, userID, input); err != nil {
		return nil, err
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	session, err := s.store.Update(ctx, userID, id, store.SessionPatch{Title: req.Title, Snapshot: req.Snapshot})
	if err != nil {
		return nil, translate("update", id, err)
	}
	return session, nil
}

func (s *Service) DeleteSession(ctx context.Context, userID, id string) (bool, error) {
	if err := requireUser(userID); err != nil {
		return false, err
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	deleted, err := s.store.Delete(ctx, userID, id)
	if err != nil {
		return false, translate("delete", id, err)
	}
	if deleted {
		s.logger.Info("session deleted", "session_id", id, "user_id", userID)
	}
	return deleted, nil
}

func (s *Service) DeleteAllSessions(ctx context.Context, userID string) (int, error) {
	if err := requireUser(userID); err != nil {
		return 0, err
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	n, err := s.store.DeleteAll(ctx, userID)
	if err != nil {
		return 0, translate("delete_all", "", err)
	}
	s.logger.Info("sessions deleted", "user_id", userID, "count", n)
	return n, nil
}

// validate runs the admission policy and reports the first violation.
func (s *Service) validate(ctx context.Context, userID string, input map[string]interface{}) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if s.policyEngine == nil {
		return nil
	}
	input["limits"] = map[string]interface{}{"max_content_bytes": s.maxMessageBytes()}

	violations, err := s.policyEngine.Evaluate(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to validate request: %w", err)
	}
	if len(violations) > 0 {
		return &domain.ValidationError{Field: violations[0].Field, Reason: violations[0].Reason}
	}
	return nil
}

func (s *Service) listLimit() int {
	if s.config == nil || s.config.SessionListLimit <= 0 {
		return store.DefaultListLimit
	}
	return s.config.SessionListLimit
}

func (s *Service) maxMessageBytes() int {
	if s.config == nil {
		return 0
	}
	return s.config.MaxMessageBytes
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return &domain.ValidationError{Field: "userId", Reason: "is required"}
	}
	return nil
}

// translate maps store errors onto the caller-visible taxonomy.
func translate(op, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return &domain.NotFoundError{Resource: "session", ID: id}
	}
	return &domain.PersistenceError{Op: op, Err: err}
}
