package service

import (
	"context"

	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/domain"
)

// UserSessions is the controller bound to one already-resolved user. It is
// what an in-process chat orchestrator talks to.
type UserSessions struct {
	svc    *Service
	userID string
}

// ForUser scopes the controller to userID.
func (s *Service) ForUser(userID string) *UserSessions {
	return &UserSessions{svc: s, userID: userID}
}

func (u *UserSessions) List(ctx context.Context) ([]domain.SessionSummary, error) {
	return u.svc.ListSessions(ctx, u.userID, 0)
}

func (u *UserSessions) Get(ctx context.Context, id string) (*domain.Session, error) {
	return u.svc.GetSession(ctx, u.userID, id)
}

func (u *UserSessions) Current(ctx context.Context) (*domain.Session, error) {
	return u.svc.CurrentSession(ctx, u.userID)
}

func (u *UserSessions) Create(ctx context.Context, req domain.CreateSessionRequest) (*domain.Session, error) {
	return u.svc.CreateSession(ctx, u.userID, req)
}

func (u *UserSessions) Append(ctx context.Context, req domain.AppendMessageRequest) (*domain.Session, error) {
	return u.svc.AppendMessage(ctx, u.userID, req)
}

func (u *UserSessions) Delete(ctx context.Context, id string) (bool, error) {
	return u.svc.DeleteSession(ctx, u.userID, id)
}

func (u *UserSessions) DeleteAll(ctx context.Context) (int, error) {
	return u.svc.DeleteAllSessions(ctx, u.userID)
}
