// Package store defines the session storage interface and implementations.
package store

import (
	"context"
	"errors"

	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/domain"
)

// ErrNotFound is returned when no session matches both the id and the
// owning user.
var ErrNotFound = errors.New("session not found")

// DefaultListLimit caps ListSummaries when the caller passes no limit.
const DefaultListLimit = 20

// SessionPatch carries the fields of a partial update. Nil means unchanged.
type SessionPatch struct {
	Title    *string
	Snapshot *domain.AnalysisSnapshot
}

// NewSession is the input to Create.
type NewSession struct {
	UserID   string
	ThreadID string
	Title    string
	Filename string
	Snapshot domain.AnalysisSnapshot
}

// Store defines the interface for session persistence. Every operation is
// scoped by the owning user: a session owned by someone else behaves as if
// it did not exist.
type Store interface {
	// Create always inserts a new session document.
	Create(ctx context.Context, in NewSession) (*domain.Session, error)
	// ListSummaries returns the user's sessions newest first, without
	// messages.
	ListSummaries(ctx context.Context, userID string, limit int) ([]domain.SessionSummary, error)
	GetByID(ctx context.Context, userID, id string) (*domain.Session, error)
	// AppendMessage atomically appends one message and bumps updatedAt.
	AppendMessage(ctx context.Context, userID string, sel domain.SessionSelector, role domain.Role, content string) (*domain.Session, error)
	Update(ctx context.Context, userID, id string, patch SessionPatch) (*domain.Session, error)
	Delete(ctx context.Context, userID, id string) (bool, error)
	DeleteAll(ctx context.Context, userID string) (int, error)

	// Lifecycle
	Close() error
}
