// Package testutil builds the shared fixtures used by package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/policy"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/repository"
)

func NewTestSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

func NewTestPolicyEngine(t *testing.T) *policy.Engine {
	t.Helper()

	engine, err := policy.NewDefaultEngine(context.Background())
	if err != nil {
		t.Fatalf("failed to prepare policy: %v", err)
	}
	return engine
}
