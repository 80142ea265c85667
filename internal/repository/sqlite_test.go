package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// steppedClock returns a clock that advances by step on every call.
func steppedClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(step)
		return current
	}
}

func TestSQLiteStoreAppendKeepsOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	session, err := store.Create(ctx, NewSession{UserID: "u1", ThreadID: "t1", Title: "Resume", Filename: "r.pdf"})
	require.NoError(t, err)
	assert.Empty(t, session.Messages)

	_, err = store.AppendMessage(ctx, "u1", domain.ByID(session.ID), domain.RoleUser, "Hi")
	require.NoError(t, err)
	_, err = store.AppendMessage(ctx, "u1", domain.ByID(session.ID), domain.RoleAssistant, "Hello")
	require.NoError(t, err)

	got, err := store.GetByID(ctx, "u1", session.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, domain.RoleUser, got.Messages[0].Role)
	assert.Equal(t, "Hi", got.Messages[0].Content)
	assert.Equal(t, domain.RoleAssistant, got.Messages[1].Role)
	assert.Equal(t, "Hello", got.Messages[1].Content)
	assert.Equal(t, "t1", got.ThreadID)
	assert.Equal(t, "r.pdf", got.Filename)
}

func TestSQLiteStoreAppendPreservesContentVerbatim(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	session, err := store.Create(ctx, NewSession{UserID: "u1", ThreadID: "t1"})
	require.NoError(t, err)

	contents := []string{"  padded  ", "quote \" and \\ backslash", "line1\nline2", "emoji 🚀", `{"json":"looking"}`}
	for i, c := range contents {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		_, err := store.AppendMessage(ctx, "u1", domain.ByID(session.ID), role, c)
		require.NoError(t, err)
	}

	got, err := store.GetByID(ctx, "u1", session.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, len(contents))
	for i, c := range contents {
		assert.Equal(t, c, got.Messages[i].Content)
	}
}

func TestSQLiteStoreConcurrentAppendsAcrossSessionsOnFileDSN(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{name: "wal with busy timeout", query: "_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"},
		{name: "shared cache", query: "cache=shared&mode=rwc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			dsn := "file:" + filepath.Join(t.TempDir(), "sessions.db") + "?" + tt.query
			store, err := NewSQLiteStore(dsn)
			require.NoError(t, err)
			defer store.Close()

			const sessions, perSession = 8, 25
			ids := make([]string, sessions)
			for i := range ids {
				user := fmt.Sprintf("u%d", i%2)
				session, err := store.Create(ctx, NewSession{UserID: user, ThreadID: fmt.Sprintf("t%d", i)})
				require.NoError(t, err)
				ids[i] = session.ID
			}

			var wg sync.WaitGroup
			for i, id := range ids {
				user := fmt.Sprintf("u%d", i%2)
				for j := 0; j < perSession; j++ {
					wg.Add(1)
					go func(user, id string, j int) {
						defer wg.Done()
						_, err := store.AppendMessage(ctx, user, domain.ByID(id), domain.RoleUser, fmt.Sprintf("m%d", j))
						assert.NoError(t, err)
					}(user, id, j)
				}
			}
			wg.Wait()

			total := 0
			for i, id := range ids {
				got, err := store.GetByID(ctx, fmt.Sprintf("u%d", i%2), id)
				require.NoError(t, err)
				total += len(got.Messages)
			}
			assert.Equal(t, sessions*perSession, total)
		})
	}
}

func TestSQLiteStoreConcurrentAppendsAreNotLost(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "sessions.db") + "?_busy_timeout=5000&_journal_mode=WAL"
	store, err := NewSQLiteStore(dsn)
	require.NoError(t, err)
	defer store.Close()

	session, err := store.Create(ctx, NewSession{UserID: "u1", ThreadID: "t1"})
	require.NoError(t, err)

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.AppendMessage(ctx, "u1", domain.ByID(session.ID), domain.RoleUser, fmt.Sprintf("m%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := store.GetByID(ctx, "u1", session.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, n)
}

func TestSQLiteStoreListSummariesNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	store.now = steppedClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), time.Minute)

	var ids []string
	for i := 0; i < 3; i++ {
		s, err := store.Create(ctx, NewSession{
			UserID:   "u1",
			ThreadID: fmt.Sprintf("t%d", i),
			Snapshot: domain.AnalysisSnapshot{ATSScore: float64(70 + i)},
		})
		require.NoError(t, err)
		ids = append(ids, s.ID)
	}

	summaries, err := store.ListSummaries(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{summaries[0].ID, summaries[1].ID, summaries[2].ID})
	assert.Equal(t, float64(72), summaries[0].ATSScore)
	assert.Equal(t, domain.DefaultSessionTitle, summaries[0].Title)

	limited, err := store.ListSummaries(ctx, "u1", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	// Appending to the oldest session moves it to the front.
	_, err = store.AppendMessage(ctx, "u1", domain.ByID(ids[0]), domain.RoleUser, "bump")
	require.NoError(t, err)
	summaries, err = store.ListSummaries(ctx, "u1", 1)
	require.NoError(t, err)
	assert.Equal(t, ids[0], summaries[0].ID)
}

func TestSQLiteStoreAppendToMostRecent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	store.now = steppedClock(time.Now(), time.Second)

	_, err := store.AppendMessage(ctx, "u1", domain.MostRecent(), domain.RoleUser, "nobody home")
	assert.ErrorIs(t, err, ErrNotFound)

	older, err := store.Create(ctx, NewSession{UserID: "u1", ThreadID: "old"})
	require.NoError(t, err)
	newer, err := store.Create(ctx, NewSession{UserID: "u1", ThreadID: "new"})
	require.NoError(t, err)

	got, err := store.AppendMessage(ctx, "u1", domain.MostRecent(), domain.RoleUser, "hi")
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)

	unchanged, err := store.GetByID(ctx, "u1", older.ID)
	require.NoError(t, err)
	assert.Empty(t, unchanged.Messages)
}

func TestSQLiteStoreUpdatedAtStrictlyIncreases(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	frozen := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return frozen }

	s, err := store.Create(ctx, NewSession{UserID: "u1", ThreadID: "t"})
	require.NoError(t, err)
	prev := s.UpdatedAt

	for i := 0; i < 3; i++ {
		s, err = store.AppendMessage(ctx, "u1", domain.ByID(s.ID), domain.RoleUser, "x")
		require.NoError(t, err)
		assert.True(t, s.UpdatedAt.After(prev), "append %d did not advance updatedAt", i)
		prev = s.UpdatedAt
	}

	title := "Renamed"
	s, err = store.Update(ctx, "u1", s.ID, SessionPatch{Title: &title})
	require.NoError(t, err)
	assert.True(t, s.UpdatedAt.After(prev))
	assert.Equal(t, frozen, s.CreatedAt)
}

func TestSQLiteStoreCreateOnClockTieIsMostRecent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	frozen := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return frozen }

	first, err := store.Create(ctx, NewSession{UserID: "u1", ThreadID: "t1"})
	require.NoError(t, err)
	second, err := store.Create(ctx, NewSession{UserID: "u1", ThreadID: "t2"})
	require.NoError(t, err)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

	// Other users' sessions do not push the clock.
	other, err := store.Create(ctx, NewSession{UserID: "u2", ThreadID: "t3"})
	require.NoError(t, err)
	assert.Equal(t, frozen, other.UpdatedAt)

	summaries, err := store.ListSummaries(ctx, "u1", 1)
	require.NoError(t, err)
	assert.Equal(t, second.ID, summaries[0].ID)
}

func TestSQLiteStoreOwnershipIsInvisible(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	owned, err := store.Create(ctx, NewSession{UserID: "u1", ThreadID: "t1"})
	require.NoError(t, err)

	_, errForeign := store.GetByID(ctx, "u2", owned.ID)
	_, errMissing := store.GetByID(ctx, "u2", "does-not-exist")
	assert.ErrorIs(t, errForeign, ErrNotFound)
	assert.ErrorIs(t, errMissing, ErrNotFound)
	assert.Equal(t, errMissing, errForeign)

	_, err = store.AppendMessage(ctx, "u2", domain.ByID(owned.ID), domain.RoleUser, "x")
	assert.ErrorIs(t, err, ErrNotFound)

	title := "hijack"
	_, err = store.Update(ctx, "u2", owned.ID, SessionPatch{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)

	deleted, err := store.Delete(ctx, "u2", owned.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	got, err := store.GetByID(ctx, "u1", owned.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Messages)
	assert.Equal(t, domain.DefaultSessionTitle, got.Title)
}

func TestSQLiteStoreUpdatePartialMerge(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	s, err := store.Create(ctx, NewSession{
		UserID:   "u1",
		ThreadID: "t1",
		Title:    "First",
		Snapshot: domain.AnalysisSnapshot{ATSScore: 61, SkillsFound: []string{"go"}},
	})
	require.NoError(t, err)

	snap := domain.AnalysisSnapshot{ATSScore: 88, Suggestions: []string{"quantify impact"}}
	updated, err := store.Update(ctx, "u1", s.ID, SessionPatch{Snapshot: &snap})
	require.NoError(t, err)
	assert.Equal(t, "First", updated.Title)
	assert.Equal(t, float64(88), updated.AnalysisSnapshot.ATSScore)
	assert.Equal(t, []string{"quantify impact"}, updated.AnalysisSnapshot.Suggestions)

	title := "Second"
	updated, err = store.Update(ctx, "u1", s.ID, SessionPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Second", updated.Title)
	assert.Equal(t, float64(88), updated.AnalysisSnapshot.ATSScore)
	assert.Equal(t, "t1", updated.ThreadID)
}

func TestSQLiteStoreDeleteAllScopedToUser(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for i := 0; i < 3; i++ {
		_, err := store.Create(ctx, NewSession{UserID: "u1", ThreadID: fmt.Sprintf("a%d", i)})
		require.NoError(t, err)
	}
	keep, err := store.Create(ctx, NewSession{UserID: "u2", ThreadID: "b"})
	require.NoError(t, err)

	n, err := store.DeleteAll(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	left, err := store.ListSummaries(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Empty(t, left)

	_, err = store.GetByID(ctx, "u2", keep.ID)
	assert.NoError(t, err)

	n, err = store.DeleteAll(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLiteStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	s, err := store.Create(ctx, NewSession{UserID: "u1", ThreadID: "t1"})
	require.NoError(t, err)

	deleted, err := store.Delete(ctx, "u1", s.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.Delete(ctx, "u1", s.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = store.GetByID(ctx, "u1", s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
