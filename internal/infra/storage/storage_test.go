package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/CookieClicker/internal/domain/progression"
	"github.com/MRamiBalles/CookieClicker/internal/events"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitSQLite(filepath.Join(t.TempDir(), "nested", "cookie.db"), PoolConfig{MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func at(sec int) time.Time {
	return time.Date(2026, 1, 2, 3, 4, sec, 0, time.UTC)
}

// sessionEvents is a short session: start, 100 clicks, tier 0, one payout,
// one upgrade rejection, end.
func sessionEvents(sessionID string) []events.GameEvent {
	log := events.NewEventLog(nil, 0)
	add := func(sec int, t events.EventType, p interface{}) {
		log.Append(events.GameEvent{Type: t, SessionID: sessionID, Timestamp: at(sec), Payload: p})
	}
	add(0, events.EventTypeSessionStarted, events.SessionPayload{ClickPower: 1, AutoTierIndex: progression.NoTier})
	for i := 1; i <= 100; i++ {
		add(1, events.EventTypeClick, events.ClickPayload{Gained: 1, ResourceCount: int64(i)})
	}
	add(2, events.EventTypeCPSSampled, events.SamplePayload{CPS: 100})
	add(3, events.EventTypeAutoAdvanced, events.AutoPayload{TierIndex: 0, Cost: 100, ProductionRate: 1})
	add(4, events.EventTypeAutoPayout, events.PayoutPayload{Amount: 1, ResourceCount: 1})
	add(5, events.EventTypeUpgradeRejected, events.UpgradePayload{Cost: 100, ClickPower: 1, ResourceCount: 1})
	add(9, events.EventTypeSessionEnded, events.SessionPayload{ResourceCount: 1, ClickPower: 1, AutoTierIndex: 0})
	return log.Replay()
}

func TestInitSQLiteIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookie.db")
	db, err := InitSQLite(path, PoolConfig{})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = InitSQLite(path, PoolConfig{})
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestJournalWritesEventsAndSummary(t *testing.T) {
	ctx := context.Background()
	j := NewJournal(openTestDB(t))
	evs := sessionEvents("s1")

	// Two batches, as PersistLoop would deliver them.
	require.NoError(t, j.AppendBatch(ctx, evs[:50]))
	require.NoError(t, j.AppendBatch(ctx, evs[50:]))

	stored, err := j.Events.GetBySession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, stored, len(evs))
	for i, e := range stored {
		assert.Equal(t, int64(i), e.Offset)
	}
	assert.True(t, stored[0].Timestamp.Equal(at(0)))

	s, err := j.Sessions.GetBySessionID(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, int64(100), s.Clicks)
	assert.Equal(t, int64(0), s.Upgrades)
	assert.Equal(t, int64(1), s.AutoUnlocks)
	assert.Equal(t, int64(1), s.Payouts)
	assert.Equal(t, int64(1), s.PayoutCookies)
	assert.Equal(t, int64(1), s.Cookies)
	assert.Equal(t, 0, s.AutoTier)
	assert.Equal(t, 100.0, s.PeakCPS)
	assert.Equal(t, int64(len(evs)), s.EventCount)
	assert.True(t, s.StartedAt.Equal(at(0)))
	assert.True(t, s.EndedAt.Equal(at(9)))
	assert.True(t, s.Ended())
}

func TestJournalSkipsDuplicateIDs(t *testing.T) {
	ctx := context.Background()
	j := NewJournal(openTestDB(t))
	evs := sessionEvents("s1")

	require.NoError(t, j.AppendBatch(ctx, evs))
	require.NoError(t, j.AppendBatch(ctx, evs))
	require.NoError(t, j.AppendBatch(ctx, evs[:3]))
	require.NoError(t, j.Events.AppendBatch(ctx, mustRows(t, evs[:3])))

	stored, err := j.Events.GetBySession(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, stored, len(evs))

	s, err := j.Sessions.GetBySessionID(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, int64(100), s.Clicks)
	assert.Equal(t, int64(1), s.Payouts)
	assert.Equal(t, int64(1), s.PayoutCookies)
	assert.Equal(t, int64(len(evs)), s.EventCount)
}

func TestJournalFoldsOnlyNewEventsOfOverlappingBatch(t *testing.T) {
	ctx := context.Background()
	j := NewJournal(openTestDB(t))
	evs := sessionEvents("s1")

	require.NoError(t, j.AppendBatch(ctx, evs[:50]))
	require.NoError(t, j.AppendBatch(ctx, evs))

	s, err := j.Sessions.GetBySessionID(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, int64(100), s.Clicks)
	assert.Equal(t, int64(len(evs)), s.EventCount)
	assert.True(t, s.Ended())
}

func mustRows(t *testing.T, evs []events.GameEvent) []GameEvent {
	t.Helper()
	var rows []GameEvent
	for _, e := range evs {
		r, err := FromEvent(e)
		require.NoError(t, err)
		rows = append(rows, r)
	}
	return rows
}

func TestCountAndTypeQueries(t *testing.T) {
	ctx := context.Background()
	j := NewJournal(openTestDB(t))
	require.NoError(t, j.AppendBatch(ctx, sessionEvents("s1")))
	require.NoError(t, j.AppendBatch(ctx, sessionEvents("s2")[:5]))

	counts, err := j.Events.CountByType(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 100, counts["CLICK"])
	assert.Equal(t, 1, counts["AUTO_ADVANCED"])

	adv, err := j.Events.GetByEventType(ctx, "s1", "AUTO_ADVANCED")
	require.NoError(t, err)
	require.Len(t, adv, 1)
	assert.JSONEq(t, `{"tier_index":0,"cost":100,"production_rate":1,"resource_count":0}`, string(adv[0].Payload))

	s2, err := j.Events.GetBySession(ctx, "s2")
	require.NoError(t, err)
	assert.Len(t, s2, 5)
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteSessionRepository(openTestDB(t))

	missing, err := repo.GetBySessionID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.Upsert(ctx, SessionSummary{SessionID: "old", AutoTier: -1, LastEventAt: at(1)}))
	require.NoError(t, repo.Upsert(ctx, SessionSummary{SessionID: "new", AutoTier: 2, LastEventAt: at(5), Cookies: 7}))
	require.NoError(t, repo.Upsert(ctx, SessionSummary{SessionID: "old", AutoTier: -1, LastEventAt: at(2), Cookies: 3}))

	list, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].SessionID)
	assert.Equal(t, int64(3), list[1].Cookies)
	assert.False(t, list[1].Ended())

	list, err = repo.ListRecent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRecap(t *testing.T) {
	ctx := context.Background()
	j := NewJournal(openTestDB(t))
	require.NoError(t, j.AppendBatch(ctx, sessionEvents("s1")))

	r := NewReconstructor(j.Events)
	recap, err := r.Recap(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, recap)

	assert.Equal(t, 9*time.Second, recap.Duration)
	assert.Equal(t, 100, recap.Counts["CLICK"])
	assert.Equal(t, int64(100), recap.Summary.Clicks)

	var lines []string
	for _, e := range recap.Timeline {
		lines = append(lines, e.Summary)
	}
	assert.Equal(t, []string{
		"Session started",
		"Auto production Lv1 unlocked for 100 cookies (+1 per payout)",
		"Session ended with 1 cookies",
	}, lines)

	none, err := r.Recap(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestJournalAsPersister(t *testing.T) {
	ctx := context.Background()
	j := NewJournal(openTestDB(t))
	log := events.NewEventLog(j, 10)

	for i := 0; i < 25; i++ {
		log.Append(events.GameEvent{Type: events.EventTypeClick, SessionID: "live",
			Payload: events.ClickPayload{Gained: 1, ResourceCount: int64(i + 1)}})
	}
	n, err := log.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	s, err := j.Sessions.GetBySessionID(ctx, "live")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, int64(25), s.Clicks)
	assert.Equal(t, int64(25), s.Cookies)
	assert.Equal(t, progression.NoTier, s.AutoTier)
	assert.Len(t, log.Replay(), 10)
}
