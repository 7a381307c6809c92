package query

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifequest/lifequest-core/internal/application/command"
	"github.com/lifequest/lifequest-core/internal/domain/achievement"
	"github.com/lifequest/lifequest-core/internal/domain/progression"
	"github.com/lifequest/lifequest-core/internal/domain/quest"
	"github.com/lifequest/lifequest-core/internal/domain/shared"
	"github.com/lifequest/lifequest-core/internal/infrastructure/persistence/memory"
)

var testNow = time.Date(2024, 4, 15, 10, 30, 0, 0, time.UTC)

type env struct {
	store  *memory.Store
	clock  shared.FixedClock
	logger *slog.Logger
}

func newEnv(t *testing.T, users ...string) *env {
	t.Helper()
	e := &env{
		store:  memory.NewStore(),
		clock:  shared.FixedClock{T: testNow},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	require.NoError(t, command.NewSeedCatalogHandler(e.store, e.logger).Handle(context.Background(), achievement.DefaultCatalog()))
	for _, u := range users {
		_, err := command.NewProvisionUserHandler(e.store, nil, e.clock, e.logger).Handle(context.Background(), u)
		require.NoError(t, err)
	}
	return e
}

func (e *env) grant(t *testing.T, userID string, delta int64) {
	t.Helper()
	h := command.NewGrantPointsHandler(e.store, command.NewRewardLedger(e.logger), nil, e.clock, e.logger)
	_, err := h.Handle(context.Background(), command.GrantPointsCommand{UserID: userID, Delta: delta})
	require.NoError(t, err)
}

// ══════════════════════════════════════════════════════════════════════════════
// FAKE CACHES
// ══════════════════════════════════════════════════════════════════════════════

type fakeLeaderboard struct {
	standings []progression.Standing
	ranks     map[string]int
	err       error
}

func (f *fakeLeaderboard) SetStanding(context.Context, progression.Standing) error { return nil }

func (f *fakeLeaderboard) Top(_ context.Context, limit int) ([]progression.Standing, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.standings) > limit {
		return f.standings[:limit], nil
	}
	return f.standings, nil
}

func (f *fakeLeaderboard) Rank(_ context.Context, userID string) (int, error) {
	if r, ok := f.ranks[userID]; ok {
		return r, nil
	}
	return 0, progression.ErrCacheMiss
}

type fakeProfileCache struct {
	profiles map[string]progression.Profile
	sets     int
}

func newFakeProfileCache() *fakeProfileCache {
	return &fakeProfileCache{profiles: make(map[string]progression.Profile)}
}

func (f *fakeProfileCache) Get(_ context.Context, userID string) (*progression.Profile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return nil, progression.ErrCacheMiss
	}
	return &p, nil
}

func (f *fakeProfileCache) Set(_ context.Context, p *progression.Profile, _ time.Duration) error {
	f.sets++
	f.profiles[p.UserID] = *p
	return nil
}

func (f *fakeProfileCache) Invalidate(_ context.Context, userID string) error {
	delete(f.profiles, userID)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD
// ══════════════════════════════════════════════════════════════════════════════

func TestGetLeaderboard_FallsBackToStore(t *testing.T) {
	e := newEnv(t, "alice", "bob")
	e.grant(t, "bob", 1200)
	e.grant(t, "alice", 400)

	h := NewGetLeaderboardHandler(e.store, &fakeLeaderboard{err: errors.New("redis down")}, e.logger)
	res, err := h.Handle(context.Background(), GetLeaderboardQuery{})
	require.NoError(t, err)

	assert.False(t, res.FromCache)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, LeaderboardEntryDTO{Rank: 1, UserID: "bob", Level: 2, Points: 200}, res.Entries[0])
	assert.Equal(t, LeaderboardEntryDTO{Rank: 2, UserID: "alice", Level: 1, Points: 400}, res.Entries[1])
}

func TestGetLeaderboard_PrefersCache(t *testing.T) {
	e := newEnv(t)
	cache := &fakeLeaderboard{standings: []progression.Standing{
		{UserID: "carol", Level: 5, Points: 10},
		{UserID: "dave", Level: 3, Points: 0},
	}}

	res, err := NewGetLeaderboardHandler(e.store, cache, e.logger).Handle(context.Background(), GetLeaderboardQuery{Limit: 1})
	require.NoError(t, err)

	assert.True(t, res.FromCache)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "carol", res.Entries[0].UserID)
}

func TestGetLeaderboardQuery_Validate(t *testing.T) {
	q := GetLeaderboardQuery{}
	require.NoError(t, q.Validate())
	assert.Equal(t, 20, q.Limit)

	q = GetLeaderboardQuery{Limit: 500}
	require.NoError(t, q.Validate())
	assert.Equal(t, 100, q.Limit)

	q = GetLeaderboardQuery{Limit: -1}
	assert.Error(t, q.Validate())
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE
// ══════════════════════════════════════════════════════════════════════════════

func TestGetProfile_ReadThroughCache(t *testing.T) {
	e := newEnv(t, "alice")
	e.grant(t, "alice", 250)

	cache := newFakeProfileCache()
	leaderboard := &fakeLeaderboard{ranks: map[string]int{"alice": 3}}
	h := NewGetProfileHandler(e.store, cache, leaderboard, 0, e.logger)

	dto, err := h.Handle(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, dto.Level)
	assert.Equal(t, int64(250), dto.Points)
	assert.Equal(t, int64(1000), dto.Threshold)
	assert.Equal(t, int64(750), dto.PointsToNext)
	assert.InDelta(t, 0.25, dto.Progress, 1e-9)
	assert.Equal(t, 3, dto.Rank)
	assert.Equal(t, 1, cache.sets)

	_, err = h.Handle(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets, "second read is served from cache")
}

func TestGetProfile_Missing(t *testing.T) {
	e := newEnv(t)
	h := NewGetProfileHandler(e.store, nil, nil, 0, e.logger)

	_, err := h.Handle(context.Background(), "ghost")
	assert.ErrorIs(t, err, shared.ErrProfileNotFound)

	_, err = h.Handle(context.Background(), "")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

// ══════════════════════════════════════════════════════════════════════════════
// JOURNAL
// ══════════════════════════════════════════════════════════════════════════════

func TestGetJournal_ListsOpenWork(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, "alice")

	_, err := command.NewCreateQuestHandler(e.store, nil, e.clock, e.logger).Handle(ctx, command.CreateQuestCommand{
		UserID:       "alice",
		Type:         quest.TypeDaily,
		Title:        "Morning run",
		RewardPoints: 50,
	})
	require.NoError(t, err)

	tasks := command.NewTaskHandler(e.store, e.clock, e.logger)
	open, err := tasks.Create(ctx, command.CreateTaskCommand{UserID: "alice", Title: "Read a chapter", Points: 10})
	require.NoError(t, err)
	done, err := tasks.Create(ctx, command.CreateTaskCommand{UserID: "alice", Title: "Stretch", Points: 5})
	require.NoError(t, err)
	_, err = command.NewCompleteTaskHandler(e.store, command.NewRewardLedger(e.logger), nil, nil, e.clock, e.logger).
		Handle(ctx, command.CompleteTaskCommand{TaskID: done.ID, UserID: "alice"})
	require.NoError(t, err)

	habits := command.NewHabitHandler(e.store, nil, e.clock, e.logger)
	hb, err := habits.Create(ctx, command.CreateHabitCommand{UserID: "alice", Title: "Meditate"})
	require.NoError(t, err)
	_, err = habits.Track(ctx, command.TrackHabitCommand{HabitID: hb.ID, UserID: "alice"})
	require.NoError(t, err)

	j, err := NewGetJournalHandler(e.store, e.clock, nil).Handle(ctx, "alice")
	require.NoError(t, err)

	require.Len(t, j.Quests, 1)
	assert.Equal(t, "Morning run", j.Quests[0].Title)
	require.Len(t, j.Tasks, 1)
	assert.Equal(t, open.ID, j.Tasks[0].ID)
	require.Len(t, j.Habits, 1)
	assert.Equal(t, HabitDTO{ID: hb.ID, Title: "Meditate", Streak: 1, LastTracked: "2024-04-15", DoneToday: true}, j.Habits[0])
}

func TestNewHabitDTO_BrokenStreakReadsZero(t *testing.T) {
	e := newEnv(t, "alice")
	hb, err := command.NewHabitHandler(e.store, nil, e.clock, e.logger).
		Create(context.Background(), command.CreateHabitCommand{UserID: "alice", Title: "Journal"})
	require.NoError(t, err)

	last := shared.NewDate(2024, 4, 10)
	hb.LastTracked = &last
	hb.Streak = 4

	dto := newHabitDTO(hb, shared.DateOf(testNow))
	assert.Zero(t, dto.Streak)
	assert.False(t, dto.DoneToday)
}

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

func TestGetAchievementProgress_ReportsEveryCounter(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, "alice")

	tk, err := command.NewTaskHandler(e.store, e.clock, e.logger).Create(ctx, command.CreateTaskCommand{
		UserID:     "alice",
		Title:      "Vocabulary drill",
		Points:     10,
		Category:   "English",
		UnitType:   "Words",
		UnitAmount: 50,
	})
	require.NoError(t, err)
	_, err = command.NewCompleteTaskHandler(e.store, command.NewRewardLedger(e.logger), command.NewAchievementTracker(true, e.logger), nil, e.clock, e.logger).
		Handle(ctx, command.CompleteTaskCommand{TaskID: tk.ID, UserID: "alice"})
	require.NoError(t, err)

	views, err := NewGetAchievementProgressHandler(e.store).Handle(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, views, len(achievement.DefaultCatalog()))

	var words *achievement.ProgressView
	for i := range views {
		if views[i].AchievementID == "word-collector" {
			words = &views[i]
		}
	}
	require.NotNil(t, words)
	assert.Equal(t, int64(50), words.CurrentProgress)
	assert.Equal(t, achievement.TierBronze, words.CurrentTier)
	assert.Equal(t, achievement.TierSilver, words.NextTier)
	assert.Equal(t, int64(200), words.NextRequirement)
	assert.Equal(t, 25, words.Percentage)
}
