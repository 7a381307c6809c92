package eventhandler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifequest/lifequest-core/internal/domain/progression"
	"github.com/lifequest/lifequest-core/internal/domain/shared"
)

var eventNow = time.Date(2024, 4, 15, 10, 30, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeLeaderboard struct {
	mu        sync.Mutex
	standings map[string]progression.Standing
	err       error
}

func (f *fakeLeaderboard) SetStanding(_ context.Context, s progression.Standing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.standings == nil {
		f.standings = map[string]progression.Standing{}
	}
	f.standings[s.UserID] = s
	return nil
}

func (f *fakeLeaderboard) Top(context.Context, int) ([]progression.Standing, error) {
	return nil, nil
}

func (f *fakeLeaderboard) Rank(context.Context, string) (int, error) {
	return 0, progression.ErrCacheMiss
}

type fakeProfiles struct {
	invalidated []string
}

func (f *fakeProfiles) Get(context.Context, string) (*progression.Profile, error) {
	return nil, progression.ErrCacheMiss
}

func (f *fakeProfiles) Set(context.Context, *progression.Profile, time.Duration) error {
	return nil
}

func (f *fakeProfiles) Invalidate(_ context.Context, userID string) error {
	f.invalidated = append(f.invalidated, userID)
	return nil
}

func TestOnPointsGranted_ProjectsStanding(t *testing.T) {
	lb := &fakeLeaderboard{}
	pc := &fakeProfiles{}
	h := NewOnPointsGrantedHandler(lb, pc, quietLogger())

	err := h.Handle(shared.NewPointsGrantedEvent("alice", 1500, 2, 500, 1500, "quest", "q-1", eventNow))
	require.NoError(t, err)

	assert.Equal(t, progression.Standing{UserID: "alice", Level: 2, Points: 500}, lb.standings["alice"])
	assert.Equal(t, []string{"alice"}, pc.invalidated)
}

func TestOnPointsGranted_ProvisionedUserEntersAtLevelOne(t *testing.T) {
	lb := &fakeLeaderboard{}
	h := NewOnPointsGrantedHandler(lb, nil, quietLogger())

	require.NoError(t, h.Handle(shared.NewUserProvisionedEvent("bob", 8, eventNow)))
	assert.Equal(t, progression.Standing{UserID: "bob", Level: 1}, lb.standings["bob"])
}

func TestOnPointsGranted_CacheFailureIsSwallowed(t *testing.T) {
	h := NewOnPointsGrantedHandler(&fakeLeaderboard{err: errors.New("redis down")}, nil, quietLogger())
	assert.NoError(t, h.Handle(shared.NewPointsGrantedEvent("alice", 10, 1, 10, 1000, "task", "t-1", eventNow)))
}

func TestOnPointsGranted_IgnoresOtherEvents(t *testing.T) {
	lb := &fakeLeaderboard{}
	h := NewOnPointsGrantedHandler(lb, nil, quietLogger())
	assert.NoError(t, h.Handle(shared.NewLevelUpEvent("alice", 1, 2, eventNow)))
	assert.Empty(t, lb.standings)
}

type recordingNotifier struct {
	got []Milestone
	err error
}

func (n *recordingNotifier) Notify(_ context.Context, m Milestone) error {
	n.got = append(n.got, m)
	return n.err
}

func TestBuildMilestone(t *testing.T) {
	tests := []struct {
		name  string
		event shared.Event
		kind  MilestoneKind
		text  string
	}{
		{
			name:  "single level",
			event: shared.NewLevelUpEvent("alice", 1, 2, eventNow),
			kind:  MilestoneLevelUp,
			text:  "Level 2 reached!",
		},
		{
			name:  "several levels",
			event: shared.NewLevelUpEvent("alice", 1, 4, eventNow),
			kind:  MilestoneLevelUp,
			text:  "Level 4 reached, 3 levels at once!",
		},
		{
			name:  "tier",
			event: shared.NewAchievementEvent(shared.EventAchievementTierReached, "alice", "bookworm", "Bookworm", "GOLD", 1000, eventNow),
			kind:  MilestoneTierReached,
			text:  `GOLD tier reached in "Bookworm".`,
		},
		{
			name:  "completed",
			event: shared.NewAchievementEvent(shared.EventAchievementCompleted, "alice", "bookworm", "Bookworm", "DIAMOND", 10000, eventNow),
			kind:  MilestoneAchievementWon,
			text:  `Achievement "Bookworm" completed.`,
		},
		{
			name:  "streak",
			event: shared.NewStreakBrokenEvent("h-1", "alice", 30, 2, eventNow),
			kind:  MilestoneStreakBroken,
			text:  "Your 30-day streak ended. Start a new one today.",
		},
		{
			name:  "quest",
			event: shared.NewQuestEvent(shared.EventQuestCompleted, "q-1", "alice", "Marathon", 150, eventNow),
			kind:  MilestoneQuestCompleted,
			text:  `Quest "Marathon" completed: +150 points.`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := BuildMilestone(tt.event)
			require.True(t, ok)
			assert.Equal(t, "alice", m.UserID)
			assert.Equal(t, tt.kind, m.Kind)
			assert.Equal(t, tt.text, m.Text)
			assert.Equal(t, eventNow, m.OccurredAt)
		})
	}

	_, ok := BuildMilestone(shared.NewQuestEvent(shared.EventQuestFailed, "q-1", "alice", "x", 0, eventNow))
	assert.False(t, ok)
	_, ok = BuildMilestone(shared.NewHabitTrackedEvent("h-1", "alice", 3, eventNow, eventNow))
	assert.False(t, ok)
}

func TestOnMilestone_Handle(t *testing.T) {
	n := &recordingNotifier{}
	h := NewOnMilestoneHandler(n, quietLogger())

	require.NoError(t, h.Handle(shared.NewLevelUpEvent("alice", 2, 3, eventNow)))
	require.NoError(t, h.Handle(shared.NewHabitTrackedEvent("h-1", "alice", 3, eventNow, eventNow)))
	require.Len(t, n.got, 1)

	n.err = errors.New("smtp down")
	assert.Error(t, h.Handle(shared.NewLevelUpEvent("alice", 3, 4, eventNow)))
}
