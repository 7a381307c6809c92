package jobs

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
	"github.com/lifequest/lifequest-core/internal/application/uow"
	"github.com/lifequest/lifequest-core/internal/domain/progression"
	"github.com/lifequest/lifequest-core/internal/domain/shared"
	"github.com/lifequest/lifequest-core/internal/infrastructure/persistence/memory"
)

var jobNow = time.Date(2024, 4, 15, 10, 30, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeLocker struct {
	held     bool
	err      error
	acquired int
	released int
}

func (l *fakeLocker) TryLock(context.Context, string, time.Duration) (func(context.Context) error, bool, error) {
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held {
		return nil, false, nil
	}
	l.acquired++
	return func(context.Context) error {
		l.released++
		return nil
	}, true, nil
}

type fakeRebuilder struct {
	got   []progression.Standing
	calls int
}

func (r *fakeRebuilder) Rebuild(_ context.Context, standings []progression.Standing) error {
	r.calls++
	r.got = standings
	return nil
}

func provision(t *testing.T, store *memory.Store, userID string) {
	t.Helper()
	_, err := command.NewProvisionUserHandler(store, nil, shared.FixedClock{T: jobNow}, quietLogger()).
		Handle(context.Background(), userID)
	require.NoError(t, err)
}

func grant(t *testing.T, store *memory.Store, userID string, delta int64) {
	t.Helper()
	logger := quietLogger()
	h := command.NewGrantPointsHandler(store, command.NewRewardLedger(logger), nil, shared.FixedClock{T: jobNow}, logger)
	_, err := h.Handle(context.Background(), command.GrantPointsCommand{UserID: userID, Delta: delta})
	require.NoError(t, err)
}

func points(t *testing.T, store *memory.Store, userID string) int64 {
	t.Helper()
	var p *progression.Profile
	require.NoError(t, store.Snapshot(context.Background(), func(ctx context.Context, r uow.Repos) error {
		var err error
		p, err = r.Profiles().GetByUserID(ctx, userID)
		return err
	}))
	return p.Points
}

func TestDeadlinePenaltyJob_ChargesOverdueTasksOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	clock := shared.FixedClock{T: jobNow}
	logger := quietLogger()
	ledger := command.NewRewardLedger(logger)

	provision(t, store, "alice")
	grant(t, store, "alice", 50)

	past := jobNow.Add(-time.Hour)
	future := jobNow.Add(time.Hour)
	tasks := command.NewTaskHandler(store, clock, logger)
	_, err := tasks.Create(ctx, command.CreateTaskCommand{UserID: "alice", Title: "Late", Points: 5, Deadline: &past})
	require.NoError(t, err)
	_, err = tasks.Create(ctx, command.CreateTaskCommand{UserID: "alice", Title: "On time", Points: 5, Deadline: &future})
	require.NoError(t, err)

	sweeper := command.NewApplyDeadlinePenaltiesHandler(store, ledger, nil, clock, logger, command.DeadlinePenaltyConfig{Penalty: 10})
	locker := &fakeLocker{}
	job := NewDeadlinePenaltyJob(sweeper, locker, logger)

	require.NoError(t, job.Run(ctx))
	assert.Equal(t, int64(40), points(t, store, "alice"))
	assert.Equal(t, 1, locker.acquired)
	assert.Equal(t, 1, locker.released)

	require.NoError(t, job.Run(ctx))
	assert.Equal(t, int64(40), points(t, store, "alice"))
}

type countingSweeper struct{ calls int }

func (s *countingSweeper) Handle(context.Context) (*command.ApplyDeadlinePenaltiesResult, error) {
	s.calls++
	return &command.ApplyDeadlinePenaltiesResult{}, nil
}

func TestDeadlinePenaltyJob_SkipsWhenLockHeld(t *testing.T) {
	sweeper := &countingSweeper{}
	job := NewDeadlinePenaltyJob(sweeper, &fakeLocker{held: true}, quietLogger())

	require.NoError(t, job.Run(context.Background()))
	assert.Zero(t, sweeper.calls)
}

func TestDeadlinePenaltyJob_LockErrorFails(t *testing.T) {
	sweeper := &countingSweeper{}
	job := NewDeadlinePenaltyJob(sweeper, &fakeLocker{err: errors.New("redis down")}, quietLogger())

	assert.Error(t, job.Run(context.Background()))
	assert.Zero(t, sweeper.calls)
}

func TestDeadlinePenaltyJob_NilLockerAlwaysRuns(t *testing.T) {
	sweeper := &countingSweeper{}
	job := NewDeadlinePenaltyJob(sweeper, nil, quietLogger())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, sweeper.calls)
}

func TestRebuildLeaderboardJob_LoadsStandingsInRankOrder(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	logger := quietLogger()

	for _, u := range []string{"alice", "bob", "carol"} {
		provision(t, store, u)
	}
	grant(t, store, "bob", 1500)
	grant(t, store, "carol", 300)

	rebuilder := &fakeRebuilder{}
	job := NewRebuildLeaderboardJob(store, rebuilder, nil, logger, RebuildLeaderboardConfig{Limit: 2})

	require.NoError(t, job.Run(ctx))
	require.Len(t, rebuilder.got, 2)
	assert.Equal(t, progression.Standing{UserID: "bob", Level: 2, Points: 500}, rebuilder.got[0])
	assert.Equal(t, progression.Standing{UserID: "carol", Level: 1, Points: 300}, rebuilder.got[1])

	stats := job.LastStats()
	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.Profiles)
}
