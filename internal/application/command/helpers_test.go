package command

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lifequest/lifequest-core/internal/application/uow"
	"github.com/lifequest/lifequest-core/internal/domain/achievement"
	"github.com/lifequest/lifequest-core/internal/domain/progression"
	"github.com/lifequest/lifequest-core/internal/domain/quest"
	"github.com/lifequest/lifequest-core/internal/domain/shared"
	"github.com/lifequest/lifequest-core/internal/domain/task"
	"github.com/lifequest/lifequest-core/internal/infrastructure/persistence/memory"
)

var testNow = time.Date(2024, 4, 15, 10, 30, 0, 0, time.UTC)

// recordingPublisher collects published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *recordingPublisher) Publish(e shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) ofType(t shared.EventType) []shared.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.Event
	for _, e := range p.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	store     *memory.Store
	publisher *recordingPublisher
	clock     shared.FixedClock
	logger    *slog.Logger
	ledger    *RewardLedger
	tracker   *AchievementTracker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		store:     memory.NewStore(),
		publisher: &recordingPublisher{},
		clock:     shared.FixedClock{T: testNow},
		logger:    logger,
		ledger:    NewRewardLedger(logger),
		tracker:   NewAchievementTracker(true, logger),
	}

	seed := NewSeedCatalogHandler(f.store, logger)
	require.NoError(t, seed.Handle(context.Background(), achievement.DefaultCatalog()))
	return f
}

func (f *fixture) provision(t *testing.T, userID string) {
	t.Helper()
	_, err := NewProvisionUserHandler(f.store, f.publisher, f.clock, f.logger).Handle(context.Background(), userID)
	require.NoError(t, err)
}

func (f *fixture) profile(t *testing.T, userID string) *progression.Profile {
	t.Helper()
	var p *progression.Profile
	require.NoError(t, f.store.Snapshot(context.Background(), func(ctx context.Context, r uow.Repos) error {
		var err error
		p, err = r.Profiles().GetByUserID(ctx, userID)
		return err
	}))
	return p
}

func (f *fixture) quest(t *testing.T, id, owner string) *quest.Quest {
	t.Helper()
	var q *quest.Quest
	require.NoError(t, f.store.Snapshot(context.Background(), func(ctx context.Context, r uow.Repos) error {
		var err error
		q, err = r.Quests().GetByID(ctx, id, owner)
		return err
	}))
	return q
}

func (f *fixture) task(t *testing.T, id, owner string) *task.Task {
	t.Helper()
	var tk *task.Task
	require.NoError(t, f.store.Snapshot(context.Background(), func(ctx context.Context, r uow.Repos) error {
		var err error
		tk, err = r.Tasks().GetByID(ctx, id, owner)
		return err
	}))
	return tk
}

func (f *fixture) createQuest(t *testing.T, owner string, reward int64) *quest.Quest {
	t.Helper()
	res, err := NewCreateQuestHandler(f.store, f.publisher, f.clock, f.logger).Handle(context.Background(), CreateQuestCommand{
		UserID:       owner,
		Type:         quest.TypeMain,
		Title:        "Finish the course",
		RewardPoints: reward,
	})
	require.NoError(t, err)
	return res.Quest
}

func (f *fixture) seedProfile(t *testing.T, p progression.Profile) {
	t.Helper()
	require.NoError(t, f.store.Do(context.Background(), func(ctx context.Context, r uow.Repos) error {
		return r.Profiles().Update(ctx, &p)
	}))
}
