package command

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifequest/lifequest-core/internal/domain/progression"
	"github.com/lifequest/lifequest-core/internal/domain/shared"
)

func TestGrantPoints_Additivity(t *testing.T) {
	f := newFixture(t)
	f.provision(t, "alice")
	f.provision(t, "bob")
	h := NewGrantPointsHandler(f.store, f.ledger, f.publisher, f.clock, f.logger)
	ctx := context.Background()

	_, err := h.Handle(ctx, GrantPointsCommand{UserID: "alice", Delta: 300})
	require.NoError(t, err)
	_, err = h.Handle(ctx, GrantPointsCommand{UserID: "alice", Delta: 450})
	require.NoError(t, err)

	_, err = h.Handle(ctx, GrantPointsCommand{UserID: "bob", Delta: 750})
	require.NoError(t, err)

	a, b := f.profile(t, "alice"), f.profile(t, "bob")
	assert.Equal(t, b.Level, a.Level)
	assert.Equal(t, b.Points, a.Points)
	assert.Equal(t, int64(750), a.Points)
}

func TestGrantPoints_LevelUpEvent(t *testing.T) {
	f := newFixture(t)
	f.provision(t, "alice")
	h := NewGrantPointsHandler(f.store, f.ledger, f.publisher, f.clock, f.logger)

	res, err := h.Handle(context.Background(), GrantPointsCommand{UserID: "alice", Delta: 1500, Source: SourceQuest})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Profile.Level)
	assert.Equal(t, int64(500), res.Profile.Points)

	levelUps := f.publisher.ofType(shared.EventLevelUp)
	require.Len(t, levelUps, 1)
	assert.Equal(t, 1, levelUps[0].(shared.LevelUpEvent).LevelsGained())

	granted := f.publisher.ofType(shared.EventPointsGranted)
	require.Len(t, granted, 1)
	assert.Equal(t, SourceQuest, granted[0].(shared.PointsGrantedEvent).Source)
}

func TestGrantPoints_ConcurrentGrantsDoNotLoseUpdates(t *testing.T) {
	f := newFixture(t)
	f.provision(t, "alice")
	h := NewGrantPointsHandler(f.store, f.ledger, f.publisher, f.clock, f.logger)

	const workers = 50
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.Handle(context.Background(), GrantPointsCommand{UserID: "alice", Delta: 100})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// 5000 points = 1000 + 1500 + 2250 and 250 left at level 4.
	p := f.profile(t, "alice")
	assert.Equal(t, 4, p.Level)
	assert.Equal(t, int64(250), p.Points)
}

func TestGrantPoints_TwoParallelGrantsOnFreshProfile(t *testing.T) {
	f := newFixture(t)
	f.provision(t, "alice")
	h := NewGrantPointsHandler(f.store, f.ledger, f.publisher, f.clock, f.logger)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.Handle(context.Background(), GrantPointsCommand{UserID: "alice", Delta: 100})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	p := f.profile(t, "alice")
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, int64(200), p.Points)
}

func TestGrantPoints_MissingProfile(t *testing.T) {
	f := newFixture(t)
	h := NewGrantPointsHandler(f.store, f.ledger, f.publisher, f.clock, f.logger)

	_, err := h.Handle(context.Background(), GrantPointsCommand{UserID: "ghost", Delta: 10})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrIntegrity)
	assert.Equal(t, shared.OutcomeUnavailable, shared.Classify(err))
	assert.Empty(t, f.publisher.ofType(shared.EventPointsGranted))
}

func TestGrantPoints_PenaltyClampsAtZero(t *testing.T) {
	f := newFixture(t)
	f.provision(t, "alice")
	f.seedProfile(t, progression.Profile{UserID: "alice", Level: 3, Points: 4, CreatedAt: testNow, UpdatedAt: testNow})
	h := NewGrantPointsHandler(f.store, f.ledger, f.publisher, f.clock, f.logger)

	res, err := h.Handle(context.Background(), GrantPointsCommand{UserID: "alice", Delta: -10})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Profile.Level)
	assert.Equal(t, int64(0), res.Profile.Points)
}

func TestGrantPoints_Overflow(t *testing.T) {
	f := newFixture(t)
	f.provision(t, "alice")
	top := progression.MaxLevel() + 1
	f.seedProfile(t, progression.Profile{UserID: "alice", Level: top, Points: 1<<63 - 10})
	h := NewGrantPointsHandler(f.store, f.ledger, f.publisher, f.clock, f.logger)

	_, err := h.Handle(context.Background(), GrantPointsCommand{UserID: "alice", Delta: 100})
	assert.ErrorIs(t, err, shared.ErrOverflow)

	p := f.profile(t, "alice")
	assert.Equal(t, int64(1<<63-10), p.Points)
}
