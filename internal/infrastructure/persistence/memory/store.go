// Package memory provides an in-process transactional store implementing the
// unit-of-work contract. It backs tests and single-process runs without Postgres.
//
// Transactions are fully serialized by a store-wide lock, which subsumes the
// row locks taken by "...ForUpdate" lookups. Each transaction works on a copy of
// the data that replaces the committed state only when the transaction succeeds.
package memory

import (
	"context"

	"github.com/lifequest/lifequest-core/internal/application/uow"
	"github.com/lifequest/lifequest-core/internal/domain/achievement"
	"github.com/lifequest/lifequest-core/internal/domain/habit"
	"github.com/lifequest/lifequest-core/internal/domain/progression"
	"github.com/lifequest/lifequest-core/internal/domain/quest"
	"github.com/lifequest/lifequest-core/internal/domain/task"
)

type state struct {
	profiles  map[string]progression.Profile
	quests    map[string]quest.Quest
	tasks     map[string]task.Task
	habits    map[string]habit.Habit
	templates map[string]achievement.Achievement
	progress  map[string]achievement.Progress
}

func newState() *state {
	return &state{
		profiles:  make(map[string]progression.Profile),
		quests:    make(map[string]quest.Quest),
		tasks:     make(map[string]task.Task),
		habits:    make(map[string]habit.Habit),
		templates: make(map[string]achievement.Achievement),
		progress:  make(map[string]achievement.Progress),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.profiles {
		c.profiles[k] = v
	}
	for k, v := range s.quests {
		c.quests[k] = v
	}
	for k, v := range s.tasks {
		c.tasks[k] = v
	}
	for k, v := range s.habits {
		c.habits[k] = v
	}
	for k, v := range s.templates {
		c.templates[k] = v
	}
	for k, v := range s.progress {
		c.progress[k] = v
	}
	return c
}

// Store is an in-memory unit of work.
type Store struct {
	sem  chan struct{}
	data *state
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sem:  make(chan struct{}, 1),
		data: newState(),
	}
}

var _ uow.UnitOfWork = (*Store)(nil)

// Do implements uow.UnitOfWork.
func (s *Store) Do(ctx context.Context, fn uow.Func) error {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.sem }()

	work := s.data.clone()
	if err := fn(ctx, &repos{st: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.data = work
	return nil
}

// Snapshot runs fn against a copy of the committed state and discards any
// changes fn makes. Used for reads and test assertions.
func (s *Store) Snapshot(ctx context.Context, fn uow.Func) error {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.sem }()

	return fn(ctx, &repos{st: s.data.clone()})
}

type repos struct {
	st *state
}

func (r *repos) Profiles() progression.Repository { return profileRepo{r.st} }
func (r *repos) Quests() quest.Repository { return questRepo{r.st} }
func (r *repos) Tasks() task.Repository { return taskRepo{r.st} }
func (r *repos) Habits() habit.Repository { return habitRepo{r.st} }
func (r *repos) Templates() achievement.TemplateRepository { return templateRepo{r.st} }
func (r *repos) Achievements() achievement.ProgressRepository { return progressRepo{r.st} }
