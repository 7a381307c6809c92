// Package uow defines the transactional boundary used by every write operation.
// A unit of work hands out repositories bound to one transaction; "...ForUpdate"
// lookups on those repositories hold an exclusive row lock until the transaction ends.
package uow

import (
	"context"

	"github.com/lifequest/lifequest-core/internal/domain/achievement"
	"github.com/lifequest/lifequest-core/internal/domain/habit"
	"github.com/lifequest/lifequest-core/internal/domain/progression"
	"github.com/lifequest/lifequest-core/internal/domain/quest"
	"github.com/lifequest/lifequest-core/internal/domain/task"
)

// Repos are the repositories available inside one transaction.
type Repos interface {
	Profiles() progression.Repository
	Quests() quest.Repository
	Tasks() task.Repository
	Habits() habit.Repository
	Templates() achievement.TemplateRepository
	Achievements() achievement.ProgressRepository
}

// Func is the body of a transaction. Returning an error rolls everything back.
type Func func(ctx context.Context, repos Repos) error

// UnitOfWork runs functions inside a transaction.
type UnitOfWork interface {
	// Do commits when fn returns nil and rolls back otherwise, including when
	// ctx is cancelled before commit. Implementations may re-run fn after a
	// transient conflict, so fn must not have side effects outside repos.
	Do(ctx context.Context, fn Func) error
}
