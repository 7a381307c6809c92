package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lifequest/lifequest-core/internal/application/uow"
	"github.com/lifequest/lifequest-core/internal/domain/achievement"
	"github.com/lifequest/lifequest-core/internal/domain/habit"
	"github.com/lifequest/lifequest-core/internal/domain/progression"
	"github.com/lifequest/lifequest-core/internal/domain/quest"
	"github.com/lifequest/lifequest-core/internal/domain/task"
	"github.com/lifequest/lifequest-core/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// UNIT OF WORK
// ══════════════════════════════════════════════════════════════════════════════

// UnitOfWork implements uow.UnitOfWork on a pgx pool. A transaction aborted
// by a deadlock or serialization failure is rolled back and re-run.
type UnitOfWork struct {
	conn    *Connection
	retrier *retry.Retrier
	logger  *slog.Logger
}

// NewUnitOfWork creates a unit of work over conn.
func NewUnitOfWork(conn *Connection, logger *slog.Logger) *UnitOfWork {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "postgres_uow")

	return &UnitOfWork{
		conn:   conn,
		logger: logger,
		retrier: retry.DatabaseRetrier(
			retry.WithRetryIf(IsTransient),
			retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
				logger.Warn("transaction conflict, retrying",
					"attempt", attempt,
					"delay", delay,
					"error", err,
				)
			}),
		),
	}
}

var _ uow.UnitOfWork = (*UnitOfWork)(nil)

// Do implements uow.UnitOfWork.
func (u *UnitOfWork) Do(ctx context.Context, fn uow.Func) error {
	return u.retrier.Do(ctx, func(ctx context.Context) error {
		return u.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
			return fn(ctx, newTxRepos(tx))
		})
	})
}

// txRepos binds every repository to one transaction.
type txRepos struct {
	profiles     *ProfileRepository
	quests       *QuestRepository
	tasks        *TaskRepository
	habits       *HabitRepository
	templates    *TemplateRepository
	achievements *ProgressRepository
}

func newTxRepos(q Querier) *txRepos {
	return &txRepos{
		profiles:     NewProfileRepository(q),
		quests:       NewQuestRepository(q),
		tasks:        NewTaskRepository(q),
		habits:       NewHabitRepository(q),
		templates:    NewTemplateRepository(q),
		achievements: NewProgressRepository(q),
	}
}

func (r *txRepos) Profiles() progression.Repository { return r.profiles }
func (r *txRepos) Quests() quest.Repository { return r.quests }
func (r *txRepos) Tasks() task.Repository { return r.tasks }
func (r *txRepos) Habits() habit.Repository { return r.habits }
func (r *txRepos) Templates() achievement.TemplateRepository { return r.templates }
func (r *txRepos) Achievements() achievement.ProgressRepository { return r.achievements }
