package memory

import (
	"context"
	"sort"
	"time"

	"github.com/lifequest/lifequest-core/internal/domain/achievement"
	"github.com/lifequest/lifequest-core/internal/domain/habit"
	"github.com/lifequest/lifequest-core/internal/domain/progression"
	"github.com/lifequest/lifequest-core/internal/domain/quest"
	"github.com/lifequest/lifequest-core/internal/domain/shared"
	"github.com/lifequest/lifequest-core/internal/domain/task"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILES
// ══════════════════════════════════════════════════════════════════════════════

type profileRepo struct{ st *state }

func (r profileRepo) Create(_ context.Context, p *progression.Profile) error {
	if _, ok := r.st.profiles[p.UserID]; ok {
		return shared.ErrProfileAlreadyExists
	}
	r.st.profiles[p.UserID] = *p
	return nil
}

func (r profileRepo) GetByUserID(_ context.Context, userID string) (*progression.Profile, error) {
	p, ok := r.st.profiles[userID]
	if !ok {
		return nil, shared.ErrProfileNotFound
	}
	return &p, nil
}

func (r profileRepo) GetForUpdate(ctx context.Context, userID string) (*progression.Profile, error) {
	return r.GetByUserID(ctx, userID)
}

func (r profileRepo) Update(_ context.Context, p *progression.Profile) error {
	if _, ok := r.st.profiles[p.UserID]; !ok {
		return shared.ErrProfileNotFound
	}
	r.st.profiles[p.UserID] = *p
	return nil
}

func (r profileRepo) Top(_ context.Context, limit int) ([]*progression.Profile, error) {
	out := make([]*progression.Profile, 0, len(r.st.profiles))
	for _, p := range r.st.profiles {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level > out[j].Level
		}
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].UserID < out[j].UserID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// QUESTS
// ══════════════════════════════════════════════════════════════════════════════

type questRepo struct{ st *state }

func (r questRepo) Create(_ context.Context, q *quest.Quest) error {
	if _, ok := r.st.quests[q.ID]; ok {
		return shared.NewDomainError("quest", "Create", shared.ErrAlreadyExists, "quest already exists")
	}
	r.st.quests[q.ID] = *q
	return nil
}

func (r questRepo) GetByID(_ context.Context, id, ownerID string) (*quest.Quest, error) {
	q, ok := r.st.quests[id]
	if !ok || !q.IsOwnedBy(ownerID) {
		return nil, shared.ErrQuestNotFound
	}
	return &q, nil
}

func (r questRepo) GetForUpdate(ctx context.Context, id, ownerID string) (*quest.Quest, error) {
	return r.GetByID(ctx, id, ownerID)
}

func (r questRepo) Update(_ context.Context, q *quest.Quest) error {
	if _, ok := r.st.quests[q.ID]; !ok {
		return shared.ErrQuestNotFound
	}
	r.st.quests[q.ID] = *q
	return nil
}

func (r questRepo) ListByOwner(_ context.Context, ownerID string, status quest.Status) ([]*quest.Quest, error) {
	out := make([]*quest.Quest, 0)
	for _, q := range r.st.quests {
		if q.OwnerID != ownerID || (status != "" && q.Status != status) {
			continue
		}
		q := q
		out = append(out, &q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TASKS
// ══════════════════════════════════════════════════════════════════════════════

type taskRepo struct{ st *state }

func (r taskRepo) Create(_ context.Context, t *task.Task) error {
	if _, ok := r.st.tasks[t.ID]; ok {
		return shared.NewDomainError("task", "Create", shared.ErrAlreadyExists, "task already exists")
	}
	r.st.tasks[t.ID] = *t
	return nil
}

func (r taskRepo) GetByID(_ context.Context, id, ownerID string) (*task.Task, error) {
	t, ok := r.st.tasks[id]
	if !ok || !t.IsOwnedBy(ownerID) {
		return nil, shared.ErrTaskNotFound
	}
	return &t, nil
}

func (r taskRepo) GetForUpdate(ctx context.Context, id, ownerID string) (*task.Task, error) {
	return r.GetByID(ctx, id, ownerID)
}

func (r taskRepo) Update(_ context.Context, t *task.Task) error {
	if _, ok := r.st.tasks[t.ID]; !ok {
		return shared.ErrTaskNotFound
	}
	r.st.tasks[t.ID] = *t
	return nil
}

func (r taskRepo) Delete(_ context.Context, id, ownerID string) error {
	t, ok := r.st.tasks[id]
	if !ok || !t.IsOwnedBy(ownerID) {
		return shared.ErrTaskNotFound
	}
	delete(r.st.tasks, id)
	return nil
}

func (r taskRepo) ListByOwner(_ context.Context, ownerID string) ([]*task.Task, error) {
	out := make([]*task.Task, 0)
	for _, t := range r.st.tasks {
		if t.OwnerID != ownerID {
			continue
		}
		t := t
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r taskRepo) FindOverdueForUpdate(_ context.Context, now time.Time, limit int) ([]*task.Task, error) {
	out := make([]*task.Task, 0)
	for _, t := range r.st.tasks {
		if !t.NeedsPenalty(now) {
			continue
		}
		t := t
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Deadline.Before(*out[j].Deadline) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HABITS
// ══════════════════════════════════════════════════════════════════════════════

type habitRepo struct{ st *state }

func (r habitRepo) Create(_ context.Context, h *habit.Habit) error {
	if _, ok := r.st.habits[h.ID]; ok {
		return shared.NewDomainError("habit", "Create", shared.ErrAlreadyExists, "habit already exists")
	}
	r.st.habits[h.ID] = *h
	return nil
}

func (r habitRepo) GetForUpdate(_ context.Context, id, ownerID string) (*habit.Habit, error) {
	h, ok := r.st.habits[id]
	if !ok || h.OwnerID != ownerID || !h.IsActive {
		return nil, shared.ErrHabitNotFound
	}
	return &h, nil
}

func (r habitRepo) Update(_ context.Context, h *habit.Habit) error {
	if _, ok := r.st.habits[h.ID]; !ok {
		return shared.ErrHabitNotFound
	}
	r.st.habits[h.ID] = *h
	return nil
}

func (r habitRepo) ListActiveByOwner(_ context.Context, ownerID string) ([]*habit.Habit, error) {
	out := make([]*habit.Habit, 0)
	for _, h := range r.st.habits {
		if h.OwnerID != ownerID || !h.IsActive {
			continue
		}
		h := h
		out = append(out, &h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENTS
// ══════════════════════════════════════════════════════════════════════════════

type templateRepo struct{ st *state }

func (r templateRepo) Upsert(_ context.Context, a *achievement.Achievement) error {
	r.st.templates[a.ID] = *a
	return nil
}

func (r templateRepo) GetByID(_ context.Context, id string) (*achievement.Achievement, error) {
	a, ok := r.st.templates[id]
	if !ok {
		return nil, shared.ErrAchievementNotFound
	}
	return &a, nil
}

func (r templateRepo) List(_ context.Context) ([]*achievement.Achievement, error) {
	out := make([]*achievement.Achievement, 0, len(r.st.templates))
	for _, a := range r.st.templates {
		a := a
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type progressRepo struct{ st *state }

func (r progressRepo) BulkCreate(_ context.Context, rows []*achievement.Progress) error {
	for _, p := range rows {
		for _, existing := range r.st.progress {
			if existing.UserID == p.UserID && existing.AchievementID == p.AchievementID {
				return shared.ErrAchievementProvisioned
			}
		}
		if _, ok := r.st.templates[p.AchievementID]; !ok {
			return shared.ErrAchievementNotFound
		}
		r.st.progress[p.ID] = *p
	}
	return nil
}

func (r progressRepo) ListOpenForUpdate(_ context.Context, userID, category, unitType string) ([]achievement.Tracked, error) {
	out := make([]achievement.Tracked, 0)
	for _, p := range r.st.progress {
		if p.UserID != userID || p.Completed {
			continue
		}
		a, ok := r.st.templates[p.AchievementID]
		if !ok || !a.Matches(category, unitType) {
			continue
		}
		p := p
		out = append(out, achievement.Tracked{Achievement: &a, Progress: &p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Achievement.ID < out[j].Achievement.ID })
	return out, nil
}

func (r progressRepo) Update(_ context.Context, p *achievement.Progress) error {
	if _, ok := r.st.progress[p.ID]; !ok {
		return shared.ErrAchievementNotFound
	}
	r.st.progress[p.ID] = *p
	return nil
}

func (r progressRepo) ListByUser(_ context.Context, userID string) ([]achievement.Tracked, error) {
	out := make([]achievement.Tracked, 0)
	for _, p := range r.st.progress {
		if p.UserID != userID {
			continue
		}
		a, ok := r.st.templates[p.AchievementID]
		if !ok {
			continue
		}
		p := p
		out = append(out, achievement.Tracked{Achievement: &a, Progress: &p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Achievement.Name < out[j].Achievement.Name })
	return out, nil
}
