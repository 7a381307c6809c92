// Package quest contains the quest aggregate and its ACTIVE -> COMPLETED | FAILED lifecycle.
package quest

import (
	"strings"
	"time"

	"github.com/lifequest/lifequest-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Status is the lifecycle state of a quest.
type Status string

const (
	// StatusActive - the quest can still be completed or failed.
	StatusActive Status = "ACTIVE"
	// StatusCompleted - terminal, the reward was granted.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed - terminal, no reward.
	StatusFailed Status = "FAILED"
)

// IsValid reports whether the status is known.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Type classifies a quest.
type Type string

const (
	TypeDaily     Type = "DAILY"
	TypeUrgent    Type = "URGENT"
	TypeChallenge Type = "CHALLENGE"
	TypeMain      Type = "MAIN"
)

// ParseType maps a free-form type name onto a known type. Unknown names become CHALLENGE.
func ParseType(s string) Type {
	switch t := Type(strings.ToUpper(strings.TrimSpace(s))); t {
	case TypeDaily, TypeUrgent, TypeChallenge, TypeMain:
		return t
	default:
		return TypeChallenge
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: QUEST
// ══════════════════════════════════════════════════════════════════════════════

// Quest is a reward-bearing goal owned by one user.
type Quest struct {
	ID           string
	OwnerID      string
	Type         Type
	Title        string
	Description  string
	RewardPoints int64

	// RewardOther and PenaltyInfo are free-text descriptions, never applied automatically.
	RewardOther string
	PenaltyInfo string

	Status      Status
	CreatedAt   time.Time
	CompletedAt *time.Time
	FailedAt    *time.Time
}

// NewQuest creates an ACTIVE quest.
func NewQuest(ownerID string, qtype Type, title, description string, rewardPoints int64, now time.Time) (*Quest, error) {
	q := &Quest{
		ID:           shared.NewID(),
		OwnerID:      ownerID,
		Type:         ParseType(string(qtype)),
		Title:        strings.TrimSpace(title),
		Description:  strings.TrimSpace(description),
		RewardPoints: rewardPoints,
		Status:       StatusActive,
		CreatedAt:    now,
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

// Validate checks the quest fields.
func (q *Quest) Validate() error {
	if err := shared.ValidateID(q.OwnerID); err != nil {
		return err
	}
	if q.Title == "" {
		return shared.ErrEmptyQuestTitle
	}
	if q.RewardPoints < 0 {
		return shared.ErrInvalidQuestReward
	}
	if !q.Status.IsValid() {
		return shared.NewDomainError("quest", "Validate", shared.ErrInvalidInput, "unknown quest status")
	}
	return nil
}

// IsOwnedBy reports whether the quest belongs to userID.
func (q *Quest) IsOwnedBy(userID string) bool {
	return q.OwnerID == userID
}

// Complete moves an ACTIVE quest to COMPLETED.
func (q *Quest) Complete(now time.Time) error {
	if q.Status != StatusActive {
		return shared.ErrQuestNotActive
	}
	q.Status = StatusCompleted
	q.CompletedAt = &now
	return nil
}

// Fail moves an ACTIVE quest to FAILED.
func (q *Quest) Fail(now time.Time) error {
	if q.Status != StatusActive {
		return shared.ErrQuestNotActive
	}
	q.Status = StatusFailed
	q.FailedAt = &now
	return nil
}

// HasReward reports whether completing the quest grants points.
func (q *Quest) HasReward() bool {
	return q.RewardPoints > 0
}
