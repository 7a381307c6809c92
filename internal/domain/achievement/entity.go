// Package achievement contains shared achievement templates and the per-user
// tiered progress counters that accumulate against them.
package achievement

import (
	"math"
	"strings"
	"time"

	"github.com/lifequest/lifequest-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Tier is an ordered achievement rank.
type Tier string

const (
	TierBronze   Tier = "BRONZE"
	TierSilver   Tier = "SILVER"
	TierGold     Tier = "GOLD"
	TierPlatinum Tier = "PLATINUM"
	TierDiamond  Tier = "DIAMOND"
)

// Tiers lists all tiers in ascending order.
var Tiers = []Tier{TierBronze, TierSilver, TierGold, TierPlatinum, TierDiamond}

// Rank returns the zero-based position of the tier, or -1 for an unknown tier.
func (t Tier) Rank() int {
	for i, tier := range Tiers {
		if tier == t {
			return i
		}
	}
	return -1
}

// IsValid reports whether the tier is known.
func (t Tier) IsValid() bool {
	return t.Rank() >= 0
}

// Next returns the tier after t, or false for DIAMOND.
func (t Tier) Next() (Tier, bool) {
	r := t.Rank()
	if r < 0 || r == len(Tiers)-1 {
		return "", false
	}
	return Tiers[r+1], true
}

// NormalizeKey turns a category or unit type name into its matching key.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ══════════════════════════════════════════════════════════════════════════════
// TEMPLATE: ACHIEVEMENT
// ══════════════════════════════════════════════════════════════════════════════

// Requirements holds the progress needed for each tier, indexed by Tier.Rank().
type Requirements [5]int64

// For returns the requirement of a tier.
func (r Requirements) For(t Tier) int64 {
	rank := t.Rank()
	if rank < 0 {
		return 0
	}
	return r[rank]
}

// Diamond returns the completion requirement.
func (r Requirements) Diamond() int64 {
	return r[len(r)-1]
}

// Validate checks that requirements are positive and strictly ascending.
func (r Requirements) Validate() error {
	if r[0] <= 0 {
		return shared.ErrInvalidRequirements
	}
	for i := 1; i < len(r); i++ {
		if r[i] <= r[i-1] {
			return shared.ErrInvalidRequirements
		}
	}
	return nil
}

// Achievement is a read-only template shared by all users.
type Achievement struct {
	ID           string
	Name         string
	Description  string
	Category     string
	UnitType     string
	Requirements Requirements
}

// Validate checks the template fields.
func (a *Achievement) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return shared.ErrEmptyAchievementName
	}
	if NormalizeKey(a.Category) == "" || NormalizeKey(a.UnitType) == "" {
		return shared.ErrEmptyAchievementMeasure
	}
	return a.Requirements.Validate()
}

// Matches reports whether the template measures the given category and unit type.
func (a *Achievement) Matches(category, unitType string) bool {
	return NormalizeKey(a.Category) == NormalizeKey(category) &&
		NormalizeKey(a.UnitType) == NormalizeKey(unitType)
}

// TierFor returns the highest tier whose requirement is met.
// BRONZE is the baseline and is returned for any progress below SILVER.
func (a *Achievement) TierFor(progress int64) Tier {
	for i := len(Tiers) - 1; i > 0; i-- {
		if progress >= a.Requirements[i] {
			return Tiers[i]
		}
	}
	return TierBronze
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: USER PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// Progress is one user's counter against one achievement template.
type Progress struct {
	ID              string
	UserID          string
	AchievementID   string
	CurrentProgress int64
	CurrentTier     Tier
	Completed       bool
	CompletedAt     *time.Time
	UpdatedAt       time.Time
}

// NewProgress returns a zeroed BRONZE counter.
func NewProgress(userID, achievementID string, now time.Time) *Progress {
	return &Progress{
		ID:            shared.NewID(),
		UserID:        userID,
		AchievementID: achievementID,
		CurrentTier:   TierBronze,
		UpdatedAt:     now,
	}
}

// AccrualResult reports what one accrual changed.
type AccrualResult struct {
	Applied      bool
	OldTier      Tier
	NewTier      Tier
	JustComplete bool
}

// TierChanged reports whether the accrual promoted the counter.
func (r AccrualResult) TierChanged() bool {
	return r.Applied && r.NewTier != r.OldTier
}

// Accrue adds amount to the counter and recomputes tier and completion.
// Completed counters are frozen; accruing to them is a no-op.
func (p *Progress) Accrue(a *Achievement, amount int64, now time.Time) (AccrualResult, error) {
	res := AccrualResult{OldTier: p.CurrentTier, NewTier: p.CurrentTier}
	if amount < 0 {
		return res, shared.ErrInvalidAccrualAmount
	}
	if p.Completed || amount == 0 {
		return res, nil
	}

	sum, ok := addChecked(p.CurrentProgress, amount)
	if !ok {
		return res, shared.NewDomainError("achievement", "Accrue", shared.ErrOverflow, "progress overflow")
	}

	p.CurrentProgress = sum
	p.CurrentTier = a.TierFor(sum)
	p.UpdatedAt = now
	if sum >= a.Requirements.Diamond() {
		p.Completed = true
		p.CompletedAt = &now
		res.JustComplete = true
	}

	res.Applied = true
	res.NewTier = p.CurrentTier
	return res, nil
}

func addChecked(a, b int64) (int64, bool) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, false
	}
	return a + b, true
}
