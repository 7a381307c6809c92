package achievement

import "time"

// ProgressView is a read model combining a template with a user's counter.
type ProgressView struct {
	AchievementID   string
	Name            string
	Description     string
	Category        string
	UnitType        string
	CurrentProgress int64
	CurrentTier     Tier
	NextTier        Tier  // empty at DIAMOND
	NextRequirement int64 // 0 at DIAMOND
	Percentage      int
	Completed       bool
	CompletedAt     *time.Time
}

// BuildView computes next-tier information for a counter.
// Percentage is progress relative to the next requirement, capped at 100, and 100 at DIAMOND.
func BuildView(a *Achievement, p *Progress) ProgressView {
	v := ProgressView{
		AchievementID:   a.ID,
		Name:            a.Name,
		Description:     a.Description,
		Category:        a.Category,
		UnitType:        a.UnitType,
		CurrentProgress: p.CurrentProgress,
		CurrentTier:     p.CurrentTier,
		Completed:       p.Completed,
		CompletedAt:     p.CompletedAt,
		Percentage:      100,
	}

	next, ok := p.CurrentTier.Next()
	if !ok {
		return v
	}
	v.NextTier = next
	v.NextRequirement = a.Requirements.For(next)
	if v.NextRequirement > 0 {
		pct := p.CurrentProgress * 100 / v.NextRequirement
		if pct > 100 {
			pct = 100
		}
		v.Percentage = int(pct)
	}
	return v
}
