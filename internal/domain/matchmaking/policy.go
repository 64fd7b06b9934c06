package matchmaking

import (
	"time"

	"github.com/okian/matchq/internal/domain/model"
)

// Policy decides whether participants may share a match. It is pure.
type Policy struct {
	base float64
	rate float64
}

// NewPolicy builds the policy for cfg.
func NewPolicy(cfg Config) Policy {
	return Policy{base: cfg.BaseSkillTolerance, rate: cfg.ToleranceGrowthRatePerSecond}
}

// EffectiveTolerance is base + rate * anchorWait in seconds. It grows monotonically
// with the anchor's wait time.
func (p Policy) EffectiveTolerance(anchorWait time.Duration) float64 {
	if anchorWait < 0 {
		anchorWait = 0
	}
	return p.base + p.rate*anchorWait.Seconds()
}

// IsCompatible reports whether candidate is within tolerance of every member.
// Checking all members, not just the anchor, keeps ratings from bridging.
func IsCompatible(candidate model.Participant, members []model.Participant, tolerance float64) bool {
	for _, m := range members {
		if ratingGap(candidate, m) > tolerance {
			return false
		}
	}
	return true
}

func ratingGap(a, b model.Participant) float64 {
	d := int64(a.SkillRating) - int64(b.SkillRating)
	if d < 0 {
		d = -d
	}
	return float64(d)
}
