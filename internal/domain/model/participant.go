// Package model contains domain models passed between layers.
package model

import "time"

// Participant is a waiting player. SkillRating is supplied by the caller.
type Participant struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	SkillRating int       `json:"skill_rating"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}

// WaitTime returns how long p has been queued at now. Never negative.
func (p Participant) WaitTime(now time.Time) time.Duration {
	d := now.Sub(p.EnqueuedAt)
	if d < 0 {
		return 0
	}
	return d
}

// LeaveReason explains why a participant left the queue.
type LeaveReason string

// Leave reasons.
const (
	LeaveVoluntary LeaveReason = "voluntary"
	LeaveTimeout   LeaveReason = "timeout"
	LeaveMatched   LeaveReason = "matched"
)

// Match is a terminal grouping of participants. Ownership passes to whoever
// consumes the MatchFound event.
type Match struct {
	MatchID            string        `json:"match_id"`
	Members            []Participant `json:"members"`
	AverageSkillRating float64       `json:"average_skill_rating"`
	// Tolerance is the effective tolerance evaluated at FormedAt.
	Tolerance float64   `json:"tolerance"`
	FormedAt  time.Time `json:"formed_at"`
}

// MemberIDs returns the member ids in match order.
func (m Match) MemberIDs() []string {
	ids := make([]string, len(m.Members))
	for i, p := range m.Members {
		ids[i] = p.ID
	}
	return ids
}

// AverageSkill returns the mean rating of members, 0 for an empty slice.
func AverageSkill(members []Participant) float64 {
	if len(members) == 0 {
		return 0
	}
	var sum int64
	for _, p := range members {
		sum += int64(p.SkillRating)
	}
	return float64(sum) / float64(len(members))
}
