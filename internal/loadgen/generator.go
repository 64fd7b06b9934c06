package loadgen

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/google/uuid"
)

// ratingFloor keeps generated ratings non-negative.
const ratingFloor = 0

// generateParticipants creates n participants with unique ids and normally distributed ratings.
func generateParticipants(n int, mean, stddev float64, rng *rand.Rand) []Participant {
	out := make([]Participant, n)
	for i := range out {
		rating := int(math.Round(rng.NormFloat64()*stddev + mean))
		if rating < ratingFloor {
			rating = ratingFloor
		}
		out[i] = Participant{
			ID:          uuid.NewString(),
			DisplayName: fmt.Sprintf("player-%04d", i+1),
			SkillRating: rating,
		}
	}
	return out
}

// pickLeavers returns a random fraction of ids, at most len(ids).
func pickLeavers(ids []string, fraction float64, rng *rand.Rand) []string {
	n := int(math.Floor(float64(len(ids)) * fraction))
	if n <= 0 {
		return nil
	}
	shuffled := append([]string(nil), ids...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return shuffled[:n]
}
