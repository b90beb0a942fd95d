// README: Pure multi-factor candidate scoring; no I/O, deterministic output.
package ranking

import (
	"sort"

	"hailer/internal/modules/registry"
)

// Weights are explicit tunables, not derived constants. They must sum to
// 1.0 for scores to stay in [0,1], but nothing enforces that: operators
// own the tradeoff.
type Weights struct {
	Distance   float64
	Rating     float64
	Experience float64
	Response   float64
}

func DefaultWeights() Weights {
	return Weights{
		Distance:   0.40,
		Rating:     0.30,
		Experience: 0.20,
		Response:   0.10,
	}
}

const (
	// ExperienceCapTrips is where the experience signal saturates.
	ExperienceCapTrips = 100
	// responseBaseline stands in for a historical response-time signal
	// that is not modeled yet. Constant, so it never reorders candidates.
	responseBaseline = 0.5
)

type Ranker struct {
	weights     Weights
	maxRadiusKm float64
}

func New(weights Weights, maxRadiusKm float64) *Ranker {
	return &Ranker{weights: weights, maxRadiusKm: maxRadiusKm}
}

// Score computes the weighted score of a single candidate.
func (r *Ranker) Score(c registry.Candidate) float64 {
	distanceScore := 1 - c.DistanceKm/r.maxRadiusKm
	if distanceScore < 0 {
		distanceScore = 0
	}
	ratingScore := c.Rating / 5.0
	experienceScore := float64(c.CompletedTrips) / ExperienceCapTrips
	if experienceScore > 1 {
		experienceScore = 1
	}

	return r.weights.Distance*distanceScore +
		r.weights.Rating*ratingScore +
		r.weights.Experience*experienceScore +
		r.weights.Response*responseBaseline
}

// Rank orders candidates by descending score. The sort is stable and the
// input arrives in driver insertion order, so ties resolve the same way
// on every call.
func (r *Ranker) Rank(candidates []registry.Candidate) []registry.Candidate {
	ranked := make([]registry.Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return r.Score(ranked[i]) > r.Score(ranked[j])
	})
	return ranked
}
