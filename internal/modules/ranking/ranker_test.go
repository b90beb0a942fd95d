package ranking

import (
	"math"
	"testing"

	"hailer/internal/modules/registry"
	"hailer/internal/types"
)

func cand(id string, distanceKm, rating float64, trips int) registry.Candidate {
	return registry.Candidate{
		Entry: registry.Entry{
			DriverID:       types.ID(id),
			Rating:         rating,
			CompletedTrips: trips,
		},
		DistanceKm: distanceKm,
	}
}

func TestScore_Components(t *testing.T) {
	r := New(DefaultWeights(), 10.0)

	tests := []struct {
		name string
		c    registry.Candidate
		want float64
	}{
		{
			// 0.40*1.0 + 0.30*1.0 + 0.20*1.0 + 0.10*0.5
			name: "perfect driver at zero distance",
			c:    cand("d1", 0, 5.0, 100),
			want: 0.95,
		},
		{
			// distance score floors at 0 beyond max radius
			name: "beyond max radius",
			c:    cand("d2", 15.0, 5.0, 100),
			want: 0.55,
		},
		{
			// experience saturates at the cap
			name: "experience capped",
			c:    cand("d3", 0, 5.0, 100000),
			want: 0.95,
		},
		{
			// 0.40*0.5 + 0.30*0.8 + 0.20*0.5 + 0.10*0.5
			name: "mid-range values",
			c:    cand("d4", 5.0, 4.0, 50),
			want: 0.59,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Score(tt.c)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Score() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestRank_OrdersByScoreDescending(t *testing.T) {
	r := New(DefaultWeights(), 10.0)

	cands := []registry.Candidate{
		cand("mediocre", 8.0, 3.0, 10),
		cand("best", 0.5, 5.0, 200),
		cand("good", 2.0, 4.5, 80),
	}
	ranked := r.Rank(cands)

	want := []types.ID{"best", "good", "mediocre"}
	for i, id := range want {
		if ranked[i].DriverID != id {
			t.Errorf("position %d = %s, want %s", i, ranked[i].DriverID, id)
		}
	}
}

func TestRank_Deterministic(t *testing.T) {
	r := New(DefaultWeights(), 10.0)

	// Identical scores: ties must keep input (insertion) order, and the
	// whole ordering must be identical on repeated calls.
	cands := []registry.Candidate{
		cand("a", 1.0, 4.0, 50),
		cand("b", 1.0, 4.0, 50),
		cand("c", 1.0, 4.0, 50),
	}

	first := r.Rank(cands)
	for run := 0; run < 5; run++ {
		again := r.Rank(cands)
		for i := range first {
			if again[i].DriverID != first[i].DriverID {
				t.Fatalf("run %d: position %d = %s, want %s", run, i, again[i].DriverID, first[i].DriverID)
			}
		}
	}
	if first[0].DriverID != "a" || first[1].DriverID != "b" || first[2].DriverID != "c" {
		t.Errorf("tie-break did not preserve input order: %v", first)
	}
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	r := New(DefaultWeights(), 10.0)
	cands := []registry.Candidate{
		cand("far", 9.0, 5.0, 100),
		cand("near", 0.5, 5.0, 100),
	}
	r.Rank(cands)
	if cands[0].DriverID != "far" || cands[1].DriverID != "near" {
		t.Errorf("input slice was reordered: %v", cands)
	}
}

func TestRank_Empty(t *testing.T) {
	r := New(DefaultWeights(), 10.0)
	if got := r.Rank(nil); len(got) != 0 {
		t.Errorf("expected empty result for nil input, got %v", got)
	}
}
