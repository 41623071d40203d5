package sim

import (
	"math/rand"
)

// The placement engine draws randomness in two distinct roles:
//
//   - SharedStream: every rank seeds the identical sequence and consumes it in
//     lockstep, so a draw is a collectively agreed value. Used wherever all
//     ranks must reach the same decision, e.g. the coordinate trials of random
//     placement and the dilution flags.
//   - RankStream: the seed is salted with the rank, so each rank draws an
//     independent sequence. Used wherever only rank-private randomness is
//     needed, e.g. molecule orientations.
//
// The two are separate types on purpose: substituting one role for the other
// silently desynchronizes the ranks, which is far harder to debug than a
// compile error.

// SharedStream is a pseudo-random stream whose value sequence is identical on
// every rank that constructs it with the same seed.
type SharedStream struct {
	r *rand.Rand
}

// NewSharedStream creates a shared-sequence stream from a seed. All ranks
// participating in a collective decision must pass the same seed.
func NewSharedStream(seed int64) *SharedStream {
	return &SharedStream{r: rand.New(rand.NewSource(seed))}
}

// Uniform returns the next uniform variate in [0,1).
func (s *SharedStream) Uniform() float64 {
	return s.r.Float64()
}

// Warmup discards n draws. Random placement discards 30 so that runs with
// adjacent seeds do not start from correlated first-particle positions.
func (s *SharedStream) Warmup(n int) {
	for i := 0; i < n; i++ {
		s.r.Float64()
	}
}

// RankStream is a pseudo-random stream salted with the owning rank, so
// different ranks draw independent, non-identical sequences.
type RankStream struct {
	r    *rand.Rand
	rank int
}

// NewRankStream creates a rank-private stream from a user seed and a rank.
func NewRankStream(seed int64, rank int) *RankStream {
	return &RankStream{
		r:    rand.New(rand.NewSource(seed + int64(rank))),
		rank: rank,
	}
}

// Uniform returns the next uniform variate in [0,1).
func (s *RankStream) Uniform() float64 {
	return s.r.Float64()
}

// Rank returns the rank this stream was salted with.
func (s *RankStream) Rank() int {
	return s.rank
}
