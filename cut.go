package rrcf

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// Cut is a randomly chosen axis-aligned hyperplane (Dim, Value) splitting a
// subtree: leaves with coord[Dim] <= Value belong to the left child, the rest
// to the right child.
type Cut struct {
	Dim   int
	Value float64
}

// insertPointCut draws a random cut for inserting p into a subtree whose
// current bounding box is [lo, hi]. The box is first extended by p; the cut
// dimension is drawn with probability proportional to each dimension's span
// of the extended box, so zero-span dimensions are never selected. Both tree
// variants select cuts through this one routine, which keeps their RNG
// consumption identical under a shared seed.
//
// The total span is positive whenever p differs from at least one stored
// point; duplicate detection runs before any cut is drawn.
func insertPointCut(rng *rand.Rand, p Point, lo, hi []float64) Cut {
	dims := len(lo)
	extLo := make([]float64, dims)
	extHi := make([]float64, dims)
	for i := 0; i < dims; i++ {
		extLo[i] = math.Min(lo[i], p.At(i))
		extHi[i] = math.Max(hi[i], p.At(i))
	}

	span := make([]float64, dims)
	floats.SubTo(span, extHi, extLo)
	cumSpan := make([]float64, dims)
	floats.CumSum(cumSpan, span)

	total := cumSpan[dims-1]
	r := rng.Float64() * total

	cutDim := -1
	for i := 0; i < dims; i++ {
		// First dimension whose cumulative span reaches the draw.
		if cumSpan[i] >= r {
			cutDim = i
			break
		}
	}
	assert(cutDim >= 0, "cut selection found no dimension")

	return Cut{Dim: cutDim, Value: extLo[cutDim] + cumSpan[cutDim] - r}
}
