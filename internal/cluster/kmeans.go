// Package cluster partitions feature vectors and summarizes the resulting groups.
package cluster

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"

	"github.com/BerylCAtieno/customer-persona-agent/internal/errs"
)

// Partitioner assigns every vector a cluster index in [0, k).
type Partitioner interface {
	Partition(ctx context.Context, vectors [][]float64, k int) ([]int, error)
}

const (
	DefaultMaxIterations = 100
	DefaultTolerance     = 1e-6
)

// KMeans is Lloyd's algorithm with k-means++ seeding. The same Seed over the
// same vectors always yields the same assignment.
type KMeans struct {
	Seed          uint64
	MaxIterations int
	Tolerance     float64
}

func NewKMeans(seed uint64) *KMeans {
	return &KMeans{Seed: seed, MaxIterations: DefaultMaxIterations, Tolerance: DefaultTolerance}
}

// Partition never fails for numeric reasons once its preconditions hold: when
// the iteration cap is reached it returns the last assignment.
func (km *KMeans) Partition(ctx context.Context, vectors [][]float64, k int) ([]int, error) {
	if k < 1 {
		return nil, &errs.ClusteringError{Msg: fmt.Sprintf("invalid cluster count %d", k)}
	}
	if len(vectors) < k {
		return nil, &errs.InputError{
			Msg: fmt.Sprintf("%d records for %d clusters", len(vectors), k),
			Err: errs.ErrInsufficientData,
		}
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return nil, &errs.ClusteringError{Msg: fmt.Sprintf("vector %d has length %d, want %d", i, len(v), dim)}
		}
	}

	maxIter := km.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	tol := km.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}

	centroids := km.seed(vectors, k)
	assign := make([]int, len(vectors))
	for i := range assign {
		assign[i] = -1
	}

	for iter := 0; iter < maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, &errs.ClusteringError{Msg: "interrupted", Err: err}
		}
		changed := false
		for i, v := range vectors {
			best := nearest(v, centroids)
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}

		shift := 0.0
		for c := range centroids {
			mean, n := memberMean(vectors, assign, c, dim)
			if n == 0 {
				continue // empty cluster keeps its centroid
			}
			shift = math.Max(shift, floats.Distance(mean, centroids[c], 2))
			centroids[c] = mean
		}

		if !changed || shift <= tol {
			break
		}
	}
	return assign, nil
}

// seed picks k initial centroids: the first uniformly, each next one with
// probability proportional to its squared distance from the closest centroid
// chosen so far.
func (km *KMeans) seed(vectors [][]float64, k int) [][]float64 {
	rng := rand.New(rand.NewPCG(km.Seed, km.Seed^0x9e3779b97f4a7c15))
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(vectors[rng.IntN(len(vectors))]))

	d2 := make([]float64, len(vectors))
	for len(centroids) < k {
		total := 0.0
		for i, v := range vectors {
			d := floats.Distance(v, centroids[nearest(v, centroids)], 2)
			d2[i] = d * d
			total += d2[i]
		}
		next := 0
		if total == 0 {
			// every point coincides with a centroid
			next = rng.IntN(len(vectors))
		} else {
			target := rng.Float64() * total
			for i, w := range d2 {
				target -= w
				if target < 0 {
					next = i
					break
				}
				next = i
			}
		}
		centroids = append(centroids, clone(vectors[next]))
	}
	return centroids
}

// nearest returns the index of the closest centroid, lowest index on ties.
func nearest(v []float64, centroids [][]float64) int {
	best, bestD := 0, math.Inf(1)
	for c, ctr := range centroids {
		if d := floats.Distance(v, ctr, 2); d < bestD {
			best, bestD = c, d
		}
	}
	return best
}

func memberMean(vectors [][]float64, assign []int, c, dim int) ([]float64, int) {
	sum := make([]float64, dim)
	n := 0
	for i, v := range vectors {
		if assign[i] == c {
			floats.Add(sum, v)
			n++
		}
	}
	if n > 0 {
		floats.Scale(1/float64(n), sum)
	}
	return sum, n
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
