// Package kmeans implements a small, deterministic k-means clusterer used
// to derive numerical, temporal, and spatial coverage ranges. Given the
// same seed and input, Cluster always returns the same centroids in the
// same order.
package kmeans

import (
	"math"
	"math/rand"
	"sort"
)

// MaxIterations bounds Lloyd's algorithm; in practice it converges in a
// handful of passes for the small k (<=3) this package is used with.
const MaxIterations = 100

// Cluster is one group of points: its centroid and the indexes (into the
// original data slice) of the points assigned to it.
type Cluster struct {
	Centroid []float64
	Members  []int
}

// Clusterer is the interface satisfied by Default (which delegates to Run),
// allowing numerical/spatial/temporal analyzers to depend on an interface
// rather than the concrete implementation.
type Clusterer interface {
	Cluster(data [][]float64, k int, seed int64) []Cluster
}

type lloyd struct{}

// Default is the package's standard Lloyd's-algorithm clusterer.
var Default Clusterer = lloyd{}

var _ Clusterer = lloyd{}

func (lloyd) Cluster(data [][]float64, k int, seed int64) []Cluster {
	return Run(data, k, seed)
}

// Run clusters data (each element a point of equal dimensionality) into at
// most k groups using Lloyd's algorithm, seeded for determinism. Results are
// sorted by centroid (lexicographic ascending) so that ties between
// equivalent runs resolve to the same order: the cluster with the
// smallest centroid always sorts first.
func Run(data [][]float64, k int, seed int64) []Cluster {
	n := len(data)
	if n == 0 {
		return nil
	}
	if k > n {
		k = n
	}
	if k <= 0 {
		k = 1
	}

	rng := rand.New(rand.NewSource(seed))
	centroids := initCentroids(data, k, rng)
	assignments := make([]int, n)

	for iter := 0; iter < MaxIterations; iter++ {
		changed := false
		for i, p := range data {
			best, bestDist := 0, math.Inf(1)
			for c, centroid := range centroids {
				if d := sqDist(p, centroid); d < bestDist {
					best, bestDist = c, d
				}
			}
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}

		newCentroids := make([][]float64, k)
		counts := make([]int, k)
		for c := range newCentroids {
			newCentroids[c] = make([]float64, len(data[0]))
		}
		for i, p := range data {
			c := assignments[i]
			counts[c]++
			for d, v := range p {
				newCentroids[c][d] += v
			}
		}
		for c := range newCentroids {
			if counts[c] == 0 {
				newCentroids[c] = centroids[c]
				continue
			}
			for d := range newCentroids[c] {
				newCentroids[c][d] /= float64(counts[c])
			}
		}
		centroids = newCentroids

		if iter > 0 && !changed {
			break
		}
	}

	clusters := make([]Cluster, k)
	for c := range clusters {
		clusters[c] = Cluster{Centroid: centroids[c]}
	}
	for i, c := range assignments {
		clusters[c].Members = append(clusters[c].Members, i)
	}

	// Drop clusters that ended up empty (can happen when k > distinct points).
	nonEmpty := clusters[:0]
	for _, c := range clusters {
		if len(c.Members) > 0 {
			nonEmpty = append(nonEmpty, c)
		}
	}
	clusters = nonEmpty

	sort.Slice(clusters, func(i, j int) bool {
		return lexLess(clusters[i].Centroid, clusters[j].Centroid)
	})
	return clusters
}

// initCentroids deterministically picks k distinct starting points using
// the seeded RNG: the requirement is determinism given (data, seed), not
// any particular initialization scheme.
func initCentroids(data [][]float64, k int, rng *rand.Rand) [][]float64 {
	perm := rng.Perm(len(data))
	out := make([][]float64, k)
	for i := 0; i < k; i++ {
		src := data[perm[i]]
		cp := make([]float64, len(src))
		copy(cp, src)
		out[i] = cp
	}
	return out
}

func sqDist(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func lexLess(a, b []float64) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
