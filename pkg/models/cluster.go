package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// behaviorClusterer groups species-behavior feature vectors with k-means.
// Cluster indices are stable for a given fitted artifact, which is all the
// seasonal predictor needs to group plants with similar care dynamics.
type behaviorClusterer struct {
	K         int         `json:"k"`
	Centroids [][]float64 `json:"centroids"`
}

const clusterIterations = 50

// fitClusters runs Lloyd's algorithm with deterministic initialization
// (evenly spaced sample rows), so refits on the same data converge to the
// same assignment.
func fitClusters(rows [][]float64, k int) (*behaviorClusterer, error) {
	if len(rows) < k {
		return nil, fmt.Errorf("clusterer: %d rows for %d clusters", len(rows), k)
	}

	dim := len(rows[0])
	centroids := make([][]float64, k)
	for i := 0; i < k; i++ {
		centroids[i] = make([]float64, dim)
		copy(centroids[i], rows[i*len(rows)/k])
	}

	assignments := make([]int, len(rows))
	for iter := 0; iter < clusterIterations; iter++ {
		changed := false
		for i, row := range rows {
			best := nearestCentroid(row, centroids)
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}

		// Recompute centroids
		counts := make([]int, k)
		sums := make([][]float64, k)
		for i := range sums {
			sums[i] = make([]float64, dim)
		}
		for i, row := range rows {
			c := assignments[i]
			floats.Add(sums[c], row)
			counts[c]++
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				continue // empty cluster keeps its previous centroid
			}
			floats.Scale(1/float64(counts[c]), sums[c])
			centroids[c] = sums[c]
		}

		if !changed {
			break
		}
	}

	return &behaviorClusterer{K: k, Centroids: centroids}, nil
}

// assign returns the nearest cluster index and the distance to it
func (b *behaviorClusterer) assign(v []float64) (int, float64, error) {
	if b == nil || len(b.Centroids) == 0 {
		return 0, 0, fmt.Errorf("clusterer not fitted")
	}
	if len(v) != len(b.Centroids[0]) {
		return 0, 0, fmt.Errorf("clusterer: got %d features, fitted for %d", len(v), len(b.Centroids[0]))
	}
	idx := nearestCentroid(v, b.Centroids)
	return idx, euclidean(v, b.Centroids[idx]), nil
}

func nearestCentroid(v []float64, centroids [][]float64) int {
	best := 0
	bestDist := math.Inf(1)
	for i, c := range centroids {
		if d := euclidean(v, c); d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

func euclidean(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
