package classify

import (
	"math"
	"runtime"
	"slices"
	"sync"
)

// KNN is a k-nearest-neighbour classifier over Euclidean distance. Votes are
// uniform unless DistanceWeighted is set, in which case each neighbour votes
// with 1/distance and exact matches win outright.
type KNN struct {
	K                int
	DistanceWeighted bool
	X                [][]float64
	Y                []int
	Classes          int
}

func newKNN(p Params) *KNN {
	return &KNN{K: int(p["k"]), DistanceWeighted: p["distance_weighted"] != 0}
}

func (m *KNN) Name() string { return KNearestNeighborsName }

func (m *KNN) Params() Params {
	weighted := 0.0
	if m.DistanceWeighted {
		weighted = 1
	}
	return Params{"k": float64(m.K), "distance_weighted": weighted}
}

// Fit stores the training data.
func (m *KNN) Fit(x [][]float64, y []int) error {
	k, err := checkTrainingData(x, y)
	if err != nil {
		return err
	}
	m.X = make([][]float64, len(x))
	for i, row := range x {
		m.X[i] = slices.Clone(row)
	}
	m.Y = slices.Clone(y)
	m.Classes = k
	return nil
}

// Predict classifies rows in parallel chunks.
func (m *KNN) Predict(x [][]float64) ([]int, error) {
	if m.X == nil {
		return nil, notFitted(m.Name())
	}
	if err := checkWidth(m.Name(), x, len(m.X[0])); err != nil {
		return nil, err
	}

	out := make([]int, len(x))
	workers := runtime.GOMAXPROCS(0)
	rowsPerWorker := (len(x) + workers - 1) / workers
	var wg sync.WaitGroup
	for w := range workers {
		start := w * rowsPerWorker
		end := min(start+rowsPerWorker, len(x))
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				out[i] = m.predictSingle(x[i])
			}
		}(start, end)
	}
	wg.Wait()
	return out, nil
}

type neighbour struct {
	dist  float64
	index int
}

func (m *KNN) predictSingle(row []float64) int {
	k := min(max(m.K, 1), len(m.X))
	nbrs := make([]neighbour, len(m.X))
	for j, xj := range m.X {
		nbrs[j] = neighbour{dist: euclidSquared(row, xj), index: j}
	}
	// Stable order on equal distances keeps the earlier training row.
	slices.SortStableFunc(nbrs, func(a, b neighbour) int {
		switch {
		case a.dist < b.dist:
			return -1
		case a.dist > b.dist:
			return 1
		default:
			return 0
		}
	})

	votes := make([]float64, m.Classes)
	for _, n := range nbrs[:k] {
		weight := 1.0
		if m.DistanceWeighted {
			if n.dist == 0 {
				return m.exactMatch(nbrs[:k])
			}
			weight = 1 / math.Sqrt(n.dist)
		}
		votes[m.Y[n.index]] += weight
	}
	return argmax(votes)
}

// exactMatch votes among zero-distance neighbours only.
func (m *KNN) exactMatch(nbrs []neighbour) int {
	votes := make([]float64, m.Classes)
	for _, n := range nbrs {
		if n.dist == 0 {
			votes[m.Y[n.index]]++
		}
	}
	return argmax(votes)
}

// euclidSquared avoids the square root since only the ordering matters.
func euclidSquared(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
