package training

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"genrecast/internal/stage"
)

// Split holds the train and held-out partitions of the encoded dataset.
type Split struct {
	TrainIndex []int
	TestIndex  []int
	XTrain     [][]float64
	YTrain     []int
	XTest      [][]float64
	YTest      []int
}

// StratifiedSplit partitions row indices so each class keeps its proportion in
// both subsets. Classes are visited in code order and each is shuffled by a
// PCG source seeded with seed, so the same input and seed always yield the
// same partition. Every class contributes at least one row to each side.
func StratifiedSplit(labels []int, testFraction float64, seed uint64) (train, test []int, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, stage.Wrap(stage.ErrConfiguration, "split", "test_fraction",
			fmt.Sprintf("test fraction %g outside (0, 1)", testFraction), nil)
	}
	byClass := map[int][]int{}
	for i, code := range labels {
		byClass[code] = append(byClass[code], i)
	}
	codes := make([]int, 0, len(byClass))
	for code := range byClass {
		codes = append(codes, code)
	}
	slices.Sort(codes)

	rng := rand.New(rand.NewPCG(seed, 0))
	for _, code := range codes {
		rows := byClass[code]
		if len(rows) < 2 {
			return nil, nil, stage.Wrap(stage.ErrValidation, "split", "stratify",
				fmt.Sprintf("class %d has %d row; at least 2 are needed to stratify", code, len(rows)), nil)
		}
		rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		nTest := int(math.Round(testFraction * float64(len(rows))))
		nTest = min(max(nTest, 1), len(rows)-1)
		test = append(test, rows[:nTest]...)
		train = append(train, rows[nTest:]...)
	}
	slices.Sort(train)
	slices.Sort(test)
	return train, test, nil
}

// NewSplit materializes a stratified split of x and y.
func NewSplit(x [][]float64, y []int, testFraction float64, seed uint64) (*Split, error) {
	if len(x) != len(y) {
		return nil, stage.Wrap(stage.ErrValidation, "split", "rows",
			fmt.Sprintf("%d feature rows but %d labels", len(x), len(y)), nil)
	}
	train, test, err := StratifiedSplit(y, testFraction, seed)
	if err != nil {
		return nil, err
	}
	return &Split{
		TrainIndex: train,
		TestIndex:  test,
		XTrain:     pickRows(x, train),
		YTrain:     pickLabels(y, train),
		XTest:      pickRows(x, test),
		YTest:      pickLabels(y, test),
	}, nil
}

func pickRows(x [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, r := range idx {
		out[i] = x[r]
	}
	return out
}

func pickLabels(y []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, r := range idx {
		out[i] = y[r]
	}
	return out
}
