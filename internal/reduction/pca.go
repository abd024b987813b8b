// Package reduction fits a principal component projection on standardized
// features and replays it on new rows.
package reduction

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"genrecast/internal/artifact"
	"genrecast/internal/dataset"
	"genrecast/internal/logging"
	"genrecast/internal/stage"
)

const stageName = "reduce"

const varianceTolerance = 1e-12

// Retain selects how many components to keep. A positive Components keeps
// exactly that many; otherwise the smallest count whose cumulative explained
// variance ratio reaches Fraction is kept.
type Retain struct {
	Fraction   float64
	Components int
}

func (r Retain) String() string {
	if r.Components > 0 {
		return strconv.Itoa(r.Components) + " components"
	}
	return strconv.FormatFloat(r.Fraction, 'g', -1, 64) + " variance"
}

// Projection is the fitted linear map. Components holds one unit-length
// loading vector per retained component, ordered by decreasing variance; the
// largest-magnitude loading of each vector is positive.
type Projection struct {
	Columns           []string
	Means             []float64
	Components        [][]float64
	ExplainedVariance []float64
	ExplainedRatio    []float64
}

// Names returns the positional output column names PC1..PCk.
func (p *Projection) Names() []string {
	names := make([]string, len(p.Components))
	for i := range names {
		names[i] = "PC" + strconv.Itoa(i+1)
	}
	return names
}

// CumulativeRatio returns the share of variance the retained components explain.
func (p *Projection) CumulativeRatio() float64 {
	total := 0.0
	for _, r := range p.ExplainedRatio {
		total += r
	}
	return total
}

// FitProjection computes the covariance eigendecomposition of m and keeps the
// components selected by retain.
func FitProjection(m *dataset.Matrix, retain Retain) (*Projection, error) {
	n, d := m.Rows(), m.Cols()
	if n < 2 {
		return nil, stage.Wrap(stage.ErrValidation, stageName, "fit", fmt.Sprintf("need at least 2 rows, got %d", n), nil)
	}
	if retain.Components > d {
		return nil, stage.Wrap(stage.ErrConfiguration, stageName, "fit",
			fmt.Sprintf("cannot keep %d components from %d features", retain.Components, d), nil)
	}
	if retain.Components <= 0 && (retain.Fraction <= 0 || retain.Fraction > 1) {
		return nil, stage.Wrap(stage.ErrConfiguration, stageName, "fit",
			fmt.Sprintf("variance fraction %g outside (0, 1]", retain.Fraction), nil)
	}

	x := m.Dense()
	means := make([]float64, d)
	for j := range d {
		means[j] = stat.Mean(mat.Col(nil, j, x), nil)
	}

	cov := mat.NewSymDense(d, nil)
	stat.CovarianceMatrix(cov, x, nil)

	var eig mat.EigenSym
	if ok := eig.Factorize(cov, true); !ok {
		return nil, fmt.Errorf("%s: eigendecomposition did not converge", stageName)
	}
	values := eig.Values(nil)
	vectors := mat.NewDense(d, d, nil)
	eig.VectorsTo(vectors)

	order := make([]int, d)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case values[a] > values[b]:
			return -1
		case values[a] < values[b]:
			return 1
		default:
			return 0
		}
	})

	total := 0.0
	for i := range values {
		values[i] = math.Max(values[i], 0)
		total += values[i]
	}

	k := retain.Components
	if k <= 0 {
		k = countForFraction(values, order, total, retain.Fraction)
	}

	p := &Projection{
		Columns:           slices.Clone(m.Columns),
		Means:             means,
		Components:        make([][]float64, k),
		ExplainedVariance: make([]float64, k),
		ExplainedRatio:    make([]float64, k),
	}
	for i := range k {
		idx := order[i]
		p.Components[i] = orient(mat.Col(nil, idx, vectors))
		p.ExplainedVariance[i] = values[idx]
		if total > 0 {
			p.ExplainedRatio[i] = values[idx] / total
		}
	}
	return p, nil
}

func countForFraction(values []float64, order []int, total, fraction float64) int {
	if total == 0 {
		return 1
	}
	cumulative := 0.0
	for i, idx := range order {
		cumulative += values[idx] / total
		if cumulative+varianceTolerance >= fraction {
			return i + 1
		}
	}
	return len(order)
}

// orient flips v so its largest-magnitude entry is positive.
func orient(v []float64) []float64 {
	best := 0
	for i := range v {
		if math.Abs(v[i]) > math.Abs(v[best]) {
			best = i
		}
	}
	if v[best] < 0 {
		for i := range v {
			v[i] = -v[i]
		}
	}
	return v
}

// Transform centres m with the fitted means and projects it. Columns are
// matched by name; a different column set is stage.ErrContract. The output
// width is fixed by the fitted projection.
func (p *Projection) Transform(m *dataset.Matrix) (*dataset.Matrix, error) {
	aligned, err := m.Align(p.Columns)
	if err != nil {
		return nil, stage.Wrap(stage.ErrContract, stageName, "transform", "feature columns differ from fit", err)
	}
	n, d, k := aligned.Rows(), len(p.Columns), len(p.Components)
	if n == 0 {
		return &dataset.Matrix{Columns: p.Names()}, nil
	}

	centred := mat.NewDense(n, d, nil)
	for i, row := range aligned.Data {
		for j, v := range row {
			centred.Set(i, j, v-p.Means[j])
		}
	}
	loadings := mat.NewDense(k, d, nil)
	for i, comp := range p.Components {
		loadings.SetRow(i, comp)
	}
	var projected mat.Dense
	projected.Mul(centred, loadings.T())
	return dataset.FromDense(p.Names(), &projected)
}

// Reducer fits and replays a Projection through the artifact store.
type Reducer struct {
	store  *artifact.Store
	logger *slog.Logger
}

// NewReducer constructs a Reducer persisting to store.
func NewReducer(store *artifact.Store, logger *slog.Logger) *Reducer {
	return &Reducer{store: store, logger: logging.NewComponentLogger(logger, stageName)}
}

// FitTransform fits a projection on scaled training features, persists it,
// and returns the projected matrix.
func (r *Reducer) FitTransform(m *dataset.Matrix, retain Retain) (*dataset.Matrix, *Projection, error) {
	projection, err := FitProjection(m, retain)
	if err != nil {
		return nil, nil, err
	}
	path, err := r.store.Save(artifact.KindProjection, projection)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: save projection: %w", stageName, err)
	}
	out, err := projection.Transform(m)
	if err != nil {
		return nil, nil, err
	}
	r.logger.Info("projection fitted",
		logging.String("retain", retain.String()),
		logging.Int("components", len(projection.Components)),
		logging.Float64("explained_variance_ratio", projection.CumulativeRatio()),
		logging.String("artifact", path),
	)
	return out, projection, nil
}

// Transform applies the persisted projection to m.
func (r *Reducer) Transform(m *dataset.Matrix) (*dataset.Matrix, error) {
	projection, err := r.Load()
	if err != nil {
		return nil, err
	}
	return projection.Transform(m)
}

// Load reads the persisted Projection.
func (r *Reducer) Load() (*Projection, error) {
	var projection Projection
	if err := r.store.Load(artifact.KindProjection, &projection); err != nil {
		return nil, err
	}
	return &projection, nil
}
