package classify

import (
	"math"
	"math/rand/v2"
)

// SVC is a kernel support vector classifier with an RBF kernel. Multi-class
// problems are solved one-vs-rest: one binary machine per class, and the class
// with the largest decision value wins. Each machine is trained with the
// simplified SMO algorithm.
type SVC struct {
	C         float64
	Gamma     float64
	Tolerance float64
	MaxPasses int
	MaxIter   int
	Seed      uint64
	// ResolvedGamma is the kernel width used at fit time. A zero Gamma
	// resolves to 1 / (features * variance of X).
	ResolvedGamma float64
	Machines      []BinaryMachine
	Width         int
}

// BinaryMachine is one fitted one-vs-rest decision function.
type BinaryMachine struct {
	Support [][]float64
	// Coef holds alpha_i * y_i for each support vector.
	Coef []float64
	Bias float64
}

func newSVC(p Params, seed uint64) *SVC {
	return &SVC{
		C:         p["c"],
		Gamma:     p["gamma"],
		Tolerance: 1e-3,
		MaxPasses: int(p["max_passes"]),
		MaxIter:   int(p["max_iter"]),
		Seed:      seed,
	}
}

func (m *SVC) Name() string { return SupportVectorName }

func (m *SVC) Params() Params {
	return Params{
		"c":          m.C,
		"gamma":      m.Gamma,
		"max_passes": float64(m.MaxPasses),
		"max_iter":   float64(m.MaxIter),
	}
}

func (m *SVC) Fit(x [][]float64, y []int) error {
	k, err := checkTrainingData(x, y)
	if err != nil {
		return err
	}
	k = max(k, 2)
	m.Width = len(x[0])
	m.ResolvedGamma = m.Gamma
	if m.ResolvedGamma <= 0 {
		m.ResolvedGamma = scaleGamma(x)
	}

	n := len(x)
	kernel := make([][]float64, n)
	for i := range kernel {
		kernel[i] = make([]float64, n)
	}
	for i := range n {
		kernel[i][i] = 1
		for j := i + 1; j < n; j++ {
			v := rbf(x[i], x[j], m.ResolvedGamma)
			kernel[i][j] = v
			kernel[j][i] = v
		}
	}

	rng := rand.New(rand.NewPCG(m.Seed, 0x5eed))
	m.Machines = make([]BinaryMachine, k)
	target := make([]float64, n)
	for class := range k {
		for i, code := range y {
			target[i] = -1
			if code == class {
				target[i] = 1
			}
		}
		alpha, bias := m.smo(kernel, target, rng)
		machine := BinaryMachine{Bias: bias}
		for i, a := range alpha {
			if a > 0 {
				machine.Support = append(machine.Support, append([]float64(nil), x[i]...))
				machine.Coef = append(machine.Coef, a*target[i])
			}
		}
		m.Machines[class] = machine
	}
	return nil
}

// smo solves the dual problem for one binary machine.
func (m *SVC) smo(kernel [][]float64, y []float64, rng *rand.Rand) ([]float64, float64) {
	n := len(y)
	alpha := make([]float64, n)
	b := 0.0
	if n < 2 {
		return alpha, b
	}
	decision := func(i int) float64 {
		sum := b
		for j, a := range alpha {
			if a != 0 {
				sum += a * y[j] * kernel[i][j]
			}
		}
		return sum
	}

	passes, iter := 0, 0
	for passes < m.MaxPasses && iter < m.MaxIter {
		changed := 0
		for i := range n {
			ei := decision(i) - y[i]
			if !((y[i]*ei < -m.Tolerance && alpha[i] < m.C) || (y[i]*ei > m.Tolerance && alpha[i] > 0)) {
				continue
			}
			j := rng.IntN(n - 1)
			if j >= i {
				j++
			}
			ej := decision(j) - y[j]
			ai, aj := alpha[i], alpha[j]

			var lo, hi float64
			if y[i] != y[j] {
				lo, hi = math.Max(0, aj-ai), math.Min(m.C, m.C+aj-ai)
			} else {
				lo, hi = math.Max(0, ai+aj-m.C), math.Min(m.C, ai+aj)
			}
			if lo == hi {
				continue
			}
			eta := 2*kernel[i][j] - kernel[i][i] - kernel[j][j]
			if eta >= 0 {
				continue
			}
			alpha[j] = math.Min(hi, math.Max(lo, aj-y[j]*(ei-ej)/eta))
			if math.Abs(alpha[j]-aj) < 1e-5 {
				alpha[j] = aj
				continue
			}
			alpha[i] = ai + y[i]*y[j]*(aj-alpha[j])

			b1 := b - ei - y[i]*(alpha[i]-ai)*kernel[i][i] - y[j]*(alpha[j]-aj)*kernel[i][j]
			b2 := b - ej - y[i]*(alpha[i]-ai)*kernel[i][j] - y[j]*(alpha[j]-aj)*kernel[j][j]
			switch {
			case alpha[i] > 0 && alpha[i] < m.C:
				b = b1
			case alpha[j] > 0 && alpha[j] < m.C:
				b = b2
			default:
				b = (b1 + b2) / 2
			}
			changed++
		}
		iter++
		if changed == 0 {
			passes++
		} else {
			passes = 0
		}
	}
	return alpha, b
}

// Decision returns the per-class decision values for each row.
func (m *SVC) Decision(x [][]float64) ([][]float64, error) {
	if m.Machines == nil {
		return nil, notFitted(m.Name())
	}
	if err := checkWidth(m.Name(), x, m.Width); err != nil {
		return nil, err
	}
	out := make([][]float64, len(x))
	for r, row := range x {
		scores := make([]float64, len(m.Machines))
		for c, machine := range m.Machines {
			sum := machine.Bias
			for i, sv := range machine.Support {
				sum += machine.Coef[i] * rbf(sv, row, m.ResolvedGamma)
			}
			scores[c] = sum
		}
		out[r] = scores
	}
	return out, nil
}

func (m *SVC) Predict(x [][]float64) ([]int, error) {
	scores, err := m.Decision(x)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(scores))
	for i, s := range scores {
		out[i] = argmax(s)
	}
	return out, nil
}

func rbf(a, b []float64, gamma float64) float64 {
	return math.Exp(-gamma * euclidSquared(a, b))
}

// scaleGamma is 1 / (features * variance of all entries of x).
func scaleGamma(x [][]float64) float64 {
	count, mean, m2 := 0.0, 0.0, 0.0
	for _, row := range x {
		for _, v := range row {
			count++
			delta := v - mean
			mean += delta / count
			m2 += delta * (v - mean)
		}
	}
	variance := m2 / count
	if variance == 0 || len(x[0]) == 0 {
		return 1
	}
	return 1 / (float64(len(x[0])) * variance)
}
