package classify

import (
	"math"
)

// LogisticRegression is a multinomial softmax classifier trained by full-batch
// gradient descent with L2 regularization of strength 1/C.
type LogisticRegression struct {
	C            float64
	LearningRate float64
	MaxIter      int
	Tolerance    float64
	Weights      [][]float64
	Bias         []float64
	Iterations   int
}

func newLogisticRegression(p Params) *LogisticRegression {
	return &LogisticRegression{
		C:            p["c"],
		LearningRate: p["learning_rate"],
		MaxIter:      int(p["max_iter"]),
		Tolerance:    1e-6,
	}
}

func (m *LogisticRegression) Name() string { return LogisticRegressionName }

func (m *LogisticRegression) Params() Params {
	return Params{"c": m.C, "learning_rate": m.LearningRate, "max_iter": float64(m.MaxIter)}
}

// Fit runs gradient descent from zero weights until the largest gradient
// component drops below Tolerance or MaxIter is reached.
func (m *LogisticRegression) Fit(x [][]float64, y []int) error {
	k, err := checkTrainingData(x, y)
	if err != nil {
		return err
	}
	k = max(k, 2)
	n, d := len(x), len(x[0])
	m.Weights = make([][]float64, k)
	for c := range m.Weights {
		m.Weights[c] = make([]float64, d)
	}
	m.Bias = make([]float64, k)

	lambda := 0.0
	if m.C > 0 {
		lambda = 1 / (m.C * float64(n))
	}
	gradW := make([][]float64, k)
	for c := range gradW {
		gradW[c] = make([]float64, d)
	}
	gradB := make([]float64, k)
	probs := make([]float64, k)

	m.Iterations = 0
	for iter := 0; iter < m.MaxIter; iter++ {
		for c := range k {
			clear(gradW[c])
		}
		clear(gradB)

		for i, row := range x {
			m.softmax(row, probs)
			for c := range k {
				diff := probs[c]
				if c == y[i] {
					diff -= 1
				}
				gradB[c] += diff
				for j, v := range row {
					gradW[c][j] += diff * v
				}
			}
		}

		largest := 0.0
		for c := range k {
			gradB[c] /= float64(n)
			largest = math.Max(largest, math.Abs(gradB[c]))
			m.Bias[c] -= m.LearningRate * gradB[c]
			for j := range d {
				g := gradW[c][j]/float64(n) + lambda*m.Weights[c][j]
				largest = math.Max(largest, math.Abs(g))
				m.Weights[c][j] -= m.LearningRate * g
			}
		}
		m.Iterations = iter + 1
		if largest < m.Tolerance {
			break
		}
	}
	return nil
}

func (m *LogisticRegression) softmax(row []float64, out []float64) {
	peak := math.Inf(-1)
	for c := range m.Weights {
		z := m.Bias[c]
		for j, v := range row {
			z += m.Weights[c][j] * v
		}
		out[c] = z
		peak = math.Max(peak, z)
	}
	sum := 0.0
	for c := range out {
		out[c] = math.Exp(out[c] - peak)
		sum += out[c]
	}
	for c := range out {
		out[c] /= sum
	}
}

// PredictProba returns class probabilities per row.
func (m *LogisticRegression) PredictProba(x [][]float64) ([][]float64, error) {
	if m.Weights == nil {
		return nil, notFitted(m.Name())
	}
	if err := checkWidth(m.Name(), x, len(m.Weights[0])); err != nil {
		return nil, err
	}
	out := make([][]float64, len(x))
	for i, row := range x {
		out[i] = make([]float64, len(m.Weights))
		m.softmax(row, out[i])
	}
	return out, nil
}

func (m *LogisticRegression) Predict(x [][]float64) ([]int, error) {
	probs, err := m.PredictProba(x)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(probs))
	for i, p := range probs {
		out[i] = argmax(p)
	}
	return out, nil
}
