// Package cleaning canonicalizes column names, removes duplicate rows, and
// resolves missing values by a configurable policy.
package cleaning

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gonum.org/v1/gonum/stat"

	"genrecast/internal/dataset"
	"genrecast/internal/logging"
	"genrecast/internal/stage"
)

const stageName = "cleaning"

// Policy selects how missing values are resolved.
type Policy string

const (
	PolicyMean   Policy = "mean"
	PolicyMedian Policy = "median"
	PolicyMode   Policy = "mode"
	PolicyDrop   Policy = "drop"
)

// ParsePolicy validates a policy name. Unknown names are stage.ErrConfiguration.
func ParsePolicy(name string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(name))); p {
	case PolicyMean, PolicyMedian, PolicyMode, PolicyDrop:
		return p, nil
	default:
		return "", stage.Wrap(stage.ErrConfiguration, stageName, "missing values",
			fmt.Sprintf("invalid strategy %q: choose from mean, median, mode, drop", name), nil)
	}
}

var lower = cases.Lower(language.Und)

// CanonicalName trims a header, lowercases it, and joins whitespace separated
// words with single underscores: " Dynamics  Range" becomes "dynamics_range".
func CanonicalName(name string) string {
	return strings.Join(strings.Fields(lower.String(name)), "_")
}

// Cleaner applies the row cleaning steps. Every method returns a new frame and
// leaves its input untouched.
type Cleaner struct {
	logger *slog.Logger
}

// New constructs a Cleaner.
func New(logger *slog.Logger) *Cleaner {
	return &Cleaner{logger: logging.NewComponentLogger(logger, stageName)}
}

// Clean runs name standardization, duplicate removal, and the missing value
// policy in that order.
func (c *Cleaner) Clean(frame *dataset.Frame, policy Policy) (*dataset.Frame, error) {
	out := c.RemoveDuplicates(c.StandardizeColumnNames(frame))
	return c.HandleMissingValues(out, policy)
}

// StandardizeColumnNames maps every header through CanonicalName.
func (c *Cleaner) StandardizeColumnNames(frame *dataset.Frame) *dataset.Frame {
	out := frame.Clone()
	for i, name := range out.Columns {
		out.Columns[i] = CanonicalName(name)
	}
	c.logger.Debug("column names standardized", logging.Strings("columns", out.Columns))
	return out
}

// RemoveDuplicates drops rows identical across all columns, keeping the first
// occurrence.
func (c *Cleaner) RemoveDuplicates(frame *dataset.Frame) *dataset.Frame {
	out := &dataset.Frame{Columns: slices.Clone(frame.Columns)}
	seen := make(map[string]struct{}, frame.Len())
	var key strings.Builder
	for _, row := range frame.Rows {
		key.Reset()
		for _, v := range row {
			key.WriteByte(byte('0' + v.Kind))
			key.WriteString(v.String())
			key.WriteByte(0)
		}
		k := key.String()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out.Rows = append(out.Rows, slices.Clone(row))
	}
	c.logger.Info("duplicates removed",
		logging.Int("rows_before", frame.Len()),
		logging.Int("rows_after", out.Len()),
	)
	return out
}

// HandleMissingValues resolves missing cells. Mean and median fill numeric
// columns only; mode fills every column with its most frequent value (ties go
// to the smallest value); drop removes any row with a missing cell. Columns
// with no observed values are left as they are.
func (c *Cleaner) HandleMissingValues(frame *dataset.Frame, policy Policy) (*dataset.Frame, error) {
	policy, err := ParsePolicy(string(policy))
	if err != nil {
		return nil, err
	}

	if policy == PolicyDrop {
		out := &dataset.Frame{Columns: slices.Clone(frame.Columns)}
		for _, row := range frame.Rows {
			if !slices.ContainsFunc(row, dataset.Value.IsMissing) {
				out.Rows = append(out.Rows, slices.Clone(row))
			}
		}
		c.logger.Info("missing values handled",
			logging.String("policy", string(policy)),
			logging.Int("rows_dropped", frame.Len()-out.Len()),
		)
		return out, nil
	}

	out := frame.Clone()
	filled := 0
	for col := range out.Columns {
		if policy != PolicyMode && !out.IsNumeric(col) {
			continue
		}
		fill, ok := fillValue(out, col, policy)
		if !ok {
			continue
		}
		for _, row := range out.Rows {
			if row[col].IsMissing() {
				row[col] = fill
				filled++
			}
		}
	}
	c.logger.Info("missing values handled",
		logging.String("policy", string(policy)),
		logging.Int("cells_filled", filled),
	)
	return out, nil
}

func fillValue(frame *dataset.Frame, col int, policy Policy) (dataset.Value, bool) {
	var observed []dataset.Value
	for _, row := range frame.Rows {
		if !row[col].IsMissing() {
			observed = append(observed, row[col])
		}
	}
	if len(observed) == 0 {
		return dataset.Value{}, false
	}

	switch policy {
	case PolicyMean:
		return dataset.Number(stat.Mean(numbers(observed), nil)), true
	case PolicyMedian:
		return dataset.Number(median(numbers(observed))), true
	default:
		return mode(observed), true
	}
}

func numbers(values []dataset.Value) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v.Num
	}
	return out
}

// median averages the two middle values for an even count.
func median(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func mode(values []dataset.Value) dataset.Value {
	sorted := slices.Clone(values)
	slices.SortFunc(sorted, func(a, b dataset.Value) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		default:
			return 0
		}
	})
	best, bestCount := sorted[0], 0
	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j].Equal(sorted[i]) {
			j++
		}
		if j-i > bestCount {
			best, bestCount = sorted[i], j-i
		}
		i = j
	}
	return best
}
