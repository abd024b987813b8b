package training

import (
	"fmt"

	"genrecast/internal/stage"
)

// SelectBest walks candidates in order and keeps the first one with the
// highest score under metric. A later candidate replaces the current best
// only when strictly greater, so ties keep the earlier strategy.
func SelectBest(candidates []Candidate, metric Metric) (*Candidate, error) {
	if len(candidates) == 0 {
		return nil, stage.Wrap(stage.ErrValidation, "select", string(metric), "no candidates to select from", nil)
	}
	var best *Candidate
	for i := range candidates {
		c := &candidates[i]
		if c.Report == nil {
			return nil, stage.Wrap(stage.ErrValidation, "select", c.Strategy,
				fmt.Sprintf("%s has not been evaluated", c.Strategy), nil)
		}
		if best == nil || metric.Of(c.Report) > metric.Of(best.Report) {
			best = c
		}
	}
	return best, nil
}
