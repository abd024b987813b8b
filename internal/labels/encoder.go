// Package labels maps genre strings to contiguous integer codes and back.
package labels

import (
	"fmt"
	"log/slog"
	"slices"

	"genrecast/internal/artifact"
	"genrecast/internal/logging"
	"genrecast/internal/stage"
)

const stageName = "encode"

// Mapping is a bijection between labels and codes. Classes is sorted
// lexically; the code of a label is its index.
type Mapping struct {
	Classes []string
}

// FitMapping collects the distinct labels in sorted order.
func FitMapping(labels []string) *Mapping {
	classes := slices.Clone(labels)
	slices.Sort(classes)
	return &Mapping{Classes: slices.Compact(classes)}
}

// Encode maps labels to codes. A label absent at fit time is
// stage.ErrUnknownLabel.
func (m *Mapping) Encode(labels []string) ([]int, error) {
	codes := make([]int, len(labels))
	for i, label := range labels {
		code, ok := slices.BinarySearch(m.Classes, label)
		if !ok {
			return nil, stage.Wrap(stage.ErrUnknownLabel, stageName, "encode", fmt.Sprintf("label %q was not seen during fitting", label), nil)
		}
		codes[i] = code
	}
	return codes, nil
}

// Decode maps codes back to labels. A code outside [0, k) is
// stage.ErrUnknownLabel.
func (m *Mapping) Decode(codes []int) ([]string, error) {
	out := make([]string, len(codes))
	for i, code := range codes {
		if code < 0 || code >= len(m.Classes) {
			return nil, stage.Wrap(stage.ErrUnknownLabel, stageName, "inverse",
				fmt.Sprintf("code %d outside fitted range [0, %d)", code, len(m.Classes)), nil)
		}
		out[i] = m.Classes[code]
	}
	return out, nil
}

// Encoder fits and replays a Mapping through the artifact store.
type Encoder struct {
	store  *artifact.Store
	logger *slog.Logger
}

// NewEncoder constructs an Encoder persisting to store.
func NewEncoder(store *artifact.Store, logger *slog.Logger) *Encoder {
	return &Encoder{store: store, logger: logging.NewComponentLogger(logger, stageName)}
}

// FitTransform fits the mapping on labels, persists it, and returns the codes.
func (e *Encoder) FitTransform(labels []string) ([]int, *Mapping, error) {
	if len(labels) == 0 {
		return nil, nil, stage.Wrap(stage.ErrValidation, stageName, "fit", "no labels", nil)
	}
	mapping := FitMapping(labels)
	if _, err := e.store.Save(artifact.KindEncoder, mapping); err != nil {
		return nil, nil, fmt.Errorf("%s: save encoder: %w", stageName, err)
	}
	codes, err := mapping.Encode(labels)
	if err != nil {
		return nil, nil, err
	}
	e.logger.Info("label encoder fitted", logging.Strings("classes", mapping.Classes))
	return codes, mapping, nil
}

// Transform encodes labels with the persisted mapping.
func (e *Encoder) Transform(labels []string) ([]int, error) {
	mapping, err := e.Load()
	if err != nil {
		return nil, err
	}
	return mapping.Encode(labels)
}

// InverseTransform decodes codes with the persisted mapping.
func (e *Encoder) InverseTransform(codes []int) ([]string, error) {
	mapping, err := e.Load()
	if err != nil {
		return nil, err
	}
	return mapping.Decode(codes)
}

// Load reads the persisted Mapping.
func (e *Encoder) Load() (*Mapping, error) {
	var mapping Mapping
	if err := e.store.Load(artifact.KindEncoder, &mapping); err != nil {
		return nil, err
	}
	return &mapping, nil
}
