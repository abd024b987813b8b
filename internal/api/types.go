package api

import "genrecast/internal/stage"

// PredictRequest is one record of audio descriptor measurements.
type PredictRequest struct {
	Tempo                     *float64 `json:"tempo" validate:"required"`
	DynamicsRange             *float64 `json:"dynamicsRange" validate:"required"`
	VocalPresence             *float64 `json:"vocalPresence" validate:"required"`
	PercussionStrength        *float64 `json:"percussionStrength" validate:"required"`
	StringInstrumentDetection *float64 `json:"stringInstrumentDetection" validate:"required"`
	ElectronicElementPresence *float64 `json:"electronicElementPresence" validate:"required"`
	RhythmComplexity          *float64 `json:"rhythmComplexity" validate:"required"`
	DrumsInfluence            *float64 `json:"drumsInfluence" validate:"required"`
	DistortedGuitar           *float64 `json:"distortedGuitar" validate:"required"`
	MetalFrequencies          *float64 `json:"metalFrequencies" validate:"required"`
	AmbientSoundInfluence     *float64 `json:"ambientSoundInfluence" validate:"required"`
	InstrumentalOverlaps      *float64 `json:"instrumentalOverlaps" validate:"required"`
}

// Record keys the validated values by dataset column name.
func (r PredictRequest) Record() map[string]float64 {
	fields := []struct {
		column string
		value  *float64
	}{
		{"Tempo", r.Tempo},
		{"Dynamics Range", r.DynamicsRange},
		{"Vocal Presence", r.VocalPresence},
		{"Percussion Strength", r.PercussionStrength},
		{"String Instrument Detection", r.StringInstrumentDetection},
		{"Electronic Element Presence", r.ElectronicElementPresence},
		{"Rhythm Complexity", r.RhythmComplexity},
		{"Drums Influence", r.DrumsInfluence},
		{"Distorted Guitar", r.DistortedGuitar},
		{"Metal Frequencies", r.MetalFrequencies},
		{"Ambient Sound Influence", r.AmbientSoundInfluence},
		{"Instrumental Overlaps", r.InstrumentalOverlaps},
	}
	out := make(map[string]float64, len(fields))
	for _, f := range fields {
		if f.value != nil {
			out[f.column] = *f.value
		}
	}
	return out
}

// PredictResponse carries the decoded genre.
type PredictResponse struct {
	Genre    string `json:"genre"`
	RunID    string `json:"runId"`
	Strategy string `json:"strategy"`
}

// HealthResponse aggregates component readiness.
type HealthResponse struct {
	Status     string         `json:"status"`
	Components []stage.Health `json:"components"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error         string   `json:"error"`
	Kind          string   `json:"kind"`
	Fields        []string `json:"fields,omitempty"`
	CorrelationID string   `json:"correlationId,omitempty"`
}
