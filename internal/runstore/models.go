package runstore

import "time"

// Status is the lifecycle state of a training run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is one training invocation.
type Run struct {
	ID            string       `json:"id"`
	Status        Status       `json:"status"`
	StartedAt     time.Time    `json:"started_at"`
	FinishedAt    *time.Time   `json:"finished_at,omitempty"`
	DatasetPath   string       `json:"dataset_path,omitempty"`
	Rows          int          `json:"rows"`
	Components    int          `json:"components"`
	Strategy      string       `json:"strategy,omitempty"`
	Tuned         bool         `json:"tuned"`
	Params        string       `json:"params,omitempty"`
	PrimaryMetric string       `json:"primary_metric,omitempty"`
	Score         float64      `json:"score"`
	CVMean        float64      `json:"cv_mean"`
	CVStd         float64      `json:"cv_std"`
	ErrorKind     string       `json:"error_kind,omitempty"`
	ErrorMessage  string       `json:"error_message,omitempty"`
	Evaluations   []Evaluation `json:"evaluations,omitempty"`
}

// Duration is the elapsed run time, or zero while running.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Evaluation is the held-out score of one strategy within a run.
type Evaluation struct {
	Strategy string  `json:"strategy"`
	Params   string  `json:"params,omitempty"`
	Accuracy float64 `json:"accuracy"`
	MacroF1  float64 `json:"macro_f1"`
	Selected bool    `json:"selected"`
	// ReportJSON is the full classification report as JSON.
	ReportJSON string `json:"report_json,omitempty"`
}

// Outcome closes a successful run.
type Outcome struct {
	Rows          int
	Components    int
	Strategy      string
	Tuned         bool
	Params        string
	PrimaryMetric string
	Score         float64
	CVMean        float64
	CVStd         float64
}
