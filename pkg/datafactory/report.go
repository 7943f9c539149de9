package datafactory

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of a pipeline run:
//
//	pending → running → completed
//	                  → failed
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

func (s RunStatus) String() string { return string(s) }

// Valid reports whether s is a known status.
func (s RunStatus) Valid() bool {
	switch s {
	case RunPending, RunRunning, RunCompleted, RunFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s RunStatus) IsTerminal() bool {
	return s == RunCompleted || s == RunFailed
}

// StepReport describes one executed step.
type StepReport struct {
	Name     string        `json:"name"`
	Rows     int           `json:"rows"`
	Columns  int           `json:"columns"`
	Duration time.Duration `json:"duration"`
}

// RunReport is the record of one [Pipeline.Run].
type RunReport struct {
	ID        string     `json:"id"`
	Pipeline  string     `json:"pipeline"`
	Status    RunStatus  `json:"status"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	Steps []StepReport `json:"steps"`

	// Rows and Columns are the shape of the exported frame.
	Rows    int `json:"rows"`
	Columns int `json:"columns"`

	// Error is set when Status is failed.
	Error string `json:"error,omitempty"`
}

func newRunReport(pipeline string) *RunReport {
	return &RunReport{
		ID:       uuid.NewString(),
		Pipeline: pipeline,
		Status:   RunPending,
		Steps:    []StepReport{},
	}
}

func (r *RunReport) start(now time.Time) {
	r.Status = RunRunning
	r.StartTime = now
}

func (r *RunReport) finish(now time.Time, err error) {
	r.EndTime = &now
	if err != nil {
		r.Status = RunFailed
		r.Error = err.Error()
		return
	}
	r.Status = RunCompleted
}

// Duration is the run's wall-clock time so far, or in total once it has
// finished. It is zero before the run starts.
func (r *RunReport) Duration() time.Duration {
	if r.StartTime.IsZero() {
		return 0
	}
	if r.EndTime != nil {
		return r.EndTime.Sub(r.StartTime)
	}
	return time.Since(r.StartTime)
}
