// Package results persists the reports of sketch runs, as JSON files or in PostgreSQL.
package results

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-sketch/pkg/inference"
)

// ErrNotFound is returned when no report has the requested id.
var ErrNotFound = errors.New("report not found")

// Report is the serializable record of one sketch run. Candidate counts are decimal
// strings since they routinely exceed 64 bits.
type Report struct {
	ID                uuid.UUID     `json:"id"`
	Sketch            string        `json:"sketch"`
	StartedAt         time.Time     `json:"started_at"`
	Duration          time.Duration `json:"duration"`
	InitialCandidates string        `json:"initial_candidates"`
	FinalCandidates   string        `json:"final_candidates"`
	Steps             []StepRecord  `json:"steps"`

	Witnesses []string           `json:"witnesses,omitempty"`
	Summary   *inference.Summary `json:"summary,omitempty"`
	Classes   []ClassRecord      `json:"classes,omitempty"`
	Goal      string             `json:"goal,omitempty"`
	GoalNote  string             `json:"goal_note,omitempty"`

	// Error is set for runs that stopped early.
	Error string `json:"error,omitempty"`
}

// StepRecord is one applied constraint.
type StepRecord struct {
	Property   string        `json:"property"`
	Candidates string        `json:"candidates"`
	Duration   time.Duration `json:"duration"`
	Skipped    bool          `json:"skipped,omitempty"`
}

// ClassRecord counts the candidates with a given attractor class.
type ClassRecord struct {
	Class      string `json:"class"`
	Candidates string `json:"candidates"`
}

// NewReport records res under a fresh id. A nil res yields a report carrying only runErr.
func NewReport(sketch string, startedAt time.Time, res *inference.Result, runErr error) *Report {
	r := &Report{
		ID:        uuid.New(),
		Sketch:    sketch,
		StartedAt: startedAt.UTC(),
		Duration:  time.Since(startedAt),
	}
	if runErr != nil {
		r.Error = runErr.Error()
	}
	if res == nil {
		return r
	}

	r.Duration = res.Duration
	if res.InitialCandidates != nil {
		r.InitialCandidates = res.InitialCandidates.String()
	}
	if res.FinalCandidates != nil {
		r.FinalCandidates = res.FinalCandidates.String()
	}
	for _, st := range res.Steps {
		r.Steps = append(r.Steps, StepRecord{
			Property:   st.Name,
			Candidates: st.Candidates.String(),
			Duration:   st.Duration,
			Skipped:    st.Skipped,
		})
	}
	for _, w := range res.Witnesses {
		r.Witnesses = append(r.Witnesses, w.String())
	}
	r.Summary = res.Summary
	for _, c := range res.Classes {
		r.Classes = append(r.Classes, ClassRecord{Class: c.Class.String(), Candidates: c.Candidates.String()})
	}
	if res.GoalChecked {
		r.Goal = res.Goal.String()
		r.GoalNote = res.GoalReason
	}
	return r
}

// Store persists reports.
type Store interface {
	Save(ctx context.Context, r *Report) error
	Get(ctx context.Context, id uuid.UUID) (*Report, error)
	// List returns all reports, oldest first.
	List(ctx context.Context) ([]*Report, error)
	Ping(ctx context.Context) error
	Close() error
}

// Open returns the store selected by the arguments: PostgreSQL when dsn is set, a FileStore
// when dir is set, nil when neither is.
func Open(ctx context.Context, dir string, compress bool, dsn string) (Store, error) {
	switch {
	case dsn != "":
		s, err := NewPGStore(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case dir != "":
		s, err := NewFileStore(dir, compress)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, nil
}
