package domain

import "time"

// RunState is a stage of an ingestion run.
type RunState string

const (
	StateCollecting RunState = "collecting_references"
	StateExtracting RunState = "extracting_details"
	StatePersisting RunState = "persisting"
	StateDone       RunState = "done"
)

// RunReport summarises one ingestion run.
type RunReport struct {
	ID         string    `db:"id"          json:"id"`
	StartedAt  time.Time `db:"started_at"  json:"started_at"`
	FinishedAt time.Time `db:"finished_at" json:"finished_at"`
	// TerminalState is the state the run was in when it reached done.
	// StateDone means every stage ran; an earlier state means the run exited early there.
	TerminalState    RunState `db:"terminal_state"    json:"terminal_state"`
	Skipped          bool     `db:"skipped"           json:"skipped"`
	ReferencesFound  int      `db:"references_found"  json:"references_found"`
	DetailsExtracted int      `db:"details_extracted" json:"details_extracted"`
	DetailsFailed    int      `db:"details_failed"    json:"details_failed"`
	Created          int      `db:"created"           json:"created"`
	Updated          int      `db:"updated"           json:"updated"`
	PersistFailed    int      `db:"persist_failed"    json:"persist_failed"`
}

// Duration returns how long the run took.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
