package domain

import "time"

// RefreshState is a step of the refresh state machine.
type RefreshState string

const (
	StateIdle        RefreshState = "idle"
	StateValidating  RefreshState = "validating"
	StateFetching    RefreshState = "fetching"
	StateReconciling RefreshState = "reconciling"
	StateSummarizing RefreshState = "summarizing"
	StateDone        RefreshState = "done"
	StateFailed      RefreshState = "failed"
)

// ReconcileReport counts what happened to the fetched records.
// Attempted always equals the number of records fetched.
type ReconcileReport struct {
	Attempted int
	Upserted  int
	Failed    int
}

// RefreshResult is returned to the caller of a successful refresh.
type RefreshResult struct {
	RunID           string    `json:"run_id"`
	CountriesStored int       `json:"countries_stored"`
	Upserted        int       `json:"upserted"`
	Failed          int       `json:"failed"`
	ArtifactPath    string    `json:"artifact_path"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
}

// Summary is the input of the summary artifact renderer.
type Summary struct {
	TotalCountries int
	GeneratedAt    time.Time
	Limit          int
	Top            []RankedCountry
}
