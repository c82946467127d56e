package run

import "time"

// Report accumulates per-run results for history and the status API.
type Report struct {
	PagesRendered int                      `json:"pages_rendered,omitempty"`
	PagesSkipped  int                      `json:"pages_skipped,omitempty"` // unchanged fingerprint
	LinksChecked  int                      `json:"links_checked,omitempty"`
	BrokenLinks   []string                 `json:"broken_links,omitempty"`
	CacheHit      bool                     `json:"cache_hit"`
	Deployed      bool                     `json:"deployed"`
	DeploySkipped bool                     `json:"deploy_skipped,omitempty"` // branch guard
	DeployCommit  string                   `json:"deploy_commit,omitempty"`
	StepDurations map[string]time.Duration `json:"step_durations,omitempty"`
	Warnings      []string                 `json:"warnings,omitempty"`
}

// AddWarning records a non-fatal problem.
func (r *Report) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// RecordStepDuration stores the wall time of a completed step.
func (r *Report) RecordStepDuration(step string, d time.Duration) {
	if r.StepDurations == nil {
		r.StepDurations = make(map[string]time.Duration)
	}
	r.StepDurations[step] = d
}
