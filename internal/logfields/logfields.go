package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyReason     = "reason"
	KeyStatus     = "status"
	KeyStep       = "step"
	KeyDurationMS = "duration_ms"
	KeyWorkflow   = "workflow"
	KeyGroup      = "concurrency_group"
	KeyBranch     = "branch"
	KeyCommit     = "commit"
	KeyURL        = "url"
	KeyName       = "name"
	KeyPath       = "path"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr        { return slog.String(KeyRunID, id) }
func Reason(r string) slog.Attr        { return slog.String(KeyReason, r) }
func Status(s string) slog.Attr        { return slog.String(KeyStatus, s) }
func Step(name string) slog.Attr       { return slog.String(KeyStep, name) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Workflow(name string) slog.Attr   { return slog.String(KeyWorkflow, name) }
func Group(g string) slog.Attr         { return slog.String(KeyGroup, g) }
func Branch(b string) slog.Attr        { return slog.String(KeyBranch, b) }
func Commit(c string) slog.Attr        { return slog.String(KeyCommit, c) }
func URL(u string) slog.Attr           { return slog.String(KeyURL, u) }
func Name(n string) slog.Attr          { return slog.String(KeyName, n) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
