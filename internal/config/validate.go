package config

import (
	"fmt"
	"os"
	"strings"
)

// ValidationError aggregates all definition problems found in one pass so
// users can fix them together instead of one at a time.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid workflow definition: %s", strings.Join(e.Issues, "; "))
}

// Validate checks the declarative definition for schema-level correctness:
// required fields, known enum values, resolvable secret references and the
// deploy branch guard.
func (w *Workflow) Validate() error {
	var issues []string
	add := func(format string, args ...any) {
		issues = append(issues, fmt.Sprintf(format, args...))
	}

	if w.Source.URL == "" {
		add("source.url is required")
	}
	if w.Source.Branch == "" {
		add("source.branch is required")
	}

	if w.Trigger.WorkflowRun == nil && w.Trigger.Schedule == "" && w.Trigger.Interval <= 0 && len(w.Trigger.Watch) == 0 {
		add("trigger: at least one of workflow_run, schedule, interval or watch must be set")
	}
	if tr := w.Trigger.WorkflowRun; tr != nil {
		if tr.Workflow == "" {
			add("trigger.workflow_run.workflow is required")
		}
		for _, c := range tr.Conclusions {
			switch c {
			case "success", "failure", "cancelled", "skipped":
			default:
				add("trigger.workflow_run.conclusions: unknown conclusion %q", c)
			}
		}
	}
	if w.Trigger.Schedule != "" && w.Trigger.Interval > 0 {
		add("trigger: schedule and interval are mutually exclusive")
	}

	if w.Concurrency != nil && w.Concurrency.Group == "" {
		add("concurrency.group is required when concurrency is set")
	}
	if w.Daemon.Workers > 1 && (w.Concurrency == nil || w.Concurrency.Group == "") {
		add("daemon.workers: a concurrency group is required when workers exceeds 1, daemon runs share one workspace")
	}

	switch w.Build.Mode {
	case BuildModeInternal:
		if w.Build.SourceDir == "" {
			add("build.source_dir is required for internal builds")
		}
	case BuildModeCommand:
		if len(w.Build.Command) == 0 {
			add("build.command is required when build.mode is %q", BuildModeCommand)
		}
	default:
		add("build.mode: unknown mode %q", w.Build.Mode)
	}
	if w.Build.OutputDir == "" {
		add("build.output_dir is required")
	}

	if len(w.Install.Command) > 0 && w.Cache.Enabled && w.Install.Target == "" {
		add("install.target is required when the cache is enabled")
	}

	if w.Deploy.Branch != "" {
		if w.Deploy.PublishDir == "" {
			add("deploy.publish_dir is required when deploy.branch is set")
		}
		if len(w.Deploy.OnlyBranches) == 0 {
			add("deploy.only_branches must list at least one branch (deploy branch guard)")
		}
		if w.Deploy.Branch == w.Source.Branch {
			add("deploy.branch must differ from source.branch")
		}
	}

	issues = append(issues, validateAuth("source.auth", w.Source.Auth)...)
	issues = append(issues, validateAuth("deploy.auth", w.Deploy.Auth)...)

	if w.Retry != nil {
		switch w.Retry.Backoff {
		case RetryBackoffFixed, RetryBackoffLinear, RetryBackoffExponential, "":
		default:
			add("retry.backoff: unknown mode %q", w.Retry.Backoff)
		}
		if w.Retry.MaxRetries < 0 {
			add("retry.max_retries cannot be negative")
		}
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

func validateAuth(field string, a *AuthConfig) []string {
	if a == nil {
		return nil
	}
	var issues []string
	switch a.Type {
	case "", "none":
	case "token":
		if a.TokenEnv == "" {
			issues = append(issues, fmt.Sprintf("%s.token_env is required for token auth", field))
		}
	case "basic":
		if a.Username == "" || a.Password == "" {
			issues = append(issues, fmt.Sprintf("%s: basic auth requires username and password", field))
		}
	case "ssh":
	default:
		issues = append(issues, fmt.Sprintf("%s.type: unsupported type %q", field, a.Type))
	}
	return issues
}

// ResolveToken returns the secret value an auth block references, or an error
// when the environment variable is unset. Definitions carry only references.
func (a *AuthConfig) ResolveToken() (string, error) {
	if a == nil || a.Type != "token" {
		return "", nil
	}
	token := os.Getenv(a.TokenEnv)
	if token == "" {
		return "", fmt.Errorf("secret %s referenced by workflow definition is not set", a.TokenEnv)
	}
	return token, nil
}
