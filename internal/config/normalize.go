package config

import "strings"

// normalize trims and canonicalizes user-provided fields so that later
// comparisons (branch guards, trigger matching) are exact string matches.
func (w *Workflow) normalize() {
	w.Name = strings.TrimSpace(w.Name)
	w.Source.URL = strings.TrimSpace(w.Source.URL)
	w.Source.Branch = strings.TrimSpace(w.Source.Branch)

	if w.Trigger.WorkflowRun != nil {
		tr := w.Trigger.WorkflowRun
		tr.Workflow = strings.TrimSpace(tr.Workflow)
		tr.Conclusions = normalizeList(tr.Conclusions, strings.ToLower)
		tr.Branches = normalizeList(tr.Branches, nil)
	}
	w.Trigger.Schedule = strings.TrimSpace(w.Trigger.Schedule)
	w.Trigger.Watch = normalizeList(w.Trigger.Watch, nil)

	if w.Concurrency != nil {
		w.Concurrency.Group = strings.TrimSpace(w.Concurrency.Group)
	}

	w.Runtime.Name = strings.TrimSpace(w.Runtime.Name)
	w.Runtime.Version = strings.TrimSpace(w.Runtime.Version)
	w.Runtime.Requirements = cleanRelPath(w.Runtime.Requirements)

	w.Cache.KeyFiles = normalizeList(w.Cache.KeyFiles, cleanRelPath)
	w.Install.Target = cleanRelPath(w.Install.Target)

	w.Build.Mode = BuildMode(strings.ToLower(strings.TrimSpace(string(w.Build.Mode))))
	w.Build.SourceDir = cleanRelPath(w.Build.SourceDir)
	w.Build.OutputDir = cleanRelPath(w.Build.OutputDir)

	w.Deploy.Branch = strings.TrimSpace(w.Deploy.Branch)
	w.Deploy.PublishDir = cleanRelPath(w.Deploy.PublishDir)
	w.Deploy.OnlyBranches = normalizeList(w.Deploy.OnlyBranches, nil)

	normalizeAuth(w.Source.Auth)
	normalizeAuth(w.Deploy.Auth)
}

func normalizeAuth(a *AuthConfig) {
	if a == nil {
		return
	}
	a.Type = strings.ToLower(strings.TrimSpace(a.Type))
	a.TokenEnv = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(a.TokenEnv), "$"))
}

// normalizeList trims entries, applies fn when given, and drops empties.
func normalizeList(in []string, fn func(string) string) []string {
	if len(in) == 0 {
		return in
	}
	out := in[:0]
	for _, s := range in {
		s = strings.TrimSpace(s)
		if fn != nil {
			s = fn(s)
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// cleanRelPath strips leading "./" and trailing slashes from repo-relative paths.
func cleanRelPath(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimPrefix(p, "./")
	return strings.TrimRight(p, "/")
}
