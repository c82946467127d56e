package daemon

import (
	"testing"

	"git.home.luguber.info/inful/docpub/internal/config"
)

func testConsumer(t *testing.T, trigger *config.WorkflowRunTrigger) *UpstreamConsumer {
	t.Helper()
	c, err := NewUpstreamConsumer(config.MonitoringConfig{
		NATSURL: "nats://localhost:4222",
		Subject: "workflows.completed",
		Stream:  "WORKFLOWS",
	}, trigger, func(UpstreamEvent) {})
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	return c
}

func TestMatches_WorkflowNameAndConclusion(t *testing.T) {
	c := testConsumer(t, &config.WorkflowRunTrigger{
		Workflow:    "Publish CDN",
		Conclusions: []string{"success"},
	})

	cases := []struct {
		ev   UpstreamEvent
		want bool
	}{
		{UpstreamEvent{Workflow: "Publish CDN", Conclusion: "success", Branch: "main"}, true},
		{UpstreamEvent{Workflow: "Publish CDN", Conclusion: "failure", Branch: "main"}, false},
		{UpstreamEvent{Workflow: "Other Workflow", Conclusion: "success", Branch: "main"}, false},
	}
	for _, tc := range cases {
		if got := c.Matches(tc.ev); got != tc.want {
			t.Errorf("Matches(%+v) = %v, want %v", tc.ev, got, tc.want)
		}
	}
}

func TestMatches_BranchFilter(t *testing.T) {
	c := testConsumer(t, &config.WorkflowRunTrigger{
		Workflow:    "Publish CDN",
		Conclusions: []string{"success"},
		Branches:    []string{"main"},
	})

	if !c.Matches(UpstreamEvent{Workflow: "Publish CDN", Conclusion: "success", Branch: "main"}) {
		t.Error("main branch should match")
	}
	if c.Matches(UpstreamEvent{Workflow: "Publish CDN", Conclusion: "success", Branch: "feature/x"}) {
		t.Error("unlisted branch must not match")
	}
}

func TestMatches_EmptyBranchListMatchesAll(t *testing.T) {
	c := testConsumer(t, &config.WorkflowRunTrigger{
		Workflow:    "Publish CDN",
		Conclusions: []string{"success", "failure"},
	})

	if !c.Matches(UpstreamEvent{Workflow: "Publish CDN", Conclusion: "failure", Branch: "anything"}) {
		t.Error("empty branch filter should match any branch")
	}
}

func TestNewUpstreamConsumer_RequiresNATSURL(t *testing.T) {
	_, err := NewUpstreamConsumer(config.MonitoringConfig{}, &config.WorkflowRunTrigger{Workflow: "x"}, nil)
	if err == nil {
		t.Fatal("missing NATS URL must be rejected")
	}
}
