package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/docpub/internal/config"
	"git.home.luguber.info/inful/docpub/internal/logfields"
)

// UpstreamEvent is the payload published when an upstream workflow completes.
type UpstreamEvent struct {
	Workflow   string    `json:"workflow"`
	Conclusion string    `json:"conclusion"`
	Branch     string    `json:"branch"`
	Commit     string    `json:"commit,omitempty"`
	Repository string    `json:"repository,omitempty"`
	Timestamp  time.Time `json:"timestamp,omitempty"`
}

// UpstreamConsumer subscribes to upstream workflow completion events on
// JetStream and submits matching runs.
type UpstreamConsumer struct {
	conn       *nats.Conn
	consumeCtx jetstream.ConsumeContext
	trigger    *config.WorkflowRunTrigger
	subject    string
	stream     string
	url        string
	submit     func(ev UpstreamEvent)
}

// NewUpstreamConsumer creates a consumer for the workflow_run trigger.
func NewUpstreamConsumer(monitoring config.MonitoringConfig, trigger *config.WorkflowRunTrigger, submit func(ev UpstreamEvent)) (*UpstreamConsumer, error) {
	if trigger == nil {
		return nil, fmt.Errorf("workflow_run trigger is required")
	}
	if monitoring.NATSURL == "" {
		return nil, fmt.Errorf("monitoring.nats_url is required for the workflow_run trigger")
	}
	return &UpstreamConsumer{
		trigger: trigger,
		subject: monitoring.Subject,
		stream:  monitoring.Stream,
		url:     monitoring.NATSURL,
		submit:  submit,
	}, nil
}

// Start connects to NATS and begins consuming completion events. The durable
// consumer survives restarts so events published while the daemon is down are
// still delivered.
func (c *UpstreamConsumer) Start(ctx context.Context) error {
	conn, err := nats.Connect(c.url)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	c.conn = conn

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	setupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	stream, err := js.CreateOrUpdateStream(setupCtx, jetstream.StreamConfig{
		Name:     c.stream,
		Subjects: []string{c.subject},
	})
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to ensure stream %s: %w", c.stream, err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(setupCtx, jetstream.ConsumerConfig{
		Durable:       "docpub",
		AckPolicy:     jetstream.AckExplicitPolicy,
		FilterSubject: c.subject,
	})
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	consumeCtx, err := consumer.Consume(c.handle)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	c.consumeCtx = consumeCtx

	slog.Info("Listening for upstream workflow completions",
		logfields.URL(c.url),
		slog.String("subject", c.subject),
		slog.String("upstream_workflow", c.trigger.Workflow))
	return nil
}

// Stop halts consumption and drains the connection.
func (c *UpstreamConsumer) Stop() {
	if c.consumeCtx != nil {
		c.consumeCtx.Stop()
	}
	if c.conn != nil {
		if err := c.conn.Drain(); err != nil {
			slog.Warn("NATS drain failed", logfields.Error(err))
		}
	}
}

// handle filters one completion event against the trigger and submits a run
// when it matches. Non-matching events are acked and dropped.
func (c *UpstreamConsumer) handle(msg jetstream.Msg) {
	var ev UpstreamEvent
	if err := json.Unmarshal(msg.Data(), &ev); err != nil {
		slog.Warn("Dropping malformed upstream event", logfields.Error(err))
		_ = msg.Ack()
		return
	}

	if c.Matches(ev) {
		slog.Info("Upstream workflow completed, triggering run",
			slog.String("upstream_workflow", ev.Workflow),
			slog.String("conclusion", ev.Conclusion),
			logfields.Branch(ev.Branch))
		c.submit(ev)
	} else {
		slog.Debug("Upstream event did not match trigger",
			slog.String("upstream_workflow", ev.Workflow),
			slog.String("conclusion", ev.Conclusion),
			logfields.Branch(ev.Branch))
	}
	_ = msg.Ack()
}

// Matches reports whether the event satisfies the trigger's workflow name,
// conclusion list and branch list.
func (c *UpstreamConsumer) Matches(ev UpstreamEvent) bool {
	if ev.Workflow != c.trigger.Workflow {
		return false
	}
	if !contains(c.trigger.Conclusions, ev.Conclusion) {
		return false
	}
	if len(c.trigger.Branches) > 0 && !contains(c.trigger.Branches, ev.Branch) {
		return false
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
