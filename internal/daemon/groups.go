package daemon

import (
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/docpub/internal/config"
	"git.home.luguber.info/inful/docpub/internal/logfields"
	"git.home.luguber.info/inful/docpub/internal/run"
)

// Coordinator enforces the concurrency group policy in front of the run
// queue: at most one run per group executes at a time. While a group is
// busy, new triggers either cancel the in-flight run or collapse into a
// single pending slot where the latest trigger wins.
type Coordinator struct {
	queue *RunQueue
	cfg   *config.ConcurrencyConfig

	mu      sync.Mutex
	busy    map[string]string   // group -> running run ID
	pending map[string]*run.Run // group -> coalesced pending run
}

// NewCoordinator wires a coordinator in front of the queue. A nil
// concurrency config passes every run straight through.
func NewCoordinator(queue *RunQueue, cfg *config.ConcurrencyConfig) *Coordinator {
	c := &Coordinator{
		queue:   queue,
		cfg:     cfg,
		busy:    make(map[string]string),
		pending: make(map[string]*run.Run),
	}
	queue.SetOnFinished(c.runFinished)
	queue.SetGate(c.ownsGroup)
	return c
}

// ownsGroup reports whether a dequeued run still owns its concurrency group.
// A queued run superseded by cancel-in-flight loses ownership before any
// worker picks it up; the queue drops it instead of executing it.
func (c *Coordinator) ownsGroup(rn *run.Run) bool {
	if rn.Group == "" {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy[rn.Group] == rn.ID
}

// Submit enqueues the run, applying the group policy first.
func (c *Coordinator) Submit(rn *run.Run) error {
	if c.cfg == nil || c.cfg.Group == "" {
		return c.queue.Enqueue(rn)
	}
	rn.Group = c.cfg.Group

	c.mu.Lock()
	runningID, busy := c.busy[rn.Group]
	if !busy {
		c.busy[rn.Group] = rn.ID
		c.mu.Unlock()
		if err := c.queue.Enqueue(rn); err != nil {
			c.clearBusy(rn.Group, rn.ID)
			return err
		}
		return nil
	}

	if c.cfg.CancelInFlight {
		c.busy[rn.Group] = rn.ID
		c.mu.Unlock()
		slog.Info("Cancelling in-flight run for group",
			logfields.Group(rn.Group),
			logfields.RunID(runningID))
		// Cancel reaches the run only once it is executing; a run still
		// queued has lost group ownership and is dropped by the queue gate.
		c.queue.Cancel(runningID)
		if err := c.queue.Enqueue(rn); err != nil {
			c.clearBusy(rn.Group, rn.ID)
			return err
		}
		return nil
	}

	// Coalesce: the latest trigger replaces any earlier pending run, which
	// is marked skipped so history records why it never executed.
	if prev := c.pending[rn.Group]; prev != nil {
		markSkipped(prev)
		slog.Info("Pending run superseded",
			logfields.Group(rn.Group),
			logfields.RunID(prev.ID))
	}
	c.pending[rn.Group] = rn
	c.mu.Unlock()

	slog.Info("Group busy, run held pending",
		logfields.Group(rn.Group),
		logfields.RunID(rn.ID))
	return nil
}

// runFinished promotes the pending run of the group, if any.
func (c *Coordinator) runFinished(finished *run.Run) {
	if finished.Group == "" {
		return
	}

	c.mu.Lock()
	if c.busy[finished.Group] != finished.ID {
		// A newer run already owns the group (cancel-in-flight).
		c.mu.Unlock()
		return
	}
	next := c.pending[finished.Group]
	delete(c.pending, finished.Group)
	if next == nil {
		delete(c.busy, finished.Group)
		c.mu.Unlock()
		return
	}
	c.busy[finished.Group] = next.ID
	c.mu.Unlock()

	slog.Info("Promoting pending run for group",
		logfields.Group(finished.Group),
		logfields.RunID(next.ID))
	if err := c.queue.Enqueue(next); err != nil {
		slog.Error("Failed to enqueue pending run",
			logfields.RunID(next.ID),
			logfields.Error(err))
		c.clearBusy(finished.Group, next.ID)
	}
}

// Pending returns the coalesced pending run for the group, if any.
func (c *Coordinator) Pending(group string) *run.Run {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending[group]
}

func (c *Coordinator) clearBusy(group, runID string) {
	c.mu.Lock()
	if c.busy[group] == runID {
		delete(c.busy, group)
	}
	c.mu.Unlock()
}

func markSkipped(rn *run.Run) {
	now := time.Now()
	rn.Status = run.StatusSkipped
	rn.CompletedAt = &now
}
