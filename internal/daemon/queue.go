package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/docpub/internal/logfields"
	"git.home.luguber.info/inful/docpub/internal/metrics"
	"git.home.luguber.info/inful/docpub/internal/run"
)

// Executor runs a single queued run to completion.
type Executor interface {
	Execute(ctx context.Context, rn *run.Run) (*run.State, error)
}

// HistoryEntry is a completed run together with its report.
type HistoryEntry struct {
	Run    *run.Run   `json:"run"`
	Report run.Report `json:"report"`
}

type activeRun struct {
	rn     *run.Run
	cancel context.CancelFunc
}

// RunQueue is a bounded worker-pool queue of workflow runs.
type RunQueue struct {
	runs        chan *run.Run
	workers     int
	maxSize     int
	mu          sync.RWMutex
	active      map[string]*activeRun
	history     []*HistoryEntry
	historySize int
	stopChan    chan struct{}
	wg          sync.WaitGroup
	executor    Executor
	recorder    metrics.Recorder
	onFinished  func(*run.Run)
	gate        func(*run.Run) bool
}

// NewRunQueue creates a run queue with the given capacity and worker count.
func NewRunQueue(maxSize, workers, historySize int, executor Executor, recorder metrics.Recorder) *RunQueue {
	if maxSize <= 0 {
		maxSize = 16
	}
	if workers <= 0 {
		workers = 1
	}
	if historySize <= 0 {
		historySize = 50
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &RunQueue{
		runs:        make(chan *run.Run, maxSize),
		workers:     workers,
		maxSize:     maxSize,
		active:      make(map[string]*activeRun),
		history:     make([]*HistoryEntry, 0),
		historySize: historySize,
		stopChan:    make(chan struct{}),
		executor:    executor,
		recorder:    recorder,
	}
}

// SetOnFinished registers a callback invoked after every run completes.
// Must be called before Start.
func (q *RunQueue) SetOnFinished(fn func(*run.Run)) { q.onFinished = fn }

// SetGate registers a callback consulted when a worker dequeues a run. A
// false result drops the run as cancelled instead of executing it. Must be
// called before Start.
func (q *RunQueue) SetGate(fn func(*run.Run) bool) { q.gate = fn }

// Start begins processing runs with the configured number of workers.
func (q *RunQueue) Start(ctx context.Context) {
	slog.Info("Starting run queue", slog.Int("workers", q.workers), slog.Int("max_size", q.maxSize))
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, fmt.Sprintf("worker-%d", i))
	}
}

// Stop cancels active runs and waits for workers to exit.
func (q *RunQueue) Stop() {
	slog.Info("Stopping run queue")
	close(q.stopChan)

	q.mu.Lock()
	for _, a := range q.active {
		if a.cancel != nil {
			a.cancel()
		}
	}
	q.mu.Unlock()

	q.wg.Wait()
	slog.Info("Run queue stopped")
}

// Enqueue adds a run to the queue without blocking.
func (q *RunQueue) Enqueue(rn *run.Run) error {
	if rn == nil {
		return fmt.Errorf("run cannot be nil")
	}
	rn.Status = run.StatusQueued

	select {
	case q.runs <- rn:
		q.recorder.SetQueueDepth(len(q.runs))
		slog.Info("Run enqueued",
			logfields.RunID(rn.ID),
			logfields.Workflow(rn.Workflow),
			logfields.Reason(string(rn.Reason)))
		return nil
	default:
		return fmt.Errorf("run queue is full")
	}
}

// Length returns the current queue depth.
func (q *RunQueue) Length() int { return len(q.runs) }

// ActiveRuns returns a snapshot of currently executing runs.
func (q *RunQueue) ActiveRuns() []*run.Run {
	q.mu.RLock()
	defer q.mu.RUnlock()
	active := make([]*run.Run, 0, len(q.active))
	for _, a := range q.active {
		active = append(active, a.rn)
	}
	return active
}

// History returns recent completed runs, newest last.
func (q *RunQueue) History() []*HistoryEntry {
	q.mu.RLock()
	defer q.mu.RUnlock()
	history := make([]*HistoryEntry, len(q.history))
	copy(history, q.history)
	return history
}

// Cancel cancels the active run with the given ID. Returns false when the
// run is not currently executing.
func (q *RunQueue) Cancel(runID string) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	a, ok := q.active[runID]
	if ok && a.cancel != nil {
		a.cancel()
	}
	return ok
}

// CancelGroup cancels all active runs belonging to the concurrency group.
func (q *RunQueue) CancelGroup(group string) int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	n := 0
	for _, a := range q.active {
		if a.rn.Group == group && a.cancel != nil {
			a.cancel()
			n++
		}
	}
	return n
}

func (q *RunQueue) worker(ctx context.Context, workerID string) {
	defer q.wg.Done()
	slog.Debug("Run worker started", slog.String("worker_id", workerID))

	for {
		select {
		case <-ctx.Done():
			slog.Debug("Run worker stopped by context", slog.String("worker_id", workerID))
			return
		case <-q.stopChan:
			slog.Debug("Run worker stopped by stop signal", slog.String("worker_id", workerID))
			return
		case rn := <-q.runs:
			if rn != nil {
				q.processRun(ctx, rn, workerID)
			}
		}
	}
}

func (q *RunQueue) processRun(ctx context.Context, rn *run.Run, workerID string) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	q.mu.Lock()
	q.active[rn.ID] = &activeRun{rn: rn, cancel: cancel}
	q.mu.Unlock()
	q.recorder.SetQueueDepth(len(q.runs))

	// Consult the gate only after the run is visible in the active map, so a
	// concurrent Cancel either reaches the run there or the gate sees the
	// ownership change. Either way the run cannot slip through.
	if q.gate != nil && !q.gate(rn) {
		q.dropRun(rn, workerID)
		return
	}

	slog.Info("Run started",
		logfields.RunID(rn.ID),
		logfields.Workflow(rn.Workflow),
		slog.String("worker", workerID))

	st, err := q.executor.Execute(runCtx, rn)

	entry := &HistoryEntry{Run: rn}
	if st != nil {
		entry.Report = st.Report
	}

	q.mu.Lock()
	delete(q.active, rn.ID)
	q.addToHistory(entry)
	q.mu.Unlock()

	if err != nil {
		slog.Error("Run failed",
			logfields.RunID(rn.ID),
			logfields.Status(string(rn.Status)),
			logfields.Error(err))
	}

	if q.onFinished != nil {
		q.onFinished(rn)
	}
}

// dropRun finishes a dequeued run without executing it.
func (q *RunQueue) dropRun(rn *run.Run, workerID string) {
	now := time.Now()
	rn.Status = run.StatusCancelled
	rn.CompletedAt = &now

	q.mu.Lock()
	delete(q.active, rn.ID)
	q.addToHistory(&HistoryEntry{Run: rn})
	q.mu.Unlock()

	slog.Info("Run superseded before start, dropped",
		logfields.RunID(rn.ID),
		logfields.Group(rn.Group),
		slog.String("worker", workerID))

	if q.onFinished != nil {
		q.onFinished(rn)
	}
}

// addToHistory appends a completed run, dropping the oldest beyond the limit.
// Caller holds the lock.
func (q *RunQueue) addToHistory(entry *HistoryEntry) {
	q.history = append(q.history, entry)
	if len(q.history) > q.historySize {
		copy(q.history, q.history[len(q.history)-q.historySize:])
		q.history = q.history[:q.historySize]
	}
}
