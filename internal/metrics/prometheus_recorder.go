package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once             sync.Once
	stepDuration     *prom.HistogramVec
	runDuration      prom.Histogram
	stepResults      *prom.CounterVec
	runOutcome       *prom.CounterVec
	retries          *prom.CounterVec
	retriesExhausted *prom.CounterVec
	triggers         *prom.CounterVec
	deploys          *prom.CounterVec
	queueDepth       prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.stepDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "docpub",
			Name:      "step_duration_seconds",
			Help:      "Duration of individual pipeline steps",
			Buckets:   prom.DefBuckets,
		}, []string{"step"})
		pr.runDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "docpub",
			Name:      "run_duration_seconds",
			Help:      "Total run duration",
			Buckets:   prom.DefBuckets,
		})
		pr.stepResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docpub",
			Name:      "step_results_total",
			Help:      "Step result counts by outcome",
		}, []string{"step", "result"})
		pr.runOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docpub",
			Name:      "run_outcomes_total",
			Help:      "Run outcomes by final status",
		}, []string{"outcome"})
		pr.retries = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docpub",
			Name:      "step_retries_total",
			Help:      "Total step retries (transient failures)",
		}, []string{"step"})
		pr.retriesExhausted = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docpub",
			Name:      "step_retry_exhausted_total",
			Help:      "Count of steps where retries were exhausted",
		}, []string{"step"})
		pr.triggers = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docpub",
			Name:      "triggers_total",
			Help:      "Runs enqueued by trigger reason",
		}, []string{"reason"})
		pr.deploys = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docpub",
			Name:      "deploys_total",
			Help:      "Deploy step outcomes",
		}, []string{"result"})
		pr.queueDepth = prom.NewGauge(prom.GaugeOpts{
			Namespace: "docpub",
			Name:      "run_queue_depth",
			Help:      "Current number of queued runs",
		})
		reg.MustRegister(pr.stepDuration, pr.runDuration, pr.stepResults, pr.runOutcome,
			pr.retries, pr.retriesExhausted, pr.triggers, pr.deploys, pr.queueDepth)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStepDuration(step string, d time.Duration) {
	if p == nil || p.stepDuration == nil {
		return
	}
	p.stepDuration.WithLabelValues(step).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil || p.runDuration == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStepResult(step string, result ResultLabel) {
	if p == nil || p.stepResults == nil {
		return
	}
	p.stepResults.WithLabelValues(step, string(result)).Inc()
}

func (p *PrometheusRecorder) IncRunOutcome(outcome string) {
	if p == nil || p.runOutcome == nil {
		return
	}
	p.runOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncStepRetry(step string) {
	if p == nil || p.retries == nil {
		return
	}
	p.retries.WithLabelValues(step).Inc()
}

func (p *PrometheusRecorder) IncStepRetryExhausted(step string) {
	if p == nil || p.retriesExhausted == nil {
		return
	}
	p.retriesExhausted.WithLabelValues(step).Inc()
}

func (p *PrometheusRecorder) IncTrigger(reason string) {
	if p == nil || p.triggers == nil {
		return
	}
	p.triggers.WithLabelValues(reason).Inc()
}

func (p *PrometheusRecorder) IncDeploy(published bool) {
	if p == nil || p.deploys == nil {
		return
	}
	res := "skipped"
	if published {
		res = "published"
	}
	p.deploys.WithLabelValues(res).Inc()
}

func (p *PrometheusRecorder) SetQueueDepth(n int) {
	if p == nil || p.queueDepth == nil {
		return
	}
	p.queueDepth.Set(float64(n))
}
