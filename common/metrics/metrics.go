// Package metrics holds the Prometheus collectors of the answering pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "oracle"

// Question outcomes.
const (
	OutcomeAnswered     = "answered"
	OutcomeDraftFailed  = "draft_failed"
	OutcomeReformFailed = "reformulation_failed"
	OutcomePanic        = "panic"
)

var (
	questionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "questions_total",
		Help:      "Questions answered by outcome",
	}, []string{"outcome"})

	stageSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Duration of each pipeline stage",
		Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"stage"})

	windowsPerQuestion = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "corpus",
		Name:      "windows_per_question",
		Help:      "Evidence windows found by the corpus scan before capping",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	})

	corpusSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "corpus",
		Name:      "skipped_files_total",
		Help:      "Corpus files skipped during a scan by reason",
	}, []string{"reason"})

	completionErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "completion",
		Name:      "errors_total",
		Help:      "Completion failures by call kind",
	}, []string{"call"})

	completionTokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "completion",
		Name:      "tokens_total",
		Help:      "Tokens consumed by direction",
	}, []string{"direction"})
)

func RecordQuestion(outcome string) {
	questionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveStage records how long a stage took since start.
func ObserveStage(stage string, start time.Time) {
	stageSeconds.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func RecordWindows(n int) {
	windowsPerQuestion.Observe(float64(n))
}

func RecordSkippedFile(reason string) {
	corpusSkippedTotal.WithLabelValues(reason).Inc()
}

func RecordCompletionError(call string) {
	completionErrorsTotal.WithLabelValues(call).Inc()
}

func RecordTokens(prompt, completion int) {
	completionTokensTotal.WithLabelValues("prompt").Add(float64(prompt))
	completionTokensTotal.WithLabelValues("completion").Add(float64(completion))
}
