// Package metrics counts learner activity in a Prometheus registry.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder owns a private registry. A nil *Recorder is valid and records
// nothing.
type Recorder struct {
	registry *prometheus.Registry

	completions  *prometheus.CounterVec
	xpAwarded    prometheus.Counter
	quizAttempts *prometheus.CounterVec
	evaluations  prometheus.Counter
	certificates *prometheus.CounterVec
	remoteErrors *prometheus.CounterVec
	llmRequests  *prometheus.CounterVec
}

// New builds a Recorder with every collector registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		completions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "skillquest",
				Name:      "node_completions_total",
				Help:      "First-time node completions by node kind.",
			},
			[]string{"kind"},
		),
		xpAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "skillquest",
			Name:      "xp_awarded_total",
			Help:      "Experience points awarded.",
		}),
		quizAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "skillquest",
				Name:      "quiz_attempts_total",
				Help:      "Quiz and assessment attempts by outcome.",
			},
			[]string{"outcome"},
		),
		evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "skillquest",
			Name:      "peer_evaluations_total",
			Help:      "Peer evaluations recorded.",
		}),
		certificates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "skillquest",
				Name:      "certificates_issued_total",
				Help:      "Certificates issued by policy.",
			},
			[]string{"policy"},
		),
		remoteErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "skillquest",
				Name:      "remote_errors_total",
				Help:      "Failed durable writes and remote calls by operation.",
			},
			[]string{"op"},
		),
		llmRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "skillquest",
				Name:      "llm_requests_total",
				Help:      "Model provider calls by purpose and outcome.",
			},
			[]string{"purpose", "outcome"},
		),
	}
	r.registry.MustRegister(
		r.completions,
		r.xpAwarded,
		r.quizAttempts,
		r.evaluations,
		r.certificates,
		r.remoteErrors,
		r.llmRequests,
	)
	return r
}

// Registry exposes the underlying registry for gathering.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) NodeCompleted(kind string) {
	if r == nil {
		return
	}
	r.completions.WithLabelValues(kind).Inc()
}

func (r *Recorder) XPAwarded(amount int) {
	if r == nil || amount <= 0 {
		return
	}
	r.xpAwarded.Add(float64(amount))
}

func (r *Recorder) QuizAttempt(passed bool) {
	if r == nil {
		return
	}
	r.quizAttempts.WithLabelValues(outcome(passed)).Inc()
}

func (r *Recorder) PeerEvaluation() {
	if r == nil {
		return
	}
	r.evaluations.Inc()
}

func (r *Recorder) CertificateIssued(policy string) {
	if r == nil {
		return
	}
	r.certificates.WithLabelValues(policy).Inc()
}

func (r *Recorder) RemoteError(op string) {
	if r == nil {
		return
	}
	r.remoteErrors.WithLabelValues(op).Inc()
}

func (r *Recorder) LLMRequest(purpose string, ok bool) {
	if r == nil {
		return
	}
	r.llmRequests.WithLabelValues(purpose, outcome(ok)).Inc()
}

func outcome(ok bool) string {
	if ok {
		return "pass"
	}
	return "fail"
}

// WriteTextfile writes the registry in the node-exporter textfile format.
// The parent directory is created if needed.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
