package metrics

import (
	"time"

	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/pattern"
)

// Attempt results.
const (
	ResultSuccess      = "success"
	ResultMismatch     = "mismatch"
	ResultInsufficient = "insufficient"
	ResultNoTemplate   = "no_template"
)

// Sesame holds the unlock engine's metrics.
type Sesame struct {
	registry *Registry

	EnrollmentsTotal   *Counter
	StoreErrorsTotal   *Counter
	ResetsTotal        *Counter
	EnrolledModalities *Gauge
}

// NewSesame registers the engine metrics on registry. A nil registry gets a
// fresh one under the "sesame" namespace.
func NewSesame(registry *Registry) *Sesame {
	if registry == nil {
		registry = NewRegistry("sesame")
	}

	return &Sesame{
		registry: registry,
		EnrollmentsTotal: registry.Counter(
			"enrollments_total",
			"Total number of templates enrolled",
			nil,
		),
		StoreErrorsTotal: registry.Counter(
			"store_errors_total",
			"Total number of failed pattern store operations",
			nil,
		),
		ResetsTotal: registry.Counter(
			"resets_total",
			"Total number of full resets",
			nil,
		),
		EnrolledModalities: registry.Gauge(
			"enrolled_modalities",
			"Number of modalities with a stored template",
			nil,
		),
	}
}

// Registry returns the underlying registry.
func (s *Sesame) Registry() *Registry {
	return s.registry
}

// Attempt counts one unlock attempt for modality m with the given result.
func (s *Sesame) Attempt(m pattern.Modality, result string) {
	s.registry.Counter(
		"attempts_total",
		"Total number of unlock attempts by modality and result",
		Labels{"modality": string(m), "result": result},
	).Inc()
}

// Attempts returns the attempt count for modality m and result.
func (s *Sesame) Attempts(m pattern.Modality, result string) uint64 {
	return s.registry.Counter(
		"attempts_total",
		"Total number of unlock attempts by modality and result",
		Labels{"modality": string(m), "result": result},
	).Value()
}

// ExtractionLatency returns the extraction latency histogram for modality m.
func (s *Sesame) ExtractionLatency(m pattern.Modality) *Histogram {
	return s.registry.Histogram(
		"extraction_seconds",
		"Time spent extracting a fingerprint",
		Labels{"modality": string(m)},
		LatencyBuckets,
	)
}

// ObserveExtraction records how long an extraction for m took.
func (s *Sesame) ObserveExtraction(m pattern.Modality, start time.Time) {
	s.ExtractionLatency(m).Since(start)
}
