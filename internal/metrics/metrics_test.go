package metrics

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/pattern"
)

// =============================================================================
// Tests for primitives
// =============================================================================

func TestCounter(t *testing.T) {
	r := NewRegistry("test")
	c := r.Counter("events_total", "events", nil)
	c.Inc()
	c.Add(4)
	assert.Equal(t, uint64(5), c.Value())
	assert.Equal(t, "test_events_total", c.Name())

	assert.Same(t, c, r.Counter("events_total", "events", nil))
}

func TestCounterLabelsAreDistinctSeries(t *testing.T) {
	r := NewRegistry("")
	a := r.Counter("hits", "", Labels{"kind": "a"})
	b := r.Counter("hits", "", Labels{"kind": "b"})
	a.Inc()

	assert.NotSame(t, a, b)
	assert.Equal(t, uint64(1), a.Value())
	assert.Equal(t, uint64(0), b.Value())
}

func TestGauge(t *testing.T) {
	g := NewRegistry("").Gauge("level", "", nil)
	g.Set(3)
	g.Inc()
	g.Dec()
	g.Dec()
	assert.Equal(t, int64(2), g.Value())
}

func TestHistogram(t *testing.T) {
	h := NewRegistry("").Histogram("latency", "", nil, []float64{1, 0.1})
	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(5)
	h.ObserveDuration(100 * time.Millisecond)

	assert.Equal(t, uint64(4), h.Count())
	assert.InDelta(t, 5.65, h.Sum(), 1e-9)
	assert.Equal(t, []float64{0.1, 1}, h.buckets)
}

func TestLabelsString(t *testing.T) {
	assert.Equal(t, "", Labels(nil).String())
	assert.Equal(t, `{a="1",b="2"}`, Labels{"b": "2", "a": "1"}.String())
}

// =============================================================================
// Tests for exposition
// =============================================================================

func TestWriteText(t *testing.T) {
	r := NewRegistry("sesame")
	r.Counter("attempts_total", "attempts", Labels{"result": "success"}).Add(2)
	r.Counter("attempts_total", "attempts", Labels{"result": "mismatch"}).Inc()
	r.Gauge("enrolled", "enrolled", nil).Set(3)
	h := r.Histogram("latency", "latency", Labels{"modality": "voice"}, []float64{0.1, 1})
	h.Observe(0.05)
	h.Observe(0.5)

	var buf bytes.Buffer
	require.NoError(t, r.WriteText(&buf))
	out := buf.String()

	assert.Equal(t, 1, strings.Count(out, "# TYPE sesame_attempts_total counter"))
	assert.Contains(t, out, `sesame_attempts_total{result="mismatch"} 1`)
	assert.Contains(t, out, `sesame_attempts_total{result="success"} 2`)
	assert.Contains(t, out, "sesame_enrolled 3")
	assert.Contains(t, out, `sesame_latency_bucket{modality="voice",le="0.1"} 1`)
	assert.Contains(t, out, `sesame_latency_bucket{modality="voice",le="1"} 2`)
	assert.Contains(t, out, `sesame_latency_bucket{modality="voice",le="+Inf"} 2`)
	assert.Contains(t, out, `sesame_latency_count{modality="voice"} 2`)

	assert.Less(t,
		strings.Index(out, `result="mismatch"`),
		strings.Index(out, `result="success"`))
}

func TestWriteJSON(t *testing.T) {
	r := NewRegistry("x")
	r.Counter("c", "", nil).Inc()

	var buf bytes.Buffer
	require.NoError(t, r.WriteJSON(&buf))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, float64(1), got["x_c"])
}

func TestConcurrentRegistration(t *testing.T) {
	r := NewRegistry("")
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Counter("shared", "", Labels{"k": "v"}).Inc()
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(16), r.Counter("shared", "", Labels{"k": "v"}).Value())
}

// =============================================================================
// Tests for engine metrics
// =============================================================================

func TestSesameMetrics(t *testing.T) {
	s := NewSesame(nil)
	s.EnrollmentsTotal.Inc()
	s.EnrolledModalities.Set(1)
	s.Attempt(pattern.ModalityColor, ResultSuccess)
	s.Attempt(pattern.ModalityColor, ResultMismatch)
	s.Attempt(pattern.ModalityColor, ResultMismatch)
	s.ObserveExtraction(pattern.ModalityVoice, time.Now())

	assert.Equal(t, uint64(1), s.Attempts(pattern.ModalityColor, ResultSuccess))
	assert.Equal(t, uint64(2), s.Attempts(pattern.ModalityColor, ResultMismatch))
	assert.Equal(t, uint64(1), s.ExtractionLatency(pattern.ModalityVoice).Count())

	var buf bytes.Buffer
	require.NoError(t, s.Registry().WriteText(&buf))
	out := buf.String()
	assert.Contains(t, out, "sesame_enrollments_total 1")
	assert.Contains(t, out, "sesame_enrolled_modalities 1")
	assert.Contains(t, out, `sesame_attempts_total{modality="color",result="mismatch"} 2`)
	assert.Contains(t, out, "sesame_store_errors_total 0")
}
