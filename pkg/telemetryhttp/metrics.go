package telemetryhttp

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"robotick/pkg/engine"
	"robotick/pkg/telemetry"
)

const metricsContentType = "application/openmetrics-text; version=1.0.0; charset=utf-8"

// MetricsExporter renders a live engine's tick timings as OpenMetrics
// text, the Go analogue of the teacher's metrics.Exporter — here
// sourced fresh from telemetry.Walk on every request rather than from
// an internally accumulated, mutex-guarded snapshot, since the engine's
// own Instance.Stats already is that snapshot.
type MetricsExporter struct {
	engine *engine.Engine
}

// NewMetricsExporter constructs a MetricsExporter over eng.
func NewMetricsExporter(eng *engine.Engine) *MetricsExporter {
	return &MetricsExporter{engine: eng}
}

// ServeHTTP implements http.Handler.
func (e *MetricsExporter) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	if e == nil || e.engine == nil {
		http.Error(w, "engine unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", metricsContentType)
	if _, err := e.WriteTo(w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Render returns the current metrics snapshot encoded as OpenMetrics text.
func (e *MetricsExporter) Render() ([]byte, error) {
	var buf strings.Builder
	if _, err := e.WriteTo(&buf); err != nil {
		return nil, err
	}
	return []byte(buf.String()), nil
}

// WriteTo writes the current metrics snapshot to dst.
func (e *MetricsExporter) WriteTo(dst io.Writer) (int64, error) {
	rows, err := telemetry.Walk(e.engine)
	if err != nil {
		return 0, fmt.Errorf("telemetryhttp: walk: %w", err)
	}

	var total int64
	write := func(format string, args ...any) error {
		n, err := fmt.Fprintf(dst, format, args...)
		total += int64(n)
		return err
	}

	if err := write("# HELP robotick_tick_duration_ms Wall-clock duration of the workload's most recent tick.\n"); err != nil {
		return total, err
	}
	if err := write("# TYPE robotick_tick_duration_ms gauge\n"); err != nil {
		return total, err
	}
	for _, row := range rows {
		if err := write("robotick_tick_duration_ms{workload=%q,type=%q} %.6f\n", row.Name, row.TypeName, row.TickDurationMs); err != nil {
			return total, err
		}
	}

	if err := write("# HELP robotick_tick_delta_ms Elapsed time since the workload's previous tick.\n"); err != nil {
		return total, err
	}
	if err := write("# TYPE robotick_tick_delta_ms gauge\n"); err != nil {
		return total, err
	}
	for _, row := range rows {
		if err := write("robotick_tick_delta_ms{workload=%q,type=%q} %.6f\n", row.Name, row.TypeName, row.TickDeltaMs); err != nil {
			return total, err
		}
	}

	if err := write("# EOF\n"); err != nil {
		return total, err
	}
	return total, nil
}
