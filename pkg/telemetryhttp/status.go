// Package telemetryhttp provides optional, genuinely separate HTTP/JSON
// and OpenMetrics consumers of pkg/telemetry's field iterator. Neither
// handler is wired into the Engine's load pipeline — both are reference
// implementations a binary (cmd/robotick) may mount if it wants an
// observability surface, grounded on the teacher's
// pkg/http/status.Handler and pkg/http/metrics.Exporter.
package telemetryhttp

import (
	"encoding/json"
	"net/http"

	"github.com/stretchr/objx"

	"robotick/pkg/engine"
	"robotick/pkg/telemetry"
)

// StatusHandler renders a live engine's full telemetry.Walk snapshot as
// JSON, the Go analogue of the teacher's status.Handler — here widened
// from a single-controller health check to one row per workload
// instance, since the core has no single "controller" to summarize.
type StatusHandler struct {
	engine *engine.Engine
}

// NewStatusHandler constructs a StatusHandler over eng.
func NewStatusHandler(eng *engine.Engine) *StatusHandler {
	return &StatusHandler{engine: eng}
}

// ServeHTTP implements http.Handler.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	if h == nil || h.engine == nil {
		http.Error(w, "engine unavailable", http.StatusServiceUnavailable)
		return
	}

	rows, err := telemetry.Walk(h.engine)
	if err != nil {
		http.Error(w, "walk telemetry: "+err.Error(), http.StatusInternalServerError)
		return
	}

	workloads := make([]objx.Map, 0, len(rows))
	for _, row := range rows {
		workloads = append(workloads, objx.Map{
			"type":             row.TypeName,
			"name":             row.Name,
			"config":           fieldsToMap(row.ConfigFields),
			"inputs":           fieldsToMap(row.InputsFields),
			"outputs":          fieldsToMap(row.OutputsFields),
			"tick_duration_ms": row.TickDurationMs,
			"tick_delta_ms":    row.TickDeltaMs,
			"goal_interval_ms": row.GoalIntervalMs,
		})
	}

	doc := objx.Map{
		"root":      h.engine.RootKindName(),
		"workloads": workloads,
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		http.Error(w, "marshal status", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(payload)
}

func fieldsToMap(fields []telemetry.FieldValue) objx.Map {
	m := objx.Map{}
	for _, f := range fields {
		m[f.Name] = f.Value
	}
	return m
}
