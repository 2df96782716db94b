package telemetryhttp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unsafe"

	"robotick/pkg/engine"
	"robotick/pkg/model"
	"robotick/pkg/typeregistry"
)

type gaugeOutputs struct {
	Value int32
}

type gauge struct {
	Outputs gaugeOutputs
}

func (g *gauge) Tick(dt float64) { g.Outputs.Value = 9 }

func gaugeRegistry(t *testing.T) *typeregistry.Registry {
	t.Helper()
	reg := typeregistry.NewRegistry()
	typeregistry.RegisterPrimitives(reg)

	intType, ok := reg.FindTypeByName("int")
	if !ok {
		t.Fatal("int not registered")
	}
	outputs := &typeregistry.StructDescriptor{
		Name: "GaugeOutputs",
		Size: unsafe.Sizeof(gaugeOutputs{}),
		Fields: []typeregistry.FieldDescriptor{
			{Name: "value", Offset: unsafe.Offsetof(gaugeOutputs{}.Value), Size: unsafe.Sizeof(int32(0)), TypeID: intType.ID},
		},
	}

	desc := typeregistry.RegisterWorkload[gauge](reg, "Gauge", func(unsafe.Pointer) {}, nil)
	desc.WithOutputStruct(outputs, unsafe.Offsetof(gauge{}.Outputs))
	return reg
}

func buildTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	reg := gaugeRegistry(t)
	m := model.New(reg)

	child := m.Add("Gauge", "g1").WithTickRate(5)
	root := m.Add(model.TypeNameSequencedGroup, "root").WithTickRate(5).WithChildren(child)
	if err := m.SetRootWorkload(root, true); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	e := engine.New(reg, nil)
	if err := e.Load(m); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := e.Tick(0.2); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	return e
}

func TestStatusHandlerRendersJSON(t *testing.T) {
	e := buildTestEngine(t)
	h := NewStatusHandler(e)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var doc map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("unmarshal: %v; body: %s", err, rec.Body.String())
	}
	workloads, ok := doc["workloads"].([]any)
	if !ok || len(workloads) == 0 {
		t.Fatalf("expected non-empty workloads array, got %v", doc["workloads"])
	}
}

func TestMetricsExporterRendersOpenMetrics(t *testing.T) {
	e := buildTestEngine(t)
	exp := NewMetricsExporter(e)

	body, err := exp.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	text := string(body)
	if !strings.Contains(text, "robotick_tick_duration_ms{workload=\"g1\"") {
		t.Fatalf("missing g1 duration metric: %s", text)
	}
	if !strings.HasSuffix(strings.TrimRight(text, "\n"), "# EOF") {
		t.Fatalf("expected trailing # EOF line: %s", text)
	}
}
