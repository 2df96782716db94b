package telemetry

import (
	"bytes"
	"strings"
	"testing"
	"unsafe"

	"robotick/pkg/blackboard"
	"robotick/pkg/dataconn"
	"robotick/pkg/engine"
	"robotick/pkg/model"
	"robotick/pkg/typeid"
	"robotick/pkg/typeregistry"
)

type probeOutputs struct {
	Reading int32
}

type probe struct {
	Outputs probeOutputs
}

func (p *probe) Tick(dt float64) { p.Outputs.Reading = 42 }

func probeRegistry(t *testing.T) *typeregistry.Registry {
	t.Helper()
	reg := typeregistry.NewRegistry()
	typeregistry.RegisterPrimitives(reg)

	intType, ok := reg.FindTypeByName("int")
	if !ok {
		t.Fatal("int not registered")
	}
	outputs := &typeregistry.StructDescriptor{
		Name: "ProbeOutputs",
		Size: unsafe.Sizeof(probeOutputs{}),
		Fields: []typeregistry.FieldDescriptor{
			{Name: "reading", Offset: unsafe.Offsetof(probeOutputs{}.Reading), Size: unsafe.Sizeof(int32(0)), TypeID: intType.ID},
		},
	}

	desc := typeregistry.RegisterWorkload[probe](reg, "Probe", func(unsafe.Pointer) {}, nil)
	desc.WithOutputStruct(outputs, unsafe.Offsetof(probe{}.Outputs))
	return reg
}

func TestWalkRendersFieldsAndTiming(t *testing.T) {
	reg := probeRegistry(t)
	m := model.New(reg)

	sensor := m.Add("Probe", "sensor").WithTickRate(10)
	root := m.Add(model.TypeNameSequencedGroup, "root").WithTickRate(10).WithChildren(sensor)

	if err := m.SetRootWorkload(root, true); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	e := engine.New(reg, nil)
	if err := e.Load(m); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := e.Tick(0.1); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	rows, err := Walk(e)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	var sensorRow *Row
	for i := range rows {
		if rows[i].Name == "sensor" {
			sensorRow = &rows[i]
		}
	}
	if sensorRow == nil {
		t.Fatal("no row for sensor")
	}
	if !strings.Contains(sensorRow.Outputs, "reading=42") {
		t.Fatalf("Outputs = %q, want to contain reading=42", sensorRow.Outputs)
	}
	if sensorRow.GoalIntervalMs != 100 {
		t.Fatalf("GoalIntervalMs = %v, want 100", sensorRow.GoalIntervalMs)
	}

	var buf bytes.Buffer
	if err := PrintConsoleTable(&buf, rows); err != nil {
		t.Fatalf("PrintConsoleTable: %v", err)
	}
	if !strings.Contains(buf.String(), "sensor") {
		t.Fatalf("console table missing sensor row: %s", buf.String())
	}
}

type scratchOutputs struct {
	Scratch *blackboard.Blackboard
}

type scratchWorkload struct {
	Outputs scratchOutputs
}

func (s *scratchWorkload) PreLoad() {
	_ = s.Outputs.Scratch.InitializeFields([]blackboard.FieldDeclaration{
		{Name: "target_x", TypeName: "double"},
	})
}

func (s *scratchWorkload) OwnedRegions() []typeregistry.BindableRegion {
	return []typeregistry.BindableRegion{s.Outputs.Scratch}
}

func scratchRegistry(t *testing.T) *typeregistry.Registry {
	t.Helper()
	reg := typeregistry.NewRegistry()
	typeregistry.RegisterPrimitives(reg)

	blackboardTypeID := typeid.FromName(blackboard.FieldTypeName)
	outputs := &typeregistry.StructDescriptor{
		Name: "ScratchOutputs",
		Size: unsafe.Sizeof(scratchOutputs{}),
		Fields: []typeregistry.FieldDescriptor{
			{Name: "scratch", Offset: unsafe.Offsetof(scratchOutputs{}.Scratch), Size: unsafe.Sizeof(uintptr(0)), TypeID: blackboardTypeID},
		},
	}

	desc := typeregistry.RegisterWorkload[scratchWorkload](reg, "Scratch", func(p unsafe.Pointer) {
		w := (*scratchWorkload)(p)
		w.Outputs.Scratch = blackboard.New(reg)
	}, nil)
	desc.WithOutputStruct(outputs, unsafe.Offsetof(scratchWorkload{}.Outputs))
	return reg
}

// TestWalkRendersBlackboardSubFields confirms a workload's dynamically
// declared blackboard fields appear in telemetry output as their own
// entries rather than the opaque "<blackboard>" placeholder.
func TestWalkRendersBlackboardSubFields(t *testing.T) {
	reg := scratchRegistry(t)
	m := model.New(reg)

	w := m.Add("Scratch", "planner").WithTickRate(10)
	root := m.Add(model.TypeNameSequencedGroup, "root").WithTickRate(10).WithChildren(w)

	if err := m.SetRootWorkload(root, true); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	e := engine.New(reg, nil)
	if err := e.Load(m); err != nil {
		t.Fatalf("Load: %v", err)
	}

	inst, ok := e.Find("planner")
	if !ok {
		t.Fatal("no instance named planner")
	}
	_, outputsBase, ok := inst.Section(dataconn.SectionOutputs)
	if !ok {
		t.Fatal("planner has no outputs section")
	}
	bb := blackboard.PtrAt(unsafe.Add(outputsBase, unsafe.Offsetof(scratchOutputs{}.Scratch)))
	if err := blackboard.Set(bb, "target_x", 4.5); err != nil {
		t.Fatalf("Set: %v", err)
	}

	rows, err := Walk(e)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	var plannerRow *Row
	for i := range rows {
		if rows[i].Name == "planner" {
			plannerRow = &rows[i]
		}
	}
	if plannerRow == nil {
		t.Fatal("no row for planner")
	}
	if !strings.Contains(plannerRow.Outputs, "scratch.target_x=4.5") {
		t.Fatalf("Outputs = %q, want to contain scratch.target_x=4.5", plannerRow.Outputs)
	}
	if strings.Contains(plannerRow.Outputs, "<blackboard>") {
		t.Fatalf("Outputs = %q, blackboard field rendered as opaque placeholder", plannerRow.Outputs)
	}
}
