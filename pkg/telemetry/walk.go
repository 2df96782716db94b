// Package telemetry iterates the fields of a live engine.Engine and
// renders their current values to text, the Go analogue of the
// original's ConsoleTelemetryTable: a single walk producing a flat list
// of rows, with no opinion on how those rows get displayed or shipped.
// Console and HTTP/JSON rendering are separate, genuinely optional
// consumers built on top of Walk (pkg/telemetryhttp and cmd/robotick).
package telemetry

import (
	"fmt"
	"strings"

	"robotick/pkg/blackboard"
	"robotick/pkg/dataconn"
	"robotick/pkg/engine"
	"robotick/pkg/typeid"
	"robotick/pkg/typeregistry"
)

// FieldValue is one rendered field within a section: its declared name
// and its current value as text.
type FieldValue struct {
	Name  string
	Value string
}

// Row is one workload instance's telemetry snapshot: its identity, its
// three sections (both as a joined summary string and as individual
// fields), and its most recent tick timing — the Go analogue of the
// original's ConsoleTelemetryRow, extended with structured per-field
// access for consumers (pkg/telemetryhttp) that want to build their own
// documents rather than parse the summary string.
type Row struct {
	TypeName string
	Name     string

	Config  string
	Inputs  string
	Outputs string

	ConfigFields  []FieldValue
	InputsFields  []FieldValue
	OutputsFields []FieldValue

	TickDurationMs float64
	TickDeltaMs    float64
	GoalIntervalMs float64
}

// Walk renders every instance in eng to a Row, in the same depth-first
// order eng.Instances() reports them. Compositional instances (sequenced
// and synced groups) have no config/input/output sections of their own,
// so their section fields are empty.
func Walk(eng *engine.Engine) ([]Row, error) {
	reg := eng.Registry()
	rows := make([]Row, 0, len(eng.Instances()))

	for _, inst := range eng.Instances() {
		row := Row{
			TypeName:       inst.Seed().TypeName,
			Name:           inst.Name(),
			TickDurationMs: float64(inst.Stats.LastTickDuration().Microseconds()) / 1000.0,
			TickDeltaMs:    float64(inst.Stats.LastTimeDelta().Microseconds()) / 1000.0,
		}
		if rate := inst.Seed().TickRateHz; rate > 0 {
			row.GoalIntervalMs = 1000.0 / rate
		}

		var err error
		if row.ConfigFields, err = renderSection(reg, inst, dataconn.SectionConfig); err != nil {
			return nil, err
		}
		if row.InputsFields, err = renderSection(reg, inst, dataconn.SectionInputs); err != nil {
			return nil, err
		}
		if row.OutputsFields, err = renderSection(reg, inst, dataconn.SectionOutputs); err != nil {
			return nil, err
		}
		row.Config = joinFields(row.ConfigFields)
		row.Inputs = joinFields(row.InputsFields)
		row.Outputs = joinFields(row.OutputsFields)

		rows = append(rows, row)
	}
	return rows, nil
}

// renderSection renders every field of one section of inst. It returns
// nil for a compositional instance or a section the workload type does
// not declare.
func renderSection(reg *typeregistry.Registry, inst *engine.Instance, section dataconn.Section) ([]FieldValue, error) {
	sd, base, ok := inst.Section(section)
	if !ok {
		return nil, nil
	}

	blackboardTypeID := typeid.FromName(blackboard.FieldTypeName)

	fields := make([]FieldValue, 0, len(sd.Fields))
	for _, field := range sd.Fields {
		if field.TypeID == blackboardTypeID {
			bbFields, err := renderBlackboardFields(inst.Name(), field.Name, blackboard.PtrAt(field.FieldAt(base)))
			if err != nil {
				return nil, err
			}
			fields = append(fields, bbFields...)
			continue
		}

		td, ok := reg.FindTypeByID(field.TypeID)
		if !ok {
			return nil, fmt.Errorf("telemetry: workload %q field %q has unregistered type", inst.Name(), field.Name)
		}
		str, ok := td.ToString(field.FieldAt(base))
		if !ok {
			return nil, fmt.Errorf("telemetry: workload %q field %q could not be rendered", inst.Name(), field.Name)
		}
		fields = append(fields, FieldValue{Name: field.Name, Value: str})
	}
	return fields, nil
}

// renderBlackboardFields enumerates a bound blackboard's declared
// sub-fields as individual FieldValues, named "<field>.<subfield>" so
// they read alongside their owning field rather than collapsing to the
// opaque "<blackboard>" placeholder blackboard.FieldTypeName's own
// ToString renders. An unbound blackboard (nil) yields no fields.
func renderBlackboardFields(instName, fieldName string, bb *blackboard.Blackboard) ([]FieldValue, error) {
	if bb == nil {
		return nil, nil
	}

	fields := make([]FieldValue, 0, len(bb.Fields()))
	for _, sub := range bb.Fields() {
		ptr, td, ok := bb.FieldPtr(sub.Name)
		if !ok {
			return nil, fmt.Errorf("telemetry: workload %q blackboard field %q has no sub-field %q", instName, fieldName, sub.Name)
		}
		str, ok := td.ToString(ptr)
		if !ok {
			return nil, fmt.Errorf("telemetry: workload %q blackboard field %q.%q could not be rendered", instName, fieldName, sub.Name)
		}
		fields = append(fields, FieldValue{Name: fieldName + "." + sub.Name, Value: str})
	}
	return fields, nil
}

func joinFields(fields []FieldValue) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.Name+"="+f.Value)
	}
	return strings.Join(parts, ", ")
}
