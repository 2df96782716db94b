package main

import (
	"errors"
	"math"
	"unsafe"

	"robotick/pkg/model"
	"robotick/pkg/typeregistry"
)

var errFloatTypeNotRegistered = errors.New("cmd/robotick: double type not registered")

// The demo workload types below play the role of the original's
// examples/desktop-testbed/desktop_testbed_main.cpp: the model-builder
// DSL itself is out of scope for the core, but a runnable binary needs
// *something* to load and tick. A sensor leaf produces an oscillating
// heading reading; an actuator leaf consumes it through an ordinary
// output-to-input data connection and reports how far it has turned
// toward the target.

type sensorConfig struct {
	AmplitudeDeg float64
}

type sensorOutputs struct {
	HeadingDeg float64
}

type demoSensor struct {
	Config  sensorConfig
	Outputs sensorOutputs

	elapsed float64
}

func (s *demoSensor) Tick(dtSeconds float64) {
	s.elapsed += dtSeconds
	s.Outputs.HeadingDeg = s.Config.AmplitudeDeg * math.Sin(s.elapsed)
}

type actuatorInputs struct {
	HeadingTargetDeg float64
}

type actuatorOutputs struct {
	HeadingDeg float64
}

type demoActuator struct {
	Inputs  actuatorInputs
	Outputs actuatorOutputs
}

func (a *demoActuator) Tick(dtSeconds float64) {
	const slewRatePerSecond = 45.0
	delta := a.Inputs.HeadingTargetDeg - a.Outputs.HeadingDeg
	maxStep := slewRatePerSecond * dtSeconds
	switch {
	case delta > maxStep:
		delta = maxStep
	case delta < -maxStep:
		delta = -maxStep
	}
	a.Outputs.HeadingDeg += delta
}

// registerDemoWorkloads registers the sensor/actuator leaf types used by
// buildDemoModel into reg, alongside whatever leaf types the caller has
// already registered.
func registerDemoWorkloads(reg *typeregistry.Registry) error {
	floatType, ok := reg.FindTypeByName("double")
	if !ok {
		return errFloatTypeNotRegistered
	}

	sensorConfigDesc := &typeregistry.StructDescriptor{
		Name: "DemoSensorConfig",
		Size: unsafe.Sizeof(sensorConfig{}),
		Fields: []typeregistry.FieldDescriptor{
			{Name: "amplitude_deg", Offset: unsafe.Offsetof(sensorConfig{}.AmplitudeDeg), Size: unsafe.Sizeof(float64(0)), TypeID: floatType.ID},
		},
	}
	sensorOutputsDesc := &typeregistry.StructDescriptor{
		Name: "DemoSensorOutputs",
		Size: unsafe.Sizeof(sensorOutputs{}),
		Fields: []typeregistry.FieldDescriptor{
			{Name: "heading_deg", Offset: unsafe.Offsetof(sensorOutputs{}.HeadingDeg), Size: unsafe.Sizeof(float64(0)), TypeID: floatType.ID},
		},
	}
	sensorDesc := typeregistry.RegisterWorkload[demoSensor](reg, "DemoSensor", func(unsafe.Pointer) {}, nil)
	sensorDesc.WithConfigStruct(sensorConfigDesc, unsafe.Offsetof(demoSensor{}.Config))
	sensorDesc.WithOutputStruct(sensorOutputsDesc, unsafe.Offsetof(demoSensor{}.Outputs))

	actuatorInputsDesc := &typeregistry.StructDescriptor{
		Name: "DemoActuatorInputs",
		Size: unsafe.Sizeof(actuatorInputs{}),
		Fields: []typeregistry.FieldDescriptor{
			{Name: "heading_target_deg", Offset: unsafe.Offsetof(actuatorInputs{}.HeadingTargetDeg), Size: unsafe.Sizeof(float64(0)), TypeID: floatType.ID},
		},
	}
	actuatorOutputsDesc := &typeregistry.StructDescriptor{
		Name: "DemoActuatorOutputs",
		Size: unsafe.Sizeof(actuatorOutputs{}),
		Fields: []typeregistry.FieldDescriptor{
			{Name: "heading_deg", Offset: unsafe.Offsetof(actuatorOutputs{}.HeadingDeg), Size: unsafe.Sizeof(float64(0)), TypeID: floatType.ID},
		},
	}
	actuatorDesc := typeregistry.RegisterWorkload[demoActuator](reg, "DemoActuator", func(unsafe.Pointer) {}, nil)
	actuatorDesc.WithInputStruct(actuatorInputsDesc, unsafe.Offsetof(demoActuator{}.Inputs))
	actuatorDesc.WithOutputStruct(actuatorOutputsDesc, unsafe.Offsetof(demoActuator{}.Outputs))

	return nil
}

// buildDemoModel assembles a small two-leaf tree: a sensor ticking at
// the configured rate feeding an actuator that tracks its heading.
func buildDemoModel(reg *typeregistry.Registry, tickRateHz float64) (*model.Model, error) {
	if err := registerDemoWorkloads(reg); err != nil {
		return nil, err
	}

	m := model.New(reg)

	sensor := m.Add("DemoSensor", "sensor").
		WithTickRate(tickRateHz).
		WithConfig("amplitude_deg", "30")
	actuator := m.Add("DemoActuator", "actuator").
		WithTickRate(tickRateHz)

	m.Connect("sensor.outputs.heading_deg", "actuator.inputs.heading_target_deg")

	root := m.Add(model.TypeNameSequencedGroup, "root").
		WithTickRate(tickRateHz).
		WithChildren(sensor, actuator)

	if err := m.SetRootWorkload(root, true); err != nil {
		return nil, err
	}
	return m, nil
}
