package model

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"robotick/pkg/typeregistry"
)

// Model is the fluent builder for a workload tree: which workloads
// exist, how their outputs connect to inputs, which sub-trees are
// remote, and which workload is the root the engine ticks. Building a
// Model never allocates engine memory; Finalize only validates the
// plan, and pkg/engine.Load is what turns it into a running system.
type Model struct {
	registry *typeregistry.Registry

	workloads    []*WorkloadSeed
	connections  []DataConnectionSeed
	remoteModels []*RemoteModelSeed

	root *WorkloadSeed
}

// New constructs an empty Model that validates workload type names
// against reg. Most callers want typeregistry.Global().
func New(reg *typeregistry.Registry) *Model {
	return &Model{registry: reg}
}

// Add registers a new workload seed with the model and returns it for
// further configuration via its With* methods. Add panics if called
// after SetRootWorkload, matching the original's "root must be set
// last" invariant — this is a build-time ordering mistake, not a
// recoverable runtime condition.
func (m *Model) Add(typeName, name string) *WorkloadSeed {
	if m.root != nil {
		panic("model: cannot add workloads after the root has been set")
	}
	seed := NewWorkloadSeed(typeName, name)
	m.workloads = append(m.workloads, seed)
	return seed
}

// Connect wires an output field to an input field by dotted path, e.g.
// Connect("imu.outputs.heading", "drive.inputs.heading_target"). It
// panics immediately on structurally malformed paths (the equivalent of
// the original's ROBOTICK_FATAL_EXIT at add-time), since a malformed
// literal path is a programming mistake in the calling code, not
// something recoverable at runtime.
func (m *Model) Connect(sourceFieldPath, destFieldPath string) {
	if m.root != nil {
		panic("model: cannot add connections after the root has been set")
	}
	if sourceFieldPath == "" || destFieldPath == "" {
		panic("model: connection field paths must be non-empty")
	}
	if sourceFieldPath == destFieldPath {
		panic(fmt.Sprintf("model: source and destination field paths are identical: %s", destFieldPath))
	}
	if strings.HasPrefix(sourceFieldPath, "|") {
		panic(fmt.Sprintf("model: source field paths cannot be remote: %s", sourceFieldPath))
	}
	if !strings.Contains(sourceFieldPath, ".outputs.") {
		panic(fmt.Sprintf("model: only 'outputs' fields can be data connection sources: %s", sourceFieldPath))
	}
	if strings.HasPrefix(destFieldPath, "|") {
		panic(fmt.Sprintf("model: remote destination field paths must be added via AddRemoteModel: %s", destFieldPath))
	}
	if !strings.Contains(destFieldPath, ".inputs.") {
		panic(fmt.Sprintf("model: only 'inputs' fields can be data connection destinations: %s", destFieldPath))
	}
	for _, existing := range m.connections {
		if existing.DestFieldPath == destFieldPath {
			panic(fmt.Sprintf("model: destination field already has an incoming connection: %s", destFieldPath))
		}
	}

	m.connections = append(m.connections, DataConnectionSeed{
		SourceFieldPath: sourceFieldPath,
		DestFieldPath:   destFieldPath,
	})
}

// AddRemoteModel registers a remote sub-model addressed by a
// "<mode>:<channel>" comms string, e.g. "ip:192.168.1.42:7000" or
// "uart:/dev/ttyUSB0". It panics on malformed input, and returns the
// seed so the caller can add remote data connections with ConnectRemote.
func (m *Model) AddRemoteModel(name, commsChannel string) *RemoteModelSeed {
	if name == "" {
		panic("model: add_remote_model: name must not be empty")
	}
	if commsChannel == "" {
		panic("model: add_remote_model: comms_channel must not be empty")
	}
	for _, rm := range m.remoteModels {
		if rm.ModelName == name {
			panic(fmt.Sprintf("model: a remote model named %q already exists", name))
		}
	}

	sep := strings.IndexByte(commsChannel, ':')
	if sep < 0 {
		panic(fmt.Sprintf("model: add_remote_model: invalid comms_channel %q, expected <mode>:<address>", commsChannel))
	}
	mode, address := commsChannel[:sep], commsChannel[sep+1:]

	seed := &RemoteModelSeed{ModelName: name, CommsChannel: address}
	switch mode {
	case "ip":
		seed.Mode = RemoteModeIP
	case "uart":
		seed.Mode = RemoteModeUART
	case "local":
		seed.Mode = RemoteModeLocal
	default:
		panic(fmt.Sprintf("model: add_remote_model: unsupported comms_channel mode %q", mode))
	}

	m.remoteModels = append(m.remoteModels, seed)
	return seed
}

// ConnectRemote wires a local output to an input on a remote sub-model,
// adding the connection to the remote model's own seed.
func (rm *RemoteModelSeed) ConnectRemote(sourceFieldPathLocal, destFieldPathRemote string) {
	for _, existing := range rm.Connections {
		if existing.DestFieldPath == destFieldPathRemote {
			panic(fmt.Sprintf("model: remote destination field %q already has an incoming connection", destFieldPathRemote))
		}
	}
	rm.Connections = append(rm.Connections, DataConnectionSeed{
		SourceFieldPath: sourceFieldPathLocal,
		DestFieldPath:   destFieldPathRemote,
	})
}

// SetRootWorkload designates root as the workload the engine ticks, and
// optionally finalizes the model immediately.
func (m *Model) SetRootWorkload(root *WorkloadSeed, autoFinalize bool) error {
	m.root = root
	if autoFinalize {
		return m.Finalize()
	}
	return nil
}

// Workloads returns every workload seed added to the model, in
// registration order.
func (m *Model) Workloads() []*WorkloadSeed { return m.workloads }

// Connections returns every local data connection added to the model.
func (m *Model) Connections() []DataConnectionSeed { return m.connections }

// RemoteModels returns every remote sub-model added to the model.
func (m *Model) RemoteModels() []*RemoteModelSeed { return m.remoteModels }

// Root returns the workload designated as the tick root, or nil if
// SetRootWorkload has not been called.
func (m *Model) Root() *WorkloadSeed { return m.root }

// Finalize validates the whole model and returns every validation
// failure found, aggregated with multierr rather than stopping at the
// first problem, so that a single pass over a large model surfaces its
// entire set of mistakes at once.
func (m *Model) Finalize() error {
	var errs error

	if m.root == nil {
		return fmt.Errorf("model: root workload must be set")
	}
	if m.root.TickRateHz <= 0 {
		return fmt.Errorf("model: root workload %q must have an explicit non-zero tick rate", m.root.Name)
	}

	for _, seed := range m.workloads {
		if IsCompositionTypeName(seed.TypeName) {
			continue
		}
		if _, ok := m.registry.FindWorkload(seed.TypeName); !ok {
			errs = multierr.Append(errs, fmt.Errorf("model: unable to find workload type %q for workload %q", seed.TypeName, seed.Name))
		}
	}

	errs = multierr.Append(errs, m.validateConnections(m.connections))

	for _, rm := range m.remoteModels {
		errs = multierr.Append(errs, m.validateConnections(rm.Connections))
	}

	errs = multierr.Append(errs, m.validateTickRates(m.root, m.root.TickRateHz))

	return errs
}

func (m *Model) validateConnections(conns []DataConnectionSeed) error {
	var errs error

	seenDest := make(map[string]bool, len(conns))
	for _, conn := range conns {
		source, dest := conn.SourceFieldPath, conn.DestFieldPath

		if !strings.Contains(source, ".outputs.") {
			errs = multierr.Append(errs, fmt.Errorf("model: source field path %q must use the 'outputs' structure", source))
		} else if strings.Count(source, ".") < 2 {
			errs = multierr.Append(errs, fmt.Errorf("model: malformed source field path %q, expected workload.outputs.field", source))
		}

		if !strings.Contains(dest, ".inputs.") {
			errs = multierr.Append(errs, fmt.Errorf("model: destination field path %q must use the 'inputs' structure", dest))
		} else if strings.Count(dest, ".") < 2 {
			errs = multierr.Append(errs, fmt.Errorf("model: malformed destination field path %q, expected workload.inputs.field", dest))
		}

		if seenDest[dest] {
			errs = multierr.Append(errs, fmt.Errorf("model: destination field %q already has an incoming connection", dest))
		}
		seenDest[dest] = true
	}

	return errs
}

// validateTickRates both validates and inherits tick rates: a child with
// no tick rate of its own (0 Hz) inherits its parent's rate, exactly as
// the original finalize pass does, so that a zero-rate child under a
// 100 Hz synced group is, after Finalize, itself a 100 Hz child — tests
// and the scheduler alike only ever see the resolved rate.
func (m *Model) validateTickRates(seed *WorkloadSeed, parentRate float64) error {
	var errs error
	for _, child := range seed.Children {
		if child.TickRateHz > parentRate && parentRate > 0 {
			errs = multierr.Append(errs, fmt.Errorf(
				"model: child workload %q has faster tick rate (%.2f Hz) than parent %q (%.2f Hz)",
				child.Name, child.TickRateHz, seed.Name, parentRate))
		}
		if child.TickRateHz <= 0 {
			child.TickRateHz = parentRate
		}
		errs = multierr.Append(errs, m.validateTickRates(child, child.TickRateHz))
	}
	return errs
}
