// Package model defines the declarative description of a Robotick
// workload tree: which workload types exist, how their config/inputs are
// seeded, how outputs connect to inputs, and which sub-trees live on a
// remote target. Building a Model never touches the registry's runtime
// memory; it only assembles and validates the plan that pkg/engine later
// loads into a WorkloadsBuffer.
package model

// TypeNameSequencedGroup and TypeNameSyncedGroup name the two built-in
// compositional workload types every model may use to group children,
// instead of a leaf type registered in the type registry. pkg/engine
// recognizes these two names directly rather than looking them up in
// the registry, since their behavior is a Go object with goroutines and
// a condition variable, not plain data placed in the workloads buffer.
const (
	TypeNameSequencedGroup = "SequencedGroupWorkload"
	TypeNameSyncedGroup    = "SyncedGroupWorkload"
)

// IsCompositionTypeName reports whether name is one of the two built-in
// compositional workload types rather than a leaf type that must be
// looked up in the type registry.
func IsCompositionTypeName(name string) bool {
	return name == TypeNameSequencedGroup || name == TypeNameSyncedGroup
}

// WorkloadSeed describes one node in the workload tree before it has
// been placed in memory: its registered type name, its unique name
// within the tree, its tick rate, its children, and the string-keyed
// config/input values used to hydrate its config/input struct once
// loaded.
type WorkloadSeed struct {
	TypeName   string
	Name       string
	TickRateHz float64

	Children []*WorkloadSeed

	Config map[string]string
	Inputs map[string]string
}

// NewWorkloadSeed constructs a seed for a workload of the given
// registered type and unique name, with zero tick rate (inherited by
// most composition workloads; leaf workloads generally set their own).
func NewWorkloadSeed(typeName, name string) *WorkloadSeed {
	return &WorkloadSeed{
		TypeName: typeName,
		Name:     name,
		Config:   map[string]string{},
		Inputs:   map[string]string{},
	}
}

// WithTickRate sets the workload's own tick rate in Hz and returns the
// seed for chaining.
func (s *WorkloadSeed) WithTickRate(hz float64) *WorkloadSeed {
	s.TickRateHz = hz
	return s
}

// WithChildren appends children to the workload and returns the seed for
// chaining.
func (s *WorkloadSeed) WithChildren(children ...*WorkloadSeed) *WorkloadSeed {
	s.Children = append(s.Children, children...)
	return s
}

// WithConfig sets a single config field's seed value by name and returns
// the seed for chaining. Values are stored as strings and parsed against
// the registered field type at load time, exactly as in a YAML-sourced
// config file.
func (s *WorkloadSeed) WithConfig(field, value string) *WorkloadSeed {
	s.Config[field] = value
	return s
}

// WithInput sets a single input field's seed value, for inputs that are
// constant rather than fed by a data connection.
func (s *WorkloadSeed) WithInput(field, value string) *WorkloadSeed {
	s.Inputs[field] = value
	return s
}

// DataConnectionSeed describes one output-to-input wire between two
// fields, addressed by dotted field path (e.g.
// "imu.outputs.heading" -> "drive.inputs.heading_target").
type DataConnectionSeed struct {
	SourceFieldPath string
	DestFieldPath   string
}

// RemoteMode selects the transport a RemoteModelSeed's sub-tree
// communicates over.
type RemoteMode int

const (
	// RemoteModeLocal runs the remote sub-model in-process, used in
	// tests and single-binary deployments.
	RemoteModeLocal RemoteMode = iota
	// RemoteModeIP addresses the remote sub-model over a network
	// connection, comms channel is a host:port style address.
	RemoteModeIP
	// RemoteModeUART addresses the remote sub-model over a serial
	// device, comms channel is a device path such as "/dev/ttyUSB0".
	RemoteModeUART
)

func (m RemoteMode) String() string {
	switch m {
	case RemoteModeIP:
		return "ip"
	case RemoteModeUART:
		return "uart"
	case RemoteModeLocal:
		return "local"
	default:
		return "unknown"
	}
}

// RemoteModelSeed describes a sub-tree of the workload graph that lives
// on a remote target, and the data connections that cross the
// local/remote boundary.
type RemoteModelSeed struct {
	ModelName    string
	Mode         RemoteMode
	CommsChannel string

	Connections []DataConnectionSeed
}
