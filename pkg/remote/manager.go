package remote

import (
	"context"
	"fmt"
	"unsafe"

	"go.uber.org/zap"

	"robotick/pkg/dataconn"
	"robotick/pkg/typeregistry"
)

// Binding is one local field feeding a remote sub-model's input,
// resolved once at load time so Tick never re-parses a field path.
type Binding struct {
	LocalPath  string
	RemotePath string

	ptr  unsafe.Pointer
	desc *typeregistry.TypeDescriptor
}

// RemoteModel drives one RemoteModelSeed's Connection: every Tick it
// renders each bound local field to text and stages it for the next
// tick-exchange frame, keyed by the remote field path the far side
// expects (RemoteModelSeed.ConnectRemote only wires local-output ->
// remote-input, so this is one-directional; Connection.Inbound is kept
// available for a future remote-output -> local-input extension).
type RemoteModel struct {
	name string
	conn *Connection

	bindings []Binding
	logger   *zap.Logger
}

// NewRemoteModel constructs a RemoteModel named name, driven over conn,
// with bindings resolved against the local workload tree via lookup
// (ordinarily pkg/engine's instance-name lookup).
func NewRemoteModel(name string, conn *Connection, reg *typeregistry.Registry, lookup dataconn.Lookup, connections []dataconn.SeedPair, logger *zap.Logger) (*RemoteModel, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	bindings := make([]Binding, 0, len(connections))
	requested := make([]string, 0, len(connections))
	for _, pair := range connections {
		// The destination lives on the remote engine, so it cannot be
		// resolved locally: resolve the source against itself on both
		// sides of dataconn.Resolve purely to reuse its field-path ->
		// pointer/type resolution machinery.
		infos, err := dataconn.Resolve(reg, []dataconn.SeedPair{{Source: pair.Source, Dest: pair.Source}}, lookup)
		if err != nil {
			return nil, fmt.Errorf("remote: model %q: resolve local field %q: %w", name, pair.Source, err)
		}
		info := infos[0]
		desc, ok := reg.FindTypeByID(info.TypeID)
		if !ok {
			return nil, fmt.Errorf("remote: model %q: no type descriptor for field %q", name, pair.Source)
		}

		bindings = append(bindings, Binding{
			LocalPath:  pair.Source,
			RemotePath: pair.Dest,
			ptr:        info.Source,
			desc:       desc,
		})
		requested = append(requested, pair.Dest)
	}

	conn.SetRemoteName(name)
	conn.SetRequestedFields(requested)

	return &RemoteModel{name: name, conn: conn, bindings: bindings, logger: logger}, nil
}

// Tick snapshots every bound local field and drives the underlying
// Connection one state-machine step.
func (rm *RemoteModel) Tick(ctx context.Context) error {
	for _, b := range rm.bindings {
		str, ok := b.desc.ToString(b.ptr)
		if !ok {
			return fmt.Errorf("remote: model %q: field %q could not be rendered as text", rm.name, b.LocalPath)
		}
		rm.conn.StageOutbound(b.RemotePath, str)
	}

	if err := rm.conn.Tick(ctx); err != nil {
		rm.logger.Warn("remote: tick failed", zap.String("remote", rm.name), zap.Error(err))
		return err
	}
	return nil
}

// Name returns the remote model's unique name.
func (rm *RemoteModel) Name() string { return rm.name }

// IsReady reports whether the underlying connection has completed its
// handshake and is exchanging tick frames.
func (rm *RemoteModel) IsReady() bool { return rm.conn.IsReadyForTick() }

// Manager drives every RemoteModel in a loaded Model once per engine
// tick, the Go analogue of the original's RemoteEngineConnections
// aggregate — deliberately scoped down to a plain slice with no UDP
// peer discovery, since discovery itself is explicitly out of scope
// (see DESIGN.md).
type Manager struct {
	models []*RemoteModel
	logger *zap.Logger
}

// NewManager constructs an empty Manager.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{logger: logger}
}

// Add registers a RemoteModel to be driven by every future Tick call.
func (m *Manager) Add(rm *RemoteModel) { m.models = append(m.models, rm) }

// Models returns every registered RemoteModel.
func (m *Manager) Models() []*RemoteModel { return m.models }

// Tick drives every registered RemoteModel once, collecting (not
// stopping on) individual failures so one unreachable remote never
// blocks the others.
func (m *Manager) Tick(ctx context.Context) []error {
	var errs []error
	for _, rm := range m.models {
		if err := rm.Tick(ctx); err != nil {
			errs = append(errs, fmt.Errorf("remote: %s: %w", rm.Name(), err))
		}
	}
	return errs
}
