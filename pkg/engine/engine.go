package engine

import (
	"fmt"
	"strconv"
	"unsafe"

	"go.uber.org/zap"

	"robotick/pkg/buffer"
	"robotick/pkg/composition"
	"robotick/pkg/dataconn"
	"robotick/pkg/model"
	"robotick/pkg/typeregistry"
)

// Engine owns a loaded workload tree: the workloads buffer every leaf
// instance lives in, the blackboard datablock buffer bound during load,
// the full set of resolved data connections, and the compositional
// group tree that drives ticking. It is built once by Load and then
// driven through Start/Run/Stop.
type Engine struct {
	registry *typeregistry.Registry
	logger   *zap.Logger

	workloadsBuf   *buffer.Buffer
	blackboardsBuf *buffer.Buffer

	byName    map[string]*Instance
	instances []*Instance // DFS preorder, every instance including compositional ones

	root *Instance

	connections []*dataconn.Info
}

// New constructs an unloaded Engine. logger may be nil, in which case
// diagnostics (tick overruns, best-effort affinity failures) are
// silently dropped.
func New(reg *typeregistry.Registry, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{registry: reg, logger: logger, byName: make(map[string]*Instance)}
}

// Root returns the instance the engine ticks, or nil before Load.
func (e *Engine) Root() *Instance { return e.root }

// Find looks up a loaded instance by its unique name.
func (e *Engine) Find(name string) (*Instance, bool) {
	inst, ok := e.byName[name]
	return inst, ok
}

// Instances returns every loaded instance (leaf and compositional) in
// depth-first declaration order.
func (e *Engine) Instances() []*Instance { return e.instances }

// Registry returns the type registry the engine was constructed with,
// used by external consumers (pkg/telemetry) to render field values.
func (e *Engine) Registry() *typeregistry.Registry { return e.registry }

// BlackboardBytesUsed reports the total size of the second buffer
// carved out for dynamic blackboard fields during Load, for callers
// that want to check it against a configured soft budget (see
// platform.Profile.MaxBlackboardsBytes). Zero before Load or for a
// tree with no dynamic fields.
func (e *Engine) BlackboardBytesUsed() int {
	if e.blackboardsBuf == nil {
		return 0
	}
	return e.blackboardsBuf.Len()
}

// Load builds the full workload tree from m: places every leaf
// instance's config/input/output structs in a single workloads buffer,
// runs each lifecycle pass in order (construct, pre_load, bind dynamic
// fields, hydrate config and constant inputs, load, resolve
// connections, compose and classify, setup), and leaves the engine
// ready for Start. m must already have passed model.Model.Finalize.
func (e *Engine) Load(m *model.Model) error {
	root := m.Root()
	if root == nil {
		return fmt.Errorf("engine: model has no root workload")
	}

	// Pass 1: plan. Walk the seed tree depth-first, creating one
	// Instance per seed and reserving workloads-buffer placement for
	// every leaf. Compositional seeds (SequencedGroupWorkload,
	// SyncedGroupWorkload) reserve nothing: their behavior lives in a
	// plain Go object outside the buffer, not in packed bytes, since
	// they hold a sync.Cond and goroutines rather than plain data.
	var planner buffer.Planner
	var leaves []*Instance

	var plan func(seed *model.WorkloadSeed, parent *Instance) (*Instance, error)
	plan = func(seed *model.WorkloadSeed, parent *Instance) (*Instance, error) {
		if _, exists := e.byName[seed.Name]; exists {
			return nil, fmt.Errorf("engine: duplicate workload name %q", seed.Name)
		}

		inst := &Instance{name: seed.Name, seed: seed, parent: parent}

		switch seed.TypeName {
		case model.TypeNameSequencedGroup:
			inst.kind = kindSequencedGroup
		case model.TypeNameSyncedGroup:
			inst.kind = kindSyncedGroup
		default:
			desc, ok := e.registry.FindWorkload(seed.TypeName)
			if !ok {
				return nil, fmt.Errorf("engine: unknown workload type %q for workload %q", seed.TypeName, seed.Name)
			}
			inst.kind = kindLeaf
			inst.descriptor = desc
			placement := planner.Reserve(desc.Size, desc.Alignment)
			inst.offset = placement.Offset
			leaves = append(leaves, inst)
		}

		e.byName[seed.Name] = inst
		e.instances = append(e.instances, inst)

		for _, childSeed := range seed.Children {
			child, err := plan(childSeed, inst)
			if err != nil {
				return nil, err
			}
			inst.children = append(inst.children, child)
		}
		return inst, nil
	}

	rootInst, err := plan(root, nil)
	if err != nil {
		return err
	}
	e.root = rootInst

	// Pass 2: allocate. Every leaf's offset is now final; nothing after
	// this point may change the workloads buffer's size, since doing so
	// would invalidate every pointer already computed from it.
	e.workloadsBuf = buffer.New(planner.Total())
	for _, leaf := range leaves {
		leaf.ptr = e.workloadsBuf.At(leaf.offset)
	}

	// Pass 3: construct.
	for _, leaf := range leaves {
		if leaf.descriptor.Construct != nil {
			leaf.descriptor.Construct(leaf.ptr)
		}
	}

	// Pass 4: pre_load. This is where a workload implementing
	// typeregistry.DynamicFieldOwner declares its blackboard fields, so
	// their sizes are known before pass 5 carves their storage.
	for _, leaf := range leaves {
		if leaf.descriptor.PreLoadFn != nil {
			leaf.descriptor.PreLoadFn(leaf.ptr)
		}
	}

	// Pass 5: bind dynamic fields. Collected into a second, independent
	// buffer rather than grown onto the end of the workloads buffer,
	// since Go cannot reallocate a slice in place without invalidating
	// every unsafe.Pointer already handed out to leaf instances in pass
	// 2 — see DESIGN.md.
	type regionBinding struct {
		region typeregistry.BindableRegion
		offset uintptr
	}
	var bindings []regionBinding
	var bbPlanner buffer.Planner
	for _, leaf := range leaves {
		if leaf.descriptor.DynamicFieldsFn == nil {
			continue
		}
		for _, region := range leaf.descriptor.DynamicFieldsFn(leaf.ptr) {
			placement := bbPlanner.Reserve(region.DatablockSize(), 0)
			bindings = append(bindings, regionBinding{region: region, offset: placement.Offset})
		}
	}
	e.blackboardsBuf = buffer.New(bbPlanner.Total())
	for _, b := range bindings {
		b.region.Bind(e.blackboardsBuf.At(b.offset), b.offset)
	}

	// Pass 6: hydrate config and constant inputs from the seed's
	// string-keyed maps, parsed against each field's registered type.
	for _, leaf := range leaves {
		if err := e.hydrateSection(leaf, dataconn.SectionConfig, leaf.descriptor.ConfigStruct, leaf.descriptor.ConfigOffset, leaf.seed.Config); err != nil {
			return err
		}
		if err := e.hydrateSection(leaf, dataconn.SectionInputs, leaf.descriptor.InputStruct, leaf.descriptor.InputOffset, leaf.seed.Inputs); err != nil {
			return err
		}
	}

	// Pass 7: load.
	for _, leaf := range leaves {
		if leaf.descriptor.LoadFn != nil {
			leaf.descriptor.LoadFn(leaf.ptr)
		}
	}

	// Pass 8: resolve connections.
	pairs := make([]dataconn.SeedPair, 0, len(m.Connections()))
	for _, c := range m.Connections() {
		pairs = append(pairs, dataconn.SeedPair{Source: c.SourceFieldPath, Dest: c.DestFieldPath})
	}
	lookup := func(name string) (dataconn.Instance, bool) {
		inst, ok := e.byName[name]
		return inst, ok
	}
	resolved, err := dataconn.Resolve(e.registry, pairs, lookup)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	e.connections = make([]*dataconn.Info, len(resolved))
	for i := range resolved {
		e.connections[i] = &resolved[i]
	}

	// Pass 9: set_children. Build the compositional group objects from
	// the instance tree computed in pass 1 and let each one claim the
	// connections whose destination is one of its direct children.
	// Claim order across groups does not affect the outcome (names are
	// unique process-wide and claiming is idempotent), but is done
	// post-order — children's groups before their parent's — to mirror
	// the original's depth-first set_children recursion.
	var compose func(inst *Instance) error
	compose = func(inst *Instance) error {
		for _, child := range inst.children {
			if err := compose(child); err != nil {
				return err
			}
		}
		switch inst.kind {
		case kindSequencedGroup:
			group := composition.NewSequencedGroup(e.logger)
			children := make([]*composition.Child, 0, len(inst.children))
			for _, c := range inst.children {
				children = append(children, &composition.Child{Name: c.name, Ptr: c.ptr, Tick: c.tickFunc()})
			}
			group.SetChildren(children)
			group.ClaimConnections(e.connections)
			inst.seqGroup = group
		case kindSyncedGroup:
			affinity := -1
			if v, ok := inst.seed.Config["cpu_affinity"]; ok {
				if parsed, err := strconv.Atoi(v); err == nil {
					affinity = parsed
				}
			}
			group := composition.NewSyncedGroup(e.logger, affinity)
			children := make([]*composition.SyncedChild, 0, len(inst.children))
			for _, c := range inst.children {
				children = append(children, &composition.SyncedChild{
					Child:      composition.Child{Name: c.name, Ptr: c.ptr, Tick: c.tickFunc()},
					TickRateHz: c.seed.TickRateHz,
				})
			}
			group.SetChildren(children)
			group.ClaimConnections(e.connections)
			inst.syncGroup = group
		}
		return nil
	}
	if err := compose(e.root); err != nil {
		return err
	}

	for _, conn := range e.connections {
		if conn.Handler == dataconn.HandlerUnassigned {
			e.logger.Warn("data connection has no owning composition group",
				zap.String("source", conn.SourcePath.String()),
				zap.String("dest", conn.DestPath.String()))
		}
	}

	// Pass 10: setup, post-order (children before their parent).
	var setup func(inst *Instance)
	setup = func(inst *Instance) {
		for _, child := range inst.children {
			setup(child)
		}
		if inst.kind == kindLeaf && inst.descriptor.SetupFn != nil {
			inst.descriptor.SetupFn(inst.ptr)
		}
	}
	setup(e.root)

	return nil
}

func (e *Engine) hydrateSection(leaf *Instance, section dataconn.Section, sd *typeregistry.StructDescriptor, structOffset uintptr, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	if sd == nil {
		return fmt.Errorf("engine: workload %q has no %s struct to hydrate", leaf.name, section)
	}
	base := unsafe.Add(leaf.ptr, structOffset)
	for key, value := range values {
		field, ok := sd.FindField(key)
		if !ok {
			return fmt.Errorf("engine: workload %q has no %s field %q", leaf.name, section, key)
		}
		td, ok := e.registry.FindTypeByID(field.TypeID)
		if !ok {
			return fmt.Errorf("engine: workload %q field %q has unregistered type", leaf.name, key)
		}
		if !td.FromString(value, field.FieldAt(base)) {
			return fmt.Errorf("engine: workload %q field %q: cannot parse %q as %s", leaf.name, key, value, td.Name)
		}
	}
	return nil
}
