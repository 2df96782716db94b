package dataconn

import (
	"fmt"
	"unsafe"

	"robotick/pkg/blackboard"
	"robotick/pkg/typeid"
	"robotick/pkg/typeregistry"
)

// Instance is the minimal view the resolver needs of a loaded workload
// instance: its base pointer and the struct descriptor for each of its
// three sections. pkg/engine's Instance implements this.
type Instance interface {
	Name() string
	Section(s Section) (desc *typeregistry.StructDescriptor, base unsafe.Pointer, ok bool)
	// ParentName returns the unique name of this instance's direct
	// parent in the workload tree, or "" for the root. Resolve does not
	// call it; Handlers are assigned by the composition groups from each
	// connection's destination workload name.
	ParentName() string
}

// Lookup resolves a workload's unique name to its Instance view.
type Lookup func(name string) (Instance, bool)

// Handler classifies how a resolved connection should be propagated at
// tick time.
type Handler int

const (
	// HandlerUnassigned means no scheduler component has claimed this
	// connection yet.
	HandlerUnassigned Handler = iota
	// HandlerSequencedGroup means a sequenced group ticks this
	// connection itself, copying source to destination between its
	// children's ticks in declared order.
	HandlerSequencedGroup
	// HandlerDelegateToParent means this connection's destination is a
	// direct child of a synced group, which cannot copy into its
	// free-running children itself; the engine copies it once per root
	// tick instead.
	HandlerDelegateToParent
)

// Info is a fully resolved data connection: raw pointers into the
// workloads buffer, the size to copy, and the type the copy must
// preserve. A scheduler copies Size bytes from Source to Dest on
// whichever tick boundary its Handler says it owns.
type Info struct {
	SourcePath Path
	DestPath   Path

	Source unsafe.Pointer
	Dest   unsafe.Pointer
	Size   uintptr
	TypeID typeid.ID

	Handler Handler
}

// Resolve resolves every seed path pair against lookup, validating
// type/size compatibility and destination uniqueness. It mirrors the
// original DataConnectionResolver::resolve, extended to support 4-token
// paths into a blackboard sub-field or into one field of a registered
// struct.
func Resolve(reg *typeregistry.Registry, pairs []SeedPair, lookup Lookup) ([]Info, error) {
	results := make([]Info, 0, len(pairs))
	seenDest := make(map[string]bool, len(pairs))

	for _, pair := range pairs {
		src, err := ParsePath(pair.Source)
		if err != nil {
			return nil, err
		}
		dst, err := ParsePath(pair.Dest)
		if err != nil {
			return nil, err
		}

		srcPtr, srcSize, srcType, err := resolveEndpoint(reg, lookup, src)
		if err != nil {
			return nil, fmt.Errorf("dataconn: source %s: %w", src, err)
		}
		dstPtr, dstSize, dstType, err := resolveEndpoint(reg, lookup, dst)
		if err != nil {
			return nil, fmt.Errorf("dataconn: destination %s: %w", dst, err)
		}

		if srcType != dstType {
			return nil, fmt.Errorf("dataconn: type mismatch between %s and %s", src, dst)
		}
		if srcSize != dstSize {
			return nil, fmt.Errorf("dataconn: size mismatch between %s and %s", src, dst)
		}

		key := dst.String()
		if seenDest[key] {
			return nil, fmt.Errorf("dataconn: duplicate destination field: %s", key)
		}
		seenDest[key] = true

		results = append(results, Info{
			SourcePath: src,
			DestPath:   dst,
			Source:     srcPtr,
			Dest:       dstPtr,
			Size:       srcSize,
			TypeID:     srcType,
			Handler:    HandlerUnassigned,
		})
	}

	return results, nil
}

// SeedPair is the (source, dest) raw path pair a model-level
// DataConnectionSeed reduces to; kept independent of pkg/model so
// dataconn has no import-cycle risk.
type SeedPair struct {
	Source string
	Dest   string
}

func resolveEndpoint(reg *typeregistry.Registry, lookup Lookup, p Path) (unsafe.Pointer, uintptr, typeid.ID, error) {
	inst, ok := lookup(p.WorkloadName)
	if !ok {
		return nil, 0, typeid.Invalid, fmt.Errorf("unknown workload %q", p.WorkloadName)
	}

	sd, base, ok := inst.Section(p.Section)
	if !ok || sd == nil {
		return nil, 0, typeid.Invalid, fmt.Errorf("workload %q has no %s section", p.WorkloadName, p.Section)
	}

	field, ok := sd.FindField(p.Field)
	if !ok {
		return nil, 0, typeid.Invalid, fmt.Errorf("field %q not found", p.Field)
	}

	fieldPtr := field.FieldAt(base)

	if !p.HasSubField() {
		return fieldPtr, field.Size, field.TypeID, nil
	}

	blackboardTypeID := typeid.FromName(blackboard.FieldTypeName)
	if field.TypeID == blackboardTypeID {
		bb := blackboard.PtrAt(fieldPtr)
		if bb == nil {
			return nil, 0, typeid.Invalid, fmt.Errorf("blackboard field %q has not been bound", p.Field)
		}

		subPtr, desc, ok := bb.FieldPtr(p.SubField)
		if !ok {
			return nil, 0, typeid.Invalid, fmt.Errorf("blackboard field %q has no sub-field %q", p.Field, p.SubField)
		}

		return subPtr, desc.Size, desc.ID, nil
	}

	// A non-blackboard field with a sub-field path addresses one element
	// of an ordinary registered struct (e.g. out_vec3.x on a Vec3 output)
	// through the same FindField lookup used for the top-level case.
	sub, ok := reg.FindStruct(field.TypeID)
	if !ok {
		return nil, 0, typeid.Invalid, fmt.Errorf("field %q is neither a blackboard nor a registered struct, cannot address sub-field %q", p.Field, p.SubField)
	}

	subField, ok := sub.FindField(p.SubField)
	if !ok {
		return nil, 0, typeid.Invalid, fmt.Errorf("struct field %q has no sub-field %q", p.Field, p.SubField)
	}

	return subField.FieldAt(fieldPtr), subField.Size, subField.TypeID, nil
}
