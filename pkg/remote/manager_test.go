package remote

import (
	"context"
	"testing"
	"unsafe"

	"robotick/pkg/dataconn"
	"robotick/pkg/model"
	"robotick/pkg/typeregistry"
)

type fakeOutputs struct {
	Heading int32
}

type fakeInstance struct {
	name string
	desc *typeregistry.StructDescriptor
	base unsafe.Pointer
}

func (f *fakeInstance) Name() string { return f.name }
func (f *fakeInstance) ParentName() string { return "" }
func (f *fakeInstance) Section(s dataconn.Section) (*typeregistry.StructDescriptor, unsafe.Pointer, bool) {
	if s != dataconn.SectionOutputs {
		return nil, nil, false
	}
	return f.desc, f.base, true
}

func newFakeLookup(t *testing.T, reg *typeregistry.Registry, outputs *fakeOutputs) dataconn.Lookup {
	t.Helper()
	intType, ok := reg.FindTypeByName("int")
	if !ok {
		t.Fatal("int not registered")
	}
	desc := &typeregistry.StructDescriptor{
		Name: "FakeOutputs",
		Size: unsafe.Sizeof(*outputs),
		Fields: []typeregistry.FieldDescriptor{
			{Name: "heading", Offset: unsafe.Offsetof(outputs.Heading), Size: unsafe.Sizeof(int32(0)), TypeID: intType.ID},
		},
	}
	inst := &fakeInstance{name: "imu", desc: desc, base: unsafe.Pointer(outputs)}
	return func(name string) (dataconn.Instance, bool) {
		if name == "imu" {
			return inst, true
		}
		return nil, false
	}
}

// TestConnectionRoundTripOverLocalTransport drives a proactive and a
// passive Connection over NewLocalTransportPair through handshake and
// one tick exchange, checking the passive side observes the values the
// proactive side staged.
func TestConnectionRoundTripOverLocalTransport(t *testing.T) {
	a, b := NewLocalTransportPair()
	proactive := NewConnection(a, ModeProactive, nil)
	passive := NewConnection(b, ModePassive, nil)

	proactive.SetRemoteName("local-a")
	proactive.SetRequestedFields(nil)
	proactive.SetAvailableOutputs([]string{"drive.inputs.heading_target"})

	passive.SetRemoteName("local-b")

	ctx := context.Background()
	errCh := make(chan error, 2)
	go func() { errCh <- passive.Tick(ctx) }()

	proactive.StageOutbound("drive.inputs.heading_target", "42")
	if err := proactive.Tick(ctx); err != nil {
		t.Fatalf("proactive.Tick: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("passive.Tick: %v", err)
	}

	if !proactive.IsReadyForTick() || !passive.IsReadyForTick() {
		t.Fatalf("expected both sides ticking, got proactive=%v passive=%v", proactive.State(), passive.State())
	}

	v, ok := passive.Inbound("drive.inputs.heading_target")
	if !ok || v != "42" {
		t.Fatalf("passive.Inbound = %q, %v; want \"42\", true", v, ok)
	}
}

// TestRemoteModelStagesBoundFieldsOverLocalTransport verifies that a
// RemoteModel renders a bound local output field to text and the other
// side of a local-transport pair observes it after one Tick.
func TestRemoteModelStagesBoundFieldsOverLocalTransport(t *testing.T) {
	reg := typeregistry.NewRegistry()
	typeregistry.RegisterPrimitives(reg)

	outputs := &fakeOutputs{Heading: 7}
	lookup := newFakeLookup(t, reg, outputs)

	a, b := NewLocalTransportPair()
	local := NewConnection(a, ModeProactive, nil)
	remoteSide := NewConnection(b, ModePassive, nil)

	rm, err := NewRemoteModel("arm", local, reg, lookup,
		[]dataconn.SeedPair{{Source: "imu.outputs.heading", Dest: "drive.inputs.heading_target"}}, nil)
	if err != nil {
		t.Fatalf("NewRemoteModel: %v", err)
	}

	ctx := context.Background()
	errCh := make(chan error, 1)
	go func() { errCh <- remoteSide.Tick(ctx) }()

	if err := rm.Tick(ctx); err != nil {
		t.Fatalf("RemoteModel.Tick: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("remoteSide.Tick: %v", err)
	}

	v, ok := remoteSide.Inbound("drive.inputs.heading_target")
	if !ok || v != "7" {
		t.Fatalf("remoteSide.Inbound = %q, %v; want \"7\", true", v, ok)
	}
	if !rm.IsReady() {
		t.Fatal("expected RemoteModel to be ready after one tick")
	}
}

// TestDialTransportRejectsLocalMode confirms RemoteModeLocal cannot be
// dialed standalone, since its two ends must be constructed together.
func TestDialTransportRejectsLocalMode(t *testing.T) {
	if _, err := DialTransport(model.RemoteModeLocal, "ignored"); err == nil {
		t.Fatal("expected error for RemoteModeLocal")
	}
	if _, err := DialTransport(model.RemoteModeIP, "127.0.0.1:0"); err != nil {
		t.Fatalf("DialTransport(IP): %v", err)
	}
}
