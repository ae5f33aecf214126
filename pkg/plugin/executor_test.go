package plugin

import (
	"testing"
	"time"

	"github.com/kmdouglass/kpal/pkg/value"
)

func newTestExecutor(attrs []AttributeDescriptor) (*Executor, *fakeInvoker) {
	inv := newFakeInvoker(attrs)
	declared := make(map[uint32]value.Tag, len(attrs))
	for _, a := range attrs {
		declared[a.ID] = a.Variant
	}
	return NewExecutor(inv, declared), inv
}

func awaitReply(t *testing.T, ch <-chan Reply) Reply {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for reply")
		return Reply{}
	}
}

func TestExecutorGetAttribute(t *testing.T) {
	exec, _ := newTestExecutor([]AttributeDescriptor{
		{ID: 1, Name: "temperature", Value: value.NewDouble(21.5)},
	})
	defer exec.Close()

	reply := NewReplyChan()
	exec.Send(NewGetAttribute(1, reply))

	r := awaitReply(t, reply)
	if r.Err != nil {
		t.Fatalf("GetAttribute error = %v", r.Err)
	}
	if r.Attribute.Value.Double != 21.5 {
		t.Errorf("GetAttribute value = %v, want 21.5", r.Attribute.Value)
	}
}

func TestExecutorGetAttributeNotFound(t *testing.T) {
	exec, _ := newTestExecutor(nil)
	defer exec.Close()

	reply := NewReplyChan()
	exec.Send(NewGetAttribute(99, reply))

	r := awaitReply(t, reply)
	perr, ok := r.Err.(*Error)
	if !ok || !perr.IsNotFound() {
		t.Fatalf("GetAttribute(99) error = %v, want IsNotFound", r.Err)
	}
}

func TestExecutorSetAttributeFastRejectsTypeMismatch(t *testing.T) {
	exec, inv := newTestExecutor([]AttributeDescriptor{
		{ID: 1, Name: "enabled", Variant: value.Int, Value: value.NewInt(0)},
	})
	defer exec.Close()

	reply := NewReplyChan()
	exec.Send(NewSetAttribute(1, value.NewString("oops"), value.Int, reply))

	r := awaitReply(t, reply)
	perr, ok := r.Err.(*Error)
	if !ok || !perr.IsTypeMismatch() {
		t.Fatalf("SetAttribute type mismatch error = %v, want IsTypeMismatch", r.Err)
	}
	if inv.setCalls != 0 {
		t.Error("fast-rejected write must never enter the plugin")
	}
}

func TestExecutorSetAttributeRereadsPostCondition(t *testing.T) {
	exec, _ := newTestExecutor([]AttributeDescriptor{
		{ID: 1, Name: "setpoint", Variant: value.Double, Value: value.NewDouble(0)},
	})
	defer exec.Close()

	reply := NewReplyChan()
	exec.Send(NewSetAttribute(1, value.NewDouble(42), value.Double, reply))

	r := awaitReply(t, reply)
	if r.Err != nil {
		t.Fatalf("SetAttribute error = %v", r.Err)
	}
	if r.Attribute.Value.Double != 42 {
		t.Errorf("SetAttribute re-read = %v, want 42", r.Attribute.Value)
	}
}

func TestExecutorFIFOOrdering(t *testing.T) {
	exec, _ := newTestExecutor([]AttributeDescriptor{
		{ID: 1, Name: "counter", Variant: value.Int, Value: value.NewInt(0)},
	})
	defer exec.Close()

	const n = 50
	replies := make([]chan Reply, n)
	for i := 0; i < n; i++ {
		replies[i] = NewReplyChan()
		exec.Send(NewSetAttribute(1, value.NewInt(int32(i)), value.Int, replies[i]))
	}

	for i := 0; i < n; i++ {
		r := awaitReply(t, replies[i])
		if r.Err != nil {
			t.Fatalf("request %d error = %v", i, r.Err)
		}
		if r.Attribute.Value.Int != int32(i) {
			t.Errorf("request %d observed value %v, want %d (out-of-order write)", i, r.Attribute.Value, i)
		}
	}
}

func TestExecutorShutdownFreesPlugin(t *testing.T) {
	exec, inv := newTestExecutor(nil)

	exec.Send(NewShutdown(nil))

	select {
	case <-exec.Done():
	case <-time.After(time.Second):
		t.Fatal("executor did not exit after Shutdown")
	}
	if !inv.freed || inv.freeCalls != 1 {
		t.Errorf("Free called %d times, want exactly 1", inv.freeCalls)
	}
}

func TestExecutorChannelCloseFreesPlugin(t *testing.T) {
	exec, inv := newTestExecutor(nil)

	exec.Close()

	select {
	case <-exec.Done():
	case <-time.After(time.Second):
		t.Fatal("executor did not exit after channel close")
	}
	if !inv.freed || inv.freeCalls != 1 {
		t.Errorf("Free called %d times, want exactly 1", inv.freeCalls)
	}
}
