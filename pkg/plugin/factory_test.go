package plugin

import (
	"testing"

	"github.com/kmdouglass/kpal/pkg/value"
)

func TestDiscoverAttributes(t *testing.T) {
	inv := newFakeInvoker([]AttributeDescriptor{
		{ID: 1, Name: "temperature", Value: value.NewDouble(21.5)},
		{ID: 2, Name: "enabled", Value: value.NewInt(1), PreInit: true},
	})

	descriptors, declared, err := discoverAttributes(inv)
	if err != nil {
		t.Fatalf("discoverAttributes() error = %v", err)
	}
	if len(descriptors) != 2 {
		t.Fatalf("len(descriptors) = %d, want 2", len(descriptors))
	}
	if declared[1] != value.Double || declared[2] != value.Int {
		t.Errorf("declared variants = %v, want {1:Double, 2:Int}", declared)
	}

	var found bool
	for _, d := range descriptors {
		if d.ID == 2 {
			found = true
			if !d.PreInit {
				t.Error("attribute 2 PreInit = false, want true")
			}
		}
	}
	if !found {
		t.Fatal("descriptor for attribute 2 not found")
	}
}

func TestDiscoverAttributesEmptyPlugin(t *testing.T) {
	inv := newFakeInvoker(nil)
	descriptors, declared, err := discoverAttributes(inv)
	if err != nil {
		t.Fatalf("discoverAttributes() error = %v", err)
	}
	if len(descriptors) != 0 || len(declared) != 0 {
		t.Errorf("discoverAttributes() on empty plugin = %v, %v, want empty", descriptors, declared)
	}
}
