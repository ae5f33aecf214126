package core

import "testing"

func TestLibraryRegistryInsertGet(t *testing.T) {
	r := NewLibraryRegistry()
	r.Insert(Library{ID: 1, Name: "serial-gpio"})

	lib, ok := r.Get(1)
	if !ok {
		t.Fatal("Get(1) = not found, want found")
	}
	if lib.Name != "serial-gpio" {
		t.Errorf("Get(1).Name = %q, want serial-gpio", lib.Name)
	}

	if _, ok := r.Get(99); ok {
		t.Error("Get(99) = found, want not found")
	}
}

func TestLibraryRegistryListSorted(t *testing.T) {
	r := NewLibraryRegistry()
	r.Insert(Library{ID: 3, Name: "c"})
	r.Insert(Library{ID: 1, Name: "a"})
	r.Insert(Library{ID: 2, Name: "b"})

	got := r.List()
	if len(got) != 3 || got[0].ID != 1 || got[1].ID != 2 || got[2].ID != 3 {
		t.Errorf("List() = %+v, want ordered by ID", got)
	}
}

func TestPeripheralRegistryInsertAllocatesID(t *testing.T) {
	r := NewPeripheralRegistry()

	p1 := &Peripheral{Name: "thermostat"}
	id1 := r.Insert(p1)
	p2 := &Peripheral{Name: "fan"}
	id2 := r.Insert(p2)

	if id1 != 0 {
		t.Fatalf("id1 = %d, want 0 (first allocated id)", id1)
	}
	if id2 != 1 {
		t.Fatalf("id2 = %d, want 1", id2)
	}
	if p1.ID != id1 {
		t.Errorf("p1.ID = %d, want %d", p1.ID, id1)
	}
}

func TestPeripheralRegistryGetAndExists(t *testing.T) {
	r := NewPeripheralRegistry()
	p := &Peripheral{Name: "thermostat"}
	id := r.Insert(p)

	got, ok := r.Get(id)
	if !ok || got.Name != "thermostat" {
		t.Fatalf("Get(%d) = %+v, %v, want thermostat, true", id, got, ok)
	}
	if r.Exists(id+1) {
		t.Error("Exists on unassigned id = true, want false")
	}
}

func TestPeripheralRegistryListSorted(t *testing.T) {
	r := NewPeripheralRegistry()
	r.Insert(&Peripheral{Name: "a"})
	r.Insert(&Peripheral{Name: "b"})
	r.Insert(&Peripheral{Name: "c"})

	got := r.List()
	for i := 1; i < len(got); i++ {
		if got[i-1].ID >= got[i].ID {
			t.Fatalf("List() not ordered by ID: %+v", got)
		}
	}
}
