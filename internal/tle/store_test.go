package tle

import (
	"testing"
	"time"
)

func testSet(id int, name string, epoch time.Time) *ElementSet {
	return &ElementSet{NORADID: id, Name: name, Epoch: epoch}
}

// TestStoreEmpty verifies the zero store has nothing to serve.
func TestStoreEmpty(t *testing.T) {
	s := NewStore()
	if s.Get() != nil {
		t.Error("expected nil catalog from empty store")
	}
	if _, ok := s.Lookup(25544); ok {
		t.Error("Lookup succeeded on empty store")
	}
	if _, ok := s.Age(time.Now().UTC()); ok {
		t.Error("Age reported a catalog on empty store")
	}
	if got := s.Select([]int{25544}); len(got) != 0 {
		t.Errorf("Select returned %d element sets from empty store", len(got))
	}
}

// TestStoreSetAndLookup verifies the index follows the catalog swap.
func TestStoreSetAndLookup(t *testing.T) {
	epoch := time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC)
	c := NewCatalog("file", epoch, []*ElementSet{
		testSet(25544, "ISS (ZARYA)", epoch),
		testSet(48274, "CSS (TIANHE)", epoch),
	})

	s := NewStore()
	s.Set(c)

	if s.Get() != c {
		t.Error("Get returned a different catalog than Set stored")
	}
	e, ok := s.Lookup(25544)
	if !ok || e.Name != "ISS (ZARYA)" {
		t.Errorf("Lookup(25544) = %v, %v", e, ok)
	}
	if _, ok := s.Lookup(99999); ok {
		t.Error("Lookup succeeded for an id not in the catalog")
	}
}

// TestStoreIndexPrefersNewerEpoch verifies duplicate catalog numbers
// resolve to the freshest element set regardless of input order.
func TestStoreIndexPrefersNewerEpoch(t *testing.T) {
	older := time.Date(2024, 4, 8, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 4, 9, 0, 0, 0, 0, time.UTC)

	for _, objects := range [][]*ElementSet{
		{testSet(25544, "old", older), testSet(25544, "new", newer)},
		{testSet(25544, "new", newer), testSet(25544, "old", older)},
	} {
		s := NewStore()
		s.Set(NewCatalog("file", newer, objects))
		e, ok := s.Lookup(25544)
		if !ok || e.Name != "new" {
			t.Errorf("Lookup(25544) = %v, %v, want the newer epoch entry", e, ok)
		}
	}
}

// TestStoreSelect verifies request order is preserved and missing ids
// are dropped.
func TestStoreSelect(t *testing.T) {
	epoch := time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC)
	s := NewStore()
	s.Set(NewCatalog("file", epoch, []*ElementSet{
		testSet(1, "a", epoch),
		testSet(2, "b", epoch),
		testSet(3, "c", epoch),
	}))

	got := s.Select([]int{3, 7, 1})
	if len(got) != 2 {
		t.Fatalf("Select returned %d element sets, want 2", len(got))
	}
	if got[0].NORADID != 3 || got[1].NORADID != 1 {
		t.Errorf("Select order = %d, %d, want 3, 1", got[0].NORADID, got[1].NORADID)
	}
}

// TestStoreAge verifies age is measured from the catalog fetch time.
func TestStoreAge(t *testing.T) {
	fetched := time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC)
	s := NewStore()
	s.Set(NewCatalog("file", fetched, nil))

	age, ok := s.Age(fetched.Add(10 * time.Minute))
	if !ok {
		t.Fatal("Age reported no catalog after Set")
	}
	if age != 10*time.Minute {
		t.Errorf("Age = %v, want 10m", age)
	}
}

// TestStoreConcurrentAccess exercises the snapshot swap under
// contention.
func TestStoreConcurrentAccess(t *testing.T) {
	epoch := time.Now().UTC()
	s := NewStore()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			s.Set(NewCatalog("writer", epoch, []*ElementSet{testSet(25544, "ISS", epoch)}))
		}
	}()

	for i := 0; i < 1000; i++ {
		if c := s.Get(); c != nil {
			_, _ = s.Lookup(25544)
		}
		_, _ = s.Age(epoch)
	}
	<-done
}
