package engine

import (
	"testing"

	pebblestore "github.com/rzbill/tether/internal/storage/pebble"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := OpenStorage(t.TempDir(), pebblestore.FsyncModeNever)
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestEntityRoundTrip(t *testing.T) {
	s := newTestStorage(t)

	e := Entity{ID: s.NewID(), Collection: "room", Fields: map[string]interface{}{"name": "General"}}
	if err := s.PutEntities([]Entity{e}); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := s.GetEntity("room", e.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatalf("entity not found")
	}
	if got.StringField("name") != "General" {
		t.Fatalf("fields %v", got.Fields)
	}

	_, ok, err = s.GetEntity("room", "missing")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if ok {
		t.Fatalf("found missing entity")
	}
}

func TestScanCollectionCreationOrder(t *testing.T) {
	s := newTestStorage(t)

	var want []string
	var batch []Entity
	for i := 0; i < 5; i++ {
		e := Entity{ID: s.NewID(), Collection: "msg", Fields: map[string]interface{}{"i": i}}
		want = append(want, e.ID)
		batch = append(batch, e)
	}
	if err := s.PutEntities(batch); err != nil {
		t.Fatalf("put: %v", err)
	}

	var got []string
	if err := s.ScanCollection("msg", func(e Entity) bool {
		got = append(got, e.ID)
		return true
	}); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("scanned %d want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order: got[%d]=%s want %s", i, got[i], want[i])
		}
	}
}

func TestRootPersistence(t *testing.T) {
	s := newTestStorage(t)

	root, err := s.LoadRoot()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if root != "" {
		t.Fatalf("fresh store has root %q", root)
	}

	if err := s.SaveRoot("r-123"); err != nil {
		t.Fatalf("save: %v", err)
	}
	root, err = s.LoadRoot()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if root != "r-123" {
		t.Fatalf("root %q", root)
	}

	if err := s.SaveRoot(""); err == nil {
		t.Fatalf("expected error for empty root")
	}
}
