package peers

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

type fakeRecordStore struct {
	recs   map[string][]byte
	putErr error
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{recs: map[string][]byte{}}
}

func (f *fakeRecordStore) PutRecord(namespace, key string, rec any) error {
	if f.putErr != nil {
		return f.putErr
	}
	data, err := msgpack.Marshal(rec)
	if err != nil {
		return err
	}
	f.recs[namespace+"/"+key] = data
	return nil
}

func (f *fakeRecordStore) ForEachRecord(namespace string, fn func(key string, raw []byte) error) error {
	for k, v := range f.recs {
		prefix := namespace + "/"
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			if err := fn(k[len(prefix):], v); err != nil {
				return err
			}
		}
	}
	return nil
}

func testRegistry(store RecordStore) *Registry {
	return NewRegistry(store, 120*time.Second, zerolog.Nop())
}

func TestRegistry_MarkSeenCreatesRecord(t *testing.T) {
	r := testRegistry(newFakeRecordStore())
	now := time.Now()

	r.MarkSeen("rear-camera", "rear-camera", "192.168.4.2:5683", now)

	recs := r.List()
	if len(recs) != 1 {
		t.Fatalf("records: got %d, want 1", len(recs))
	}
	rec := recs[0]
	if rec.Name != "rear-camera" {
		t.Errorf("Name: got %s, want rear-camera", rec.Name)
	}
	if !rec.Active {
		t.Error("expected peer to be active")
	}
	if rec.Count != 1 {
		t.Errorf("Count: got %d, want 1", rec.Count)
	}
	if !rec.FirstSeen.Equal(now) || !rec.LastSeen.Equal(now) {
		t.Errorf("timestamps: first=%v last=%v, want both %v", rec.FirstSeen, rec.LastSeen, now)
	}
}

func TestRegistry_MarkSeenUpdatesExisting(t *testing.T) {
	r := testRegistry(newFakeRecordStore())
	t0 := time.Now()

	r.MarkSeen("rear-camera", "rear-camera", "addr", t0)
	r.MarkSeen("rear-camera", "rear-camera", "addr", t0.Add(30*time.Second))
	r.MarkSeen("rear-camera", "rear-camera", "addr", t0.Add(60*time.Second))

	recs := r.List()
	if len(recs) != 1 {
		t.Fatalf("records: got %d, want 1", len(recs))
	}
	if recs[0].Count != 3 {
		t.Errorf("Count: got %d, want 3", recs[0].Count)
	}
	if !recs[0].FirstSeen.Equal(t0) {
		t.Errorf("FirstSeen moved: got %v, want %v", recs[0].FirstSeen, t0)
	}
	if !recs[0].LastSeen.Equal(t0.Add(60 * time.Second)) {
		t.Errorf("LastSeen: got %v, want %v", recs[0].LastSeen, t0.Add(60*time.Second))
	}
}

func TestRegistry_SweepDeactivatesStale(t *testing.T) {
	r := testRegistry(newFakeRecordStore())
	t0 := time.Now()

	r.MarkSeen("cam-a", "rear-camera", "a", t0)
	r.MarkSeen("cam-b", "rear-camera", "b", t0.Add(100*time.Second))

	// 130s after t0: cam-a is past the 120s threshold, cam-b is not
	changed := r.Sweep(t0.Add(130 * time.Second))
	if changed != 1 {
		t.Fatalf("changed: got %d, want 1", changed)
	}

	recs := r.List()
	if recs[0].Name != "cam-a" || recs[0].Active {
		t.Errorf("cam-a: got %+v, want inactive", recs[0])
	}
	if recs[1].Name != "cam-b" || !recs[1].Active {
		t.Errorf("cam-b: got %+v, want active", recs[1])
	}

	// Idempotent: a second sweep changes nothing
	if changed := r.Sweep(t0.Add(131 * time.Second)); changed != 0 {
		t.Errorf("second sweep changed %d, want 0", changed)
	}
}

func TestRegistry_HeartbeatReactivates(t *testing.T) {
	r := testRegistry(newFakeRecordStore())
	t0 := time.Now()

	r.MarkSeen("cam", "rear-camera", "a", t0)
	r.Sweep(t0.Add(200 * time.Second))
	r.MarkSeen("cam", "rear-camera", "a", t0.Add(210*time.Second))

	recs := r.List()
	if !recs[0].Active {
		t.Error("expected peer to be active again after heartbeat")
	}
}

func TestRegistry_LoadRestoresRecords(t *testing.T) {
	store := newFakeRecordStore()
	r := testRegistry(store)
	now := time.Now().Round(time.Second)
	r.MarkSeen("cam", "rear-camera", "addr", now)

	r2 := testRegistry(store)
	if err := r2.Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	recs := r2.List()
	if len(recs) != 1 {
		t.Fatalf("records: got %d, want 1", len(recs))
	}
	if recs[0].Name != "cam" || recs[0].Count != 1 {
		t.Errorf("restored record: got %+v", recs[0])
	}
}

func TestRegistry_PersistFailureKeepsMemoryRecord(t *testing.T) {
	store := newFakeRecordStore()
	store.putErr = errors.New("db gone")
	r := testRegistry(store)

	r.MarkSeen("cam", "rear-camera", "addr", time.Now())

	if len(r.List()) != 1 {
		t.Error("expected in-memory record despite persist failure")
	}
}

func TestRegistry_ListSorted(t *testing.T) {
	r := testRegistry(newFakeRecordStore())
	now := time.Now()
	r.MarkSeen("zulu", "rear-camera", "z", now)
	r.MarkSeen("alpha", "rear-camera", "a", now)
	r.MarkSeen("mike", "rear-camera", "m", now)

	recs := r.List()
	want := []string{"alpha", "mike", "zulu"}
	for i, name := range want {
		if recs[i].Name != name {
			t.Errorf("position %d: got %s, want %s", i, recs[i].Name, name)
		}
	}
}
