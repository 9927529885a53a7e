package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testStore(t *testing.T) (*Store, func()) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	s, err := New(dbPath, testLogger())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s, func() {
		s.Close()
		os.Remove(dbPath)
	}
}

func TestStore_GetInt_DefaultWhenMissing(t *testing.T) {
	s, cleanup := testStore(t)
	defer cleanup()

	v, err := s.GetInt("rearCamera", "servoPos", 0)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if v != 0 {
		t.Errorf("missing key: got %d, want default 0", v)
	}

	v, err = s.GetInt("rearCamera", "servoPos", 42)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if v != 42 {
		t.Errorf("missing key: got %d, want default 42", v)
	}
}

func TestStore_PutThenGetInt(t *testing.T) {
	s, cleanup := testStore(t)
	defer cleanup()

	if err := s.PutInt("rearCamera", "servoPos", 135); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	v, err := s.GetInt("rearCamera", "servoPos", 0)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if v != 135 {
		t.Errorf("got %d, want 135", v)
	}
}

func TestStore_IntSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := New(dbPath, testLogger())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := s.PutInt("rearCamera", "servoPos", 90); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	s.Close()

	s2, err := New(dbPath, testLogger())
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer s2.Close()

	v, err := s2.GetInt("rearCamera", "servoPos", 0)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if v != 90 {
		t.Errorf("after reopen: got %d, want 90", v)
	}
}

func TestStore_NamespacesAreIsolated(t *testing.T) {
	s, cleanup := testStore(t)
	defer cleanup()

	if err := s.PutInt("rearCamera", "servoPos", 10); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := s.PutInt("hub", "servoPos", 20); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	v, _ := s.GetInt("rearCamera", "servoPos", -1)
	if v != 10 {
		t.Errorf("rearCamera/servoPos: got %d, want 10", v)
	}
	v, _ = s.GetInt("hub", "servoPos", -1)
	if v != 20 {
		t.Errorf("hub/servoPos: got %d, want 20", v)
	}
}

type sampleRecord struct {
	Name  string `msgpack:"name"`
	Count int    `msgpack:"count"`
}

func TestStore_RecordRoundTrip(t *testing.T) {
	s, cleanup := testStore(t)
	defer cleanup()

	in := sampleRecord{Name: "rear-camera", Count: 3}
	if err := s.PutRecord("peers", "rear-camera", in); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	var out sampleRecord
	found, err := s.GetRecord("peers", "rear-camera", &out)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !found {
		t.Fatal("expected record to be found")
	}
	if out != in {
		t.Errorf("got %+v, want %+v", out, in)
	}
}

func TestStore_GetRecord_Missing(t *testing.T) {
	s, cleanup := testStore(t)
	defer cleanup()

	var out sampleRecord
	found, err := s.GetRecord("peers", "nonexistent", &out)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if found {
		t.Error("expected record to be missing")
	}
}

func TestStore_ForEachRecord(t *testing.T) {
	s, cleanup := testStore(t)
	defer cleanup()

	s.PutRecord("peers", "a", sampleRecord{Name: "a", Count: 1})
	s.PutRecord("peers", "b", sampleRecord{Name: "b", Count: 2})

	seen := map[string]int{}
	err := s.ForEachRecord("peers", func(key string, raw []byte) error {
		seen[key] = len(raw)
		return nil
	})
	if err != nil {
		t.Fatalf("foreach failed: %v", err)
	}
	if len(seen) != 2 {
		t.Fatalf("expected 2 records, got %d", len(seen))
	}
	if seen["a"] == 0 || seen["b"] == 0 {
		t.Errorf("expected raw bytes for both keys, got %v", seen)
	}
}

func TestStore_ForEachRecord_EmptyNamespace(t *testing.T) {
	s, cleanup := testStore(t)
	defer cleanup()

	calls := 0
	err := s.ForEachRecord("nonexistent", func(key string, raw []byte) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("foreach failed: %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no calls for empty namespace, got %d", calls)
	}
}
