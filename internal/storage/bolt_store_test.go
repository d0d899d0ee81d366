package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func TestBoltStoreRecordsAndExpires(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		RecordTTL:       1 * time.Second,
		CleanupInterval: 1 * time.Second,
	}

	storeRaw, err := openBolt(filepath.Join(dir, "ledger.db"), opts)
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	if _, ok, err := store.Lookup("contact:jane"); err != nil || ok {
		t.Fatalf("expected missing record, ok=%v err=%v", ok, err)
	}

	if err := store.Record("contact:jane", "entity-1"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	id, ok, err := store.Lookup("contact:jane")
	if err != nil || !ok || id != "entity-1" {
		t.Fatalf("expected recorded id, got id=%q ok=%v err=%v", id, ok, err)
	}

	// Fast-forward cleanup cadence and trigger expiry.
	store.lastCleanup.Store(time.Now().Add(-2 * time.Second).Unix())
	time.Sleep(1100 * time.Millisecond)

	_, ok, err = store.Lookup("contact:jane")
	if err != nil {
		t.Fatalf("Lookup after expiry: %v", err)
	}
	if ok {
		t.Fatalf("expected record to expire and be removed")
	}
}

func TestBoltStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")

	first, err := NewStore("bbolt", path, Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := first.Record("product:glasfaser 1000", "p-1"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := NewStore("bbolt", path, Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	id, ok, err := second.Lookup("product:glasfaser 1000")
	if err != nil || !ok || id != "p-1" {
		t.Fatalf("expected persisted id, got id=%q ok=%v err=%v", id, ok, err)
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.Record("x", "y"); err != nil {
		t.Fatalf("noop store Record: %v", err)
	}
	if _, ok, _ := store.Lookup("x"); ok {
		t.Fatalf("noop store should never report records")
	}
}

func TestNewStoreRejectsUnknownType(t *testing.T) {
	if _, err := NewStore("redis", "x", Options{}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
	if _, err := NewStore("bbolt", " ", Options{}); err == nil {
		t.Fatalf("expected error for empty bbolt path")
	}
}

func TestKeyNormalizes(t *testing.T) {
	if got := Key(" Contact ", "", "Jane@Example.com"); got != "contact:jane@example.com" {
		t.Fatalf("Key = %q", got)
	}
}
