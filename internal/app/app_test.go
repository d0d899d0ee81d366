package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stadtwerke-wuelfrath/epilot-provisioner/internal/config"
	"github.com/stadtwerke-wuelfrath/epilot-provisioner/pkg/epilot"
	"github.com/stadtwerke-wuelfrath/epilot-provisioner/pkg/httpclient"
	"github.com/stadtwerke-wuelfrath/epilot-provisioner/pkg/publishers"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		AppName:       "epilot-provisioner",
		Tenant:        "stadtwerke-wuelfrath",
		APIToken:      "token",
		APITimeout:    5 * time.Second,
		LedgerType:    "bbolt",
		LedgerPath:    filepath.Join(dir, "ledger.db"),
		LedgerTTL:     time.Hour,
		LedgerCleanup: time.Hour,
		OutputDir:     filepath.Join(dir, "output"),
	}
}

func TestNewRequiresToken(t *testing.T) {
	cfg := testConfig(t)
	cfg.APIToken = ""

	_, err := New(cfg, nil)
	var cfgErr *httpclient.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if cfgErr.Hint != config.TokenHint {
		t.Fatalf("expected token hint, got %q", cfgErr.Hint)
	}
	if !errors.Is(err, httpclient.ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestNewRejectsBrokenServicesFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.ServicesFile = filepath.Join(t.TempDir(), "services.yaml")
	if err := os.WriteFile(cfg.ServicesFile, []byte("services:\n  - id: entity\n"), 0o644); err != nil {
		t.Fatalf("write services: %v", err)
	}

	if _, err := New(cfg, nil); err == nil {
		t.Fatalf("expected services file error")
	}
}

func TestLedgerAndEmptyPublishers(t *testing.T) {
	a, err := New(testConfig(t), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	store, err := a.Ledger()
	if err != nil {
		t.Fatalf("Ledger: %v", err)
	}
	if again, _ := a.Ledger(); again != store {
		t.Fatalf("ledger should be opened once")
	}

	fanout, err := a.Publishers(context.Background())
	if err != nil {
		t.Fatalf("Publishers: %v", err)
	}
	if fanout.Size() != 0 {
		t.Fatalf("expected no publishers, got %d", fanout.Size())
	}

	if _, err := a.Importer(context.Background()); err != nil {
		t.Fatalf("Importer: %v", err)
	}
	if _, err := a.Seeder(context.Background()); err != nil {
		t.Fatalf("Seeder: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestMissingPublishersFileDisablesEvents(t *testing.T) {
	cfg := testConfig(t)
	cfg.LedgerType = "none"
	cfg.PublishersFile = filepath.Join(t.TempDir(), "absent.yaml")

	a, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	fanout, err := a.Publishers(context.Background())
	if err != nil || fanout.Size() != 0 {
		t.Fatalf("expected empty fan-out, got size=%d err=%v", fanout.Size(), err)
	}
}

func TestNotifyDeliversToHTTPPublisher(t *testing.T) {
	var (
		mu     sync.Mutex
		events []publishers.Event
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var evt publishers.Event
		if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		events = append(events, evt)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.LedgerType = "none"
	cfg.PublishersFile = filepath.Join(t.TempDir(), "publishers.yaml")
	raw := "publishers:\n  - id: hook\n    type: http\n    http:\n      url: " + srv.URL + "\n"
	if err := os.WriteFile(cfg.PublishersFile, []byte(raw), 0o644); err != nil {
		t.Fatalf("write publishers: %v", err)
	}

	a, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	a.Notify(context.Background(), publishers.OperationCreate, "contact", epilot.Object{"_id": "c-1", "_title": "Erika Muster"})

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	got := events[0]
	if got.Operation != publishers.OperationCreate || got.Schema != "contact" || got.ResourceID != "c-1" || got.Title != "Erika Muster" {
		t.Fatalf("unexpected event %#v", got)
	}
	if got.Tenant != "stadtwerke-wuelfrath" || got.ID == "" {
		t.Fatalf("event not stamped: %#v", got)
	}
}
