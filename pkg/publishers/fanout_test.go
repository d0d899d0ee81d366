package publishers

import (
	"context"
	"errors"
	"testing"
)

type stubPublisher struct {
	id     string
	typ    string
	err    error
	calls  int
	closed bool
}

func (s *stubPublisher) ID() string   { return s.id }
func (s *stubPublisher) Type() string { return s.typ }
func (s *stubPublisher) Publish(context.Context, Event) error {
	s.calls++
	return s.err
}
func (s *stubPublisher) Close() error {
	s.closed = true
	return nil
}

type recordingLogger struct {
	warns []string
}

func (r *recordingLogger) InfoObj(string, string, interface{})  {}
func (r *recordingLogger) DebugObj(string, string, interface{}) {}
func (r *recordingLogger) WarnObj(msg, _ string, _ interface{}) { r.warns = append(r.warns, msg) }
func (r *recordingLogger) ErrorObj(string, string, interface{}) {}

func TestFanoutPublishAggregatesErrors(t *testing.T) {
	ok := &stubPublisher{id: "ok", typ: "http"}
	bad := &stubPublisher{id: "bad", typ: "http", err: errors.New("failed")}
	fanout := NewFanout([]Publisher{ok, nil, bad}, nil)

	if fanout.Size() != 2 {
		t.Fatalf("expected nil publishers to be dropped, size=%d", fanout.Size())
	}
	count, err := fanout.Publish(context.Background(), NewEvent(OperationCreate, "contact", "c-1", "Max", "tenant"))
	if count != 1 {
		t.Fatalf("expected 1 success, got %d", count)
	}
	if err == nil {
		t.Fatalf("expected aggregated error")
	}
	if ok.calls != 1 || bad.calls != 1 {
		t.Fatalf("every publisher should be called once, got ok=%d bad=%d", ok.calls, bad.calls)
	}
}

func TestFanoutNotifyLogsFailures(t *testing.T) {
	log := &recordingLogger{}
	fanout := NewFanout([]Publisher{&stubPublisher{id: "bad", typ: "sqs", err: errors.New("down")}}, log)

	fanout.Notify(context.Background(), NewEvent(OperationUpdate, "product", "p-1", "", ""))
	if len(log.warns) != 1 {
		t.Fatalf("expected one warning, got %v", log.warns)
	}
}

func TestFanoutNilIsNoop(t *testing.T) {
	var fanout *Fanout
	fanout.Notify(context.Background(), Event{})
	if n, err := fanout.Publish(context.Background(), Event{}); n != 0 || err != nil {
		t.Fatalf("nil fanout should be a no-op, got %d %v", n, err)
	}
	if err := fanout.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestFanoutCloseClosesPublishers(t *testing.T) {
	p := &stubPublisher{id: "p", typ: "gcp_pubsub"}
	if err := NewFanout([]Publisher{p}, nil).Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !p.closed {
		t.Fatalf("publisher was not closed")
	}
}

func TestNewEventStampsIDAndAttributes(t *testing.T) {
	a := NewEvent(OperationCreate, "contact", "c-1", "Max", "")
	b := NewEvent(OperationCreate, "contact", "c-2", "Erika", "")
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("expected unique ids, got %q and %q", a.ID, b.ID)
	}
	if a.OccurredAt.IsZero() || a.OccurredAt.Location().String() != "UTC" {
		t.Fatalf("expected UTC timestamp, got %v", a.OccurredAt)
	}
	attrs := a.attributes()
	if attrs["operation"] != "create" || attrs["schema"] != "contact" {
		t.Fatalf("unexpected attributes %v", attrs)
	}
	if _, ok := attrs["tenant"]; ok {
		t.Fatalf("empty tenant should be omitted")
	}
}

func TestBuildAllWithDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()
	pubs, err := BuildAll(context.Background(), reg, []PublisherConfig{
		{ID: "http", Type: TypeHTTP, HTTP: &HTTPPublisherConfig{URL: "https://example.com"}},
	}, nil)
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if len(pubs) != 1 || pubs[0].Type() != TypeHTTP {
		t.Fatalf("expected 1 http publisher, got %v", pubs)
	}
}

func TestBuildAllRejectsUnknownType(t *testing.T) {
	_, err := BuildAll(context.Background(), NewRegistry(nil), []PublisherConfig{{ID: "x", Type: "kafka"}}, nil)
	if err == nil {
		t.Fatalf("expected error for unregistered type")
	}
}
