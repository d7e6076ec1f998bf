package audit

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// recordingSink keeps every delivered event type in order.
type recordingSink struct {
	mu    sync.Mutex
	types []string
}

func (s *recordingSink) Emit(_ context.Context, e Event) {
	s.mu.Lock()
	s.types = append(s.types, e.EventType)
	s.mu.Unlock()
}

func (s *recordingSink) delivered() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.types...)
}

// blockingSink holds each delivery until release receives a value.
type blockingSink struct {
	release chan struct{}
}

func (s *blockingSink) Emit(context.Context, Event) { <-s.release }

// panicSink panics on events of one type and records the rest.
type panicSink struct {
	recordingSink
	poison string
}

func (s *panicSink) Emit(ctx context.Context, e Event) {
	if e.EventType == s.poison {
		panic("sink exploded")
	}
	s.recordingSink.Emit(ctx, e)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestNilDispatcherIsInert(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, &recordingSink{})
	if d != nil {
		t.Fatal("disabled config must yield a nil dispatcher")
	}
	d.Emit(context.Background(), Event{EventType: "login_success"})
	d.Close()
	if d.Dropped() != 0 || d.SinkPanics() != 0 {
		t.Fatal("nil dispatcher must report zero counters")
	}
}

func TestDispatcherDeliversInOrderAndDrainsOnClose(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 32}, sink)

	want := []string{"account_registered", "account_activation", "login_success", "refresh_success", "logout"}
	for _, typ := range want {
		d.Emit(context.Background(), Event{EventType: typ})
	}
	d.Close()

	got := sink.delivered()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("delivered %v, want %v", got, want)
	}
}

func TestDispatcherDropModeNeverBlocks(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	logs := &lockedBuffer{}
	d := NewDispatcher(Config{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
		Logger:     slog.New(slog.NewTextHandler(logs, nil)),
	}, sink)
	defer func() {
		close(sink.release)
		d.Close()
	}()

	// one event held by the sink, one in the buffer, the rest overflow
	deadline := time.Now().Add(100 * time.Millisecond)
	for i := 0; i < 6; i++ {
		d.Emit(context.Background(), Event{EventType: "login_failure"})
	}
	if time.Now().After(deadline) {
		t.Fatal("drop mode emit blocked")
	}
	if d.Dropped() == 0 {
		t.Fatal("expected overflow to be counted")
	}
	if !strings.Contains(logs.String(), "audit queue full") {
		t.Fatalf("expected a drop warning, got %q", logs.String())
	}
}

func TestDispatcherBlockingModeWaitsForRoom(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)
	defer func() {
		close(sink.release)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "first"})
	d.Emit(context.Background(), Event{EventType: "second"})

	emitted := make(chan struct{})
	go func() {
		d.Emit(context.Background(), Event{EventType: "third"})
		close(emitted)
	}()

	select {
	case <-emitted:
		t.Fatal("emit returned while the queue was full")
	case <-time.After(150 * time.Millisecond):
	}

	sink.release <- struct{}{}

	select {
	case <-emitted:
	case <-time.After(2 * time.Second):
		t.Fatal("emit did not resume once the sink made room")
	}
}

func TestDispatcherBlockingModeHonoursContext(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)
	defer func() {
		close(sink.release)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "held"})
	d.Emit(context.Background(), Event{EventType: "buffered"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	d.Emit(ctx, Event{EventType: "abandoned"})
	if time.Since(start) > time.Second {
		t.Fatal("emit ignored context cancellation")
	}
}

func TestDispatcherSurvivesPanickingSink(t *testing.T) {
	sink := &panicSink{poison: "password_reset_confirm"}
	logs := &lockedBuffer{}
	d := NewDispatcher(Config{
		Enabled:    true,
		BufferSize: 8,
		Logger:     slog.New(slog.NewTextHandler(logs, nil)),
	}, sink)

	d.Emit(context.Background(), Event{EventType: "login_success"})
	d.Emit(context.Background(), Event{EventType: "password_reset_confirm"})
	d.Emit(context.Background(), Event{EventType: "logout"})
	d.Close()

	if got := d.SinkPanics(); got != 1 {
		t.Fatalf("SinkPanics = %d, want 1", got)
	}
	got := sink.delivered()
	if len(got) != 2 || got[1] != "logout" {
		t.Fatalf("events after the panic were lost: %v", got)
	}
	if !strings.Contains(logs.String(), "audit sink panicked") {
		t.Fatal("expected the panic to be logged")
	}
}

func TestDispatcherEmitAfterCloseIsIgnored(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4, DropIfFull: true}, sink)

	d.Emit(context.Background(), Event{EventType: "before"})
	d.Close()
	d.Close()
	d.Emit(context.Background(), Event{EventType: "after"})

	if got := sink.delivered(); len(got) != 1 || got[0] != "before" {
		t.Fatalf("delivered %v, want [before]", got)
	}
}

func TestJSONWriterSinkEncodesOneLinePerEvent(t *testing.T) {
	buf := &lockedBuffer{}
	sink := NewJSONWriterSink(buf)

	sink.Emit(context.Background(), Event{
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		EventType: "login_success",
		AccountID: "acct-1",
		IP:        "203.0.113.9",
		Success:   true,
	})
	sink.Emit(context.Background(), Event{EventType: "login_failure", Error: "bad credentials"})

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 JSON lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], `"account_id":"acct-1"`) {
		t.Fatalf("first line missing account id: %s", lines[0])
	}
	if !strings.Contains(lines[1], `"error":"bad credentials"`) {
		t.Fatalf("second line missing error: %s", lines[1])
	}
}
