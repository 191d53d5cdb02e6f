package trace

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLevelShouldEmit(t *testing.T) {
	cases := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelError, ScopeDriver, false},
		{LevelPhase, ScopePass, true},
		{LevelPhase, ScopeSymbol, false},
		{LevelDetail, ScopeSymbol, true},
		{LevelDebug, ScopeSymbol, true},
	}
	for _, tc := range cases {
		if got := tc.level.ShouldEmit(tc.scope); got != tc.want {
			t.Errorf("%s.ShouldEmit(%s) = %v, want %v", tc.level, tc.scope, got, tc.want)
		}
	}
}

func TestStreamTracerText(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatText)

	span := Begin(tr, ScopePass, "resolver.finalize_ancestors", 0)
	Point(tr, ScopeSymbol, "skipped", span.ID(), "")
	span.WithExtra("modules", "2").WithExtra("classes", "5").End("ok")

	out := buf.String()
	if !strings.Contains(out, "→ resolver.finalize_ancestors") {
		t.Fatalf("missing begin event:\n%s", out)
	}
	if !strings.Contains(out, "← resolver.finalize_ancestors (ok) {classes=5, modules=2}") {
		t.Fatalf("missing end event with sorted extras:\n%s", out)
	}
	if strings.Contains(out, "skipped") {
		t.Fatalf("symbol-scope point leaked at phase level:\n%s", out)
	}
}

func TestRingTracerKeepsLastEvents(t *testing.T) {
	ring := NewRingTracer(3, LevelDebug)
	for range 5 {
		Point(ring, ScopeSymbol, "tick", 0, "")
	}
	events := ring.Snapshot()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].Seq <= events[i-1].Seq {
			t.Fatalf("events out of order: %d then %d", events[i-1].Seq, events[i].Seq)
		}
	}

	var buf bytes.Buffer
	if err := ring.Dump(&buf, FormatNDJSON); err != nil {
		t.Fatalf("dump: %v", err)
	}
	if n := strings.Count(buf.String(), "\n"); n != 3 {
		t.Fatalf("expected 3 ndjson lines, got %d", n)
	}
}

func TestContextPropagation(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatalf("expected Nop without a tracer")
	}
	ring := NewRingTracer(8, LevelPhase)
	ctx := WithTracer(context.Background(), ring)
	if FromContext(ctx) != ring {
		t.Fatalf("tracer not propagated")
	}
}

func TestDisabledSpanIsInert(t *testing.T) {
	span := Begin(Nop, ScopeDriver, "x", 0)
	if span.WithExtra("a", "b").End("") != 0 || span.ID() != 0 {
		t.Fatalf("nop span must not record anything")
	}
}

func TestParseLevelAndMode(t *testing.T) {
	for _, name := range []string{"off", "error", "Phase", "DETAIL", "debug"} {
		l, err := ParseLevel(name)
		if err != nil || !strings.EqualFold(l.String(), name) {
			t.Errorf("ParseLevel(%q) = %v, %v", name, l, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Errorf("unknown level accepted")
	}
	if m, err := ParseMode("BOTH"); err != nil || m != ModeBoth {
		t.Errorf("ParseMode(BOTH) = %v, %v", m, err)
	}
	if _, err := ParseMode("disk"); err == nil {
		t.Errorf("unknown mode accepted")
	}
}

type failingTracer struct{ *RingTracer }

func (failingTracer) Flush() error { return errors.New("flush failed") }

func TestMultiTracerSkipsDisabledAndJoinsErrors(t *testing.T) {
	ring := NewRingTracer(4, LevelPhase)
	bad := failingTracer{NewRingTracer(4, LevelPhase)}
	m := NewMultiTracer(LevelPhase, ring, nil, Nop, bad)
	if !m.Enabled() {
		t.Fatalf("multi tracer with live tracers must be enabled")
	}
	Point(m, ScopePass, "phase", 0, "")
	if len(ring.Snapshot()) != 1 || len(bad.Snapshot()) != 1 {
		t.Fatalf("event not fanned out")
	}
	if err := m.Flush(); err == nil || !strings.Contains(err.Error(), "flush failed") {
		t.Fatalf("Flush error = %v", err)
	}
	if NewMultiTracer(LevelPhase, Nop).Enabled() {
		t.Fatalf("multi tracer without live tracers must be disabled")
	}
}

func TestNewPicksFormatFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.ndjson")
	tr, err := New(Config{Level: LevelPhase, Mode: ModeBoth, OutputPath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	Begin(tr, ScopePass, "load", 0).End("")
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if off, _ := New(Config{Level: LevelOff}); off != Nop {
		t.Fatalf("LevelOff must yield Nop")
	}
	if _, err := New(Config{Level: LevelPhase}); err == nil {
		t.Fatalf("missing mode accepted")
	}
}

func TestHeartbeat(t *testing.T) {
	if StartHeartbeat(Nop, time.Millisecond) != nil {
		t.Fatalf("heartbeat on a disabled tracer")
	}
	ring := NewRingTracer(64, LevelPhase)
	h := StartHeartbeat(ring, time.Millisecond)
	deadline := time.Now().Add(5 * time.Second)
	for len(ring.Snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	h.Stop()
	h.Stop()
	events := ring.Snapshot()
	if len(events) == 0 || events[0].Kind != KindHeartbeat || events[0].Detail != "#1" {
		t.Fatalf("heartbeat events = %+v", events)
	}
}
