package netmon

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTransitionFiresOncePerEdge(t *testing.T) {
	var fired int32
	m := New(DefaultConfig(""), func() { atomic.AddInt32(&fired, 1) }, testLogger())

	m.SetOnline(false)
	if m.IsOnline() {
		t.Error("Expected offline after SetOnline(false)")
	}
	if n := atomic.LoadInt32(&fired); n != 0 {
		t.Errorf("Expected no callback on going offline, got %d", n)
	}

	m.SetOnline(true)
	m.SetOnline(true)
	if n := atomic.LoadInt32(&fired); n != 1 {
		t.Errorf("Expected exactly one callback per offline-to-online edge, got %d", n)
	}

	m.SetOnline(false)
	m.SetOnline(true)
	if n := atomic.LoadInt32(&fired); n != 2 {
		t.Errorf("Expected second callback after second edge, got %d", n)
	}
}

func TestProbeDetectsRecovery(t *testing.T) {
	var healthy atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("Expected HEAD probe, got %s", r.Method)
		}
		if !healthy.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	var fired int32
	cfg := &Config{
		ProbeURL:      server.URL,
		ProbeInterval: 10 * time.Millisecond,
		ProbeTimeout:  time.Second,
	}
	m := New(cfg, func() { atomic.AddInt32(&fired, 1) }, testLogger())

	m.Start(context.Background())
	defer m.Stop()

	waitFor(t, "offline", func() bool { return !m.IsOnline() })

	healthy.Store(true)
	waitFor(t, "online", func() bool { return m.IsOnline() })

	if n := atomic.LoadInt32(&fired); n != 1 {
		t.Errorf("Expected one drain trigger on recovery, got %d", n)
	}
}

func TestForcedOfflineIgnoresProbes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := &Config{
		ProbeURL:      server.URL,
		ProbeInterval: 5 * time.Millisecond,
		ProbeTimeout:  time.Second,
	}
	m := New(cfg, nil, testLogger())
	m.Start(context.Background())
	defer m.Stop()

	m.SetOnline(false)
	time.Sleep(50 * time.Millisecond)
	if m.IsOnline() {
		t.Error("Expected forced-offline state to survive healthy probes")
	}

	m.SetOnline(true)
	if !m.IsOnline() {
		t.Error("Expected online after releasing the override")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	m := New(DefaultConfig(""), nil, testLogger())
	m.Start(context.Background())
	m.Stop()
	m.Stop()
}

func TestRestartResumesProbing(t *testing.T) {
	var probes atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probes.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := &Config{
		ProbeURL:      server.URL,
		ProbeInterval: 5 * time.Millisecond,
		ProbeTimeout:  time.Second,
	}
	m := New(cfg, nil, testLogger())

	m.Start(context.Background())
	waitFor(t, "first probe", func() bool { return probes.Load() >= 1 })
	m.Stop()

	seen := probes.Load()
	m.Start(context.Background())
	defer m.Stop()
	waitFor(t, "probe after restart", func() bool { return probes.Load() > seen })
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}
