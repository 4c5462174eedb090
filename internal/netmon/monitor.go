// Package netmon tracks network reachability and triggers queue replay on
// the transition back to online.
package netmon

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Config holds monitor configuration.
type Config struct {
	ProbeURL      string        // Endpoint probed for reachability
	ProbeInterval time.Duration // How often to probe (default: 30 seconds)
	ProbeTimeout  time.Duration // Per-probe timeout (default: 5 seconds)
}

// DefaultConfig returns default monitor configuration.
func DefaultConfig(probeURL string) *Config {
	return &Config{
		ProbeURL:      probeURL,
		ProbeInterval: 30 * time.Second,
		ProbeTimeout:  5 * time.Second,
	}
}

// Monitor periodically probes a remote endpoint and exposes the result as
// a point-in-time predicate. A positive result means the transport is up,
// not that every gateway call will succeed.
type Monitor struct {
	cfg    *Config
	client *http.Client
	log    *slog.Logger

	// onOnline fires once per offline-to-online transition.
	onOnline func()

	stopCh    chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	isRunning bool
	isOnline  bool
	forced    bool // manual override active; probes are ignored
}

// New creates a Monitor. onOnline is invoked exactly once per transition
// from offline to online; it runs on the monitor's goroutine, so handlers
// that drain the queue should not block for long.
func New(cfg *Config, onOnline func(), log *slog.Logger) *Monitor {
	if cfg == nil {
		cfg = DefaultConfig("")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Monitor{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.ProbeTimeout},
		log:      log,
		onOnline: onOnline,
		isOnline: true,
	}
}

// IsOnline reports the last observed connectivity state. It never blocks.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isOnline
}

// SetOnline overrides the probed state. Used by the desktop shell's
// forced-offline switch and by tests; while forced offline, probe results
// are ignored until SetOnline(true) releases the override.
func (m *Monitor) SetOnline(online bool) {
	m.transition(online, !online)
}

// Start begins the probe loop. A stopped monitor may be started again.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.isRunning {
		m.mu.Unlock()
		return
	}
	m.isRunning = true
	m.stopCh = make(chan struct{})
	stopCh := m.stopCh
	m.mu.Unlock()

	m.wg.Add(1)
	go m.probeLoop(ctx, stopCh)
	m.log.Info("connectivity monitor started", "probe_url", m.cfg.ProbeURL, "interval", m.cfg.ProbeInterval)
}

// Stop stops the probe loop and waits for it to finish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.isRunning {
		m.mu.Unlock()
		return
	}
	m.isRunning = false
	stopCh := m.stopCh
	m.mu.Unlock()

	close(stopCh)
	m.wg.Wait()
	m.log.Info("connectivity monitor stopped")
}

func (m *Monitor) probeLoop(ctx context.Context, stopCh <-chan struct{}) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.ProbeInterval)
	defer ticker.Stop()

	m.probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	m.mu.RLock()
	forced := m.forced
	m.mu.RUnlock()
	if forced || m.cfg.ProbeURL == "" {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.cfg.ProbeURL, nil)
	if err != nil {
		m.log.Warn("invalid probe request", "error", err)
		return
	}
	resp, err := m.client.Do(req)
	if err != nil {
		m.transition(false, false)
		return
	}
	resp.Body.Close()
	m.transition(resp.StatusCode < http.StatusInternalServerError, false)
}

// transition records the new state and fires onOnline exactly once per
// offline-to-online edge.
func (m *Monitor) transition(online, forced bool) {
	m.mu.Lock()
	wasOnline := m.isOnline
	m.isOnline = online
	m.forced = forced
	m.mu.Unlock()

	if wasOnline == online {
		return
	}
	m.log.Info("connectivity changed", "online", online)
	if online && m.onOnline != nil {
		m.onOnline()
	}
}
