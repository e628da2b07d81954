// Package offline holds the pieces that keep registration working while the
// remote store is unreachable: the connectivity monitor, the national id
// checker, the draft uploader and the save policy tying them together.
package offline

import (
	"context"
	"io"
	"sync"
	"time"

	"campaid/internal/metrics"

	"github.com/sirupsen/logrus"
)

// Pinger probes the remote store. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

type MonitorConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}

// Monitor tracks whether the remote store is reachable. It starts offline and
// flips on the first successful probe.
type Monitor struct {
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration
	logger   *logrus.Logger

	mu        sync.RWMutex
	online    bool
	listeners []func(online bool)
}

func NewMonitor(pinger Pinger, cfg MonitorConfig, logger *logrus.Logger) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	return &Monitor{
		pinger:   pinger,
		interval: cfg.Interval,
		timeout:  cfg.Timeout,
		logger:   logger,
	}
}

func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// OnChange registers fn to run after every state transition. Callbacks run on
// the goroutine that observed the transition.
func (m *Monitor) OnChange(fn func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Check probes the remote store once, records the result and notifies the
// listeners when the state changed.
func (m *Monitor) Check(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.pinger.Ping(probeCtx)
	cancel()

	online := err == nil

	m.mu.Lock()
	changed := online != m.online
	m.online = online
	listeners := append([]func(bool){}, m.listeners...)
	m.mu.Unlock()

	if !changed {
		return online
	}

	state := "offline"
	if online {
		state = "online"
		metrics.Online.Set(1)
	} else {
		metrics.Online.Set(0)
	}
	metrics.ConnectivityTransitions.WithLabelValues(state).Inc()

	entry := m.logger.WithField("state", state)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Info("remote store connectivity changed")

	for _, fn := range listeners {
		fn(online)
	}

	return online
}

// Run probes immediately and then on every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	m.Check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}
