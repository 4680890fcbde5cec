// Package connectivity tracks whether the remote store is reachable and
// notifies subscribers on transitions. It is a two-state machine (online,
// offline) fed either by the periodic probe in Run or by an external
// platform signal through SetOnline.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/akozadaev/inkpad/internal/client/remote"
	"github.com/akozadaev/inkpad/internal/logging"
)

const probeTimeout = 3 * time.Second

// Monitor observes online/offline transitions.
type Monitor struct {
	probe    remote.Probe
	interval time.Duration
	log      logging.Logger

	mu          sync.Mutex
	online      bool
	subscribers []func(online bool)
}

// NewMonitor returns a monitor that starts in the offline state. The first
// successful probe (or SetOnline call) produces the offline→online edge.
func NewMonitor(probe remote.Probe, interval time.Duration, log logging.Logger) *Monitor {
	return &Monitor{probe: probe, interval: interval, log: log}
}

// Online reports the current state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe registers fn for state transitions. The current state is
// delivered synchronously before Subscribe returns, so a subscriber never
// has to poll for the initial state and a cold start while online produces
// exactly one online notification.
func (m *Monitor) Subscribe(fn func(online bool)) {
	m.mu.Lock()
	m.subscribers = append(m.subscribers, fn)
	current := m.online
	m.mu.Unlock()

	fn(current)
}

// SetOnline feeds an externally observed connectivity state. Subscribers are
// only notified on transitions.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	subs := make([]func(bool), len(m.subscribers))
	copy(subs, m.subscribers)
	m.mu.Unlock()

	if m.log != nil {
		m.log.Info(context.Background(), "connectivity changed", "online", online)
	}
	for _, fn := range subs {
		fn(online)
	}
}

// Run probes the remote store at the configured interval until ctx is done.
// An immediate probe runs before the first tick so startup state settles
// without waiting a full interval. Probing never happens faster than the
// interval.
func (m *Monitor) Run(ctx context.Context) {
	m.probeOnce(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.probeOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) probeOnce(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	err := m.probe.Ping(probeCtx)
	cancel()

	m.SetOnline(err == nil)
}
