// Package lifecycle tracks the client's open/closed state.
//
// A client moves Active → ShuttingDown → Closed exactly once. While active it
// can optionally warn when it has gone unused for a long time without being
// shut down, which usually means a server process forgot to call Shutdown
// and will lose its buffered events.
package lifecycle

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Logger is the subset of the structured logger used here.
type Logger interface {
	Warn(msg string, args ...any)
}

// Metrics is the subset of the metrics interface used here.
type Metrics interface {
	IncrementCounter(name string, value int64)
	SetGauge(name string, value float64)
}

// ErrAlreadyClosed is returned by BeginShutdown after the first call.
var ErrAlreadyClosed = errors.New("lifecycle: already closed or shutting down")

// State is the client state.
type State int32

const (
	StateActive State = iota
	StateShuttingDown
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateShuttingDown:
		return "shutting_down"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Config configures a Manager.
type Config struct {
	// IdleWarning logs a single warning once the client has seen no
	// activity for this long. Zero disables the check.
	IdleWarning time.Duration

	Logger  Logger
	Metrics Metrics

	// OnStateChange is called after every transition.
	OnStateChange func(from, to State)
}

// Stats describes the lifecycle.
type Stats struct {
	State        State
	CreatedAt    time.Time
	LastActivity time.Time
	Uptime       time.Duration
}

// Manager holds the client state. It is safe for concurrent use.
type Manager struct {
	state        atomic.Int32
	createdAt    time.Time
	lastActivity atomic.Int64

	idleWarning time.Duration
	warned      atomic.Bool
	logger      Logger
	metrics     Metrics
	onChange    func(from, to State)

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewManager returns an active Manager.
func NewManager(cfg Config) *Manager {
	now := time.Now()
	m := &Manager{
		createdAt:   now,
		idleWarning: cfg.IdleWarning,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		onChange:    cfg.OnStateChange,
		stop:        make(chan struct{}),
	}
	m.state.Store(int32(StateActive))
	m.lastActivity.Store(now.UnixNano())

	if m.idleWarning > 0 && m.logger != nil {
		m.wg.Add(1)
		go m.watchIdle()
	}
	return m
}

func (m *Manager) watchIdle() {
	defer m.wg.Done()

	interval := m.idleWarning / 2
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			idle := time.Since(m.LastActivity())
			if idle < m.idleWarning || !m.warned.CompareAndSwap(false, true) {
				continue
			}
			m.logger.Warn("client idle without Shutdown; buffered events are lost if the process exits",
				"idle", idle.Round(time.Millisecond),
				"created_at", m.createdAt.Format(time.RFC3339))
			if m.metrics != nil {
				m.metrics.IncrementCounter("weblytics.client.idle_warning", 1)
			}
			return
		}
	}
}

// State returns the current state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// IsActive reports whether the client accepts new work.
func (m *Manager) IsActive() bool {
	return m.State() == StateActive
}

// RecordActivity marks the client as used now.
func (m *Manager) RecordActivity() {
	m.lastActivity.Store(time.Now().UnixNano())
}

// LastActivity returns the time of the last recorded activity.
func (m *Manager) LastActivity() time.Time {
	return time.Unix(0, m.lastActivity.Load())
}

// BeginShutdown moves an active client to ShuttingDown and stops the idle
// watcher. Every call after the first returns ErrAlreadyClosed.
func (m *Manager) BeginShutdown() error {
	if !m.transition(StateActive, StateShuttingDown) {
		return ErrAlreadyClosed
	}
	close(m.stop)
	m.wg.Wait()
	return nil
}

// CompleteShutdown moves a shutting-down client to Closed.
func (m *Manager) CompleteShutdown() {
	m.transition(StateShuttingDown, StateClosed)
}

// Stats returns a snapshot of the lifecycle.
func (m *Manager) Stats() Stats {
	return Stats{
		State:        m.State(),
		CreatedAt:    m.createdAt,
		LastActivity: m.LastActivity(),
		Uptime:       time.Since(m.createdAt),
	}
}

func (m *Manager) transition(from, to State) bool {
	if !m.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	if m.onChange != nil {
		m.onChange(from, to)
	}
	if m.metrics != nil {
		m.metrics.SetGauge("weblytics.client.state", float64(to))
	}
	return true
}
