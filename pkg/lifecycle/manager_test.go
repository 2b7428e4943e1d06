package lifecycle

import (
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Warn(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *recordingLogger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warns)
}

func TestManager_Transitions(t *testing.T) {
	var changes []string
	m := NewManager(Config{
		OnStateChange: func(from, to State) {
			changes = append(changes, from.String()+"->"+to.String())
		},
	})

	if !m.IsActive() {
		t.Fatalf("new manager state = %v, want active", m.State())
	}

	if err := m.BeginShutdown(); err != nil {
		t.Fatalf("BeginShutdown() error = %v", err)
	}
	if m.State() != StateShuttingDown {
		t.Errorf("state = %v, want shutting_down", m.State())
	}
	if err := m.BeginShutdown(); !errors.Is(err, ErrAlreadyClosed) {
		t.Errorf("second BeginShutdown() error = %v, want ErrAlreadyClosed", err)
	}

	m.CompleteShutdown()
	if m.State() != StateClosed {
		t.Errorf("state = %v, want closed", m.State())
	}

	want := []string{"active->shutting_down", "shutting_down->closed"}
	if len(changes) != len(want) {
		t.Fatalf("changes = %v, want %v", changes, want)
	}
	for i := range want {
		if changes[i] != want[i] {
			t.Errorf("changes[%d] = %q, want %q", i, changes[i], want[i])
		}
	}
}

func TestManager_IdleWarningFiresOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	logger := &recordingLogger{}
	m := NewManager(Config{IdleWarning: 20 * time.Millisecond, Logger: logger})

	deadline := time.Now().Add(2 * time.Second)
	for logger.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(60 * time.Millisecond)

	if got := logger.count(); got != 1 {
		t.Errorf("idle warnings = %d, want 1", got)
	}
	if err := m.BeginShutdown(); err != nil {
		t.Fatalf("BeginShutdown() error = %v", err)
	}
}

func TestManager_ActivityPostponesIdleWarning(t *testing.T) {
	defer goleak.VerifyNone(t)

	logger := &recordingLogger{}
	m := NewManager(Config{IdleWarning: 200 * time.Millisecond, Logger: logger})

	for range 5 {
		time.Sleep(20 * time.Millisecond)
		m.RecordActivity()
	}
	if got := logger.count(); got != 0 {
		t.Errorf("idle warnings = %d, want 0 while active", got)
	}
	if err := m.BeginShutdown(); err != nil {
		t.Fatalf("BeginShutdown() error = %v", err)
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateActive:       "active",
		StateShuttingDown: "shutting_down",
		StateClosed:       "closed",
		State(42):         "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
