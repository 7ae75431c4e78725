// Package idle implements the client side idle timeout. A Monitor tracks
// user activity and moves from ACTIVE to WARNING to EXPIRED as the user
// stays idle, clearing the local credential on expiry. A Watcher notices
// when the credential is gone and hands control back to the caller.
//
// Timers are named tasks on a Scheduler backed by a clockwork.Clock, so the
// whole state machine can be driven by a fake clock in tests.
package idle

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type State int

const (
	Active State = iota
	Warning
	Expired
	LoggedOut
)

func (s State) String() string {
	switch s {
	case Active:
		return "ACTIVE"
	case Warning:
		return "WARNING"
	case Expired:
		return "EXPIRED"
	case LoggedOut:
		return "LOGGED_OUT"
	default:
		return "UNKNOWN"
	}
}

type Config struct {
	WarnAfter         time.Duration
	ExpireAfter       time.Duration
	CheckInterval     time.Duration
	CountdownInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		WarnAfter:         13 * time.Minute,
		ExpireAfter:       15 * time.Minute,
		CheckInterval:     10 * time.Second,
		CountdownInterval: time.Second,
	}
}

// ActivitySignals are the user events that count as activity.
var ActivitySignals = []string{
	"mousemove",
	"mousedown",
	"keydown",
	"scroll",
	"touchstart",
	"click",
}

func isActivitySignal(signal string) bool {
	for _, s := range ActivitySignals {
		if s == signal {
			return true
		}
	}
	return false
}

// Credentials is the client's local session credential.
type Credentials interface {
	HasCredential() bool
	ClearCredential()
}

// Renewer silently renews the access credential on "continue".
type Renewer interface {
	Renew(ctx context.Context) error
}

// Presenter shows the idle warning. Calls are made without the monitor's
// lock held, so a presenter may call back into the monitor.
type Presenter interface {
	ShowWarning(remaining time.Duration)
	Tick(remaining time.Duration)
	HideWarning()
}

type Monitor struct {
	mu           sync.Mutex
	tasks        *Scheduler
	config       Config
	credentials  Credentials
	renewer      Renewer
	presenter    Presenter
	state        State
	lastActivity time.Time
	warningShown bool
	log          *logrus.Entry
}

func NewMonitor(
	tasks *Scheduler,
	config Config,
	credentials Credentials,
	renewer Renewer,
	presenter Presenter,
	log *logrus.Logger,
) *Monitor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if presenter == nil {
		presenter = nopPresenter{}
	}
	return &Monitor{
		tasks:        tasks,
		config:       config,
		credentials:  credentials,
		renewer:      renewer,
		presenter:    presenter,
		state:        Active,
		lastActivity: tasks.Clock().Now(),
		log:          log.WithField("component", "idle"),
	}
}

// Start resets the activity clock and schedules the periodic check.
func (m *Monitor) Start() {
	m.mu.Lock()
	m.state = Active
	m.lastActivity = m.now()
	m.mu.Unlock()

	m.tasks.Every(TaskIdleCheck, m.config.CheckInterval, m.Check)
}

// Stop cancels the monitor's tasks without changing its state.
func (m *Monitor) Stop() {
	m.tasks.Cancel(TaskIdleCheck)
	m.tasks.Cancel(TaskCountdown)
}

func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Idle is the time since the last activity.
func (m *Monitor) Idle() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now().Sub(m.lastActivity)
}

// Activity records a user event. Unknown signals are ignored, as is
// anything after expiry. It reports whether the event counted.
func (m *Monitor) Activity(signal string) bool {
	if !isActivitySignal(signal) {
		return false
	}

	m.mu.Lock()
	if m.state == Expired || m.state == LoggedOut {
		m.mu.Unlock()
		return false
	}
	m.lastActivity = m.now()
	hide := m.dismissLocked()
	m.mu.Unlock()

	if hide {
		m.presenter.HideWarning()
	}
	return true
}

// Check is the authoritative transition step, run every CheckInterval.
func (m *Monitor) Check() {
	if !m.credentials.HasCredential() {
		m.logOut()
		return
	}

	m.mu.Lock()
	if m.state == Expired || m.state == LoggedOut {
		m.mu.Unlock()
		return
	}

	idle := m.now().Sub(m.lastActivity)
	switch {
	case idle >= m.config.ExpireAfter:
		m.mu.Unlock()
		m.expire()

	case idle >= m.config.WarnAfter:
		if m.state == Warning {
			m.mu.Unlock()
			return
		}
		m.state = Warning
		m.warningShown = true
		remaining := m.config.ExpireAfter - idle
		// started under the lock so a dismissal can always cancel it
		m.tasks.Every(TaskCountdown, m.config.CountdownInterval, m.tick)
		m.mu.Unlock()

		m.log.WithField("remaining", remaining).Debug("idle warning")
		m.presenter.ShowWarning(remaining)

		// activity that landed before ShowWarning already hid the warning
		m.mu.Lock()
		stale := m.state != Warning
		m.mu.Unlock()
		if stale {
			m.tasks.Cancel(TaskCountdown)
			m.presenter.HideWarning()
		}

	default:
		hide := m.dismissLocked()
		m.mu.Unlock()
		if hide {
			m.presenter.HideWarning()
		}
	}
}

// Continue is the user choosing to stay signed in from the warning. The
// renewal is best-effort.
func (m *Monitor) Continue(ctx context.Context) {
	m.mu.Lock()
	if m.state == Expired || m.state == LoggedOut {
		m.mu.Unlock()
		return
	}
	m.lastActivity = m.now()
	hide := m.dismissLocked()
	m.mu.Unlock()

	if hide {
		m.presenter.HideWarning()
	}

	if m.renewer == nil {
		return
	}
	if err := m.renewer.Renew(ctx); err != nil {
		m.log.WithError(err).Warn("failed to renew session")
	}
}

// SignOut is the user choosing to leave from the warning.
func (m *Monitor) SignOut() {
	m.expire()
}

func (m *Monitor) expire() {
	m.mu.Lock()
	if m.state == Expired || m.state == LoggedOut {
		m.mu.Unlock()
		return
	}
	m.state = Expired
	hide := m.warningShown
	m.warningShown = false
	m.mu.Unlock()

	m.Stop()
	if hide {
		m.presenter.HideWarning()
	}
	m.log.Info("session expired after inactivity")
	m.credentials.ClearCredential()
}

func (m *Monitor) logOut() {
	m.mu.Lock()
	if m.state == LoggedOut {
		m.mu.Unlock()
		return
	}
	m.state = LoggedOut
	hide := m.warningShown
	m.warningShown = false
	m.mu.Unlock()

	m.Stop()
	if hide {
		m.presenter.HideWarning()
	}
}

// dismissLocked returns to ACTIVE from WARNING. It reports whether the
// warning needs hiding; calling it when no warning is up is a no-op.
func (m *Monitor) dismissLocked() bool {
	if m.state == Warning {
		m.state = Active
	}
	if !m.warningShown {
		return false
	}
	m.warningShown = false
	m.tasks.Cancel(TaskCountdown)
	return true
}

func (m *Monitor) tick() {
	m.mu.Lock()
	if m.state != Warning {
		m.mu.Unlock()
		return
	}
	remaining := m.config.ExpireAfter - m.now().Sub(m.lastActivity)
	m.mu.Unlock()

	if remaining < 0 {
		remaining = 0
	}
	m.presenter.Tick(remaining)
}

func (m *Monitor) now() time.Time {
	return m.tasks.Clock().Now()
}

type nopPresenter struct{}

func (nopPresenter) ShowWarning(time.Duration) {}
func (nopPresenter) Tick(time.Duration)        {}
func (nopPresenter) HideWarning()              {}
