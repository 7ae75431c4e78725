package idle_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.sr.ht/~jakintosh/ssobridge/pkg/idle"
)

type fakeCredentials struct {
	mu      sync.Mutex
	present bool
	cleared int
}

func (c *fakeCredentials) HasCredential() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.present
}

func (c *fakeCredentials) ClearCredential() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.present = false
	c.cleared++
}

func (c *fakeCredentials) Cleared() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cleared
}

type fakeRenewer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *fakeRenewer) Renew(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.err
}

type fakePresenter struct {
	mu      sync.Mutex
	shown   []time.Duration
	ticks   []time.Duration
	hidden  int
	visible bool
}

func (p *fakePresenter) ShowWarning(remaining time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shown = append(p.shown, remaining)
	p.visible = true
}

func (p *fakePresenter) Tick(remaining time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ticks = append(p.ticks, remaining)
}

func (p *fakePresenter) HideWarning() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hidden++
	p.visible = false
}

func (p *fakePresenter) Visible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible
}

type fixture struct {
	clock     *clockwork.FakeClock
	tasks     *idle.Scheduler
	creds     *fakeCredentials
	renewer   *fakeRenewer
	presenter *fakePresenter
	monitor   *idle.Monitor
}

func setup(t *testing.T) *fixture {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	f := &fixture{
		clock:     clockwork.NewFakeClock(),
		creds:     &fakeCredentials{present: true},
		renewer:   &fakeRenewer{},
		presenter: &fakePresenter{},
	}
	f.tasks = idle.NewScheduler(f.clock)
	f.monitor = idle.NewMonitor(f.tasks, idle.DefaultConfig(), f.creds, f.renewer, f.presenter, log)
	t.Cleanup(f.tasks.CancelAll)
	return f
}

// advance moves the clock and runs one check, the way the idle-check task would.
func (f *fixture) advance(d time.Duration) idle.State {
	f.clock.Advance(d)
	f.monitor.Check()
	return f.monitor.State()
}

func TestMonitor_Thresholds(t *testing.T) {
	t.Parallel()
	f := setup(t)

	assert.Equal(t, idle.Active, f.advance(12*time.Minute+59*time.Second))
	assert.False(t, f.presenter.Visible())

	assert.Equal(t, idle.Warning, f.advance(time.Second))
	assert.True(t, f.presenter.Visible())
	assert.Equal(t, []time.Duration{2 * time.Minute}, f.presenter.shown)
	assert.True(t, f.tasks.Running(idle.TaskCountdown))

	// staying in the warning does not show it twice
	assert.Equal(t, idle.Warning, f.advance(time.Minute))
	assert.Len(t, f.presenter.shown, 1)

	assert.Equal(t, idle.Expired, f.advance(time.Minute))
	assert.Equal(t, 1, f.creds.Cleared())
	assert.False(t, f.presenter.Visible())
	assert.False(t, f.tasks.Running(idle.TaskCountdown))
}

func TestMonitor_ActivityDefersWarning(t *testing.T) {
	t.Parallel()
	f := setup(t)

	f.clock.Advance(5 * time.Minute)
	require.True(t, f.monitor.Activity("keydown"))

	// idle time counts from the activity at 5m
	assert.Equal(t, idle.Active, f.advance(12*time.Minute+59*time.Second))
	assert.Equal(t, idle.Warning, f.advance(time.Second))
	assert.Equal(t, 13*time.Minute, f.monitor.Idle())
}

func TestMonitor_ActivityDismissesWarning(t *testing.T) {
	t.Parallel()
	f := setup(t)

	require.Equal(t, idle.Warning, f.advance(13*time.Minute))

	assert.True(t, f.monitor.Activity("mousemove"))
	assert.Equal(t, idle.Active, f.monitor.State())
	assert.False(t, f.presenter.Visible())
	assert.False(t, f.tasks.Running(idle.TaskCountdown))
	assert.Equal(t, time.Duration(0), f.monitor.Idle())
}

// onMessage runs fn when an entry with the given message is logged.
type onMessage struct {
	message string
	fn      func()
}

func (h *onMessage) Levels() []logrus.Level { return logrus.AllLevels }

func (h *onMessage) Fire(e *logrus.Entry) error {
	if e.Message == h.message {
		h.fn()
	}
	return nil
}

func TestMonitor_ActivityWhileWarningIsRaised(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	tasks := idle.NewScheduler(clock)
	t.Cleanup(tasks.CancelAll)
	presenter := &fakePresenter{}

	var monitor *idle.Monitor
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.DebugLevel)
	log.AddHook(&onMessage{
		message: "idle warning",
		fn:      func() { monitor.Activity("keydown") },
	})

	monitor = idle.NewMonitor(tasks, idle.DefaultConfig(), &fakeCredentials{present: true}, &fakeRenewer{}, presenter, log)

	// the keypress lands after the transition but before the warning is drawn
	clock.Advance(13 * time.Minute)
	monitor.Check()

	assert.Equal(t, idle.Active, monitor.State())
	assert.False(t, presenter.Visible())
	assert.False(t, tasks.Running(idle.TaskCountdown))

	monitor.Check()
	assert.Equal(t, idle.Active, monitor.State())
	assert.False(t, presenter.Visible())
	assert.False(t, tasks.Running(idle.TaskCountdown))
}

func TestMonitor_ActivitySignals(t *testing.T) {
	t.Parallel()
	f := setup(t)

	for _, signal := range idle.ActivitySignals {
		assert.True(t, f.monitor.Activity(signal), signal)
	}
	for _, signal := range []string{"", "focus", "resize", "MOUSEMOVE"} {
		assert.False(t, f.monitor.Activity(signal), signal)
	}

	// an ignored signal does not reset the clock
	f.clock.Advance(time.Minute)
	f.monitor.Activity("focus")
	assert.Equal(t, time.Minute, f.monitor.Idle())
}

func TestMonitor_Continue(t *testing.T) {
	t.Parallel()
	f := setup(t)

	require.Equal(t, idle.Warning, f.advance(14*time.Minute))

	f.monitor.Continue(t.Context())
	assert.Equal(t, idle.Active, f.monitor.State())
	assert.Equal(t, 1, f.renewer.calls)
	assert.False(t, f.presenter.Visible())

	// the clock restarted at continue
	assert.Equal(t, idle.Active, f.advance(12*time.Minute))
	assert.Equal(t, 0, f.creds.Cleared())
}

func TestMonitor_ContinueRenewFailure(t *testing.T) {
	t.Parallel()
	f := setup(t)
	f.renewer.err = errors.New("offline")

	require.Equal(t, idle.Warning, f.advance(13*time.Minute))

	// renewal failure is not fatal
	f.monitor.Continue(t.Context())
	assert.Equal(t, idle.Active, f.monitor.State())
	assert.Equal(t, 1, f.renewer.calls)
}

func TestMonitor_SignOut(t *testing.T) {
	t.Parallel()
	f := setup(t)

	require.Equal(t, idle.Warning, f.advance(13*time.Minute))

	f.monitor.SignOut()
	assert.Equal(t, idle.Expired, f.monitor.State())
	assert.Equal(t, 1, f.creds.Cleared())
	assert.False(t, f.presenter.Visible())

	// nothing revives an expired monitor
	assert.False(t, f.monitor.Activity("click"))
	f.monitor.Continue(t.Context())
	assert.Equal(t, idle.Expired, f.monitor.State())
	assert.Equal(t, 0, f.renewer.calls)

	// expiry happens once
	f.monitor.SignOut()
	assert.Equal(t, 1, f.creds.Cleared())
}

func TestMonitor_CredentialGone(t *testing.T) {
	t.Parallel()
	f := setup(t)
	f.monitor.Start()

	f.creds.ClearCredential()
	assert.Equal(t, idle.LoggedOut, f.advance(time.Minute))
	assert.False(t, f.tasks.Running(idle.TaskIdleCheck))
}

func TestMonitor_ScheduledCheck(t *testing.T) {
	t.Parallel()
	f := setup(t)

	f.monitor.Start()
	require.True(t, f.tasks.Running(idle.TaskIdleCheck))
	require.NoError(t, f.clock.BlockUntilContext(t.Context(), 1))

	f.clock.Advance(13 * time.Minute)
	assert.Eventually(t, func() bool {
		return f.monitor.State() == idle.Warning
	}, time.Second, 10*time.Millisecond)

	f.monitor.Stop()
	assert.False(t, f.tasks.Running(idle.TaskIdleCheck))
	assert.False(t, f.tasks.Running(idle.TaskCountdown))
}

func TestStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ACTIVE", idle.Active.String())
	assert.Equal(t, "WARNING", idle.Warning.String())
	assert.Equal(t, "EXPIRED", idle.Expired.String())
	assert.Equal(t, "LOGGED_OUT", idle.LoggedOut.String())
	assert.Equal(t, "UNKNOWN", idle.State(42).String())
}
