package idle_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.sr.ht/~jakintosh/ssobridge/pkg/idle"
)

func TestScheduler_Every(t *testing.T) {
	t.Parallel()
	clock := clockwork.NewFakeClock()
	tasks := idle.NewScheduler(clock)
	t.Cleanup(tasks.CancelAll)

	var runs atomic.Int32
	tasks.Every("job", time.Second, func() { runs.Add(1) })
	require.NoError(t, clock.BlockUntilContext(t.Context(), 1))

	clock.Advance(time.Second)
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_Cancel(t *testing.T) {
	t.Parallel()
	tasks := idle.NewScheduler(clockwork.NewFakeClock())

	tasks.Every("job", time.Second, func() {})
	assert.True(t, tasks.Running("job"))

	assert.True(t, tasks.Cancel("job"))
	assert.False(t, tasks.Running("job"))

	// cancelling again is harmless
	assert.False(t, tasks.Cancel("job"))
	assert.False(t, tasks.Cancel("never-scheduled"))
}

func TestScheduler_Replace(t *testing.T) {
	t.Parallel()
	clock := clockwork.NewFakeClock()
	tasks := idle.NewScheduler(clock)
	t.Cleanup(tasks.CancelAll)

	var first, second atomic.Int32
	tasks.Every("job", time.Second, func() { first.Add(1) })
	tasks.Every("job", time.Second, func() { second.Add(1) })
	require.NoError(t, clock.BlockUntilContext(t.Context(), 1))

	clock.Advance(time.Second)
	assert.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), first.Load())
}

func TestScheduler_CancelAll(t *testing.T) {
	t.Parallel()
	tasks := idle.NewScheduler(clockwork.NewFakeClock())

	tasks.Every(idle.TaskIdleCheck, time.Second, func() {})
	tasks.Every(idle.TaskCountdown, time.Second, func() {})
	tasks.CancelAll()

	assert.False(t, tasks.Running(idle.TaskIdleCheck))
	assert.False(t, tasks.Running(idle.TaskCountdown))
}
