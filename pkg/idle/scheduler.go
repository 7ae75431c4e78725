package idle

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Task names used by the monitor and watcher.
const (
	TaskIdleCheck    = "idle-check"
	TaskCountdown    = "countdown"
	TaskSessionWatch = "session-watch"
)

// Scheduler owns a set of named repeating tasks. Each name has at most one
// running task; scheduling a name again replaces it.
type Scheduler struct {
	mu    sync.Mutex
	clock clockwork.Clock
	tasks map[string]*task
}

type task struct {
	ticker clockwork.Ticker
	done   chan struct{}
}

func NewScheduler(clock clockwork.Clock) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		clock: clock,
		tasks: make(map[string]*task),
	}
}

func (s *Scheduler) Clock() clockwork.Clock {
	return s.clock
}

// Every runs fn every interval until the task is cancelled.
func (s *Scheduler) Every(name string, interval time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.tasks[name]; ok {
		existing.stop()
	}

	t := &task{
		ticker: s.clock.NewTicker(interval),
		done:   make(chan struct{}),
	}
	s.tasks[name] = t
	go t.run(fn)
}

// Cancel stops the named task. Cancelling a task that is not running is a
// no-op; the result reports whether anything was stopped.
func (s *Scheduler) Cancel(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[name]
	if !ok {
		return false
	}
	t.stop()
	delete(s.tasks, name)
	return true
}

func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, t := range s.tasks {
		t.stop()
		delete(s.tasks, name)
	}
}

func (s *Scheduler) Running(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[name]
	return ok
}

func (t *task) run(fn func()) {
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.Chan():
			// a cancel racing a tick wins
			select {
			case <-t.done:
				return
			default:
			}
			fn()
		}
	}
}

func (t *task) stop() {
	t.ticker.Stop()
	close(t.done)
}
