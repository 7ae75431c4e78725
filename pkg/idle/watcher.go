package idle

import (
	"sync"
	"time"
)

// Watcher polls for the local credential and calls onLoss once when it
// disappears, whether the monitor cleared it or something else did.
type Watcher struct {
	mu          sync.Mutex
	tasks       *Scheduler
	credentials Credentials
	interval    time.Duration
	onLoss      func()
	fired       bool
}

func NewWatcher(
	tasks *Scheduler,
	credentials Credentials,
	interval time.Duration,
	onLoss func(),
) *Watcher {
	return &Watcher{
		tasks:       tasks,
		credentials: credentials,
		interval:    interval,
		onLoss:      onLoss,
	}
}

func (w *Watcher) Start() {
	w.tasks.Every(TaskSessionWatch, w.interval, w.Poll)
}

func (w *Watcher) Stop() {
	w.tasks.Cancel(TaskSessionWatch)
}

// Poll checks the credential once.
func (w *Watcher) Poll() {
	if w.credentials.HasCredential() {
		return
	}

	w.mu.Lock()
	if w.fired {
		w.mu.Unlock()
		return
	}
	w.fired = true
	w.mu.Unlock()

	w.Stop()
	if w.onLoss != nil {
		w.onLoss()
	}
}
