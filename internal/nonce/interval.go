package nonce

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultClearInterval is the period of the full clear in Interval mode.
const DefaultClearInterval = 5 * time.Minute

// Interval keeps every nonce until the next scheduled full clear. A nonce
// consumed just before a clear boundary becomes acceptable again right after
// it, so this mode is only safe when tokens expire well inside one interval.
type Interval struct {
	mu       sync.Mutex
	seen     map[string]time.Time
	interval time.Duration
	cron     *cron.Cron
	log      *logrus.Entry
}

func NewInterval(
	interval time.Duration,
	log *logrus.Logger,
) *Interval {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Interval{
		seen:     make(map[string]time.Time),
		interval: interval,
		cron:     cron.New(),
		log:      log.WithField("component", "nonce.interval"),
	}
}

func (s *Interval) CheckAndInsert(
	_ context.Context,
	nonce string,
) (
	bool,
	error,
) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[nonce]; ok {
		return false, nil
	}
	s.seen[nonce] = time.Now()
	return true, nil
}

func (s *Interval) PurgeAll(context.Context) error {
	s.mu.Lock()
	n := len(s.seen)
	clear(s.seen)
	s.mu.Unlock()

	s.log.WithField("purged", n).Debug("cleared nonce store")
	return nil
}

func (s *Interval) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// Start schedules the periodic clear.
func (s *Interval) Start() {
	spec := fmt.Sprintf("@every %s", s.interval)
	_, err := s.cron.AddFunc(spec, func() {
		_ = s.PurgeAll(context.Background())
	})
	if err != nil {
		s.log.WithError(err).Error("failed to schedule nonce clear")
		return
	}
	s.cron.Start()
	s.log.WithField("interval", s.interval).Info("nonce store started")
}

// Stop cancels the clear schedule and waits for a running clear to finish.
func (s *Interval) Stop() {
	<-s.cron.Stop().Done()
}
