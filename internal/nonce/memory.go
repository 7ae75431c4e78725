// Package nonce provides stores that record consumed control plane token
// nonces so each token is accepted at most once.
//
// Every store offers an atomic CheckAndInsert: two concurrent callers with the
// same nonce can never both observe it as fresh.
package nonce

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
)

// DefaultTokenTTL is the lifetime the control plane gives its tokens.
const DefaultTokenTTL = 30 * time.Second

// DefaultMargin is added to the token lifetime when expiring nonces
// individually.
const DefaultMargin = 5 * time.Minute

// Memory expires each nonce on its own once the token it came from can no
// longer be valid. Capacity is unbounded, so a nonce is only forgotten by
// expiry.
type Memory struct {
	mu   sync.Mutex
	seen *expirable.LRU[string, time.Time]
	ttl  time.Duration
	log  *logrus.Entry
}

func NewMemory(
	retention time.Duration,
	log *logrus.Logger,
) *Memory {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Memory{
		seen: expirable.NewLRU[string, time.Time](0, nil, retention),
		ttl:  retention,
		log:  log.WithField("component", "nonce.memory"),
	}
}

func (m *Memory) CheckAndInsert(
	_ context.Context,
	nonce string,
) (
	bool,
	error,
) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.seen.Get(nonce); ok {
		return false, nil
	}
	m.seen.Add(nonce, time.Now())
	return true, nil
}

func (m *Memory) PurgeAll(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seen.Purge()
	return nil
}

// Len reports how many nonces are currently retained.
func (m *Memory) Len() int {
	return m.seen.Len()
}

func (m *Memory) Start() {
	m.log.WithField("retention", m.ttl).Info("nonce store started")
}

func (m *Memory) Stop() {
	if err := m.PurgeAll(context.Background()); err != nil {
		m.log.WithError(err).Warn("failed to purge nonces on stop")
	}
}
