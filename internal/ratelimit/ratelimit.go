// Package ratelimit implements a sliding-window-log limiter keyed by client.
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// WindowStore keeps the accepted-request timestamps of each client.
type WindowStore interface {
	// Record prunes timestamps of key at or before now-window, then appends
	// now if fewer than max remain. It reports whether now was appended.
	Record(ctx context.Context, key string, now time.Time, window time.Duration, max int) (bool, error)
	// Sweep drops keys whose newest timestamp is older than before.
	Sweep(ctx context.Context, before time.Time) (int, error)
}

// Policy is the budget of one route class.
type Policy struct {
	Name   string
	Max    int
	Window time.Duration
}

var (
	Register   = Policy{Name: "register", Max: 5, Window: time.Hour}
	Login      = Policy{Name: "login", Max: 10, Window: 15 * time.Minute}
	Review     = Policy{Name: "review", Max: 5, Window: time.Hour}
	Contact    = Policy{Name: "contact", Max: 5, Window: time.Hour}
	Newsletter = Policy{Name: "newsletter", Max: 5, Window: time.Hour}
	Checkout   = Policy{Name: "checkout", Max: 10, Window: 10 * time.Minute}
	Browse     = Policy{Name: "browse", Max: 120, Window: time.Minute}
)

type Limiter struct {
	store WindowStore
	now   func() time.Time
}

func New(store WindowStore) *Limiter {
	return &Limiter{store: store, now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Allow reports whether client may make another request under a budget of
// max requests per trailing window. A store failure rejects the request.
func (l *Limiter) Allow(ctx context.Context, client string, max int, window time.Duration) bool {
	ok, err := l.store.Record(ctx, client, l.now(), window, max)
	if err != nil {
		log.WithError(err).WithField("client", client).Error("rate limit store failed, rejecting request")
		return false
	}
	return ok
}

// AllowPolicy checks client against p. Budgets of different policies are independent.
func (l *Limiter) AllowPolicy(ctx context.Context, p Policy, client string) bool {
	return l.Allow(ctx, p.Name+"|"+client, p.Max, p.Window)
}

// Sweep drops windows that have had no traffic for longest.
func (l *Limiter) Sweep(ctx context.Context, longest time.Duration) {
	n, err := l.store.Sweep(ctx, l.now().Add(-longest))
	if err != nil {
		log.WithError(err).Warn("rate limit sweep failed")
		return
	}
	if n > 0 {
		log.WithField("windows", n).Debug("rate limit windows swept")
	}
}

// MemoryStore is a process-local WindowStore.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string][]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string][]time.Time)}
}

func (m *MemoryStore) Record(_ context.Context, key string, now time.Time, window time.Duration, max int) (bool, error) {
	if max < 1 {
		return false, errors.Errorf("invalid budget %d for %s", max, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := now.Add(-window)
	stamps := m.windows[key]
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	stamps = stamps[i:]

	if len(stamps) >= max {
		m.windows[key] = stamps
		return false, nil
	}
	m.windows[key] = append(stamps, now)
	return true, nil
}

func (m *MemoryStore) Sweep(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for key, stamps := range m.windows {
		if len(stamps) == 0 || stamps[len(stamps)-1].Before(before) {
			delete(m.windows, key)
			n++
		}
	}
	return n, nil
}

// Len is the number of tracked windows.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

// ClientID identifies the caller of r: the first usable address in
// X-Forwarded-For, then X-Real-IP, then the connection address.
func ClientID(r *http.Request) string {
	for _, part := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
			return ip.String()
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
