package database

import (
	"context"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/01moynul/pawshop-golang/internal/apperr"
)

const livenessTimeout = 2 * time.Second

// Handle is a single database connection handed out by the Pool.
type Handle struct {
	*sqlx.Conn
	pooled bool
}

// Pooled reports whether the handle counts against the pool's capacity.
// Temporary handles are closed on release.
func (h *Handle) Pooled() bool { return h.pooled }

// PoolStats is a snapshot of the pool counters.
type PoolStats struct {
	Max       int `json:"max"`
	Created   int `json:"created"`
	Idle      int `json:"idle"`
	Temporary int `json:"temporary"`
}

// Pool hands out connections without unbounded growth and without making
// callers wait: past capacity it returns temporary unpooled handles.
type Pool struct {
	db          *sqlx.DB
	dialect     Dialect
	max         int
	lockTimeout time.Duration

	mu        sync.Mutex
	idle      []*Handle
	created   int
	temporary int
	closed    bool
}

func NewPool(db *sqlx.DB, dialect Dialect, max int, lockTimeout time.Duration) *Pool {
	if max < 1 {
		max = 1
	}
	return &Pool{db: db, dialect: dialect, max: max, lockTimeout: lockTimeout}
}

func (p *Pool) Dialect() Dialect { return p.dialect }

// DB exposes the underlying handle for migrations and admin tooling.
func (p *Pool) DB() *sqlx.DB { return p.db }

// Acquire returns an idle handle, a new pooled handle while under capacity,
// or a temporary handle otherwise.
func (p *Pool) Acquire(ctx context.Context) (*Handle, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, errors.New("connection pool is closed")
	}
	if n := len(p.idle); n > 0 {
		h := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return h, nil
	}
	pooled := p.created < p.max
	if pooled {
		p.created++
	} else {
		p.temporary++
	}
	p.mu.Unlock()

	h, err := p.open(ctx, pooled)
	if err != nil {
		p.mu.Lock()
		if pooled {
			p.created--
		} else {
			p.temporary--
		}
		p.mu.Unlock()
		return nil, apperr.Retryable(err, "database unavailable")
	}

	if !pooled {
		log.WithField("max", p.max).Debug("connection pool exhausted, using temporary handle")
	}
	return h, nil
}

// Release returns h to the pool. Handles failing the liveness check are
// discarded so a replacement can be created later.
func (p *Pool) Release(h *Handle) {
	if h == nil {
		return
	}
	if !h.pooled {
		p.mu.Lock()
		p.temporary--
		p.mu.Unlock()
		_ = h.Close()
		return
	}

	if err := p.alive(h); err != nil {
		log.WithError(err).Debug("discarding dead database handle")
		p.discard(h)
		return
	}

	p.mu.Lock()
	if p.closed || len(p.idle) >= p.max {
		p.mu.Unlock()
		p.discard(h)
		return
	}
	p.idle = append(p.idle, h)
	p.mu.Unlock()
}

func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{Max: p.max, Created: p.created, Idle: len(p.idle), Temporary: p.temporary}
}

// Close closes all idle handles. Handles still checked out are closed when released.
func (p *Pool) Close() {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.created -= len(idle)
	p.closed = true
	p.mu.Unlock()

	for _, h := range idle {
		_ = h.Close()
	}
}

func (p *Pool) open(ctx context.Context, pooled bool) (*Handle, error) {
	conn, err := p.db.Connx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "open connection")
	}
	for _, stmt := range p.dialect.SessionSettings(p.lockTimeout) {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			_ = conn.Close()
			return nil, errors.Wrapf(err, "apply %q", stmt)
		}
	}
	return &Handle{Conn: conn, pooled: pooled}, nil
}

func (p *Pool) alive(h *Handle) error {
	ctx, cancel := context.WithTimeout(context.Background(), livenessTimeout)
	defer cancel()
	_, err := h.ExecContext(ctx, "SELECT 1")
	return err
}

func (p *Pool) discard(h *Handle) {
	p.mu.Lock()
	p.created--
	p.mu.Unlock()
	_ = h.Close()
}
