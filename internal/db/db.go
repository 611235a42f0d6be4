package db

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/slmes-creator/job-posting/internal/oxidb"
)

const (
	dialTimeout       = 5 * time.Second
	keepaliveInterval = 10 * time.Second
)

// Pool is a round-robin connection pool for OxiDB with auto-reconnect.
type Pool struct {
	addr    string
	clients []*oxidb.Client
	mu      sync.RWMutex
	idx     uint64
	stop    chan struct{}
	once    sync.Once
	logger  *slog.Logger
}

// NewPool opens size connections to addr and starts the keepalive loop.
func NewPool(ctx context.Context, addr string, size int, logger *slog.Logger) (*Pool, error) {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		addr:    addr,
		clients: make([]*oxidb.Client, size),
		stop:    make(chan struct{}),
		logger:  logger.With("component", "oxidb_pool"),
	}
	for i := 0; i < size; i++ {
		c, err := p.dial(ctx)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("pool: connect client %d: %w", i, err)
		}
		p.clients[i] = c
	}
	go p.keepalive()
	return p, nil
}

func (p *Pool) dial(ctx context.Context) (*oxidb.Client, error) {
	dctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	return oxidb.Dial(dctx, p.addr)
}

// Get returns the next client in round-robin order. A client whose
// connection broke mid-request is redialed before it is handed out.
func (p *Pool) Get() *oxidb.Client {
	n := atomic.AddUint64(&p.idx, 1)
	p.mu.RLock()
	i := int(n % uint64(len(p.clients)))
	c := p.clients[i]
	p.mu.RUnlock()
	if c.Broken() {
		return p.replace(i, c)
	}
	return c
}

// Size returns the number of pooled connections.
func (p *Pool) Size() int {
	return len(p.clients)
}

// Ping checks every connection once.
func (p *Pool) Ping(ctx context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for i, c := range p.clients {
		if _, err := c.Ping(ctx); err != nil {
			return fmt.Errorf("pool: client %d: %w", i, err)
		}
	}
	return nil
}

// replace swaps slot i for a fresh connection unless another caller already
// did. It returns whatever the slot holds afterwards.
func (p *Pool) replace(i int, old *oxidb.Client) *oxidb.Client {
	select {
	case <-p.stop:
		return old
	default:
	}
	c, err := p.dial(context.Background())
	if err != nil {
		p.logger.Warn("reconnect failed", "client", i, "error", err)
		return old
	}
	p.mu.Lock()
	if p.clients[i] != old {
		cur := p.clients[i]
		p.mu.Unlock()
		c.Close()
		return cur
	}
	p.clients[i] = c
	p.mu.Unlock()
	if old != nil {
		old.Close()
	}
	p.logger.Info("reconnected", "client", i)
	return c
}

func (p *Pool) keepalive() {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			for i := range p.clients {
				p.mu.RLock()
				c := p.clients[i]
				p.mu.RUnlock()
				ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
				_, err := c.Ping(ctx)
				cancel()
				if err != nil {
					p.logger.Warn("ping failed, reconnecting", "client", i, "error", err)
					p.replace(i, c)
				}
			}
		}
	}
}

// Close stops the keepalive loop and closes all connections.
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.stop)
		p.mu.Lock()
		defer p.mu.Unlock()
		for _, c := range p.clients {
			if c != nil {
				c.Close()
			}
		}
	})
}
