package s3

import (
	"net/http"
	"sync"
)

// sessionPool is an unbounded free list of HTTP sessions. A session is an
// http.Client bound to the store's shared transport; each operation
// borrows one for its lifetime, so per-session state never crosses
// between concurrent operations. Connections live in the shared
// transport and survive the session's return to the pool.
type sessionPool struct {
	mu      sync.Mutex
	free    []*http.Client
	factory func() *http.Client
}

func newSessionPool(factory func() *http.Client) *sessionPool {
	return &sessionPool{factory: factory}
}

// acquire pops a free session, building a new one when the free list is
// empty.
func (p *sessionPool) acquire() *http.Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := len(p.free); n > 0 {
		c := p.free[n-1]
		p.free = p.free[:n-1]
		return c
	}
	return p.factory()
}

// release pushes a session back onto the free list.
func (p *sessionPool) release(c *http.Client) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.free = append(p.free, c)
}

// with runs fn with a borrowed session, returning the session to the
// pool on every exit path.
func (p *sessionPool) with(fn func(*http.Client) error) error {
	c := p.acquire()
	defer p.release(c)
	return fn(c)
}
