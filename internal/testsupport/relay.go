package testsupport

import (
	"context"
	"errors"
	"sync"

	"github.com/manastr/core/internal/relay"
)

// InMemoryBus is a single-process stand-in for the relay's signed-event
// store: every Dial against it shares the same broadcast fan-out, so
// multiple adapters (a validator and any number of reference clients) can
// exchange events in tests without a network.
type InMemoryBus struct {
	mu    sync.Mutex
	conns []*inMemoryConn
}

// NewInMemoryBus returns an empty bus.
func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{}
}

// Dial implements relay.Dialer: every dial against the same bus joins the
// same broadcast group regardless of the url argument, which is ignored.
func (b *InMemoryBus) Dial(_ context.Context, _ string) (relay.Conn, error) {
	c := &inMemoryConn{bus: b, inbound: make(chan []byte, 256)}
	b.mu.Lock()
	b.conns = append(b.conns, c)
	b.mu.Unlock()
	return c, nil
}

func (b *InMemoryBus) broadcast(from *inMemoryConn, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.conns {
		if c == from || c.closed {
			continue
		}
		select {
		case c.inbound <- data:
		default:
		}
	}
}

type inMemoryConn struct {
	bus     *InMemoryBus
	inbound chan []byte
	mu      sync.Mutex
	closed  bool
}

func (c *inMemoryConn) ReadMessage() ([]byte, error) {
	data, ok := <-c.inbound
	if !ok {
		return nil, errors.New("testsupport: connection closed")
	}
	return data, nil
}

func (c *inMemoryConn) WriteMessage(data []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("testsupport: write on closed connection")
	}
	c.mu.Unlock()
	c.bus.broadcast(c, data)
	return nil
}

func (c *inMemoryConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.inbound)
	return nil
}
