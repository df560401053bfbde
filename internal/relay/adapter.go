// Package relay adapts the validator and reference client to the generic
// pub/sub event bus: it dials one or more WebSocket relay URLs, deduplicates
// events observed on more than one relay, buffers ingest into a bounded
// queue with backpressure, and publishes the validator's terminal event
// idempotently by event id. A publish is a single attempt per call; the
// adapter does not retry a failed publish on its own.
package relay

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sasha-s/go-deadlock"

	"github.com/manastr/core/internal/protocol"
	"github.com/manastr/core/internal/telemetry"
)

// Config controls the adapter's connection and buffering behavior.
type Config struct {
	RelayURLs      []string
	QueueSize      int
	DialTimeout    time.Duration
	ReconnectDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.QueueSize <= 0 {
		c.QueueSize = 4096
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = 2 * time.Second
	}
	return c
}

// Dialer opens a connection to a single relay URL. Production code uses
// websocketDialer; tests substitute an in-memory fake.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Conn is one live connection to a relay: it yields raw inbound frames and
// accepts raw outbound frames.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Adapter is the C7 relay interface adapter. Its mutable state (the
// subscription set, the dedupe seen-set, the published-id set, the live
// connection map and the backfill cursor) is each guarded by its own mutex;
// inbound events flow through the bounded events channel.
type Adapter struct {
	cfg    Config
	dialer Dialer
	logger log.Logger

	subsMu deadlock.Mutex
	subs   []Filter

	events chan protocol.Event

	dedupeMu  deadlock.Mutex
	seenIDs   map[string]time.Time
	dedupeTTL time.Duration

	publishMu deadlock.Mutex
	published map[string]bool // content-hash -> acked, for idempotent kind-7 publish

	connsMu deadlock.Mutex
	conns   map[string]Conn // relay url -> live connection

	cursorMu      deadlock.Mutex
	lastProcessed string // id of the most recently delivered event, for reconnect backfill

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAdapter constructs an Adapter that will dial cfg.RelayURLs with dialer
// once Run is called.
func NewAdapter(cfg Config, dialer Dialer, logger log.Logger) *Adapter {
	cfg = cfg.withDefaults()
	return &Adapter{
		cfg:       cfg,
		dialer:    dialer,
		logger:    logger,
		events:    make(chan protocol.Event, cfg.QueueSize),
		seenIDs:   make(map[string]time.Time),
		dedupeTTL: 10 * time.Minute,
		published: make(map[string]bool),
		conns:     make(map[string]Conn),
	}
}

// Events returns the channel of deduplicated, verified inbound events.
// Callers must drain it promptly: when this channel's buffer is full the
// adapter stops reading from the relay connection that produced the event
// until there is room, rather than dropping it. No subscription
// acknowledgements are sent or delayed.
func (a *Adapter) Events() <-chan protocol.Event {
	return a.events
}

// Run dials every configured relay URL and ingests events until ctx is
// canceled. Each relay connection runs its own reconnect loop; a transient
// failure on one relay never stops ingest from the others.
func (a *Adapter) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	for _, url := range a.cfg.RelayURLs {
		a.wg.Add(1)
		go a.runRelay(ctx, url)
	}
}

// Stop cancels all connection loops and waits for them to exit.
func (a *Adapter) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	// Closing the live connections unblocks ingest loops waiting in ReadMessage.
	a.connsMu.Lock()
	conns := make([]Conn, 0, len(a.conns))
	for _, c := range a.conns {
		conns = append(conns, c)
	}
	a.connsMu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
	a.wg.Wait()
}

func (a *Adapter) runRelay(ctx context.Context, url string) {
	defer a.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, err := a.dialer.Dial(ctx, url)
		if err != nil {
			level.Warn(a.logger).Log("msg", "relay dial failed", "url", url, "err", err)
			if !sleepOrDone(ctx, a.cfg.ReconnectDelay) {
				return
			}
			continue
		}

		level.Info(a.logger).Log("msg", "relay connected", "url", url)
		a.resubscribe(conn)

		a.connsMu.Lock()
		a.conns[url] = conn
		a.connsMu.Unlock()

		a.ingestLoop(ctx, conn, url)

		a.connsMu.Lock()
		delete(a.conns, url)
		a.connsMu.Unlock()
		_ = conn.Close()

		if !sleepOrDone(ctx, a.cfg.ReconnectDelay) {
			return
		}
	}
}

func (a *Adapter) ingestLoop(ctx context.Context, conn Conn, url string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		raw, err := conn.ReadMessage()
		if err != nil {
			level.Debug(a.logger).Log("msg", "relay read ended", "url", url, "err", err)
			return
		}

		e, err := protocol.DecodeEvent(raw)
		if err != nil {
			telemetry.RelayEventsDropped.WithLabelValues("malformed_or_unsigned").Inc()
			level.Debug(a.logger).Log("msg", "dropped event", "url", url, "err", err)
			continue
		}

		if a.alreadySeen(e.ID) {
			telemetry.RelayEventsDropped.WithLabelValues("duplicate").Inc()
			continue
		}

		telemetry.RelayEventsIngested.WithLabelValues(e.Kind.String()).Inc()
		a.deliver(ctx, e)
	}
}

// deliver blocks, applying backpressure, until the event is queued or the
// context is canceled. The queue is never dropped into on overflow for
// primary ingest — only the per-match task queues (internal/match) drop
// duplicates on overflow, per the backpressure contract.
func (a *Adapter) deliver(ctx context.Context, e protocol.Event) {
	telemetry.RelayQueueDepth.Set(float64(len(a.events)))
	select {
	case a.events <- e:
		a.cursorMu.Lock()
		a.lastProcessed = e.ID
		a.cursorMu.Unlock()
	case <-ctx.Done():
	}
}

// Publish sends e to every connected relay, idempotently: repeated calls
// with the same event id are a no-op once any prior call has succeeded on
// at least one relay. Each call makes one write attempt per connected relay
// and returns an error if none accepted it; Publish does not retry.
func (a *Adapter) Publish(ctx context.Context, e protocol.Event) error {
	a.publishMu.Lock()
	if a.published[e.ID] {
		a.publishMu.Unlock()
		return nil
	}
	a.publishMu.Unlock()

	raw, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "marshal event for publish")
	}

	a.connsMu.Lock()
	conns := make([]Conn, 0, len(a.conns))
	for _, c := range a.conns {
		conns = append(conns, c)
	}
	a.connsMu.Unlock()

	if len(conns) == 0 {
		return errors.New("publish event: no relay connections available")
	}

	var lastErr error
	delivered := false
	for _, c := range conns {
		if err := c.WriteMessage(raw); err != nil {
			lastErr = err
			continue
		}
		delivered = true
	}
	if !delivered {
		return errors.Wrap(lastErr, "publish event: all relays rejected write")
	}

	a.publishMu.Lock()
	a.published[e.ID] = true
	a.publishMu.Unlock()
	return nil
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// websocketConn adapts a *websocket.Conn to the Conn interface.
type websocketConn struct {
	ws *websocket.Conn
}

func (w *websocketConn) ReadMessage() ([]byte, error) {
	_, data, err := w.ws.ReadMessage()
	return data, err
}

func (w *websocketConn) WriteMessage(data []byte) error {
	return w.ws.WriteMessage(websocket.TextMessage, data)
}

func (w *websocketConn) Close() error {
	return w.ws.Close()
}

// WebsocketDialer dials relay URLs over real WebSocket connections.
type WebsocketDialer struct {
	Dialer websocket.Dialer
}

func (d WebsocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, _, err := d.Dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "dial relay %s", url)
	}
	return &websocketConn{ws: conn}, nil
}
