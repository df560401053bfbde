package relay

import (
	"encoding/json"

	"github.com/manastr/core/internal/protocol"
)

// Filter selects which events a subscription receives: by kind and,
// optionally, by the "match" tag for targeted backfill.
type Filter struct {
	Kinds   []protocol.Kind
	MatchID string // empty means "any match"
	SinceID string // backfill cursor; empty means "from now"
}

type subscribeRequest struct {
	Kinds   []protocol.Kind `json:"kinds"`
	MatchID string          `json:"match_id,omitempty"`
	SinceID string          `json:"since_id,omitempty"`
}

// Subscribe registers a filter with every connected relay, and with every
// relay the adapter connects to afterward. It is safe to call before or
// after Run.
func (a *Adapter) Subscribe(f Filter) {
	a.subsMu.Lock()
	a.subs = append(a.subs, f)
	a.subsMu.Unlock()

	a.connsMu.Lock()
	conns := make([]Conn, 0, len(a.conns))
	for _, c := range a.conns {
		conns = append(conns, c)
	}
	a.connsMu.Unlock()
	for _, c := range conns {
		a.sendSubscribe(c, f)
	}
}

// resubscribe replays every registered filter onto a freshly (re)connected
// conn, stamping each with the adapter's last-processed cursor so the relay
// backfills everything missed while disconnected. A reconnect never
// silently drops a subscription or the events it missed.
func (a *Adapter) resubscribe(conn Conn) {
	a.subsMu.Lock()
	subs := append([]Filter(nil), a.subs...)
	a.subsMu.Unlock()

	a.cursorMu.Lock()
	cursor := a.lastProcessed
	a.cursorMu.Unlock()

	for _, f := range subs {
		if f.SinceID == "" {
			f.SinceID = cursor
		}
		a.sendSubscribe(conn, f)
	}
}

func (a *Adapter) sendSubscribe(conn Conn, f Filter) {
	req, err := json.Marshal(subscribeRequest{
		Kinds:   f.Kinds,
		MatchID: f.MatchID,
		SinceID: f.SinceID,
	})
	if err != nil {
		return
	}
	_ = conn.WriteMessage(req)
}
