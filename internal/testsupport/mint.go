package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
)

// FakeMintServer is an httptest-backed double for the subset of the mint's
// HTTP surface the validator pipeline exercises: checkstate, and the
// authority-gated burn and mint-loot endpoints. It records every burn and
// mint-loot request so tests can assert on idempotent replay.
type FakeMintServer struct {
	Server *httptest.Server

	mu      sync.Mutex
	spent   map[string]string // secret -> bound match id
	burns   []map[string]any
	mints   []map[string]any
	lootSeq uint64
}

// NewFakeMintServer starts a FakeMintServer. Callers must call Close when
// done.
func NewFakeMintServer() *FakeMintServer {
	f := &FakeMintServer{spent: map[string]string{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/checkstate", f.handleCheckState)
	mux.HandleFunc("/v1/authority/query-spent", f.handleQuerySpent)
	mux.HandleFunc("/v1/authority/burn", f.handleBurn)
	mux.HandleFunc("/v1/authority/mint-loot", f.handleMintLoot)
	f.Server = httptest.NewServer(mux)
	return f
}

// Close shuts down the underlying httptest.Server.
func (f *FakeMintServer) Close() { f.Server.Close() }

// URL is the base URL to pass as mint.NewClient's baseURL.
func (f *FakeMintServer) URL() string { return f.Server.URL }

// MarkSpent pre-binds secret to matchID, simulating a token already burned
// in an earlier match, for double-spend scenarios.
func (f *FakeMintServer) MarkSpent(secret, matchID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spent[secret] = matchID
}

// BurnCount reports how many burn requests have been received.
func (f *FakeMintServer) BurnCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.burns)
}

// handleCheckState serves the public endpoint: coarse spent/unspent only,
// never the match binding.
func (f *FakeMintServer) handleCheckState(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Secrets []string `json:"secrets"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, len(req.Secrets))
	for i, s := range req.Secrets {
		_, spent := f.spent[s]
		out[i] = map[string]any{"secret": s, "spent": spent}
	}
	_ = json.NewEncoder(w).Encode(out)
}

// handleQuerySpent serves the authority-gated query: the signed envelope's
// body carries the secrets, and the response discloses match bindings.
func (f *FakeMintServer) handleQuerySpent(w http.ResponseWriter, r *http.Request) {
	var envelope struct {
		Body []byte `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req struct {
		Secrets []string `json:"secrets"`
	}
	if err := json.Unmarshal(envelope.Body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, len(req.Secrets))
	for i, s := range req.Secrets {
		bound, spent := f.spent[s]
		out[i] = map[string]any{"secret": s, "spent": spent, "match_id": bound}
	}
	_ = json.NewEncoder(w).Encode(out)
}

func (f *FakeMintServer) handleBurn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MatchID        string `json:"match_id"`
		Body           []byte `json:"body"`
		IdempotencyKey string `json:"idempotency_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.burns = append(f.burns, map[string]any{"match_id": req.MatchID, "idempotency_key": req.IdempotencyKey})
	f.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (f *FakeMintServer) handleMintLoot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MatchID      string `json:"match_id"`
		RecipientPub []byte `json:"recipient_pub"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.lootSeq++
	seq := f.lootSeq
	f.mints = append(f.mints, map[string]any{"match_id": req.MatchID})
	f.mu.Unlock()

	_ = json.NewEncoder(w).Encode(map[string]any{"token": []byte{byte(seq)}})
}
