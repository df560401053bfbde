package mint

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/manastr/core/internal/telemetry"
)

// Client is the validator's HTTP client to a mint: the public endpoints
// plus the three authority-gated operations, each authority call carrying a
// validator signature and a fresh idempotency key.
type Client struct {
	baseURL    string
	httpClient *http.Client
	priv       ed25519.PrivateKey
	validator  string
}

// NewClient builds a Client bound to baseURL, signing authority requests
// with priv under the given validator id.
func NewClient(baseURL string, priv ed25519.PrivateKey, validatorID string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		priv:       priv,
		validator:  validatorID,
	}
}

// CheckStateResult mirrors the public /v1/checkstate endpoint: one coarse
// spent/unspent verdict per queried secret. The MatchId a spent token is
// bound to is privileged data and is only disclosed through the
// authority-gated QuerySpent path.
type CheckStateResult struct {
	Secret string `json:"secret"`
	Spent  bool   `json:"spent"`
}

// CheckState queries spent/unspent status for a batch of token secrets over
// the public, unsigned endpoint. Wallets use this before wagering a token;
// the validator pipeline's double-spend check uses QuerySpent instead,
// since it needs the match binding.
func (c *Client) CheckState(ctx context.Context, secretsHex []string) ([]CheckStateResult, error) {
	var out []CheckStateResult
	err := c.postJSON(ctx, "checkstate", "/v1/checkstate", struct {
		Secrets []string `json:"secrets"`
	}{Secrets: secretsHex}, &out)
	return out, err
}

// SpentStatus is one entry of an authority-gated spent query's response:
// the verdict plus the MatchId a spent token is bound to, if any.
type SpentStatus struct {
	Secret  string `json:"secret"`
	Spent   bool   `json:"spent"`
	MatchID string `json:"match_id,omitempty"`
}

// QuerySpentRequest asks the mint for the spent status and match binding of
// every listed secret, in the context of adjudicating MatchId.
type QuerySpentRequest struct {
	MatchID        string
	Secrets        []string
	IdempotencyKey string
}

// QuerySpent issues the authority-gated spent-status query. Unlike the
// public CheckState, the signed response discloses which MatchId a spent
// token is bound to, which is what the double-spend check needs to tell a
// re-observed burn of this match apart from a burn under another match.
func (c *Client) QuerySpent(ctx context.Context, req QuerySpentRequest) ([]SpentStatus, error) {
	body, err := json.Marshal(struct {
		MatchID string   `json:"match_id"`
		Secrets []string `json:"secrets"`
	}{req.MatchID, req.Secrets})
	if err != nil {
		return nil, errors.Wrap(err, "mint: encoding query-spent body")
	}
	areq := Sign(c.priv, Request{
		Operation:      CapabilityQuery,
		ValidatorID:    c.validator,
		MatchID:        req.MatchID,
		TokenCount:     len(req.Secrets),
		IdempotencyKey: req.IdempotencyKey,
		Body:           body,
	})
	var out []SpentStatus
	err = c.postAuthority(ctx, "query_spent", "/v1/authority/query-spent", areq, &out)
	return out, err
}

// BurnRequest binds a set of revealed token secrets to a MatchId so the
// mint will never accept a second burn of the same tokens under a
// different match.
type BurnRequest struct {
	MatchID        string
	Secrets        []string
	IdempotencyKey string
}

// Burn issues the authority-gated burn operation. The returned error
// is nil only if the mint accepted the burn or had already accepted an
// identical idempotent retry.
func (c *Client) Burn(ctx context.Context, req BurnRequest) error {
	body, err := json.Marshal(struct {
		MatchID string   `json:"match_id"`
		Secrets []string `json:"secrets"`
	}{req.MatchID, req.Secrets})
	if err != nil {
		return errors.Wrap(err, "mint: encoding burn body")
	}
	areq := Sign(c.priv, Request{
		Operation:      CapabilityBurn,
		ValidatorID:    c.validator,
		MatchID:        req.MatchID,
		TokenCount:     len(req.Secrets),
		IdempotencyKey: req.IdempotencyKey,
		Body:           body,
	})
	return c.postAuthority(ctx, "burn", "/v1/authority/burn", areq, nil)
}

// MintLootRequest asks the mint for a new loot token locked to recipient,
// bound to MatchId, worth amount mana-equivalent units.
type MintLootRequest struct {
	MatchID        string
	RecipientPub   []byte
	Amount         uint64
	IdempotencyKey string
}

// LootTokenResponse is the mint's response to a successful loot mint.
type LootTokenResponse struct {
	Token []byte `json:"token"`
}

// MintLoot issues the authority-gated loot-mint operation. Callers must
// retry with the same IdempotencyKey on transient failure until it
// succeeds — a burn that has already happened must never be left without
// its matching loot mint.
func (c *Client) MintLoot(ctx context.Context, req MintLootRequest) (LootTokenResponse, error) {
	body, err := json.Marshal(struct {
		MatchID      string `json:"match_id"`
		RecipientPub []byte `json:"recipient_pub"`
		Amount       uint64 `json:"amount"`
	}{req.MatchID, req.RecipientPub, req.Amount})
	if err != nil {
		return LootTokenResponse{}, errors.Wrap(err, "mint: encoding mint-loot body")
	}
	areq := Sign(c.priv, Request{
		Operation:      CapabilityMint,
		ValidatorID:    c.validator,
		MatchID:        req.MatchID,
		TokenCount:     1,
		IdempotencyKey: req.IdempotencyKey,
		Body:           body,
	})
	var out LootTokenResponse
	err = c.postAuthority(ctx, "mint_loot", "/v1/authority/mint-loot", areq, &out)
	return out, err
}

// NewIdempotencyKey mints a fresh request id for a burn/mint/query call.
// Callers that need to retry the SAME logical operation must reuse the key
// they generated on the first attempt rather than calling this again.
func NewIdempotencyKey() string {
	return uuid.NewString()
}

func (c *Client) postAuthority(ctx context.Context, op, path string, req Request, out interface{}) error {
	envelope := struct {
		ValidatorID    string `json:"validator_id"`
		Operation      string `json:"operation"`
		MatchID        string `json:"match_id"`
		IdempotencyKey string `json:"idempotency_key"`
		Body           []byte `json:"body"`
		Sig            []byte `json:"sig"`
	}{
		ValidatorID:    req.ValidatorID,
		Operation:      string(req.Operation),
		MatchID:        req.MatchID,
		IdempotencyKey: req.IdempotencyKey,
		Body:           req.Body,
		Sig:            req.Sig,
	}
	return c.postJSON(ctx, op, path, envelope, out)
}

func (c *Client) postJSON(ctx context.Context, op, path string, body interface{}, out interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "mint: encoding request body")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return errors.Wrap(err, "mint: building request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	telemetry.MintRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		telemetry.MintRequestsFailed.WithLabelValues(op, "transport").Inc()
		return errors.Wrapf(err, "mint: calling %s", path)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		telemetry.MintRequestsFailed.WithLabelValues(op, "read_body").Inc()
		return errors.Wrap(err, "mint: reading response body")
	}
	if resp.StatusCode != http.StatusOK {
		telemetry.MintRequestsFailed.WithLabelValues(op, "status").Inc()
		return errors.Errorf("mint: %s returned %d: %s", path, resp.StatusCode, string(respBody))
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.Wrap(err, "mint: decoding response body")
	}
	return nil
}
