package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/manastr/core/internal/protocol"
)

// loadOrCreateKey reads a hex-encoded Ed25519 seed from path, generating and
// persisting a fresh one on first use. manastrctl is a reference client, so
// a player's identity is just whatever key happens to live at this path —
// production wallets keep their own key management out of this tool's
// scope.
func loadOrCreateKey(path string) (ed25519.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		seed, decodeErr := hex.DecodeString(trimSpace(string(raw)))
		if decodeErr != nil || len(seed) != ed25519.SeedSize {
			return nil, errors.Errorf("key file %s does not contain a %d-byte hex seed", path, ed25519.SeedSize)
		}
		return ed25519.NewKeyFromSeed(seed), nil
	}
	if !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "reading key file")
	}
	_, priv, genErr := ed25519.GenerateKey(nil)
	if genErr != nil {
		return nil, errors.Wrap(genErr, "generating key")
	}
	if writeErr := os.WriteFile(path, []byte(hex.EncodeToString(priv.Seed())+"\n"), 0o600); writeErr != nil {
		return nil, errors.Wrap(writeErr, "persisting generated key")
	}
	return priv, nil
}

func trimSpace(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r' || s[len(s)-1] == ' ') {
		s = s[:len(s)-1]
	}
	return s
}

// randomNonce draws 32 bytes of commitment entropy.
func randomNonce() ([32]byte, error) {
	var n [32]byte
	if _, err := rand.Read(n[:]); err != nil {
		return n, errors.Wrap(err, "generating nonce")
	}
	return n, nil
}

// publishOnce dials relayURL, writes e as a single text frame, and closes
// the connection. manastrctl never subscribes — a real game client would
// reconstruct its view with internal/relay and internal/match the same way
// the validator does, but a one-shot transaction builder has no need to.
func publishOnce(relayURL string, e protocol.Event) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(relayURL, nil)
	if err != nil {
		return errors.Wrapf(err, "dialing relay %s", relayURL)
	}
	defer conn.Close()

	raw, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "encoding event")
	}
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		return errors.Wrap(err, "publishing event")
	}
	return nil
}

// commitRecord is the local bookkeeping manastrctl persists between a
// commit step and its later reveal step, since the nonce and cleartext
// payload never touch the relay until reveal. It is the CLI's only
// persisted state; the event log remains the sole source of truth for
// everything else.
type commitRecord struct {
	Tokens    []string `json:"tokens,omitempty"` // hex-encoded token.Encode() blobs
	Positions [4]uint8 `json:"positions,omitempty"`
	Abilities [4]uint8 `json:"abilities,omitempty"`
	Nonce     string   `json:"nonce"`
}

func recordPath(stateDir, matchID, suffix string) string {
	return filepath.Join(stateDir, matchID+"."+suffix+".json")
}

func saveRecord(stateDir, matchID, suffix string, r commitRecord) error {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return errors.Wrap(err, "creating state dir")
	}
	raw, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding local record")
	}
	return os.WriteFile(recordPath(stateDir, matchID, suffix), raw, 0o600)
}

func loadRecord(stateDir, matchID, suffix string) (commitRecord, error) {
	var r commitRecord
	raw, err := os.ReadFile(recordPath(stateDir, matchID, suffix))
	if err != nil {
		return r, errors.Wrapf(err, "reading local record for match %s", matchID)
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return r, errors.Wrap(err, "decoding local record")
	}
	return r, nil
}
