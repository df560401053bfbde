package mint

import (
	"crypto/ed25519"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/require"
)

func writeAllowList(t *testing.T, path string, pubHex string, active bool) {
	t.Helper()
	content := `
validators:
  - id: validator-1
    pubkey: "` + pubHex + `"
    capabilities: ["burn", "mint"]
    max_tokens_per_request: 8
    active: ` + map[bool]string{true: "true", false: "false"}[active] + `
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestAllowList_LoadsEntriesFromYAML(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	pubHex := hex.EncodeToString(pub)

	path := filepath.Join(t.TempDir(), "allowlist.yaml")
	writeAllowList(t, path, pubHex, true)

	al, err := NewAllowList(path)
	require.NoError(t, err)

	entry, ok := al.Lookup("validator-1")
	require.True(t, ok)
	require.True(t, entry.Active)
	require.True(t, entry.Capabilities[CapabilityBurn])
	require.Equal(t, 8, entry.MaxTokensPerRequest)
}

func TestAllowList_UnknownValidatorNotFound(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "allowlist.yaml")
	writeAllowList(t, path, hex.EncodeToString(pub), true)

	al, err := NewAllowList(path)
	require.NoError(t, err)

	_, ok := al.Lookup("nobody")
	require.False(t, ok)
}

func TestAllowList_HotReloadsOnWrite(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	pubHex := hex.EncodeToString(pub)

	path := filepath.Join(t.TempDir(), "allowlist.yaml")
	writeAllowList(t, path, pubHex, true)

	al, err := NewAllowList(path)
	require.NoError(t, err)

	w, err := al.Watch(path, log.NewNopLogger())
	require.NoError(t, err)
	defer w.Close()

	writeAllowList(t, path, pubHex, false)

	require.Eventually(t, func() bool {
		entry, ok := al.Lookup("validator-1")
		return ok && !entry.Active
	}, 2*time.Second, 20*time.Millisecond)
}
