// Command manastrctl is the reference player client: one subcommand per
// player-authored event kind (challenge, accept,
// reveal-tokens, commit-move, reveal-move, claim). It is a thin
// transaction builder, not a game UI — it signs and publishes exactly one
// event per invocation and leaves state reconstruction to whatever calls
// it repeatedly across a match's lifetime.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// rootFlags are shared across every subcommand: which relay to publish to,
// where this player's signing key lives, and where to keep the local
// commit/reveal bookkeeping described in commitRecord.
type rootFlags struct {
	relayURL string
	keyPath  string
	stateDir string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "manastrctl",
		Short: "Build and publish one Manastr protocol event per invocation",
	}
	cmd.PersistentFlags().StringVar(&flags.relayURL, "relay", "ws://127.0.0.1:7777", "relay WebSocket URL to publish to")
	cmd.PersistentFlags().StringVar(&flags.keyPath, "key", "player_key.hex", "path to this player's hex-encoded Ed25519 seed")
	cmd.PersistentFlags().StringVar(&flags.stateDir, "state-dir", ".manastrctl", "directory for local commit/reveal bookkeeping")

	cmd.AddCommand(
		newChallengeCmd(flags),
		newAcceptCmd(flags),
		newRevealTokensCmd(flags),
		newCommitMoveCmd(flags),
		newRevealMoveCmd(flags),
		newClaimCmd(flags),
	)
	return cmd
}
