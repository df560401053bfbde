package main

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/manastr/core/internal/protocol"
)

func newClaimCmd(flags *rootFlags) *cobra.Command {
	var (
		matchID          string
		claimedWinner    string
		perRoundDigest   string
		finalStateDigest string
	)

	cmd := &cobra.Command{
		Use:   "claim",
		Short: "Publish a ClaimedResult event with this player's view of the match outcome",
		Long: "Publish a ClaimedResult event. The two digest flags are the same " +
			"internal/combat.FinalStateDigest-derived values the validator " +
			"recomputes during replay; a real game client derives them by " +
			"replaying the match's own round log with internal/combat exactly " +
			"as internal/validatorpipeline does.",
		RunE: func(_ *cobra.Command, _ []string) error {
			priv, err := loadOrCreateKey(flags.keyPath)
			if err != nil {
				return err
			}
			perRound, err := parseDigest(perRoundDigest)
			if err != nil {
				return errors.Wrap(err, "--per-round-digest")
			}
			finalState, err := parseDigest(finalStateDigest)
			if err != nil {
				return errors.Wrap(err, "--final-state-digest")
			}

			content, err := protocol.EncodeContent(protocol.ClaimedResultContent{
				MatchID:          matchID,
				ClaimedWinner:    claimedWinner,
				PerRoundDigest:   perRound,
				FinalStateDigest: finalState,
			})
			if err != nil {
				return errors.Wrap(err, "encoding claimed result content")
			}

			e, err := protocol.Sign(priv, protocol.KindClaimedResult, time.Now().Unix(), protocol.MatchTags(matchID), content)
			if err != nil {
				return errors.Wrap(err, "signing claimed result event")
			}
			if err := publishOnce(flags.relayURL, e); err != nil {
				return err
			}
			fmt.Println(e.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&matchID, "match", "", "match id (required)")
	cmd.Flags().StringVar(&claimedWinner, "winner", "", "hex pubkey of the player this client believes won (required)")
	cmd.Flags().StringVar(&perRoundDigest, "per-round-digest", "", "hex-encoded 32-byte per-round digest (required)")
	cmd.Flags().StringVar(&finalStateDigest, "final-state-digest", "", "hex-encoded 32-byte final state digest (required)")
	cmd.MarkFlagRequired("match")
	cmd.MarkFlagRequired("winner")
	cmd.MarkFlagRequired("per-round-digest")
	cmd.MarkFlagRequired("final-state-digest")
	return cmd
}

func parseDigest(s string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 32 {
		return out, errors.New("must be 64 hex characters (32 bytes)")
	}
	copy(out[:], raw)
	return out, nil
}
