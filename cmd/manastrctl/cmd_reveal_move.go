package main

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/manastr/core/internal/protocol"
)

func newRevealMoveCmd(flags *rootFlags) *cobra.Command {
	var (
		matchID string
		round   uint8
	)

	cmd := &cobra.Command{
		Use:   "reveal-move",
		Short: "Publish a MoveReveal event for a round this player already committed to",
		RunE: func(_ *cobra.Command, _ []string) error {
			priv, err := loadOrCreateKey(flags.keyPath)
			if err != nil {
				return err
			}
			rec, err := loadRecord(flags.stateDir, matchID, fmt.Sprintf("round%d", round))
			if err != nil {
				return err
			}
			nonce, err := hex.DecodeString(rec.Nonce)
			if err != nil || len(nonce) != 32 {
				return errors.New("local record has a malformed nonce")
			}
			var nonceArr [32]byte
			copy(nonceArr[:], nonce)

			content, err := protocol.EncodeContent(protocol.MoveRevealContent{
				MatchID:    matchID,
				RoundIndex: round,
				Positions:  rec.Positions,
				Abilities:  rec.Abilities,
				Nonce:      nonceArr,
			})
			if err != nil {
				return errors.Wrap(err, "encoding move reveal content")
			}

			e, err := protocol.Sign(priv, protocol.KindMoveReveal, time.Now().Unix(), protocol.RoundTags(matchID, round), content)
			if err != nil {
				return errors.Wrap(err, "signing move reveal event")
			}
			if err := publishOnce(flags.relayURL, e); err != nil {
				return err
			}
			fmt.Println(e.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&matchID, "match", "", "match id (required)")
	cmd.Flags().Uint8Var(&round, "round", 0, "round index (required)")
	cmd.MarkFlagRequired("match")
	return cmd
}
