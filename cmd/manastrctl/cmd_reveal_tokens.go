package main

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/manastr/core/internal/protocol"
)

func newRevealTokensCmd(flags *rootFlags) *cobra.Command {
	var (
		matchID string
		role    string
	)

	cmd := &cobra.Command{
		Use:   "reveal-tokens",
		Short: "Publish a TokenReveal event for a match this player previously challenged or accepted",
		RunE: func(_ *cobra.Command, _ []string) error {
			if role != "challenger" && role != "acceptor" {
				return errors.Errorf("--role must be challenger or acceptor, got %q", role)
			}
			priv, err := loadOrCreateKey(flags.keyPath)
			if err != nil {
				return err
			}
			rec, err := loadRecord(flags.stateDir, matchID, role)
			if err != nil {
				return err
			}
			nonce, err := hex.DecodeString(rec.Nonce)
			if err != nil || len(nonce) != 32 {
				return errors.New("local record has a malformed nonce")
			}
			tokenBlobs := make([][]byte, len(rec.Tokens))
			for i, h := range rec.Tokens {
				raw, err := hex.DecodeString(h)
				if err != nil {
					return errors.Wrapf(err, "decoding stored token %q", h)
				}
				tokenBlobs[i] = raw
			}

			var nonceArr [32]byte
			copy(nonceArr[:], nonce)
			content, err := protocol.EncodeContent(protocol.TokenRevealContent{
				MatchID: matchID,
				Tokens:  tokenBlobs,
				Nonce:   nonceArr,
			})
			if err != nil {
				return errors.Wrap(err, "encoding token reveal content")
			}

			e, err := protocol.Sign(priv, protocol.KindTokenReveal, time.Now().Unix(), protocol.MatchTags(matchID), content)
			if err != nil {
				return errors.Wrap(err, "signing token reveal event")
			}
			if err := publishOnce(flags.relayURL, e); err != nil {
				return err
			}
			fmt.Println(e.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&matchID, "match", "", "match id (required)")
	cmd.Flags().StringVar(&role, "role", "", "this player's role in the match: challenger or acceptor (required)")
	cmd.MarkFlagRequired("match")
	cmd.MarkFlagRequired("role")
	return cmd
}
