package main

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/manastr/core/internal/protocol"
)

func newAcceptCmd(flags *rootFlags) *cobra.Command {
	var (
		matchID  string
		tokenHex []string
	)

	cmd := &cobra.Command{
		Use:   "accept",
		Short: "Publish an Acceptance event for an open Challenge, committing this player's tokens",
		RunE: func(_ *cobra.Command, _ []string) error {
			priv, err := loadOrCreateKey(flags.keyPath)
			if err != nil {
				return err
			}
			tokens, err := decodeTokens(tokenHex)
			if err != nil {
				return err
			}
			commit, nonce, err := commitTokenSet(tokens)
			if err != nil {
				return err
			}

			content, err := protocol.EncodeContent(protocol.AcceptanceContent{
				MatchID:         matchID,
				TokenCommitment: commit,
			})
			if err != nil {
				return errors.Wrap(err, "encoding acceptance content")
			}

			e, err := protocol.Sign(priv, protocol.KindAcceptance, time.Now().Unix(), protocol.MatchTags(matchID), content)
			if err != nil {
				return errors.Wrap(err, "signing acceptance event")
			}
			if err := publishOnce(flags.relayURL, e); err != nil {
				return err
			}
			if err := saveRecord(flags.stateDir, matchID, "acceptor", commitRecord{
				Tokens: tokensToHex(tokens),
				Nonce:  hex.EncodeToString(nonce[:]),
			}); err != nil {
				return err
			}
			fmt.Println(e.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&matchID, "match", "", "Challenge event id to accept (required)")
	cmd.Flags().StringSliceVar(&tokenHex, "tokens", nil, "hex-encoded token.Encode() blobs to wager (repeatable)")
	cmd.MarkFlagRequired("match")
	cmd.MarkFlagRequired("tokens")
	return cmd
}
