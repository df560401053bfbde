package main

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/manastr/core/internal/protocol"
)

func newChallengeCmd(flags *rootFlags) *cobra.Command {
	var (
		wager    uint64
		league   uint8
		ttl      time.Duration
		tokenHex []string
	)

	cmd := &cobra.Command{
		Use:   "challenge",
		Short: "Publish a Challenge event, wagering tokens and committing to a token set",
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

			now := time.Now()
			content, err := protocol.EncodeContent(protocol.ChallengeContent{
				WagerAmount:     wager,
				LeagueID:        league,
				TokenCommitment: commit,
				ExpiresAt:       now.Add(ttl).Unix(),
			})
			if err != nil {
				return errors.Wrap(err, "encoding challenge content")
			}

			// Challenge events carry no match tag: the machine correlates by
			// the event's own content-addressed id, never a self-referential
			// tag.
			e, err := protocol.Sign(priv, protocol.KindChallenge, now.Unix(), nil, content)
			if err != nil {
				return errors.Wrap(err, "signing challenge event")
			}
			if err := publishOnce(flags.relayURL, e); err != nil {
				return err
			}
			if err := saveRecord(flags.stateDir, e.ID, "challenger", commitRecord{
				Tokens: tokensToHex(tokens),
				Nonce:  hex.EncodeToString(nonce[:]),
			}); err != nil {
				return err
			}
			fmt.Println(e.ID)
			return nil
		},
	}

	cmd.Flags().Uint64Var(&wager, "wager", 0, "total mana wagered by this player (required)")
	cmd.Flags().Uint8Var(&league, "league", 0, "league id selecting the stat-modifier table")
	cmd.Flags().DurationVar(&ttl, "ttl", 5*time.Minute, "time until this challenge expires if unaccepted")
	cmd.Flags().StringSliceVar(&tokenHex, "tokens", nil, "hex-encoded token.Encode() blobs to wager (repeatable)")
	cmd.MarkFlagRequired("wager")
	cmd.MarkFlagRequired("tokens")
	return cmd
}
