package main

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/manastr/core/internal/commitment"
	"github.com/manastr/core/internal/protocol"
)

func newCommitMoveCmd(flags *rootFlags) *cobra.Command {
	var (
		matchID    string
		round      uint8
		positions  []int
		abilityStr []string
	)

	cmd := &cobra.Command{
		Use:   "commit-move",
		Short: "Publish a MoveCommitment event for one round",
		RunE: func(_ *cobra.Command, _ []string) error {
			priv, err := loadOrCreateKey(flags.keyPath)
			if err != nil {
				return err
			}
			pos, err := parsePositions(positions)
			if err != nil {
				return err
			}
			abilities, err := parseAbilities(abilityStr)
			if err != nil {
				return err
			}
			nonce, err := randomNonce()
			if err != nil {
				return err
			}

			payload := commitment.EncodeMoveSet(round, pos, abilities)
			commit := commitment.Commit(payload, commitment.Nonce(nonce))

			content, err := protocol.EncodeContent(protocol.MoveCommitmentContent{
				MatchID:    matchID,
				RoundIndex: round,
				Commitment: commit,
			})
			if err != nil {
				return errors.Wrap(err, "encoding move commitment content")
			}

			e, err := protocol.Sign(priv, protocol.KindMoveCommitment, time.Now().Unix(), protocol.RoundTags(matchID, round), content)
			if err != nil {
				return errors.Wrap(err, "signing move commitment event")
			}
			if err := publishOnce(flags.relayURL, e); err != nil {
				return err
			}
			if err := saveRecord(flags.stateDir, matchID, fmt.Sprintf("round%d", round), commitRecord{
				Positions: pos,
				Abilities: abilities,
				Nonce:     hex.EncodeToString(nonce[:]),
			}); err != nil {
				return err
			}
			fmt.Println(e.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&matchID, "match", "", "match id (required)")
	cmd.Flags().Uint8Var(&round, "round", 0, "round index (required)")
	cmd.Flags().IntSliceVar(&positions, "positions", nil, "permutation of this player's four unit slots, e.g. 0,1,2,3")
	cmd.Flags().StringSliceVar(&abilityStr, "abilities", nil, "four ability activations, e.g. none,none,none,none")
	cmd.MarkFlagRequired("match")
	cmd.MarkFlagRequired("positions")
	cmd.MarkFlagRequired("abilities")
	return cmd
}

func parsePositions(in []int) ([4]uint8, error) {
	var out [4]uint8
	if len(in) != 4 {
		return out, errors.Errorf("--positions must list exactly 4 values, got %d", len(in))
	}
	seen := [4]bool{}
	for i, v := range in {
		if v < 0 || v > 3 {
			return out, errors.Errorf("--positions value %d out of range 0..3", v)
		}
		if seen[v] {
			return out, errors.Errorf("--positions is not a permutation: %d repeated", v)
		}
		seen[v] = true
		out[i] = uint8(v)
	}
	return out, nil
}

func parseAbilities(in []string) ([4]uint8, error) {
	var out [4]uint8
	if len(in) != 4 {
		return out, errors.Errorf("--abilities must list exactly 4 values, got %d", len(in))
	}
	for i, s := range in {
		a, err := parseAbility(s)
		if err != nil {
			return out, err
		}
		out[i] = uint8(a)
	}
	return out, nil
}
