package match

import (
	"context"
	"time"

	"github.com/manastr/core/internal/combat"
)

// PipelineResult is what a validator pipeline run reports back to the
// machine that triggered it: whether the match checked out, and, if so,
// which participant (by hex pubkey) the pipeline derived as the winner.
// Declared here rather than accepted as the validatorpipeline package's own
// richer Outcome type so that this package never imports
// internal/validatorpipeline — it is the pipeline's job to depend on
// match.State, not the other way around.
type PipelineResult struct {
	Valid     bool
	Winner    string // hex pubkey; meaningful only if HasWinner
	HasWinner bool
	Reason    string
}

// PipelineRunner is the validator pipeline capability a Registry needs:
// given a match that has reached AwaitingClaims with both ClaimedResult
// events present (Machine.ReadyForPipeline reports this), run the full
// check sequence and report the outcome. internal/validatorpipeline.MachineRunner
// satisfies this interface by wrapping a Pipeline.
type PipelineRunner interface {
	RunForMachine(ctx context.Context, s *State, now time.Time) (PipelineResult, error)

	// RunForfeit mints the forfeit winner's loot for a match that expired
	// out of AwaitingClaims with only one side having met its obligations.
	// winner is that side's hex pubkey. It skips the consensus and replay
	// agreement checks Run performs, since by construction only one side
	// ever submitted a ClaimedResult.
	RunForfeit(ctx context.Context, s *State, winner string, now time.Time) (PipelineResult, error)
}

// Complete finalizes a machine whose match has just gone through the
// validator pipeline: Phase becomes Completed on a valid result (r.Winner,
// if any, is recorded) or Invalid otherwise. Calling Complete on a machine
// already in a terminal phase is a no-op — a completed or invalidated match
// is never re-decided.
func (m *Machine) Complete(r PipelineResult, now time.Time) {
	s := m.state
	if s.Phase.Terminal() {
		return
	}

	if !r.Valid {
		s.Phase = PhaseInvalid
		s.Terminal = &TerminalResult{Reason: r.Reason, InvalidAt: now}
		return
	}

	s.Phase = PhaseCompleted
	term := &TerminalResult{Reason: r.Reason, InvalidAt: now, LootPublished: true}
	if r.HasWinner {
		term.HasWinner = true
		term.Winner = combat.WinnerA
		if r.Winner == s.Acceptor {
			term.Winner = combat.WinnerB
		}
	}
	s.Terminal = term
}
