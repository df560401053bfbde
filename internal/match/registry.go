package match

import (
	"context"
	"errors"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/sasha-s/go-deadlock"

	"github.com/manastr/core/internal/combat"
	"github.com/manastr/core/internal/protocol"
	"github.com/manastr/core/internal/telemetry"
)

// TerminalFunc is invoked exactly once, on the match's own task goroutine
// just before that goroutine exits, when a match reaches a terminal phase.
type TerminalFunc func(matchID string, m *Machine)

// Registry owns the task-per-match concurrency model: every MatchId gets
// its own goroutine and its own bounded inbox, so that transitions for
// distinct matches always progress independently and no cross-match lock is
// ever held. The registry's shared mutable state is its task map, guarded by
// mu, and its pipeline runner and backfill hook, guarded by pipelineMu.
type Registry struct {
	cfg       Config
	logger    log.Logger
	inboxSize int
	onTerminal TerminalFunc

	pipelineMu deadlock.RWMutex
	pipeline   PipelineRunner
	backfill   func(matchID string)

	mu    deadlock.RWMutex
	tasks map[string]*matchTask
}

type matchTask struct {
	machine *Machine
	inbox   chan protocol.Event
	seen    map[string]struct{}
	seenMu  deadlock.Mutex
	cancel  context.CancelFunc
}

// NewRegistry constructs an empty Registry. inboxSize bounds each match's
// per-task event queue.
func NewRegistry(cfg Config, logger log.Logger, inboxSize int, onTerminal TerminalFunc) *Registry {
	if inboxSize <= 0 {
		inboxSize = 256
	}
	return &Registry{
		cfg:        cfg,
		logger:     logger,
		inboxSize:  inboxSize,
		onTerminal: onTerminal,
		tasks:      make(map[string]*matchTask),
	}
}

// SetPipelineRunner installs the validator pipeline every match task calls
// once it reaches AwaitingClaims with both ClaimedResult events present. It
// is optional: a Registry with no pipeline runner leaves such matches
// parked in AwaitingClaims until a deadline expiry, which is the correct
// behavior for a reference client that only observes matches rather than
// adjudicating them.
func (r *Registry) SetPipelineRunner(p PipelineRunner) {
	r.pipelineMu.Lock()
	r.pipeline = p
	r.pipelineMu.Unlock()
}

// SetBackfill installs the relay re-query hook invoked when a match task
// rejects an event for arriving before its prerequisite (ErrOutOfOrder):
// the missing event may have been published but missed, so the adapter is
// asked to replay the match's full tag-indexed history. Optional.
func (r *Registry) SetBackfill(fn func(matchID string)) {
	r.pipelineMu.Lock()
	r.backfill = fn
	r.pipelineMu.Unlock()
}

func (r *Registry) backfillFunc() func(matchID string) {
	r.pipelineMu.RLock()
	defer r.pipelineMu.RUnlock()
	return r.backfill
}

func (r *Registry) pipelineRunner() PipelineRunner {
	r.pipelineMu.RLock()
	defer r.pipelineMu.RUnlock()
	return r.pipeline
}

// Dispatch routes e to its match's task, creating a new task if e is a
// Challenge for a MatchId the registry has not seen. Events for unknown,
// non-Challenge match ids are dropped (their Challenge either never arrived
// or has already been compacted).
func (r *Registry) Dispatch(ctx context.Context, e protocol.Event) {
	matchID, isChallenge := r.resolveMatchID(e)
	if matchID == "" {
		level.Debug(r.logger).Log("msg", "dropped event with no match correlation", "kind", e.Kind)
		return
	}

	r.mu.RLock()
	t, ok := r.tasks[matchID]
	r.mu.RUnlock()

	if !ok {
		if !isChallenge {
			level.Debug(r.logger).Log("msg", "dropped event for unknown match", "match", matchID, "kind", e.Kind)
			return
		}
		var err error
		t, err = r.createTask(ctx, e)
		if err != nil {
			level.Warn(r.logger).Log("msg", "failed to start match task", "match", matchID, "err", err)
			return
		}
	}

	t.enqueue(e, r.logger)
}

func (r *Registry) resolveMatchID(e protocol.Event) (matchID string, isChallenge bool) {
	if e.Kind == protocol.KindChallenge {
		return e.ID, true
	}
	if tag, ok := e.MatchTag(); ok {
		return tag, false
	}
	return "", false
}

func (r *Registry) createTask(ctx context.Context, challengeEvent protocol.Event) (*matchTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.tasks[challengeEvent.ID]; ok {
		return t, nil
	}

	m, err := NewMachine(r.cfg, challengeEvent, time.Now())
	if err != nil {
		return nil, err
	}

	taskCtx, cancel := context.WithCancel(ctx)
	t := &matchTask{
		machine: m,
		inbox:   make(chan protocol.Event, r.inboxSize),
		seen:    map[string]struct{}{challengeEvent.ID: {}},
		cancel:  cancel,
	}
	r.tasks[challengeEvent.ID] = t
	telemetry.MatchesActive.Inc()

	go r.runTask(taskCtx, challengeEvent.ID, t)
	return t, nil
}

func (t *matchTask) enqueue(e protocol.Event, logger log.Logger) {
	t.seenMu.Lock()
	_, dup := t.seen[e.ID]
	if !dup {
		t.seen[e.ID] = struct{}{}
	}
	t.seenMu.Unlock()

	select {
	case t.inbox <- e:
	default:
		// Queue saturated: only duplicates are safe to drop silently.
		if dup {
			return
		}
		level.Warn(logger).Log("msg", "match inbox saturated, dropping non-duplicate event", "event", e.ID)
	}
}

func (r *Registry) runTask(ctx context.Context, matchID string, t *matchTask) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.finish(matchID)
			return

		case e := <-t.inbox:
			if err := t.machine.Apply(e, time.Now()); err != nil {
				level.Debug(r.logger).Log("msg", "event rejected", "match", matchID, "err", err)
				if errors.Is(err, ErrOutOfOrder) {
					if fn := r.backfillFunc(); fn != nil {
						fn(matchID)
					}
				}
			}
			r.maybeRunPipeline(ctx, matchID, t)
			if t.machine.state.Phase.Terminal() {
				r.terminate(matchID, t)
				return
			}

		case now := <-ticker.C:
			if t.machine.CheckDeadline(now) {
				r.maybeRunForfeitPipeline(ctx, matchID, t)
				r.terminate(matchID, t)
				return
			}
		}
	}
}

// maybeRunPipeline runs the validator pipeline once a match's task observes
// ReadyForPipeline, on the match's own single-consumer goroutine so no two
// matches ever run the pipeline concurrently against the same machine. A
// transient pipeline error (mint unreachable, etc.) leaves the machine in
// AwaitingClaims for the next event or the next pipeline-eligible trigger
// to retry; Run's own idempotency keying makes that safe to repeat.
func (r *Registry) maybeRunPipeline(ctx context.Context, matchID string, t *matchTask) {
	if !t.machine.ReadyForPipeline() {
		return
	}
	p := r.pipelineRunner()
	if p == nil {
		return
	}

	result, err := p.RunForMachine(ctx, t.machine.state, time.Now())
	if err != nil {
		level.Warn(r.logger).Log("msg", "validator pipeline run failed, match remains pending", "match", matchID, "err", err)
		return
	}
	t.machine.Complete(result, time.Now())
}

// maybeRunForfeitPipeline mints the forfeit winner's loot once a match's
// task observes an AwaitingClaims deadline expire with exactly one side
// having met its obligations. Unlike maybeRunPipeline, a failed attempt here
// is not retried: the match task is about to be torn down regardless, since
// Expired is terminal. The match's state.Terminal.LootPublished stays false
// and is visible to the onTerminal callback, for the registry's caller to
// notice and reconcile out of band; the task is removed right after that
// callback, so Get no longer returns it.
func (r *Registry) maybeRunForfeitPipeline(ctx context.Context, matchID string, t *matchTask) {
	s := t.machine.state
	if s.Phase != PhaseExpired || s.Terminal == nil || !s.Terminal.HasWinner || s.Terminal.LootPublished {
		return
	}
	p := r.pipelineRunner()
	if p == nil {
		return
	}

	winnerAuthor := s.Challenger
	if s.Terminal.Winner == combat.WinnerB {
		winnerAuthor = s.Acceptor
	}

	result, err := p.RunForfeit(ctx, s, winnerAuthor, time.Now())
	if err != nil {
		level.Warn(r.logger).Log("msg", "forfeit loot mint failed", "match", matchID, "err", err)
		return
	}
	if result.Valid {
		s.Terminal.LootPublished = true
	}
}

func (r *Registry) terminate(matchID string, t *matchTask) {
	telemetry.MatchesTerminated.WithLabelValues(t.machine.state.Phase.String()).Inc()
	if r.onTerminal != nil {
		r.onTerminal(matchID, t.machine)
	}
	r.finish(matchID)
}

func (r *Registry) finish(matchID string) {
	r.mu.Lock()
	delete(r.tasks, matchID)
	r.mu.Unlock()
	telemetry.MatchesActive.Dec()
}

// Get returns the machine for matchID, if its task is still alive.
func (r *Registry) Get(matchID string) (*Machine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[matchID]
	if !ok {
		return nil, false
	}
	return t.machine, true
}

// Shutdown cancels every live match task. State being cooperative and the
// event log durable, no in-flight transition is lost: a restarted registry
// simply replays events for any MatchId of interest.
func (r *Registry) Shutdown() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tasks {
		t.cancel()
	}
}
