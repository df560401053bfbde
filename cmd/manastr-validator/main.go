// Command manastr-validator is the trust-minimized validator process: it
// dials the configured relays, replays the seven-event protocol for every
// match it observes, and on AwaitingClaims or deadline expiry runs the
// validation pipeline against the mint, publishing the single authoritative
// LootDistribution event per match.
package main

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/manastr/core/internal/config"
	"github.com/manastr/core/internal/match"
	"github.com/manastr/core/internal/mint"
	"github.com/manastr/core/internal/relay"
	"github.com/manastr/core/internal/validatorpipeline"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "manastr-validator",
		Short: "Replays Manastr matches from the relay and adjudicates them against the mint",
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "manastr.yaml", "path to the validator's YAML configuration file")
	return cmd
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return errors.Wrap(err, "loading configuration")
	}

	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC, "caller", kitlog.DefaultCaller, "component", "manastr-validator")

	priv, err := loadOrCreateValidatorKey(cfg.ValidatorKeyPath)
	if err != nil {
		return errors.Wrap(err, "loading validator key")
	}
	level.Info(logger).Log("msg", "validator identity loaded", "validator_id", cfg.ValidatorID, "pubkey", hex.EncodeToString(priv.Public().(ed25519.PublicKey)))

	allowList, err := mint.NewAllowList(cfg.ValidatorAllowListPath)
	if err != nil {
		return errors.Wrap(err, "allow-list missing or unreadable at startup")
	}
	if _, ok := allowList.Lookup(cfg.ValidatorID); !ok {
		level.Warn(logger).Log("msg", "this validator id is not present in its own configured allow-list; mint authority calls will be rejected until an operator fixes this", "validator_id", cfg.ValidatorID)
	}
	watcher, err := allowList.Watch(cfg.ValidatorAllowListPath, logger)
	if err != nil {
		return errors.Wrap(err, "starting allow-list watcher")
	}
	defer watcher.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	mintClient := mint.NewClient(cfg.MintBaseURL, priv, cfg.ValidatorID, cfg.MintTimeout)

	adapter := relay.NewAdapter(relay.Config{
		RelayURLs:      cfg.RelayURLs,
		QueueSize:      cfg.RelayQueueSize,
		DialTimeout:    cfg.DialTimeout,
		ReconnectDelay: cfg.ReconnectDelay,
	}, relay.WebsocketDialer{}, kitlog.With(logger, "subcomponent", "relay"))

	econ := validatorpipeline.Economics{
		LootNumerator:   cfg.LootNumerator,
		LootDenominator: cfg.LootDenominator,
		MinTotalWager:   cfg.MinTotalWager,
	}
	pipeline := validatorpipeline.NewPipeline(econ, mintClient, adapter, priv, cfg.ValidatorID, kitlog.With(logger, "subcomponent", "pipeline"))

	registry := match.NewRegistry(match.Config{
		RoundsPerMatch: cfg.RoundsPerMatch,
		PhaseDeadline:  cfg.PhaseDeadline,
		LeagueTable:    cfg.LeagueTable(),
		MinTotalWager:  cfg.MinTotalWager,
	}, kitlog.With(logger, "subcomponent", "registry"), cfg.MatchInboxSize, func(matchID string, m *match.Machine) {
		level.Info(logger).Log("msg", "match terminated", "match", matchID, "phase", m.State().Phase.String())
	})
	registry.SetPipelineRunner(validatorpipeline.MachineRunner{Pipeline: pipeline})
	registry.SetBackfill(func(matchID string) { adapter.Backfill(matchID) })

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, logger)
	}

	adapter.Run(ctx)
	level.Info(logger).Log("msg", "validator started", "relays", fmt.Sprint(cfg.RelayURLs), "rounds_per_match", cfg.RoundsPerMatch)

	for {
		select {
		case <-ctx.Done():
			level.Info(logger).Log("msg", "shutting down")
			registry.Shutdown()
			adapter.Stop()
			return nil
		case e := <-adapter.Events():
			registry.Dispatch(ctx, e)
		}
	}
}

func serveMetrics(addr string, logger kitlog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		level.Error(logger).Log("msg", "metrics server exited", "err", err)
	}
}

// loadOrCreateValidatorKey reads a hex-encoded Ed25519 seed from path, or
// generates and persists a fresh one if the file does not exist. The
// validator's identity must be stable across restarts since it is the
// allow-list lookup key and the signer of every LootDistribution event.
func loadOrCreateValidatorKey(path string) (ed25519.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		seed, decodeErr := hex.DecodeString(string(trimNewline(raw)))
		if decodeErr != nil || len(seed) != ed25519.SeedSize {
			return nil, errors.Errorf("validator key file %s does not contain a %d-byte hex-encoded seed", path, ed25519.SeedSize)
		}
		return ed25519.NewKeyFromSeed(seed), nil
	}
	if !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "reading validator key")
	}

	_, priv, genErr := ed25519.GenerateKey(nil)
	if genErr != nil {
		return nil, errors.Wrap(genErr, "generating validator key")
	}
	seed := priv.Seed()
	if writeErr := os.WriteFile(path, []byte(hex.EncodeToString(seed)+"\n"), 0o600); writeErr != nil {
		return nil, errors.Wrap(writeErr, "persisting generated validator key")
	}
	return priv, nil
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
