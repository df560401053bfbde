// Package config loads the validator's single YAML configuration file into
// the tunables each component needs: the league modifier table, round
// count, phase deadline, minimum wager, loot split, the validator
// allow-list path, and the relay URLs to dial. A missing file is not an
// error — Load returns DefaultConfig so a bare localnet checkout still
// runs.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/manastr/core/internal/combat"
)

// LeagueModifier is the YAML shape of one league_modifier_table entry.
type LeagueModifier struct {
	AttackDelta    int16          `yaml:"attack_delta"`
	DefenseDelta   int16          `yaml:"defense_delta"`
	HealthDelta    int16          `yaml:"health_delta"`
	AbilityUpgrade combat.Ability `yaml:"ability_upgrade"`
	HasUpgrade     bool           `yaml:"has_ability_upgrade"`
}

// Config is the validator's full on-disk configuration surface.
type Config struct {
	LeagueModifierTable map[uint8]LeagueModifier `yaml:"league_modifier_table"`
	RoundsPerMatch       uint8                    `yaml:"rounds_per_match"`

	// PhaseDeadline is applied uniformly to every non-terminal phase
	// transition (Accepted, TokensRevealed/InCombat, AwaitingClaims)
	// rather than as a per-phase table.
	PhaseDeadline time.Duration `yaml:"phase_deadline"`

	MinTotalWager   uint64 `yaml:"min_total_wager"`
	LootNumerator   uint64 `yaml:"loot_numerator"`
	LootDenominator uint64 `yaml:"loot_denominator"`

	ValidatorAllowListPath string   `yaml:"validator_allow_list_path"`
	RelayURLs              []string `yaml:"relay_urls"`

	ValidatorID      string `yaml:"validator_id"`
	ValidatorKeyPath string `yaml:"validator_key_path"`
	MintBaseURL      string `yaml:"mint_base_url"`
	MintTimeout      time.Duration `yaml:"mint_timeout"`

	RelayQueueSize int           `yaml:"relay_queue_size"`
	MatchInboxSize int           `yaml:"match_inbox_size"`
	DialTimeout    time.Duration `yaml:"dial_timeout"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`

	MetricsAddr string `yaml:"metrics_addr"`
}

// rawConfig mirrors Config with duration fields as strings, since
// time.Duration does not implement yaml.Unmarshaler for Go-style duration
// literals ("5m", "30s") by itself.
type rawConfig struct {
	LeagueModifierTable    map[uint8]LeagueModifier `yaml:"league_modifier_table"`
	RoundsPerMatch         uint8                    `yaml:"rounds_per_match"`
	PhaseDeadline          string                   `yaml:"phase_deadline"`
	MinTotalWager          uint64                   `yaml:"min_total_wager"`
	LootNumerator          uint64                   `yaml:"loot_numerator"`
	LootDenominator        uint64                   `yaml:"loot_denominator"`
	ValidatorAllowListPath string                   `yaml:"validator_allow_list_path"`
	RelayURLs              []string                 `yaml:"relay_urls"`
	ValidatorID            string                   `yaml:"validator_id"`
	ValidatorKeyPath       string                   `yaml:"validator_key_path"`
	MintBaseURL            string                   `yaml:"mint_base_url"`
	MintTimeout            string                   `yaml:"mint_timeout"`
	RelayQueueSize         int                      `yaml:"relay_queue_size"`
	MatchInboxSize         int                      `yaml:"match_inbox_size"`
	DialTimeout            string                   `yaml:"dial_timeout"`
	ReconnectDelay         string                   `yaml:"reconnect_delay"`
	MetricsAddr            string                   `yaml:"metrics_addr"`
}

// Load reads path and overlays it onto DefaultConfig; a missing file is not
// an error. Zero-value fields left unset by the file keep their default.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, errors.Wrap(err, "config: reading file")
	}

	var rc rawConfig
	if err := yaml.Unmarshal(raw, &rc); err != nil {
		return Config{}, errors.Wrap(err, "config: parsing yaml")
	}

	if rc.LeagueModifierTable != nil {
		cfg.LeagueModifierTable = rc.LeagueModifierTable
	}
	if rc.RoundsPerMatch != 0 {
		cfg.RoundsPerMatch = rc.RoundsPerMatch
	}
	if _, err := parseDuration(rc.PhaseDeadline, &cfg.PhaseDeadline); err != nil {
		return Config{}, err
	}
	if rc.MinTotalWager != 0 {
		cfg.MinTotalWager = rc.MinTotalWager
	}
	if rc.LootNumerator != 0 {
		cfg.LootNumerator = rc.LootNumerator
	}
	if rc.LootDenominator != 0 {
		cfg.LootDenominator = rc.LootDenominator
	}
	if rc.ValidatorAllowListPath != "" {
		cfg.ValidatorAllowListPath = rc.ValidatorAllowListPath
	}
	if len(rc.RelayURLs) > 0 {
		cfg.RelayURLs = rc.RelayURLs
	}
	if rc.ValidatorID != "" {
		cfg.ValidatorID = rc.ValidatorID
	}
	if rc.ValidatorKeyPath != "" {
		cfg.ValidatorKeyPath = rc.ValidatorKeyPath
	}
	if rc.MintBaseURL != "" {
		cfg.MintBaseURL = rc.MintBaseURL
	}
	if _, err := parseDuration(rc.MintTimeout, &cfg.MintTimeout); err != nil {
		return Config{}, err
	}
	if rc.RelayQueueSize != 0 {
		cfg.RelayQueueSize = rc.RelayQueueSize
	}
	if rc.MatchInboxSize != 0 {
		cfg.MatchInboxSize = rc.MatchInboxSize
	}
	if _, err := parseDuration(rc.DialTimeout, &cfg.DialTimeout); err != nil {
		return Config{}, err
	}
	if _, err := parseDuration(rc.ReconnectDelay, &cfg.ReconnectDelay); err != nil {
		return Config{}, err
	}
	if rc.MetricsAddr != "" {
		cfg.MetricsAddr = rc.MetricsAddr
	}

	return cfg, cfg.Validate()
}

// parseDuration overlays raw onto dst if raw is non-empty, reporting
// whether it did so.
func parseDuration(raw string, dst *time.Duration) (bool, error) {
	if raw == "" {
		return false, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return false, errors.Wrapf(err, "config: invalid duration %q", raw)
	}
	*dst = d
	return true, nil
}

// Validate rejects a configuration that can never produce a valid match:
// min_total_wager below 2 or a loot split with a zero denominator.
func (c Config) Validate() error {
	if c.RoundsPerMatch == 0 {
		return errors.New("config: rounds_per_match must be positive")
	}
	if c.MinTotalWager < 2 {
		return errors.New("config: min_total_wager must be >= 2")
	}
	if c.LootDenominator == 0 {
		return errors.New("config: loot_denominator must be nonzero")
	}
	if c.LootNumerator > c.LootDenominator {
		return errors.New("config: loot_numerator must not exceed loot_denominator")
	}
	if c.ValidatorAllowListPath == "" {
		return errors.New("config: validator_allow_list_path is required")
	}
	if len(c.RelayURLs) == 0 {
		return errors.New("config: at least one relay url is required")
	}
	return nil
}

// LeagueTable converts the YAML-friendly modifier table into the
// combat.ModifierTable the kernel consumes.
func (c Config) LeagueTable() combat.ModifierTable {
	if len(c.LeagueModifierTable) == 0 {
		return combat.DefaultModifierTable()
	}
	out := make(combat.ModifierTable, len(c.LeagueModifierTable))
	for id, m := range c.LeagueModifierTable {
		out[id] = combat.LeagueModifier{
			AttackDelta:       m.AttackDelta,
			DefenseDelta:      m.DefenseDelta,
			HealthDelta:       m.HealthDelta,
			AbilityUpgrade:    m.AbilityUpgrade,
			HasAbilityUpgrade: m.HasUpgrade,
		}
	}
	return out
}
