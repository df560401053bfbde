package config

import "time"

// DefaultConfig is the sane localnet configuration used when no file is
// present, or to fill any field a present file leaves zero-valued.
func DefaultConfig() Config {
	return Config{
		RoundsPerMatch:  3,
		PhaseDeadline:   2 * time.Minute,
		MinTotalWager:   2,
		LootNumerator:   95,
		LootDenominator: 100,

		ValidatorAllowListPath: "validator_allow_list.yaml",
		RelayURLs:              []string{"ws://127.0.0.1:7777"},

		ValidatorID:      "validator-local",
		ValidatorKeyPath: "validator_key.hex",
		MintBaseURL:      "http://127.0.0.1:3338",
		MintTimeout:      10 * time.Second,

		RelayQueueSize: 4096,
		MatchInboxSize: 256,
		DialTimeout:    10 * time.Second,
		ReconnectDelay: 2 * time.Second,

		MetricsAddr: ":9090",
	}
}
