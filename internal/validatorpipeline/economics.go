package validatorpipeline

import "github.com/pkg/errors"

// Economics holds the loot/fee split parameters from configuration;
// defaults are 95/100.
type Economics struct {
	LootNumerator   uint64
	LootDenominator uint64
	MinTotalWager   uint64
}

// DefaultEconomics returns the standard 95/100 split with the mandatory
// floor of two total wagered tokens.
func DefaultEconomics() Economics {
	return Economics{LootNumerator: 95, LootDenominator: 100, MinTotalWager: 2}
}

// Resolution is the result of splitting a match's total wager into the
// winner's loot and the mint's fee.
type Resolution struct {
	TotalWager uint64
	Loot       uint64
	Fee        uint64
}

// Resolve computes loot = floor(totalWager * numerator / denominator),
// fee = totalWager - loot. A totalWager below MinTotalWager is rejected
// outright — the match is Invalid and no burn or mint may be issued.
func Resolve(e Economics, totalWager uint64) (Resolution, error) {
	if totalWager < e.MinTotalWager {
		return Resolution{}, errors.Errorf("validator pipeline: total wager %d below minimum %d", totalWager, e.MinTotalWager)
	}
	loot := (totalWager * e.LootNumerator) / e.LootDenominator
	return Resolution{
		TotalWager: totalWager,
		Loot:       loot,
		Fee:        totalWager - loot,
	}, nil
}
