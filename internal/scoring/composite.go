package scoring

import "github.com/signalnine/aiscore/internal/result"

const (
	// BaseWeight scales the mean of the computed base scores.
	BaseWeight = 0.7
	// MarketWeight scales the market value score. It always applies.
	MarketWeight = 0.3
	// PopularThreshold is the market value at which the floor applies.
	PopularThreshold = 0.8
	// PopularFloor is the lowest overall score of a popular project
	// that has at least one computed base score.
	PopularFloor = 0.5
)

// OverallScore combines the sub-scores into one value in [0,1]. Base
// scores of 0 are treated as not computed. boosted reports whether the
// popularity floor raised the base contribution.
func OverallScore(scores result.Scores) (score float64, boosted bool) {
	var sum float64
	n := 0
	for _, v := range scores.Base() {
		if v > 0 {
			sum += v
			n++
		}
	}

	market := scores.MarketValue * MarketWeight
	if n == 0 {
		return market, false
	}

	base := sum / float64(n) * BaseWeight
	popular := scores.MarketValue >= PopularThreshold
	if popular {
		if floor := PopularFloor - market; floor > base {
			base = floor
			boosted = true
		}
	}

	score = base + market
	// Rounding guard only: (0.5 - m) + m can land one ulp below 0.5.
	// boosted is decided above and is not changed here.
	if popular && score < PopularFloor {
		score = PopularFloor
	}
	return score, boosted
}
