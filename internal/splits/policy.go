package splits

import (
	"errors"
	"fmt"
	"math"
)

// ErrRatioSum indicates split ratios that do not sum to 1.0.
var ErrRatioSum = errors.New("split ratios must sum to 1.0")

// ratioTolerance absorbs float accumulation error when checking the sum.
const ratioTolerance = 1e-9

// SplitPolicy maps a SplitScore to a DatasetSplit.
type SplitPolicy interface {
	Assign(score SplitScore) DatasetSplit
}

// RatioSplitPolicy partitions the unit interval into contiguous train, val
// and test regions. A score lands in the first region whose upper bound it
// is strictly below, so a score exactly on a boundary belongs to the next
// split: with train=0.7, a 0.7 score is val, not train.
type RatioSplitPolicy struct {
	train float64
	val   float64
	test  float64

	thresholds []threshold
}

type threshold struct {
	limit float64
	split DatasetSplit
}

// NewRatioSplitPolicy builds a policy from the three ratios. The ratios must
// be non-negative and sum to 1.0 within 1e-9.
func NewRatioSplitPolicy(train, val, test float64) (*RatioSplitPolicy, error) {
	if train < 0 || val < 0 || test < 0 {
		return nil, fmt.Errorf("split ratios must be non-negative, got train=%v val=%v test=%v", train, val, test)
	}
	total := train + val + test
	if math.Abs(total-1.0) >= ratioTolerance {
		return nil, fmt.Errorf("%w: got %v", ErrRatioSum, total)
	}
	return &RatioSplitPolicy{
		train: train,
		val:   val,
		test:  test,
		thresholds: []threshold{
			{limit: train, split: Train},
			{limit: train + val, split: Val},
			{limit: 1.0, split: Test},
		},
	}, nil
}

// Assign returns the split whose region contains score.
func (p *RatioSplitPolicy) Assign(score SplitScore) DatasetSplit {
	for _, t := range p.thresholds {
		if float64(score) < t.limit {
			return t.split
		}
	}
	// Scores are < 1.0 and the last limit is 1.0, so the walk always returns.
	return Test
}

var _ SplitPolicy = (*RatioSplitPolicy)(nil)
