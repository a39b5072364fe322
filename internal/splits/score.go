package splits

import (
	"crypto/sha256"
	"errors"
	"fmt"
)

// ErrScoreRange indicates a score outside the half-open interval [0, 1).
var ErrScoreRange = errors.New("split score must be in [0, 1)")

// SplitScore is a deterministic position on the unit interval used to place
// a record within the split ratios. Valid scores lie in [0.0, 1.0).
type SplitScore float64

// NewSplitScore validates v and returns it as a SplitScore.
func NewSplitScore(v float64) (SplitScore, error) {
	if v < 0.0 || v >= 1.0 {
		return 0, fmt.Errorf("%w: got %v", ErrScoreRange, v)
	}
	return SplitScore(v), nil
}

// FirstHashByte returns the first byte of sha256("{seed}:{key}"). The key
// material is the decimal seed and the key joined by a colon, so scores are
// reproducible bit for bit across runs, processes and platforms.
func FirstHashByte(key string, seed int64) byte {
	sum := sha256.Sum256(fmt.Appendf(nil, "%d:%s", seed, key))
	return sum[0]
}

// HashScore maps a key to a SplitScore by dividing its first hash byte by
// 256. The result is always in [0, 1).
func HashScore(key string, seed int64) SplitScore {
	return SplitScore(float64(FirstHashByte(key, seed)) / 256.0)
}
