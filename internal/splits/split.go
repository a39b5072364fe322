package splits

import (
	"errors"
	"fmt"
)

// ErrUnknownSplit indicates a split name other than train, val or test.
var ErrUnknownSplit = errors.New("unknown dataset split")

// DatasetSplit identifies which partition of the dataset a record belongs to.
type DatasetSplit string

// The three dataset partitions, in canonical order.
const (
	Train DatasetSplit = "train"
	Val   DatasetSplit = "val"
	Test  DatasetSplit = "test"
)

// All returns the three splits in canonical order: train, val, test.
func All() []DatasetSplit {
	return []DatasetSplit{Train, Val, Test}
}

// Parse converts a string into a DatasetSplit.
func Parse(s string) (DatasetSplit, error) {
	switch split := DatasetSplit(s); split {
	case Train, Val, Test:
		return split, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSplit, s)
	}
}

func (s DatasetSplit) String() string {
	return string(s)
}
