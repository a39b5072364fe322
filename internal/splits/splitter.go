package splits

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fyrsmithlabs/cardset/internal/record"
)

var (
	// ErrNoAssignment indicates a record the static table has no split for.
	ErrNoAssignment = errors.New("no split assignment for stem")

	// ErrConflictingAssignment indicates a stem listed in more than one
	// split manifest.
	ErrConflictingAssignment = errors.New("stem assigned to multiple splits")
)

// Splitter assigns a record to a dataset split.
type Splitter interface {
	Split(rec record.Record) (DatasetSplit, error)
}

// HashSplitter derives a record's split from its stem. Any two datasets that
// contain the same stem under the same seed and policy agree on its split.
type HashSplitter struct {
	policy SplitPolicy
	seed   int64
}

// NewHashSplitter creates a HashSplitter.
func NewHashSplitter(policy SplitPolicy, seed int64) (*HashSplitter, error) {
	if policy == nil {
		return nil, errors.New("split policy is required")
	}
	return &HashSplitter{policy: policy, seed: seed}, nil
}

// Split implements Splitter.
func (s *HashSplitter) Split(rec record.Record) (DatasetSplit, error) {
	return s.policy.Assign(HashScore(rec.Stem, s.seed)), nil
}

// CertIDSplitter derives a record's split from the certificate id encoded in
// its stem, so the front and back scans of one physical card always land in
// the same split. Stems that do not parse as card scans fail the split.
type CertIDSplitter struct {
	policy SplitPolicy
	seed   int64
}

// NewCertIDSplitter creates a CertIDSplitter.
func NewCertIDSplitter(policy SplitPolicy, seed int64) (*CertIDSplitter, error) {
	if policy == nil {
		return nil, errors.New("split policy is required")
	}
	return &CertIDSplitter{policy: policy, seed: seed}, nil
}

// Split implements Splitter.
func (s *CertIDSplitter) Split(rec record.Record) (DatasetSplit, error) {
	identity, err := ExtractCardIdentity(rec.Stem)
	if err != nil {
		return "", err
	}
	return s.policy.Assign(HashScore(identity.CertificateID, s.seed)), nil
}

// StaticSplitter replays a fixed stem-to-split table. A record whose stem is
// absent from the table fails the split rather than falling back to hashing.
type StaticSplitter struct {
	assignments map[string]DatasetSplit
}

// NewStaticSplitter creates a StaticSplitter from an assignment table. The
// table is copied; later changes to the argument do not affect the splitter.
func NewStaticSplitter(assignments map[string]DatasetSplit) *StaticSplitter {
	copied := make(map[string]DatasetSplit, len(assignments))
	for stem, split := range assignments {
		copied[stem] = split
	}
	return &StaticSplitter{assignments: copied}
}

// StaticSplitterFromManifests rebuilds a StaticSplitter from a splits
// directory written by a previous build (train.txt, val.txt, test.txt with
// one stem per line). A stem appearing in more than one manifest is an
// error.
func StaticSplitterFromManifests(dir string) (*StaticSplitter, error) {
	assignments := make(map[string]DatasetSplit)
	for _, split := range All() {
		path := filepath.Join(dir, string(split)+".txt")
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading split manifest %s: %w", path, err)
		}
		for _, line := range strings.Split(string(content), "\n") {
			stem := strings.TrimSpace(line)
			if stem == "" {
				continue
			}
			if prev, ok := assignments[stem]; ok {
				return nil, fmt.Errorf("%w: %s in both %s and %s", ErrConflictingAssignment, stem, prev, split)
			}
			assignments[stem] = split
		}
	}
	return &StaticSplitter{assignments: assignments}, nil
}

// Split implements Splitter.
func (s *StaticSplitter) Split(rec record.Record) (DatasetSplit, error) {
	split, ok := s.assignments[rec.Stem]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNoAssignment, rec.Stem)
	}
	return split, nil
}

// Len returns the number of assignments in the table.
func (s *StaticSplitter) Len() int {
	return len(s.assignments)
}

var (
	_ Splitter = (*HashSplitter)(nil)
	_ Splitter = (*CertIDSplitter)(nil)
	_ Splitter = (*StaticSplitter)(nil)
)

// Partition assigns every record and groups the results by split. The
// returned map always carries all three splits, empty slices included, and
// preserves input order within each bucket. The first failed assignment
// aborts the partition.
func Partition(s Splitter, records []record.Record) (map[DatasetSplit][]record.Record, error) {
	buckets := make(map[DatasetSplit][]record.Record, len(All()))
	for _, split := range All() {
		buckets[split] = []record.Record{}
	}

	for _, rec := range records {
		split, err := s.Split(rec)
		if err != nil {
			return nil, fmt.Errorf("splitting record %q: %w", rec.Stem, err)
		}
		if _, ok := buckets[split]; !ok {
			return nil, fmt.Errorf("%w: %q for record %q", ErrUnknownSplit, split, rec.Stem)
		}
		buckets[split] = append(buckets[split], rec)
	}

	return buckets, nil
}
