package dataset

import "errors"

// Build failures. Every one of them aborts the running operation outright:
// the pipeline performs no local recovery and returns no partial results.
var (
	// ErrDuplicateFilenames indicates the same filename found under more
	// than one path in the raw tree.
	ErrDuplicateFilenames = errors.New("duplicate filenames in raw tree")

	// ErrStemSetMismatch indicates image and annotation stem sets that are
	// not identical.
	ErrStemSetMismatch = errors.New("mismatched images and annotations")

	// ErrInvalidTaskName indicates a raw file that does not live under a
	// task_ directory.
	ErrInvalidTaskName = errors.New("invalid task name")

	// ErrDuplicatePlan indicates two identical record plans in one build
	// plan.
	ErrDuplicatePlan = errors.New("duplicate record plan")

	// ErrCanonicalNotEmpty indicates an existing canonical root that still
	// holds files.
	ErrCanonicalNotEmpty = errors.New("canonical directory is not empty")
)
