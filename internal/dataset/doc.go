// Package dataset builds the canonical card-scan dataset from raw CVAT task
// exports.
//
// A build runs three strictly ordered phases. Discovery walks the raw export
// tree and pairs every image with its annotation by stem, failing on
// duplicates or unmatched files. Planning derives an immutable copy plan
// with a split assignment per record and touches no files. Execution copies
// record bytes into the canonical tree and writes the task and split
// manifests. Failures abort the build with no rollback: a partially written
// canonical tree stays on disk and the next build refuses to run until it is
// deleted.
package dataset
