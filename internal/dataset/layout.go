package dataset

import (
	"path/filepath"

	"github.com/fyrsmithlabs/cardset/internal/splits"
)

// Layout derives every path of a dataset repository from its root directory.
// It is pure path arithmetic: nothing is created, checked or resolved.
//
//	<root>/
//	  cvat_raw/        raw CVAT task exports (input)
//	  canonical/       build output root
//	    tasks.txt
//	    build.yaml
//	    records/
//	    splits/
type Layout struct {
	Root string
}

// CVATRaw is the directory raw task exports are downloaded into.
func (l Layout) CVATRaw() string {
	return filepath.Join(l.Root, "cvat_raw")
}

// Canonical is the root of the built dataset.
func (l Layout) Canonical() string {
	return filepath.Join(l.Root, "canonical")
}

// Records is the directory canonical record copies live in.
func (l Layout) Records() string {
	return filepath.Join(l.Canonical(), "records")
}

// Splits is the directory the split manifests live in.
func (l Layout) Splits() string {
	return filepath.Join(l.Canonical(), "splits")
}

// TasksFile is the manifest listing the tasks a build consumed.
func (l Layout) TasksFile() string {
	return filepath.Join(l.Canonical(), "tasks.txt")
}

// SplitManifest is the stem manifest for one split.
func (l Layout) SplitManifest(split splits.DatasetSplit) string {
	return filepath.Join(l.Splits(), string(split)+".txt")
}

// BuildManifest is the provenance manifest written at the end of a build.
func (l Layout) BuildManifest() string {
	return filepath.Join(l.Canonical(), "build.yaml")
}
