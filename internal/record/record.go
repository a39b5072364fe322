// Package record defines the image/annotation file pair that every canonical
// dataset entry is built from.
package record

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrStemMismatch indicates an image and annotation whose stems disagree.
var ErrStemMismatch = errors.New("image and annotation stems do not match")

// Record pairs one image file with its annotation file. The stem is the
// shared basename without extension and identifies the record throughout the
// pipeline. Records are immutable values; construct them with New.
type Record struct {
	ImagePath      string
	AnnotationPath string
	Stem           string
}

// New builds a Record from an image path and an annotation path. The stems
// derived from the two paths must agree; New fails otherwise, naming both
// offending paths.
func New(imagePath, annotationPath string) (Record, error) {
	imageStem := Stem(imagePath)
	annotationStem := Stem(annotationPath)
	if imageStem != annotationStem {
		return Record{}, fmt.Errorf("%w: %s %s", ErrStemMismatch, imagePath, annotationPath)
	}
	return Record{
		ImagePath:      imagePath,
		AnnotationPath: annotationPath,
		Stem:           imageStem,
	}, nil
}

// Stem returns the basename of path without its final extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
