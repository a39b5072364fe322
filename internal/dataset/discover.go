package dataset

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/cardset/internal/record"
)

// taskPrefix marks the directories a CVAT export creates per task. Files
// outside such a directory cannot be attributed to a task and fail discovery.
const taskPrefix = "task_"

// Discover walks the raw CVAT tree under layout and pairs every image with
// its annotation by stem. It returns the paired records in walk order
// together with the task names that contributed them, first occurrence
// first.
//
// Discovery validates the whole tree before returning: filenames must be
// unique across tasks, every image needs an annotation and vice versa, and
// every file must sit under a task_ directory.
func (s *Service) Discover(ctx context.Context, layout Layout) ([]record.Record, []string, error) {
	ctx, span := s.tracer.Start(ctx, "dataset.discover")
	defer span.End()

	rawRoot := layout.CVATRaw()
	span.SetAttributes(attribute.String("raw_root", rawRoot))

	images, annotations, err := s.walkRawTree(rawRoot)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, fmt.Errorf("scanning raw tree %s: %w", rawRoot, err)
	}

	if groups := duplicateGroups(images); len(groups) > 0 {
		err := fmt.Errorf("%w: images %s", ErrDuplicateFilenames, formatGroups(groups))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}
	if groups := duplicateGroups(annotations); len(groups) > 0 {
		err := fmt.Errorf("%w: annotations %s", ErrDuplicateFilenames, formatGroups(groups))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	imageStems, imageByStem := indexByStem(images)
	_, annotationByStem := indexByStem(annotations)

	if err := matchStemSets(imageByStem, annotationByStem); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	records := make([]record.Record, 0, len(imageStems))
	var tasks []string
	seenTasks := make(map[string]struct{})
	for _, stem := range imageStems {
		imagePath := imageByStem[stem]
		rec, err := record.New(imagePath, annotationByStem[stem])
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, nil, err
		}
		task, err := taskName(rawRoot, imagePath)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, nil, err
		}
		if _, ok := seenTasks[task]; !ok {
			seenTasks[task] = struct{}{}
			tasks = append(tasks, task)
		}
		records = append(records, rec)
	}

	s.recordsCounter.Add(ctx, int64(len(records)))
	span.SetAttributes(
		attribute.Int("records", len(records)),
		attribute.Int("tasks", len(tasks)),
	)
	s.logger.Info("discovered records",
		zap.String("raw_root", rawRoot),
		zap.Int("records", len(records)),
		zap.Int("tasks", len(tasks)))

	return records, tasks, nil
}

// walkRawTree collects image and annotation paths under root in lexical walk
// order.
func (s *Service) walkRawTree(root string) (images, annotations []string, err error) {
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case s.config.ImageExt:
			images = append(images, path)
		case s.config.AnnotationExt:
			annotations = append(annotations, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return images, annotations, nil
}

// duplicateGroups returns every set of paths that share a single filename,
// in first-encounter order.
func duplicateGroups(paths []string) [][]string {
	byName := make(map[string][]string)
	var names []string
	for _, p := range paths {
		name := filepath.Base(p)
		if _, seen := byName[name]; !seen {
			names = append(names, name)
		}
		byName[name] = append(byName[name], p)
	}
	var groups [][]string
	for _, name := range names {
		if group := byName[name]; len(group) > 1 {
			groups = append(groups, group)
		}
	}
	return groups
}

func formatGroups(groups [][]string) string {
	parts := make([]string, len(groups))
	for i, group := range groups {
		parts[i] = "[" + strings.Join(group, ", ") + "]"
	}
	return strings.Join(parts, "; ")
}

// indexByStem maps each path by its stem and returns the stems in input
// order. Duplicate filenames are rejected before this runs, so stems cannot
// collide here.
func indexByStem(paths []string) ([]string, map[string]string) {
	stems := make([]string, 0, len(paths))
	byStem := make(map[string]string, len(paths))
	for _, p := range paths {
		stem := record.Stem(p)
		stems = append(stems, stem)
		byStem[stem] = p
	}
	return stems, byStem
}

// matchStemSets verifies images and annotations describe the same stems and
// reports both directions of any mismatch at once.
func matchStemSets(images, annotations map[string]string) error {
	var missingAnnotations, missingImages []string
	for stem := range images {
		if _, ok := annotations[stem]; !ok {
			missingAnnotations = append(missingAnnotations, stem)
		}
	}
	for stem := range annotations {
		if _, ok := images[stem]; !ok {
			missingImages = append(missingImages, stem)
		}
	}
	if len(missingAnnotations) == 0 && len(missingImages) == 0 {
		return nil
	}
	sort.Strings(missingAnnotations)
	sort.Strings(missingImages)
	return fmt.Errorf("%w: missing annotations for %v, missing images for %v",
		ErrStemSetMismatch, missingAnnotations, missingImages)
}

// taskName recovers the owning task directory for an image path. CVAT
// exports normally nest as <raw>/task_<id>/<subdir>/<file>; flatter exports
// with files directly under the task directory are accepted too.
func taskName(rawRoot, imagePath string) (string, error) {
	parent := filepath.Dir(imagePath)
	grand := filepath.Dir(parent)
	name := filepath.Base(grand)
	if grand == filepath.Clean(rawRoot) {
		name = filepath.Base(parent)
	}
	if !strings.HasPrefix(name, taskPrefix) {
		return "", fmt.Errorf("%w: %q owns %s", ErrInvalidTaskName, name, imagePath)
	}
	return name, nil
}
