package dataset

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/fyrsmithlabs/cardset/internal/record"
	"github.com/fyrsmithlabs/cardset/internal/splits"
)

// RecordPlan fixes the sources, destinations and split of one record before
// any file is touched.
type RecordPlan struct {
	Stem          string
	SrcImage      string
	SrcAnnotation string
	DstImage      string
	DstAnnotation string
	Split         splits.DatasetSplit
}

// Plan is the complete description of one build: which tasks contributed and
// where every record lands. Executing the same plan twice against an empty
// root produces byte-identical trees.
type Plan struct {
	ID        string
	CreatedAt time.Time
	Layout    Layout
	Tasks     []string
	Records   []RecordPlan
}

// Plan assigns every discovered record a split and a destination under the
// canonical records directory. It performs no I/O; all validation happens on
// the in-memory inputs so a returned plan is safe to execute.
func (s *Service) Plan(ctx context.Context, records []record.Record, tasks []string, layout Layout, splitter splits.Splitter) (Plan, error) {
	_, span := s.tracer.Start(ctx, "dataset.plan")
	defer span.End()
	span.SetAttributes(attribute.Int("records", len(records)))

	recordsDir := layout.Records()
	seen := make(map[RecordPlan]struct{}, len(records))
	planned := make([]RecordPlan, 0, len(records))
	for _, rec := range records {
		split, err := splitter.Split(rec)
		if err != nil {
			err = fmt.Errorf("planning record %q: %w", rec.Stem, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return Plan{}, err
		}
		rp := RecordPlan{
			Stem:          rec.Stem,
			SrcImage:      rec.ImagePath,
			SrcAnnotation: rec.AnnotationPath,
			DstImage:      filepath.Join(recordsDir, filepath.Base(rec.ImagePath)),
			DstAnnotation: filepath.Join(recordsDir, filepath.Base(rec.AnnotationPath)),
			Split:         split,
		}
		if _, dup := seen[rp]; dup {
			err := fmt.Errorf("%w: stem %q (%s, %s)", ErrDuplicatePlan, rp.Stem, rp.SrcImage, rp.SrcAnnotation)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return Plan{}, err
		}
		seen[rp] = struct{}{}
		planned = append(planned, rp)
	}

	return Plan{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Layout:    layout,
		Tasks:     tasks,
		Records:   planned,
	}, nil
}
