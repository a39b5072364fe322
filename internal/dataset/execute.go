package dataset

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/cardset/internal/splits"
)

// Execute materializes a plan on disk and returns the canonical root it
// built. Steps run in a fixed order: canonical skeleton, tasks manifest,
// record copies, split manifests, build manifest. The first failing step
// aborts the build; files written by earlier steps are left in place for
// inspection.
func (s *Service) Execute(ctx context.Context, plan Plan) (string, error) {
	ctx, span := s.tracer.Start(ctx, "dataset.execute")
	defer span.End()

	canonical := plan.Layout.Canonical()
	span.SetAttributes(
		attribute.String("build_id", plan.ID),
		attribute.String("canonical", canonical),
		attribute.Int("records", len(plan.Records)),
	)

	if err := os.MkdirAll(canonical, 0o755); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("creating canonical root: %w", err)
	}

	s.logger.Info("writing task manifest",
		zap.Int("tasks", len(plan.Tasks)),
		zap.String("path", plan.Layout.TasksFile()))
	if err := writeManifest(plan.Layout.TasksFile(), plan.Tasks); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("writing task manifest: %w", err)
	}

	if err := os.MkdirAll(plan.Layout.Records(), 0o755); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("creating records directory: %w", err)
	}

	s.logger.Info("copying records",
		zap.Int("records", len(plan.Records)),
		zap.String("dst", plan.Layout.Records()))
	bySplit := make(map[splits.DatasetSplit][]string, len(splits.All()))
	for i, rp := range plan.Records {
		if err := copyFile(rp.SrcImage, rp.DstImage); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return "", fmt.Errorf("copying image for %q: %w", rp.Stem, err)
		}
		if err := copyFile(rp.SrcAnnotation, rp.DstAnnotation); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return "", fmt.Errorf("copying annotation for %q: %w", rp.Stem, err)
		}
		bySplit[rp.Split] = append(bySplit[rp.Split], rp.Stem)
		s.copiesCounter.Add(ctx, 2)
		if (i+1)%s.config.ProgressEvery == 0 {
			s.logger.Info("copy progress",
				zap.Int("copied", i+1),
				zap.Int("total", len(plan.Records)))
		}
	}

	if err := os.MkdirAll(plan.Layout.Splits(), 0o755); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("creating splits directory: %w", err)
	}
	for _, split := range splits.All() {
		stems := bySplit[split]
		s.logger.Info("writing split manifest",
			zap.String("split", split.String()),
			zap.Int("records", len(stems)))
		if err := writeManifest(plan.Layout.SplitManifest(split), stems); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return "", fmt.Errorf("writing %s manifest: %w", split, err)
		}
	}

	if err := writeBuildManifest(plan, bySplit); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("writing build manifest: %w", err)
	}

	s.logger.Info("dataset built",
		zap.String("build_id", plan.ID),
		zap.String("canonical", canonical),
		zap.Int("records", len(plan.Records)),
		zap.Int("tasks", len(plan.Tasks)))
	return canonical, nil
}

// writeManifest writes one entry per line with no trailing newline, so an
// empty manifest is an empty file.
func writeManifest(path string, entries []string) error {
	return os.WriteFile(path, []byte(strings.Join(entries, "\n")), 0o644)
}

// copyFile copies src to dst byte for byte. The close error is returned
// because writes may surface only on close.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
