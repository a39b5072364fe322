package dataset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/cardset/internal/splits"
)

const instrumentationName = "github.com/fyrsmithlabs/cardset/internal/dataset"

// ServiceConfig configures the dataset build service.
type ServiceConfig struct {
	// ImageExt and AnnotationExt select the raw files discovery pairs up
	// (default: .png and .xml).
	ImageExt      string
	AnnotationExt string

	// ProgressEvery is the number of copied records between progress log
	// lines during execution (default: 100).
	ProgressEvery int
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		ImageExt:      ".png",
		AnnotationExt: ".xml",
		ProgressEvery: 100,
	}
}

// Service turns raw CVAT exports into canonical dataset trees. Operations
// run in three phases (discover, plan, execute) which are also exposed
// individually so callers can inspect a plan without touching disk.
type Service struct {
	config *ServiceConfig
	logger *zap.Logger

	// Telemetry
	tracer         trace.Tracer
	meter          metric.Meter
	recordsCounter metric.Int64Counter
	copiesCounter  metric.Int64Counter
	buildsCounter  metric.Int64Counter
}

// NewService creates a new dataset service.
func NewService(cfg *ServiceConfig, logger *zap.Logger) (*Service, error) {
	if cfg == nil {
		cfg = DefaultServiceConfig()
	}
	if cfg.ImageExt == "" || cfg.AnnotationExt == "" {
		return nil, errors.New("image and annotation extensions are required")
	}
	if cfg.ImageExt == cfg.AnnotationExt {
		return nil, fmt.Errorf("image and annotation extensions must differ, both are %q", cfg.ImageExt)
	}
	cfgCopy := *cfg
	if cfgCopy.ProgressEvery <= 0 {
		cfgCopy.ProgressEvery = DefaultServiceConfig().ProgressEvery
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		config: &cfgCopy,
		logger: logger,
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}

	s.initMetrics()

	return s, nil
}

// initMetrics initializes OpenTelemetry metrics.
func (s *Service) initMetrics() {
	var err error

	s.recordsCounter, err = s.meter.Int64Counter(
		"cardset.dataset.records_discovered_total",
		metric.WithDescription("Total number of records discovered in raw trees"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		s.logger.Warn("failed to create records counter", zap.Error(err))
	}

	s.copiesCounter, err = s.meter.Int64Counter(
		"cardset.dataset.files_copied_total",
		metric.WithDescription("Total number of files copied into canonical trees"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		s.logger.Warn("failed to create copies counter", zap.Error(err))
	}

	s.buildsCounter, err = s.meter.Int64Counter(
		"cardset.dataset.builds_total",
		metric.WithDescription("Total number of completed dataset builds"),
		metric.WithUnit("{build}"),
	)
	if err != nil {
		s.logger.Warn("failed to create builds counter", zap.Error(err))
	}
}

// Build runs the full pipeline against layout and returns the canonical root
// it produced. It refuses to run when the canonical directory already holds
// files; the check happens before discovery so a refused build leaves the
// tree completely untouched.
func (s *Service) Build(ctx context.Context, layout Layout, splitter splits.Splitter) (string, error) {
	ctx, span := s.tracer.Start(ctx, "dataset.build")
	defer span.End()
	span.SetAttributes(attribute.String("root", layout.Root))

	if err := ensureEmpty(layout.Canonical()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	records, tasks, err := s.Discover(ctx, layout)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	plan, err := s.Plan(ctx, records, tasks, layout, splitter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	canonical, err := s.Execute(ctx, plan)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	s.buildsCounter.Add(ctx, 1)
	return canonical, nil
}

// Delete removes the canonical tree under layout. A missing tree is not an
// error; the raw CVAT export is never touched.
func (s *Service) Delete(ctx context.Context, layout Layout) error {
	_, span := s.tracer.Start(ctx, "dataset.delete")
	defer span.End()

	canonical := layout.Canonical()
	span.SetAttributes(attribute.String("canonical", canonical))

	s.logger.Info("deleting canonical dataset", zap.String("canonical", canonical))
	if err := os.RemoveAll(canonical); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("deleting %s: %w", canonical, err)
	}
	return nil
}

// Rebuild deletes the canonical tree and builds it again from the raw
// export.
func (s *Service) Rebuild(ctx context.Context, layout Layout, splitter splits.Splitter) (string, error) {
	ctx, span := s.tracer.Start(ctx, "dataset.rebuild")
	defer span.End()

	if err := s.Delete(ctx, layout); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return s.Build(ctx, layout, splitter)
}

// ensureEmpty fails when dir exists and contains any entry. A missing dir is
// fine; Execute creates it.
func ensureEmpty(dir string) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking %s: %w", dir, err)
	}
	if len(entries) == 0 {
		return nil
	}
	names := make([]string, len(entries))
	for i, entry := range entries {
		names[i] = entry.Name()
	}
	return fmt.Errorf("%w: %s holds %s; delete it or pick a new dataset root",
		ErrCanonicalNotEmpty, dir, strings.Join(names, ", "))
}
