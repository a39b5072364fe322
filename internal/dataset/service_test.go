package dataset

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/cardset/internal/splits"
)

func TestNewService(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *ServiceConfig
		wantErr bool
	}{
		{
			name: "nil config uses defaults",
			cfg:  nil,
		},
		{
			name: "custom extensions",
			cfg:  &ServiceConfig{ImageExt: ".jpg", AnnotationExt: ".json", ProgressEvery: 10},
		},
		{
			name:    "missing extension",
			cfg:     &ServiceConfig{ImageExt: "", AnnotationExt: ".xml"},
			wantErr: true,
		},
		{
			name:    "identical extensions",
			cfg:     &ServiceConfig{ImageExt: ".png", AnnotationExt: ".png"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewService(tt.cfg, zap.NewNop())
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, svc)
		})
	}
}

func TestNewServiceDefaultsProgressInterval(t *testing.T) {
	svc, err := NewService(&ServiceConfig{ImageExt: ".png", AnnotationExt: ".xml"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 100, svc.config.ProgressEvery)
}

func TestNewServiceNilLogger(t *testing.T) {
	svc, err := NewService(nil, nil)
	require.NoError(t, err)
	require.NotNil(t, svc)
}

func defaultSplitter(t *testing.T) splits.Splitter {
	t.Helper()
	policy, err := splits.NewRatioSplitPolicy(0.8, 0.1, 0.1)
	require.NoError(t, err)
	splitter, err := splits.NewHashSplitter(policy, 42)
	require.NoError(t, err)
	return splitter
}

func manifestStems(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	if len(data) == 0 {
		return nil
	}
	return strings.Split(string(data), "\n")
}

func TestBuildEndToEnd(t *testing.T) {
	layout := Layout{Root: t.TempDir()}
	raw := layout.CVATRaw()
	src := writeRawFile(t, raw, "task_123", "images", "card_x.png")
	writeRawFile(t, raw, "task_123", "annotations", "card_x.xml")

	svc := newTestService(t)
	canonical, err := svc.Build(context.Background(), layout, defaultSplitter(t))
	require.NoError(t, err)
	assert.Equal(t, layout.Canonical(), canonical)

	// The task shows up in the task manifest.
	assert.Contains(t, manifestStems(t, layout.TasksFile()), "task_123")

	// The copy is byte-identical to the source.
	srcData, err := os.ReadFile(src)
	require.NoError(t, err)
	dstData, err := os.ReadFile(filepath.Join(layout.Records(), "card_x.png"))
	require.NoError(t, err)
	assert.Equal(t, srcData, dstData)

	// Exactly one split manifest lists the stem.
	memberships := 0
	for _, split := range splits.All() {
		for _, stem := range manifestStems(t, layout.SplitManifest(split)) {
			if stem == "card_x" {
				memberships++
			}
		}
	}
	assert.Equal(t, 1, memberships)
}

func TestBuildRefusesNonEmptyCanonical(t *testing.T) {
	layout := Layout{Root: t.TempDir()}
	raw := layout.CVATRaw()
	writeRawFile(t, raw, "task_1", "images", "a.png")
	writeRawFile(t, raw, "task_1", "annotations", "a.xml")

	leftover := filepath.Join(layout.Canonical(), "leftover.txt")
	require.NoError(t, os.MkdirAll(layout.Canonical(), 0o755))
	require.NoError(t, os.WriteFile(leftover, []byte("old build"), 0o644))

	svc := newTestService(t)
	_, err := svc.Build(context.Background(), layout, defaultSplitter(t))
	require.ErrorIs(t, err, ErrCanonicalNotEmpty)
	assert.Contains(t, err.Error(), "leftover.txt")

	// The refused build must leave the tree exactly as it found it.
	entries, err := os.ReadDir(layout.Canonical())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "leftover.txt", entries[0].Name())
	assert.Equal(t, "old build", readFile(t, leftover))
}

func TestBuildAllowsEmptyCanonicalDir(t *testing.T) {
	layout := Layout{Root: t.TempDir()}
	raw := layout.CVATRaw()
	writeRawFile(t, raw, "task_1", "images", "a.png")
	writeRawFile(t, raw, "task_1", "annotations", "a.xml")
	require.NoError(t, os.MkdirAll(layout.Canonical(), 0o755))

	svc := newTestService(t)
	_, err := svc.Build(context.Background(), layout, defaultSplitter(t))
	require.NoError(t, err)
}

func TestBuildPropagatesDiscoveryErrors(t *testing.T) {
	layout := Layout{Root: t.TempDir()}
	raw := layout.CVATRaw()
	writeRawFile(t, raw, "task_1", "images", "a.png")

	svc := newTestService(t)
	_, err := svc.Build(context.Background(), layout, defaultSplitter(t))
	require.ErrorIs(t, err, ErrStemSetMismatch)

	// Discovery failures happen before any write.
	assert.NoDirExists(t, layout.Records())
	assert.NoFileExists(t, layout.TasksFile())
}

func TestDeleteRemovesCanonicalOnly(t *testing.T) {
	layout := Layout{Root: t.TempDir()}
	raw := layout.CVATRaw()
	src := writeRawFile(t, raw, "task_1", "images", "a.png")
	writeRawFile(t, raw, "task_1", "annotations", "a.xml")

	svc := newTestService(t)
	_, err := svc.Build(context.Background(), layout, defaultSplitter(t))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), layout))
	assert.NoDirExists(t, layout.Canonical())
	assert.FileExists(t, src)
}

func TestDeleteMissingCanonical(t *testing.T) {
	svc := newTestService(t)
	assert.NoError(t, svc.Delete(context.Background(), Layout{Root: t.TempDir()}))
}

func TestRebuildReplacesCanonical(t *testing.T) {
	layout := Layout{Root: t.TempDir()}
	raw := layout.CVATRaw()
	writeRawFile(t, raw, "task_1", "images", "a.png")
	writeRawFile(t, raw, "task_1", "annotations", "a.xml")

	svc := newTestService(t)
	_, err := svc.Build(context.Background(), layout, defaultSplitter(t))
	require.NoError(t, err)
	firstManifest := readFile(t, layout.BuildManifest())

	// Grow the raw export, then rebuild over the existing canonical tree.
	writeRawFile(t, raw, "task_2", "images", "b.png")
	writeRawFile(t, raw, "task_2", "annotations", "b.xml")

	canonical, err := svc.Rebuild(context.Background(), layout, defaultSplitter(t))
	require.NoError(t, err)
	assert.Equal(t, layout.Canonical(), canonical)

	assert.Equal(t, "task_1\ntask_2", readFile(t, layout.TasksFile()))
	assert.FileExists(t, filepath.Join(layout.Records(), "b.png"))
	assert.NotEqual(t, firstManifest, readFile(t, layout.BuildManifest()))
}

func TestEnsureEmpty(t *testing.T) {
	dir := t.TempDir()

	assert.NoError(t, ensureEmpty(filepath.Join(dir, "missing")))
	assert.NoError(t, ensureEmpty(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte("x"), 0o644))
	err := ensureEmpty(dir)
	require.ErrorIs(t, err, ErrCanonicalNotEmpty)
	assert.Contains(t, err.Error(), "file.txt")
}
