package dataset

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/cardset/internal/splits"
)

func TestLayoutPaths(t *testing.T) {
	layout := Layout{Root: filepath.Join("data", "cards")}

	assert.Equal(t, filepath.Join("data", "cards", "cvat_raw"), layout.CVATRaw())
	assert.Equal(t, filepath.Join("data", "cards", "canonical"), layout.Canonical())
	assert.Equal(t, filepath.Join("data", "cards", "canonical", "records"), layout.Records())
	assert.Equal(t, filepath.Join("data", "cards", "canonical", "splits"), layout.Splits())
	assert.Equal(t, filepath.Join("data", "cards", "canonical", "tasks.txt"), layout.TasksFile())
	assert.Equal(t, filepath.Join("data", "cards", "canonical", "build.yaml"), layout.BuildManifest())
}

func TestLayoutSplitManifest(t *testing.T) {
	layout := Layout{Root: "root"}

	assert.Equal(t, filepath.Join("root", "canonical", "splits", "train.txt"), layout.SplitManifest(splits.Train))
	assert.Equal(t, filepath.Join("root", "canonical", "splits", "val.txt"), layout.SplitManifest(splits.Val))
	assert.Equal(t, filepath.Join("root", "canonical", "splits", "test.txt"), layout.SplitManifest(splits.Test))
}

func TestLayoutDerivedFromRoot(t *testing.T) {
	a := Layout{Root: "a"}
	b := Layout{Root: "b"}

	assert.NotEqual(t, a.Canonical(), b.Canonical())
	assert.Equal(t, "a", filepath.Dir(a.CVATRaw()))
}
