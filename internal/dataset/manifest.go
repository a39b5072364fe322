package dataset

import (
	"os"
	"time"

	"github.com/go-git/go-git/v5"
	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/cardset/internal/splits"
)

// buildManifest is the provenance record written to canonical/build.yaml. It
// ties a built tree back to the build that produced it.
type buildManifest struct {
	ID             string      `yaml:"id"`
	CreatedAt      time.Time   `yaml:"created_at"`
	SourceRevision string      `yaml:"source_revision,omitempty"`
	Tasks          int         `yaml:"tasks"`
	Records        int         `yaml:"records"`
	Splits         splitCounts `yaml:"splits"`
}

type splitCounts struct {
	Train int `yaml:"train"`
	Val   int `yaml:"val"`
	Test  int `yaml:"test"`
}

func writeBuildManifest(plan Plan, bySplit map[splits.DatasetSplit][]string) error {
	manifest := buildManifest{
		ID:             plan.ID,
		CreatedAt:      plan.CreatedAt,
		SourceRevision: sourceRevision(plan.Layout.Root),
		Tasks:          len(plan.Tasks),
		Records:        len(plan.Records),
		Splits: splitCounts{
			Train: len(bySplit[splits.Train]),
			Val:   len(bySplit[splits.Val]),
			Test:  len(bySplit[splits.Test]),
		},
	}
	data, err := yaml.Marshal(&manifest)
	if err != nil {
		return err
	}
	return os.WriteFile(plan.Layout.BuildManifest(), data, 0o644)
}

// sourceRevision returns the HEAD commit of the repository holding the
// dataset root, or an empty string when the root is not under version
// control.
func sourceRevision(root string) string {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	head, err := repo.Head()
	if err != nil {
		return ""
	}
	return head.Hash().String()
}
