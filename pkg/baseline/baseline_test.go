package baseline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixmyk8s/kubecuro/pkg/types"
)

func TestFromFindingsDeduplicatesFingerprints(t *testing.T) {
	findings := []types.Finding{
		{Code: types.CodeGhost, File: "svc.yaml", Line: 3},
		{Code: types.CodeGhost, File: "svc.yaml", Line: 17},
		{Code: types.CodeOOMRisk, File: "deploy.yaml", Line: 9},
	}
	rec := FromFindings("shop", findings)
	assert.Equal(t, "shop", rec.Project)
	assert.False(t, rec.Timestamp.IsZero())
	assert.Equal(t, []string{"deploy.yaml:OOM_RISK", "svc.yaml:GHOST"}, rec.Issues,
		"fingerprints are line-insensitive, unique, and sorted")
}

func TestPartitionByFileAndCode(t *testing.T) {
	accepted := FromFindings("shop", []types.Finding{
		{Code: types.CodeGhost, File: "svc.yaml", Line: 3},
	}).Set()

	findings := []types.Finding{
		{Code: types.CodeGhost, File: "svc.yaml", Line: 42},
		{Code: types.CodePortGap, File: "svc.yaml", Line: 8},
		{Code: types.CodeGhost, File: "other.yaml", Line: 3},
	}
	fresh, suppressed := Partition(findings, accepted)

	require.Len(t, suppressed, 1)
	assert.Equal(t, 42, suppressed[0].Line, "an accepted code suppresses every occurrence in its file")

	require.Len(t, fresh, 2)
	assert.Equal(t, types.CodePortGap, fresh[0].Code, "a different code in the same file still reports")
	assert.Equal(t, "other.yaml", fresh[1].File, "the same code in another file still reports")
}

func TestPartitionNilBaseline(t *testing.T) {
	findings := []types.Finding{{Code: types.CodeGhost, File: "svc.yaml"}}
	fresh, suppressed := Partition(findings, nil)
	assert.Len(t, fresh, 1)
	assert.Empty(t, suppressed)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.json")
	rec := FromFindings("shop", []types.Finding{
		{Code: types.CodeGhost, File: "svc.yaml", Line: 3},
		{Code: types.CodeOOMRisk, File: "deploy.yaml", Line: 9},
	})
	require.NoError(t, rec.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, rec.Project, loaded.Project)
	assert.Equal(t, rec.Issues, loaded.Issues)
	assert.True(t, rec.Timestamp.Equal(loaded.Timestamp))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp sibling is renamed away")
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
