package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixmyk8s/kubecuro/pkg/types"
)

func writeManifest(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const brokenDeployment = `# legacy web tier
apiVersion:extensions/v1beta1
kind: Deployment # still on the old group
metadata:
	name: web
spec:
  template:
    metadata:
      labels:
        app: web
    spec:
      containers:
        - name: app
          image: nginx: : 1.25
`

func TestHealRepairsAndMigrates(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "web.yaml", brokenDeployment)

	eng := New(Config{})
	content, codes, err := eng.Heal(path, types.HealOptions{
		ApplyFixes:    true,
		ReturnContent: true,
	})
	require.NoError(t, err)

	assert.True(t, codes[types.CodeSyntaxHealed])
	assert.True(t, codes[types.CodeAPIDeprecated])

	text := string(content)
	assert.Contains(t, text, "apiVersion: apps/v1")
	assert.Contains(t, text, "image: nginx:1.25")
	assert.Contains(t, text, "# legacy web tier")
	assert.Contains(t, text, "# still on the old group")
	assert.NotContains(t, text, "\t")

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, text, string(onDisk))
}

func TestHealIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "web.yaml", brokenDeployment)

	eng := New(Config{})
	opts := types.HealOptions{ApplyFixes: true, ApplyDefaults: true, ReturnContent: true}

	first, _, err := eng.Heal(path, opts)
	require.NoError(t, err)

	second, codes, err := eng.Heal(path, opts)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second), "healing healed output must not change it")
	assert.False(t, codes[types.CodeSyntaxHealed])
	assert.False(t, codes[types.CodeAPIDeprecated])
	assert.False(t, codes[types.CodeOOMRisk])
}

func TestHealDryRunLeavesFileAlone(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "web.yaml", brokenDeployment)

	eng := New(Config{})
	content, codes, err := eng.Heal(path, types.HealOptions{
		ApplyFixes:    true,
		DryRun:        true,
		ReturnContent: true,
	})
	require.NoError(t, err)
	assert.True(t, codes[types.CodeSyntaxHealed])
	assert.NotEqual(t, brokenDeployment, string(content))

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, brokenDeployment, string(onDisk))
}

func TestHealUntouchedFileNotRewritten(t *testing.T) {
	dir := t.TempDir()
	clean := "apiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: cfg\ndata:\n  key: value\n"
	path := writeManifest(t, dir, "cfg.yaml", clean)
	before, err := os.Stat(path)
	require.NoError(t, err)

	eng := New(Config{})
	_, codes, err := eng.Heal(path, types.HealOptions{ApplyFixes: true})
	require.NoError(t, err)
	assert.Empty(t, codes)

	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime(), "clean files are never rewritten")
}

func TestHealKeepsUndecodableSegments(t *testing.T) {
	dir := t.TempDir()
	src := "apiVersion: v1\nkind: ConfigMap\nmetadata: {\n---\napiVersion: extensions/v1beta1\nkind: Deployment\nmetadata:\n  name: d\n"
	path := writeManifest(t, dir, "mixed.yaml", src)

	eng := New(Config{})
	content, codes, err := eng.Heal(path, types.HealOptions{ApplyFixes: true, ReturnContent: true})
	require.NoError(t, err)

	assert.True(t, codes[types.CodeSyntaxError], "broken segment surfaces, scan continues")
	assert.True(t, codes[types.CodeAPIDeprecated], "valid sibling segment is still fixed")
	assert.Contains(t, string(content), "metadata: {", "unparseable text passes through untouched")
	assert.Contains(t, string(content), "apiVersion: apps/v1")
}

func TestHealMissingFile(t *testing.T) {
	eng := New(Config{})
	_, _, err := eng.Heal(filepath.Join(t.TempDir(), "absent.yaml"), types.HealOptions{})
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestScanCorrelatesAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "deploy.yaml", `apiVersion: apps/v1
kind: Deployment
metadata:
  name: web
spec:
  template:
    metadata:
      labels:
        app: web
    spec:
      containers:
        - name: app
          resources:
            limits:
              cpu: 500m
              memory: 512Mi
`)
	writeManifest(t, dir, "svc.yaml", `apiVersion: v1
kind: Service
metadata:
  name: ghost-svc
spec:
  selector:
    app: nothing
  ports:
    - port: 80
`)

	eng := New(Config{})
	findings, err := eng.Scan(context.Background(), []string{dir}, types.ScanOptions{})
	require.NoError(t, err)

	var ghosts int
	for _, f := range findings {
		if f.Code == types.CodeGhost {
			ghosts++
			assert.Equal(t, filepath.Join(dir, "svc.yaml"), f.File)
		}
	}
	assert.Equal(t, 1, ghosts)
}

func TestScanUnreadableFileBecomesFinding(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "ok.yaml", "apiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: cfg\n")
	bad := writeManifest(t, dir, "bad.yaml", "kind: Pod\nmetadata: {\n")

	eng := New(Config{})
	findings, err := eng.Scan(context.Background(), []string{dir}, types.ScanOptions{})
	require.NoError(t, err, "one broken file never aborts the scan")

	var syntax int
	for _, f := range findings {
		if f.Code == types.CodeSyntaxError {
			syntax++
			assert.Equal(t, bad, f.File)
		}
	}
	assert.Equal(t, 1, syntax)
}

func TestScanMissingRootIsFatal(t *testing.T) {
	eng := New(Config{})
	_, err := eng.Scan(context.Background(), []string{"/no/such/dir"}, types.ScanOptions{})
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestScanMinSeverityFilter(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "d.yaml", `apiVersion: apps/v1
kind: Deployment
metadata:
  name: d
spec:
  template:
    spec:
      containers:
        - name: app
`)

	eng := New(Config{})
	findings, err := eng.Scan(context.Background(), []string{dir}, types.ScanOptions{MinSeverity: types.High})
	require.NoError(t, err)
	for _, f := range findings {
		assert.True(t, f.Severity.AtLeast(types.High), "finding %s below threshold", f.Code)
	}
}

func TestScanSortsByFileThenLine(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "b.yaml", "apiVersion: extensions/v1beta1\nkind: Deployment\nmetadata:\n  name: b\n")
	writeManifest(t, dir, "a.yaml", "apiVersion: extensions/v1beta1\nkind: Deployment\nmetadata:\n  name: a\n")

	eng := New(Config{})
	findings, err := eng.Scan(context.Background(), []string{dir}, types.ScanOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, findings)
	for i := 1; i < len(findings); i++ {
		assert.LessOrEqual(t, findings[i-1].File, findings[i].File)
	}
}

func TestScanHonorsCancellation(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "a.yaml", "apiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: a\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng := New(Config{})
	_, err := eng.Scan(ctx, []string{dir}, types.ScanOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDedupeDropsGenericLineOne(t *testing.T) {
	findings := []types.Finding{
		{Code: types.CodeAPIDeprecated, File: "a.yaml", Line: 1},
		{Code: types.CodeAPIDeprecated, File: "a.yaml", Line: 12},
		{Code: types.CodeAPIDeprecated, File: "a.yaml", Line: 12},
		{Code: types.CodeGhost, File: "a.yaml", Line: 1},
	}
	out := dedupe(findings)
	require.Len(t, out, 2)
	assert.Equal(t, 12, out[0].Line, "specific instance survives, the generic line-1 echo does not")
	assert.Equal(t, types.CodeGhost, out[1].Code, "a code with no specific sibling keeps its line-1 finding")
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "a.yaml", "x: 1\n")
	writeManifest(t, dir, "b.yml", "x: 1\n")
	writeManifest(t, dir, "notes.txt", "ignored\n")
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))
	writeManifest(t, sub, "c.yaml", "x: 1\n")

	flat, err := Discover([]string{dir}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.yaml"), filepath.Join(dir, "b.yml")}, flat)

	deep, err := Discover([]string{dir}, true)
	require.NoError(t, err)
	assert.Contains(t, deep, filepath.Join(sub, "c.yaml"))
	assert.Len(t, deep, 3)

	explicit, err := Discover([]string{filepath.Join(dir, "notes.txt")}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "notes.txt")}, explicit, "explicit paths bypass the extension filter")
}
