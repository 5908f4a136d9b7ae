package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDecode(t *testing.T, file, src string) *Document {
	t.Helper()
	segs, _ := Split(src)
	require.Len(t, segs, 1)
	doc, err := Decode(file, segs[0])
	require.NoError(t, err)
	require.NotNil(t, doc)
	return doc
}

func TestSplitTracksLineOffsets(t *testing.T) {
	src := "apiVersion: v1\nkind: Service\n---\n\n---\napiVersion: v1\nkind: Pod\n"
	segs, leading := Split(src)

	require.Len(t, segs, 2, "whitespace-only segment is dropped")
	assert.False(t, leading)
	assert.Equal(t, 1, segs[0].StartLine)
	// The empty segment between the separators still advanced the offset.
	assert.Equal(t, 6, segs[1].StartLine)
}

func TestSplitLeadingSeparator(t *testing.T) {
	_, leading := Split("---\nkind: Pod\n")
	assert.True(t, leading)

	_, leading = Split("kind: Pod\n---\nkind: Service\n")
	assert.False(t, leading)
}

func TestJoinRestoresLeadingSeparator(t *testing.T) {
	parts := []string{"a: 1\n", "b: 2\n"}
	assert.Equal(t, "a: 1\n---\nb: 2\n", Join(parts, false))
	assert.Equal(t, "---\na: 1\n---\nb: 2\n", Join(parts, true))
}

func TestSplitJoinRoundTrip(t *testing.T) {
	src := "---\napiVersion: v1\nkind: Service\n---\napiVersion: v1\nkind: Pod\n"
	segs, leading := Split(src)
	parts := make([]string, len(segs))
	for i, s := range segs {
		parts[i] = s.Raw
	}
	assert.Equal(t, src, Join(parts, leading))
}

func TestDecodeIdentity(t *testing.T) {
	doc := mustDecode(t, "web.yaml", `apiVersion: apps/v1
kind: Deployment
metadata:
  name: web
  namespace: shop
`)
	assert.Equal(t, "Deployment", doc.Kind)
	assert.Equal(t, "apps/v1", doc.APIVersion)
	assert.Equal(t, "web", doc.Name)
	assert.Equal(t, "shop", doc.Namespace)
}

func TestDecodeDefaultsNamespace(t *testing.T) {
	doc := mustDecode(t, "pod.yaml", "apiVersion: v1\nkind: Pod\nmetadata:\n  name: p\n")
	assert.Equal(t, "default", doc.Namespace)
}

func TestDecodeSkipsNonResources(t *testing.T) {
	doc, err := Decode("x.yaml", Segment{Raw: "# only a comment", StartLine: 1})
	require.NoError(t, err)
	assert.Nil(t, doc, "comment-only segment holds no resource")

	doc, err = Decode("x.yaml", Segment{Raw: "just a scalar", StartLine: 1})
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestDecodeErrorCarriesLine(t *testing.T) {
	bad := "kind: Pod\nmetadata: {\n"
	_, err := Decode("bad.yaml", Segment{Raw: bad, StartLine: 10})
	require.Error(t, err)

	derr, ok := err.(*DecodeError)
	require.True(t, ok)
	assert.Equal(t, "bad.yaml", derr.File)
	assert.GreaterOrEqual(t, derr.Line, 10, "line is absolute, offset by the segment start")
}

func TestLineResolvesFieldPaths(t *testing.T) {
	doc := mustDecode(t, "web.yaml", `apiVersion: extensions/v1beta1
kind: Deployment
metadata:
  name: web
`)
	assert.Equal(t, 1, doc.Line("apiVersion"))
	assert.Equal(t, 4, doc.Line("metadata", "name"))
	assert.Equal(t, 1, doc.Line("spec", "not", "there"), "absent path falls back to the document start")
}

func TestLineOffsetsForLaterSegments(t *testing.T) {
	src := "apiVersion: v1\nkind: Service\n---\napiVersion: apps/v1\nkind: Deployment\n"
	segs, _ := Split(src)
	require.Len(t, segs, 2)

	doc, err := Decode("multi.yaml", segs[1])
	require.NoError(t, err)
	assert.Equal(t, 4, doc.Line("apiVersion"))
	assert.Equal(t, 5, doc.Line("kind"))
}

func TestEncodePreservesCommentsOnMutation(t *testing.T) {
	doc := mustDecode(t, "web.yaml", `# deployment for the web tier
apiVersion: extensions/v1beta1
kind: Deployment # the workload
metadata:
  name: web
`)
	node, ok := MapValue(doc.Root(), "apiVersion")
	require.True(t, ok)
	SetScalar(node, "apps/v1")

	out, err := doc.Encode()
	require.NoError(t, err)
	text := string(out)
	assert.Contains(t, text, "apiVersion: apps/v1")
	assert.Contains(t, text, "# deployment for the web tier")
	assert.Contains(t, text, "# the workload")
	assert.NotContains(t, text, "extensions/v1beta1")
}

func TestAccessorsReportAbsence(t *testing.T) {
	doc := mustDecode(t, "pod.yaml", `apiVersion: v1
kind: Pod
metadata:
  name: p
spec:
  hostNetwork: true
  priority: 10
`)
	root := doc.Root()

	_, ok := StringAt(root, "spec", "nodeName")
	assert.False(t, ok)

	b, ok := BoolAt(root, "spec", "hostNetwork")
	assert.True(t, ok)
	assert.True(t, b)

	n, ok := IntAt(root, "spec", "priority")
	assert.True(t, ok)
	assert.Equal(t, 10, n)

	_, ok = Lookup(root, "spec", "containers", "nested")
	assert.False(t, ok)
}

func TestSetMapValueAppendsAndReplaces(t *testing.T) {
	m := NewMapping("a", "1")
	SetMapValue(m, "b", NewScalar("2"))
	SetMapValue(m, "a", NewScalar("9"))

	v, ok := MapValue(m, "a")
	require.True(t, ok)
	assert.Equal(t, "9", v.Value)
	v, ok = MapValue(m, "b")
	require.True(t, ok)
	assert.Equal(t, "2", v.Value)
}

func TestPodSpecShapes(t *testing.T) {
	deployment := mustDecode(t, "d.yaml", `apiVersion: apps/v1
kind: Deployment
metadata:
  name: d
spec:
  template:
    metadata:
      labels:
        app: web
    spec:
      containers:
        - name: app
`)
	spec, ok := deployment.PodSpec()
	require.True(t, ok)
	assert.Len(t, Containers(spec), 1)
	assert.Equal(t, map[string]string{"app": "web"}, deployment.PodTemplateLabels())

	pod := mustDecode(t, "p.yaml", `apiVersion: v1
kind: Pod
metadata:
  name: p
  labels:
    app: api
spec:
  containers:
    - name: app
`)
	spec, ok = pod.PodSpec()
	require.True(t, ok)
	assert.Len(t, Containers(spec), 1)
	assert.Equal(t, map[string]string{"app": "api"}, pod.PodTemplateLabels())

	cron := mustDecode(t, "c.yaml", `apiVersion: batch/v1
kind: CronJob
metadata:
  name: c
spec:
  jobTemplate:
    spec:
      template:
        spec:
          containers:
            - name: job
`)
	spec, ok = cron.PodSpec()
	require.True(t, ok)
	assert.Len(t, Containers(spec), 1)

	svc := mustDecode(t, "s.yaml", "apiVersion: v1\nkind: Service\nmetadata:\n  name: s\n")
	_, ok = svc.PodSpec()
	assert.False(t, ok)
}

func TestEncodeRoundTripUntouched(t *testing.T) {
	src := `apiVersion: v1
kind: ConfigMap
metadata:
  name: cfg
data:
  key: value
`
	doc := mustDecode(t, "cfg.yaml", src)
	out, err := doc.Encode()
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(src), strings.TrimSpace(string(out)))
}
