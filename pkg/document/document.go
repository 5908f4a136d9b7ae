// Package document ingests multi-document manifest text into decoded,
// line-tracked resource trees and reconstructs text from them without
// destroying comments or formatting.
package document

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Segment is one raw document slice of a multi-document file.
type Segment struct {
	Raw       string
	StartLine int // 1-based line of the segment's first line in the file
}

// Document is the in-memory representation of one manifest, with enough
// position metadata to map fields back to source lines.
type Document struct {
	OriginFile string
	Kind       string
	APIVersion string
	Name       string
	Namespace  string
	StartLine  int

	root *yaml.Node // document node; Content[0] is the resource mapping
	raw  string
}

// DecodeError reports a segment that could not be decoded after healing.
type DecodeError struct {
	File string
	Line int // 1-based absolute line, 0 when the decoder gave none
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.File, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var separator = regexp.MustCompile(`^---\s*$`)

// Split breaks text into document segments on separator lines. Empty or
// whitespace-only segments are dropped, but line offsets keep advancing so
// later segments report correct line numbers. The second return value
// reports whether the text began with a separator.
func Split(text string) ([]Segment, bool) {
	lines := strings.Split(text, "\n")
	var segs []Segment
	leading := false
	seenContent := false
	start := 0

	flush := func(end int) {
		raw := strings.Join(lines[start:end], "\n")
		if strings.TrimSpace(raw) != "" {
			segs = append(segs, Segment{Raw: raw, StartLine: start + 1})
		}
	}

	for i, line := range lines {
		if separator.MatchString(line) {
			if !seenContent && len(segs) == 0 {
				leading = true
			}
			flush(i)
			start = i + 1
			continue
		}
		if strings.TrimSpace(line) != "" {
			seenContent = true
		}
	}
	flush(len(lines))
	return segs, leading
}

// Join reassembles encoded segments, restoring a leading separator only if
// the original text began with one. Every part is normalized to end with a
// newline so separators land on their own lines.
func Join(parts []string, leading bool) string {
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimRight(p, "\n") + "\n"
		if strings.TrimSpace(p) == "" {
			continue
		}
		cleaned = append(cleaned, p)
	}
	out := strings.Join(cleaned, "---\n")
	if leading && out != "" {
		out = "---\n" + out
	}
	return out
}

var errLine = regexp.MustCompile(`line (\d+):`)

// Decode parses one segment into a Document. A nil Document with nil error
// means the segment held no resource (comment-only, or a non-mapping
// scalar document).
func Decode(originFile string, seg Segment) (*Document, error) {
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(seg.Raw), &node); err != nil {
		return nil, &DecodeError{
			File: originFile,
			Line: absoluteErrorLine(err, seg.StartLine),
			Err:  err,
		}
	}
	if node.Kind != yaml.DocumentNode || len(node.Content) == 0 {
		return nil, nil
	}
	root := node.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, nil
	}

	doc := &Document{
		OriginFile: originFile,
		StartLine:  seg.StartLine,
		root:       &node,
		raw:        seg.Raw,
	}
	doc.Refresh()
	return doc, nil
}

// Refresh re-reads kind/apiVersion/name/namespace from the tree. Fixers
// that rewrite identity fields call it so later consumers (the
// relationship graph in particular) see the post-fix identity.
func (d *Document) Refresh() {
	root := d.Root()
	d.Kind, _ = StringAt(root, "kind")
	d.APIVersion, _ = StringAt(root, "apiVersion")
	d.Name, _ = StringAt(root, "metadata", "name")
	d.Namespace, _ = StringAt(root, "metadata", "namespace")
	if d.Namespace == "" {
		d.Namespace = "default"
	}
}

// Root returns the resource mapping node.
func (d *Document) Root() *yaml.Node {
	return d.root.Content[0]
}

// Encode renders the document back to text. Comments, key ordering and
// node styles of untouched nodes round-trip unchanged; only mutated nodes
// may change representation.
func (d *Document) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d.root); err != nil {
		enc.Close()
		return nil, fmt.Errorf("encode %s: %w", d.OriginFile, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode %s: %w", d.OriginFile, err)
	}
	return buf.Bytes(), nil
}

// Line resolves a field path to a 1-based absolute line number. When the
// decoded tree has no position for the path, a best-effort textual search
// for the final key is used; the result is approximate and must not drive
// automated fixes. Falls back to the document's start line.
func (d *Document) Line(path ...string) int {
	if n, ok := Lookup(d.Root(), path...); ok && n.Line > 0 {
		return d.StartLine + n.Line - 1
	}
	if len(path) > 0 {
		if rel, ok := d.searchKeyLine(path[len(path)-1]); ok {
			return d.StartLine + rel
		}
	}
	return d.StartLine
}

// LineOf converts a node's segment-relative line to an absolute one.
func (d *Document) LineOf(n *yaml.Node) int {
	if n == nil || n.Line <= 0 {
		return d.StartLine
	}
	return d.StartLine + n.Line - 1
}

func (d *Document) searchKeyLine(key string) (int, bool) {
	pat := regexp.MustCompile(`^\s*(?:- +)?` + regexp.QuoteMeta(key) + `\s*:`)
	for i, line := range strings.Split(d.raw, "\n") {
		if pat.MatchString(line) {
			return i, true
		}
	}
	return 0, false
}

func absoluteErrorLine(err error, startLine int) int {
	m := errLine.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	n := 0
	for _, c := range m[1] {
		n = n*10 + int(c-'0')
	}
	if n <= 0 {
		return 0
	}
	return startLine + n - 1
}
