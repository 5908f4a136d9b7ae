package document

import (
	"strconv"

	"gopkg.in/yaml.v3"
)

// The accessor layer returns explicit (value, ok) pairs for every field
// lookup so rules handle "field absent" deliberately instead of relying on
// default-to-empty chains.

func resolve(n *yaml.Node) *yaml.Node {
	if n != nil && n.Kind == yaml.AliasNode && n.Alias != nil {
		return n.Alias
	}
	return n
}

// MapValue returns the value node for key in a mapping node.
func MapValue(m *yaml.Node, key string) (*yaml.Node, bool) {
	m = resolve(m)
	if m == nil || m.Kind != yaml.MappingNode {
		return nil, false
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return resolve(m.Content[i+1]), true
		}
	}
	return nil, false
}

// Lookup walks a mapping path, failing fast on any absent step.
func Lookup(m *yaml.Node, path ...string) (*yaml.Node, bool) {
	cur := resolve(m)
	for _, key := range path {
		next, ok := MapValue(cur, key)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, cur != nil
}

// StringAt returns the scalar string at a mapping path.
func StringAt(m *yaml.Node, path ...string) (string, bool) {
	n, ok := Lookup(m, path...)
	if !ok || n.Kind != yaml.ScalarNode {
		return "", false
	}
	return n.Value, true
}

// BoolAt returns the scalar bool at a mapping path.
func BoolAt(m *yaml.Node, path ...string) (bool, bool) {
	s, ok := StringAt(m, path...)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, false
	}
	return b, true
}

// IntAt returns the scalar integer at a mapping path.
func IntAt(m *yaml.Node, path ...string) (int, bool) {
	s, ok := StringAt(m, path...)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Sequence returns the items of a sequence node, aliases resolved.
func Sequence(n *yaml.Node) []*yaml.Node {
	n = resolve(n)
	if n == nil || n.Kind != yaml.SequenceNode {
		return nil
	}
	items := make([]*yaml.Node, 0, len(n.Content))
	for _, c := range n.Content {
		items = append(items, resolve(c))
	}
	return items
}

// SequenceAt returns the sequence items at a mapping path.
func SequenceAt(m *yaml.Node, path ...string) []*yaml.Node {
	n, ok := Lookup(m, path...)
	if !ok {
		return nil
	}
	return Sequence(n)
}

// StringSlice flattens a scalar sequence into strings.
func StringSlice(n *yaml.Node) []string {
	var out []string
	for _, item := range Sequence(n) {
		if item.Kind == yaml.ScalarNode {
			out = append(out, item.Value)
		}
	}
	return out
}

// StringMap flattens a scalar-to-scalar mapping (labels, selectors).
func StringMap(n *yaml.Node) map[string]string {
	n = resolve(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	out := make(map[string]string, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], resolve(n.Content[i+1])
		if k.Kind == yaml.ScalarNode && v.Kind == yaml.ScalarNode {
			out[k.Value] = v.Value
		}
	}
	return out
}

// SetScalar rewrites a scalar node's value in place, keeping its comments
// and position metadata attached.
func SetScalar(n *yaml.Node, value string) {
	n.Kind = yaml.ScalarNode
	n.Tag = "!!str"
	n.Value = value
}

// SetMapValue replaces the value for key, or appends the pair when the key
// is absent. Existing key order is preserved.
func SetMapValue(m *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = value
			return
		}
	}
	m.Content = append(m.Content, NewScalar(key), value)
}

// NewScalar builds a plain string scalar node.
func NewScalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

// NewBool builds a boolean scalar node.
func NewBool(b bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(b)}
}

// NewMapping builds a block-style mapping from alternating key/value
// string pairs.
func NewMapping(pairs ...string) *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Content = append(m.Content, NewScalar(pairs[i]), NewScalar(pairs[i+1]))
	}
	return m
}
