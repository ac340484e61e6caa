package confparse

import "fmt"

// Kind discriminates the three node shapes a parsed tree can contain.
type Kind int

const (
	KindScalar Kind = iota
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	}
	return "unknown"
}

// Node is a parsed configuration value: a scalar (string, int64, float64,
// bool or nil), an ordered sequence, or an ordered mapping with unique keys.
// Accessors fail explicitly on a kind or type mismatch; callers apply their
// own defaults for missing keys.
type Node struct {
	kind   Kind
	scalar any
	seq    []Node
	keys   []string
	items  map[string]Node
}

// Scalar wraps a raw scalar value in a Node.
func Scalar(v any) Node {
	return Node{kind: KindScalar, scalar: v}
}

// Sequence builds a sequence node from the given elements.
func Sequence(elems ...Node) Node {
	return Node{kind: KindSequence, seq: elems}
}

// Mapping builds an empty mapping node. Entries are added with Set.
func Mapping() Node {
	return Node{kind: KindMapping, items: make(map[string]Node)}
}

// Set adds or replaces a mapping entry, preserving first-insertion order.
func (n *Node) Set(key string, value Node) {
	if n.kind != KindMapping {
		return
	}
	if _, exists := n.items[key]; !exists {
		n.keys = append(n.keys, key)
	}
	n.items[key] = value
}

func (n Node) Kind() Kind { return n.kind }

// IsNull reports whether the node is a null scalar.
func (n Node) IsNull() bool { return n.kind == KindScalar && n.scalar == nil }

// Get looks up a mapping entry. The second return is false when the node is
// not a mapping or the key is absent.
func (n Node) Get(key string) (Node, bool) {
	if n.kind != KindMapping {
		return Node{}, false
	}
	child, ok := n.items[key]
	return child, ok
}

// Keys returns mapping keys in source order.
func (n Node) Keys() []string {
	out := make([]string, len(n.keys))
	copy(out, n.keys)
	return out
}

// Len returns the number of sequence elements or mapping entries.
func (n Node) Len() int {
	switch n.kind {
	case KindSequence:
		return len(n.seq)
	case KindMapping:
		return len(n.keys)
	}
	return 0
}

// AsString returns the scalar string value.
func (n Node) AsString() (string, error) {
	if n.kind != KindScalar {
		return "", fmt.Errorf("confparse: expected string scalar, got %s", n.kind)
	}
	s, ok := n.scalar.(string)
	if !ok {
		return "", fmt.Errorf("confparse: expected string scalar, got %T", n.scalar)
	}
	return s, nil
}

// AsBool returns the scalar boolean value.
func (n Node) AsBool() (bool, error) {
	if n.kind != KindScalar {
		return false, fmt.Errorf("confparse: expected boolean scalar, got %s", n.kind)
	}
	b, ok := n.scalar.(bool)
	if !ok {
		return false, fmt.Errorf("confparse: expected boolean scalar, got %T", n.scalar)
	}
	return b, nil
}

// AsInt returns the scalar integer value.
func (n Node) AsInt() (int64, error) {
	if n.kind != KindScalar {
		return 0, fmt.Errorf("confparse: expected integer scalar, got %s", n.kind)
	}
	i, ok := n.scalar.(int64)
	if !ok {
		return 0, fmt.Errorf("confparse: expected integer scalar, got %T", n.scalar)
	}
	return i, nil
}

// AsFloat returns the scalar numeric value, widening integers.
func (n Node) AsFloat() (float64, error) {
	if n.kind != KindScalar {
		return 0, fmt.Errorf("confparse: expected numeric scalar, got %s", n.kind)
	}
	switch v := n.scalar.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	}
	return 0, fmt.Errorf("confparse: expected numeric scalar, got %T", n.scalar)
}

// AsList returns the sequence elements.
func (n Node) AsList() ([]Node, error) {
	if n.kind != KindSequence {
		return nil, fmt.Errorf("confparse: expected sequence, got %s", n.kind)
	}
	out := make([]Node, len(n.seq))
	copy(out, n.seq)
	return out, nil
}

// AsMap returns mapping entries keyed by name. Ordering is available via Keys.
func (n Node) AsMap() (map[string]Node, error) {
	if n.kind != KindMapping {
		return nil, fmt.Errorf("confparse: expected mapping, got %s", n.kind)
	}
	out := make(map[string]Node, len(n.items))
	for k, v := range n.items {
		out[k] = v
	}
	return out, nil
}

// Value returns the underlying scalar (string, int64, float64, bool or nil).
func (n Node) Value() (any, error) {
	if n.kind != KindScalar {
		return nil, fmt.Errorf("confparse: expected scalar, got %s", n.kind)
	}
	return n.scalar, nil
}

// Interface converts the whole subtree to plain Go values: scalars as-is,
// sequences as []any, mappings as map[string]any. Useful for handing provider
// extras to code that expects loosely typed data.
func (n Node) Interface() any {
	switch n.kind {
	case KindScalar:
		return n.scalar
	case KindSequence:
		out := make([]any, len(n.seq))
		for i, e := range n.seq {
			out[i] = e.Interface()
		}
		return out
	case KindMapping:
		out := make(map[string]any, len(n.keys))
		for _, k := range n.keys {
			out[k] = n.items[k].Interface()
		}
		return out
	}
	return nil
}
