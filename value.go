package sitegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/quintans/faults"
	"gopkg.in/yaml.v3"
)

// Kind tags the variant a Value currently holds.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindMapping
	KindSequence
)

// Value is the document tree: a tagged union over the scalar types, an
// ordered string-keyed mapping, and a sequence. It is the in-memory form of
// both parsed YAML documents and parameter maps (§3 "Document value").
type Value struct {
	Kind     Kind
	Str      string
	Int      int64
	Float    float64
	Bool     bool
	Mapping  *OrderedMap
	Sequence []Value
}

func Null() Value                 { return Value{Kind: KindNull} }
func StringValue(s string) Value  { return Value{Kind: KindString, Str: s} }
func IntValue(i int64) Value      { return Value{Kind: KindInt, Int: i} }
func FloatValue(f float64) Value  { return Value{Kind: KindFloat, Float: f} }
func BoolValue(b bool) Value      { return Value{Kind: KindBool, Bool: b} }
func MappingValue(m *OrderedMap) Value {
	if m == nil {
		m = NewOrderedMap()
	}
	return Value{Kind: KindMapping, Mapping: m}
}
func SequenceValue(s []Value) Value { return Value{Kind: KindSequence, Sequence: s} }

// OrderedMap is a string-keyed mapping that preserves insertion order, the
// representation required for "Mappings are ordered" (§3).
type OrderedMap struct {
	keys   []string
	values map[string]Value
}

func NewOrderedMap() *OrderedMap {
	return &OrderedMap{values: make(map[string]Value)}
}

// Set inserts or overwrites a key, preserving first-insertion position.
func (m *OrderedMap) Set(key string, v Value) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

func (m *OrderedMap) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *OrderedMap) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

func (m *OrderedMap) Keys() []string {
	return m.keys
}

func (m *OrderedMap) Len() int {
	return len(m.keys)
}

// Clone produces a shallow copy whose key order and values can be mutated
// independently of the parent (callers "see a fresh copy on extension", §3).
func (m *OrderedMap) Clone() *OrderedMap {
	out := &OrderedMap{
		keys:   append([]string(nil), m.keys...),
		values: make(map[string]Value, len(m.values)),
	}
	for k, v := range m.values {
		out.values[k] = v
	}
	return out
}

// Extend returns a clone of m with key bound to v, used to give a for-loop
// body its single new binding without mutating the outer params (§5).
func (m *OrderedMap) Extend(key string, v Value) *OrderedMap {
	out := m.Clone()
	out.Set(key, v)
	return out
}

// --- YAML decoding, order-preserving via yaml.Node ---

// ParseDocument decodes YAML source text into a Value, preserving mapping
// key order by walking yaml.Node directly instead of unmarshalling into a
// bare map (component A).
func ParseDocument(source string) (Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(source), &doc); err != nil {
		return Value{}, faults.Errorf("parsing document: %w", err)
	}
	if len(doc.Content) == 0 {
		return Null(), nil
	}
	return valueFromNode(doc.Content[0])
}

func valueFromNode(node *yaml.Node) (Value, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return Null(), nil
		}
		return valueFromNode(node.Content[0])
	case yaml.AliasNode:
		return valueFromNode(node.Alias)
	case yaml.ScalarNode:
		return scalarFromNode(node)
	case yaml.MappingNode:
		m := NewOrderedMap()
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode := node.Content[i]
			if keyNode.Kind != yaml.ScalarNode {
				return Value{}, faults.New("mapping keys must be scalar strings")
			}
			valNode := node.Content[i+1]
			val, err := valueFromNode(valNode)
			if err != nil {
				return Value{}, faults.Wrap(err)
			}
			m.Set(keyNode.Value, val)
		}
		return MappingValue(m), nil
	case yaml.SequenceNode:
		seq := make([]Value, 0, len(node.Content))
		for _, child := range node.Content {
			val, err := valueFromNode(child)
			if err != nil {
				return Value{}, faults.Wrap(err)
			}
			seq = append(seq, val)
		}
		return SequenceValue(seq), nil
	default:
		return Null(), nil
	}
}

func scalarFromNode(node *yaml.Node) (Value, error) {
	tag := node.ShortTag()
	switch tag {
	case "!!null":
		return Null(), nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return Value{}, faults.Wrap(err)
		}
		return BoolValue(b), nil
	case "!!int":
		var i int64
		if err := node.Decode(&i); err != nil {
			return Value{}, faults.Wrap(err)
		}
		return IntValue(i), nil
	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return Value{}, faults.Wrap(err)
		}
		return FloatValue(f), nil
	default:
		return StringValue(node.Value), nil
	}
}

// --- Access & path types (component B's value-access path) ---

// Access is one step after the base identifier in a value path.
type Access interface {
	isAccess()
	String() string
}

type FieldAccess struct{ Name string }

func (FieldAccess) isAccess()          {}
func (a FieldAccess) String() string   { return "." + a.Name }

type IndexAccess struct{ N int }

func (IndexAccess) isAccess()        {}
func (a IndexAccess) String() string { return fmt.Sprintf("[%d]", a.N) }

type IndexAtAccess struct{ Path ValuePath }

func (IndexAtAccess) isAccess()        {}
func (a IndexAtAccess) String() string { return fmt.Sprintf("[%s]", a.Path.String()) }

// ValuePath names a location inside a params mapping: a base identifier
// plus zero or more field/index accesses (§3 "Value path").
type ValuePath struct {
	Base     string
	Accesses []Access
}

func (p ValuePath) String() string {
	var b strings.Builder
	b.WriteString(p.Base)
	for _, a := range p.Accesses {
		b.WriteString(a.String())
	}
	return b.String()
}

// --- lookup (§4.1) ---

// Lookup resolves a value path against params, appending each traversed
// step to a displayable path for error messages. IndexAtAccess steps are
// themselves resolved against params, since their inner path is evaluated
// in the same scope as the outer one.
func Lookup(path ValuePath, params *OrderedMap) (Value, error) {
	return lookupWithParams(path, params)
}

func applyAccess(v Value, access Access, pathSoFar string) (Value, error) {
	switch a := access.(type) {
	case FieldAccess:
		switch v.Kind {
		case KindMapping:
			val, ok := v.Mapping.Get(a.Name)
			if !ok {
				return Value{}, &LookupError{Kind: FieldNotPresent, Path: pathSoFar + a.String()}
			}
			return val, nil
		case KindSequence:
			switch a.Name {
			case "first":
				if len(v.Sequence) == 0 {
					return Null(), nil
				}
				return v.Sequence[0], nil
			case "last":
				if len(v.Sequence) == 0 {
					return Null(), nil
				}
				return v.Sequence[len(v.Sequence)-1], nil
			case "count":
				return IntValue(int64(len(v.Sequence))), nil
			default:
				return Value{}, &LookupError{Kind: FieldNotPresent, Path: pathSoFar + a.String()}
			}
		default:
			return Value{}, &LookupError{Kind: FieldOnUnfieldable, Path: pathSoFar + a.String()}
		}
	case IndexAccess:
		if v.Kind != KindSequence {
			return Value{}, &LookupError{Kind: IndexOnUnindexable, Path: pathSoFar + a.String()}
		}
		if a.N < 0 || a.N >= len(v.Sequence) {
			return Value{}, &LookupError{Kind: IndexOOB, Path: pathSoFar, Index: a.N}
		}
		return v.Sequence[a.N], nil
	case IndexAtAccess:
		if v.Kind != KindSequence {
			return Value{}, &LookupError{Kind: IndexOnUnindexable, Path: pathSoFar + a.String()}
		}
		// IndexAt's inner path is resolved against the *original* params the
		// caller holds; applyAccess only carries v here, so lookupWithParams
		// resolves IndexAtAccess to an IndexAccess before calling applyAccess.
		return Value{}, faults.New("internal: IndexAtAccess must be pre-resolved")
	default:
		return Value{}, faults.New("unknown access type")
	}
}

// lookupWithParams is the real entrypoint used by the evaluator; it is able
// to resolve IndexAtAccess, which needs the outer params to evaluate its
// inner path.
func lookupWithParams(path ValuePath, params *OrderedMap) (Value, error) {
	cur, ok := params.Get(path.Base)
	if !ok {
		return Value{}, &LookupError{Kind: KeyNotPresent, Path: path.Base}
	}
	seen := path.Base
	for _, access := range path.Accesses {
		if idxAt, ok := access.(IndexAtAccess); ok {
			idxVal, err := lookupWithParams(idxAt.Path, params)
			if err != nil {
				return Value{}, err
			}
			if idxVal.Kind != KindInt {
				return Value{}, &LookupError{Kind: IndexWithNonIntegerValue, Path: seen + access.String()}
			}
			next, err := applyAccess(cur, IndexAccess{N: int(idxVal.Int)}, seen)
			if err != nil {
				return Value{}, err
			}
			cur = next
			seen += access.String()
			continue
		}
		next, err := applyAccess(cur, access, seen)
		if err != nil {
			return Value{}, err
		}
		cur = next
		seen += access.String()
	}
	return cur, nil
}

// ToString renders a value as text. Never fails (§4.1).
func ToString(v Value) (string, error) {
	switch v.Kind {
	case KindString:
		return v.Str, nil
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64), nil
	case KindInt:
		return strconv.FormatInt(v.Int, 10), nil
	case KindBool:
		if v.Bool {
			return "true", nil
		}
		return "false", nil
	case KindNull:
		return "null", nil
	case KindMapping, KindSequence:
		return serializeDocument(v), nil
	default:
		return "", nil
	}
}

// ToIterable returns a value's elements as a sequence, tagging the failure
// location for diagnostics (§4.1).
func ToIterable(location string, v Value) ([]Value, error) {
	if v.Kind != KindSequence {
		return nil, &ForOnUnindexableError{Location: location}
	}
	return v.Sequence, nil
}

// serializeDocument produces the canonical text form for a mapping or
// sequence value, marshaled through yaml.v3's Node encoder so the output is
// a real, stable YAML document rather than a hand-rolled approximation
// (§9 "Static serialization of a document" — "pick one document serializer
// and freeze it"). A leading "---\n" marks it as a document, matching the
// engine's front-matter-shaped documents elsewhere in the pipeline.
func serializeDocument(v Value) string {
	node := valueToNode(v)
	out, err := yaml.Marshal(node)
	if err != nil {
		return ""
	}
	return "---\n" + strings.TrimRight(string(out), "\n")
}

func valueToNode(v Value) *yaml.Node {
	switch v.Kind {
	case KindNull:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case KindBool:
		tag, val := "!!bool", "false"
		if v.Bool {
			val = "true"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: val}
	case KindInt:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(v.Int, 10)}
	case KindFloat:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(v.Float, 'g', -1, 64)}
	case KindString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.Str}
	case KindSequence:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, el := range v.Sequence {
			node.Content = append(node.Content, valueToNode(el))
		}
		return node
	case KindMapping:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range v.Mapping.Keys() {
			val, _ := v.Mapping.Get(k)
			node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, valueToNode(val))
		}
		return node
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}
