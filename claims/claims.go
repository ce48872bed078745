// Package claims holds the decoded claims of a credential as a tagged tree and
// resolves JSONPath expressions against it.
package claims

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/PaesslerAG/jsonpath"
)

type Kind int

const (
	Null Kind = iota
	String
	Number
	Bool
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Number:
		return "number"
	case Bool:
		return "boolean"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "null"
	}
}

// Value is one node of a claims tree. Only the field matching Kind is meaningful.
type Value struct {
	Kind Kind

	str     string
	num     float64
	boolean bool
	array   []Value
	object  map[string]Value
}

func NewString(s string) Value { return Value{Kind: String, str: s} }
func NewNumber(n float64) Value { return Value{Kind: Number, num: n} }
func NewBool(b bool) Value { return Value{Kind: Bool, boolean: b} }

// FromInterface converts a value produced by encoding/json (maps, slices,
// float64, string, bool, nil) into a claims tree.
func FromInterface(v interface{}) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Value{Kind: Null}, nil
	case string:
		return NewString(t), nil
	case bool:
		return NewBool(t), nil
	case float64:
		return NewNumber(t), nil
	case float32:
		return NewNumber(float64(t)), nil
	case int:
		return NewNumber(float64(t)), nil
	case int64:
		return NewNumber(float64(t)), nil
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return NewNumber(n), nil
	case []interface{}:
		items := make([]Value, 0, len(t))
		for i, item := range t {
			iv, err := FromInterface(item)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items = append(items, iv)
		}
		return Value{Kind: Array, array: items}, nil
	case []string:
		items := make([]Value, 0, len(t))
		for _, item := range t {
			items = append(items, NewString(item))
		}
		return Value{Kind: Array, array: items}, nil
	case map[string]interface{}:
		obj := make(map[string]Value, len(t))
		for k, item := range t {
			iv, err := FromInterface(item)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			obj[k] = iv
		}
		return Value{Kind: Object, object: obj}, nil
	default:
		return Value{}, fmt.Errorf("unsupported claim type %T", v)
	}
}

// Interface returns the tree in the generic encoding/json representation.
func (v Value) Interface() interface{} {
	switch v.Kind {
	case String:
		return v.str
	case Number:
		return v.num
	case Bool:
		return v.boolean
	case Array:
		items := make([]interface{}, len(v.array))
		for i := range v.array {
			items[i] = v.array[i].Interface()
		}
		return items
	case Object:
		obj := make(map[string]interface{}, len(v.object))
		for k, item := range v.object {
			obj[k] = item.Interface()
		}
		return obj
	default:
		return nil
	}
}

func (v Value) AsString() (string, bool) { return v.str, v.Kind == String }
func (v Value) AsNumber() (float64, bool) { return v.num, v.Kind == Number }

func (v Value) Len() int {
	switch v.Kind {
	case Array:
		return len(v.array)
	case Object:
		return len(v.object)
	}
	return 0
}

func (v Value) Index(i int) (Value, bool) {
	if v.Kind != Array || i < 0 || i >= len(v.array) {
		return Value{}, false
	}
	return v.array[i], true
}

func (v Value) Field(name string) (Value, bool) {
	if v.Kind != Object {
		return Value{}, false
	}
	f, ok := v.object[name]
	return f, ok
}

// Keys returns the object keys in sorted order.
func (v Value) Keys() []string {
	if v.Kind != Object {
		return nil
	}
	keys := make([]string, 0, len(v.object))
	for k := range v.object {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := FromInterface(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Resolve evaluates a JSONPath expression against root. The second return value
// is false when the path does not resolve: unknown keys, out of range indexes,
// syntax errors, and wildcard or filter expressions that select nothing.
func Resolve(root Value, path string) (Value, bool) {
	result, err := jsonpath.Get(path, root.Interface())
	if err != nil {
		return Value{}, false
	}

	if items, ok := result.([]interface{}); ok && len(items) == 0 && isMultiSelect(path) {
		return Value{}, false
	}

	v, err := FromInterface(result)
	if err != nil {
		return Value{}, false
	}
	return v, true
}

// ValidatePath reports whether path is a syntactically valid JSONPath expression.
func ValidatePath(path string) error {
	if !strings.HasPrefix(path, "$") {
		return fmt.Errorf("path %q must start with '$'", path)
	}
	if _, err := jsonpath.New(path); err != nil {
		return fmt.Errorf("invalid path %q: %w", path, err)
	}
	return nil
}

func isMultiSelect(path string) bool {
	return strings.Contains(path, "*") || strings.Contains(path, "..") ||
		strings.Contains(path, "?(") || strings.Contains(path, ":")
}
