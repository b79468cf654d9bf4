package jsonvalue

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	perrors "github.com/dshills/jsonedit/internal/project/errors"
)

// ErrNotObject is returned when a value that must be an object is not.
var ErrNotObject = perrors.ErrNotObject

// SyntaxError reports malformed JSON input.
type SyntaxError struct {
	Source string
}

func (e *SyntaxError) Error() string {
	const limit = 40
	src := strings.TrimSpace(e.Source)
	if len(src) > limit {
		src = src[:limit] + "..."
	}
	return fmt.Sprintf("jsonvalue: invalid json %q", src)
}

// Parse parses JSON text into the ordered model.
func Parse(data []byte) (any, error) {
	if !gjson.ValidBytes(data) {
		return nil, &SyntaxError{Source: string(data)}
	}
	return fromResult(gjson.ParseBytes(data)), nil
}

// ParseObject parses JSON text whose root must be an object.
func ParseObject(data []byte) (*Object, error) {
	v, err := Parse(data)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(*Object)
	if !ok {
		return nil, fmt.Errorf("%w: got %s", ErrNotObject, TypeName(v))
	}
	return obj, nil
}

func fromResult(r gjson.Result) any {
	switch r.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		return json.Number(strings.TrimSpace(r.Raw))
	case gjson.String:
		return r.Str
	}

	if r.IsArray() {
		arr := []any{}
		r.ForEach(func(_, value gjson.Result) bool {
			arr = append(arr, fromResult(value))
			return true
		})
		return arr
	}

	obj := NewObject()
	r.ForEach(func(key, value gjson.Result) bool {
		obj.Set(key.Str, fromResult(value))
		return true
	})
	return obj
}

// ParseYAML parses a YAML document into the JSON model. Mapping order is
// preserved. An empty document yields nil.
func ParseYAML(data []byte) (any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("jsonvalue: %w", err)
	}
	return fromYAML(&doc)
}

func fromYAML(n *yaml.Node) (any, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return fromYAML(n.Content[0])
	case yaml.AliasNode:
		return fromYAML(n.Alias)
	case yaml.MappingNode:
		obj := NewObject()
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, value := n.Content[i], n.Content[i+1]
			if key.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("jsonvalue: line %d: mapping keys must be scalars", key.Line)
			}
			v, err := fromYAML(value)
			if err != nil {
				return nil, err
			}
			obj.Set(key.Value, v)
		}
		return obj, nil
	case yaml.SequenceNode:
		arr := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := fromYAML(item)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	case yaml.ScalarNode:
		return yamlScalar(n)
	default:
		return nil, fmt.Errorf("jsonvalue: line %d: unsupported yaml node", n.Line)
	}
}

func yamlScalar(n *yaml.Node) (any, error) {
	switch n.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return b, nil
	case "!!int", "!!float":
		var x any
		if err := n.Decode(&x); err != nil {
			return nil, err
		}
		v, err := Normalize(x)
		if err != nil {
			return nil, fmt.Errorf("jsonvalue: line %d: %w", n.Line, err)
		}
		return v, nil
	default:
		return n.Value, nil
	}
}
