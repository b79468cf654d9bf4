package jsonvalue

import (
	"fmt"
	"strconv"
	"strings"
)

// Action tells Merge how to resolve a key present in the incoming object.
type Action int

const (
	// Recurse applies the default deep merge: objects merge field by field,
	// arrays merge index by index, containers land on non-containers as
	// copies, and scalars overwrite.
	Recurse Action = iota
	// UseIncoming replaces the existing value with a copy of the incoming one.
	UseIncoming
	// UseExisting keeps the existing value.
	UseExisting
	// Union combines the existing array with the incoming one into their set
	// union, first-seen order. A non-array incoming value adds nothing.
	Union
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case Recurse:
		return "recurse"
	case UseIncoming:
		return "use-incoming"
	case UseExisting:
		return "use-existing"
	case Union:
		return "union"
	default:
		return "action(" + strconv.Itoa(int(a)) + ")"
	}
}

type missing struct{}

// Missing is passed to a Policy as the existing value when the key is absent.
var Missing any = missing{}

// Policy decides how one key is merged. Path holds the keys (array indexes in
// decimal) leading to the value.
type Policy func(existing, incoming any, path []string) Action

// Overwrite replaces containers wholesale: an existing array or object is
// replaced by the incoming value. Everything else follows the default merge.
func Overwrite(existing, incoming any, path []string) Action {
	switch existing.(type) {
	case []any, *Object:
		return UseIncoming
	default:
		return Recurse
	}
}

// Additive unions into an existing array. An incoming value that is not an
// array adds nothing, so the existing array only loses its duplicates.
// Everything else follows the default merge, so objects combine field by
// field.
func Additive(existing, incoming any, path []string) Action {
	if _, ok := existing.([]any); ok {
		return Union
	}
	return Recurse
}

// Merge merges src into dst in place, consulting policy at every key of src.
// Incoming values are copied, so dst never aliases src.
func Merge(dst, src *Object, policy Policy) {
	if dst == nil || src == nil {
		return
	}
	mergeObject(dst, src, policy, nil)
}

func mergeObject(dst, src *Object, policy Policy, path []string) {
	src.Range(func(key string, incoming any) bool {
		existing, ok := dst.Get(key)
		if !ok {
			existing = Missing
		}
		if v, keep := resolve(existing, incoming, policy, appendPath(path, key)); keep {
			dst.Set(key, v)
		}
		return true
	})
}

func mergeArray(dst, src []any, policy Policy, path []string) []any {
	out := make([]any, max(len(dst), len(src)))
	copy(out, dst)
	for i, incoming := range src {
		var existing any = Missing
		if i < len(dst) {
			existing = dst[i]
		}
		if v, keep := resolve(existing, incoming, policy, appendPath(path, strconv.Itoa(i))); keep {
			out[i] = v
		}
	}
	return out
}

// resolve returns the merged value and whether it should be stored.
func resolve(existing, incoming any, policy Policy, path []string) (any, bool) {
	switch action := policy(existing, incoming, path); action {
	case UseIncoming:
		return Clone(incoming), true
	case UseExisting:
		return existing, existing != Missing
	case Union:
		a, ok := existing.([]any)
		if !ok {
			panic(fmt.Sprintf("jsonvalue: union at %q needs an existing array, got %s",
				strings.Join(path, "."), TypeName(existing)))
		}
		// Non-array incoming values contribute no elements.
		b, _ := incoming.([]any)
		return union(a, b), true
	case Recurse:
		return mergeDefault(existing, incoming, policy, path), true
	default:
		panic(fmt.Sprintf("jsonvalue: unknown merge %v at %q", action, strings.Join(path, ".")))
	}
}

func mergeDefault(existing, incoming any, policy Policy, path []string) any {
	switch in := incoming.(type) {
	case *Object:
		dst, ok := existing.(*Object)
		if !ok {
			dst = NewObject()
		}
		mergeObject(dst, in, policy, path)
		return dst
	case []any:
		dst, ok := existing.([]any)
		if !ok {
			dst = []any{}
		}
		return mergeArray(dst, in, policy, path)
	default:
		return incoming
	}
}

func union(a, b []any) []any {
	out := make([]any, 0, len(a)+len(b))
	add := func(v any) {
		for _, seen := range out {
			if Equal(seen, v) {
				return
			}
		}
		out = append(out, Clone(v))
	}
	for _, v := range a {
		add(v)
	}
	for _, v := range b {
		add(v)
	}
	return out
}

func appendPath(path []string, key string) []string {
	return append(path[:len(path):len(path)], key)
}
