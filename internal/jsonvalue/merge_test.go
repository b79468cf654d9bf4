package jsonvalue

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustObject(t *testing.T, s string) *Object {
	t.Helper()
	obj, err := ParseObject([]byte(s))
	if err != nil {
		t.Fatalf("ParseObject(%s) failed: %v", s, err)
	}
	return obj
}

func mustMarshal(t *testing.T, v any) string {
	t.Helper()
	data, err := Marshal(v)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	return string(data)
}

func TestMerge_Overwrite(t *testing.T) {
	tests := []struct {
		name     string
		dst      string
		src      string
		expected string
	}{
		{
			name:     "array replaced",
			dst:      `{"a":[1,2]}`,
			src:      `{"a":[3]}`,
			expected: `{"a":[3]}`,
		},
		{
			name:     "object replaced",
			dst:      `{"a":{"x":1,"y":2}}`,
			src:      `{"a":{"x":9}}`,
			expected: `{"a":{"x":9}}`,
		},
		{
			name:     "scalar overwritten",
			dst:      `{"a":1,"b":"keep"}`,
			src:      `{"a":2}`,
			expected: `{"a":2,"b":"keep"}`,
		},
		{
			name:     "new keys appended",
			dst:      `{"b":1}`,
			src:      `{"a":{"n":[1]},"c":null}`,
			expected: `{"b":1,"a":{"n":[1]},"c":null}`,
		},
		{
			name:     "object replaced by scalar",
			dst:      `{"a":{"x":1}}`,
			src:      `{"a":"flat"}`,
			expected: `{"a":"flat"}`,
		},
		{
			name:     "scalar replaced by object",
			dst:      `{"a":"flat"}`,
			src:      `{"a":{"x":1}}`,
			expected: `{"a":{"x":1}}`,
		},
		{
			name:     "null replaced by array",
			dst:      `{"a":null}`,
			src:      `{"a":[1]}`,
			expected: `{"a":[1]}`,
		},
		{
			name:     "empty src",
			dst:      `{"a":1}`,
			src:      `{}`,
			expected: `{"a":1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := mustObject(t, tt.dst)
			Merge(dst, mustObject(t, tt.src), Overwrite)
			if got := mustMarshal(t, dst); got != tt.expected {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestMerge_Additive(t *testing.T) {
	tests := []struct {
		name     string
		dst      string
		src      string
		expected string
	}{
		{
			name:     "array union",
			dst:      `{"a":[1,2]}`,
			src:      `{"a":[2,3]}`,
			expected: `{"a":[1,2,3]}`,
		},
		{
			name:     "union dedupes existing duplicates",
			dst:      `{"a":[1,1,2]}`,
			src:      `{"a":[2]}`,
			expected: `{"a":[1,2]}`,
		},
		{
			name:     "union of objects by value",
			dst:      `{"a":[{"n":"x"}]}`,
			src:      `{"a":[{"n":"x"},{"n":"y"}]}`,
			expected: `{"a":[{"n":"x"},{"n":"y"}]}`,
		},
		{
			name:     "object field merge",
			dst:      `{"a":{"x":1,"y":2}}`,
			src:      `{"a":{"x":9}}`,
			expected: `{"a":{"x":9,"y":2}}`,
		},
		{
			name:     "nested arrays union inside objects",
			dst:      `{"p":{"list":["a"],"k":1}}`,
			src:      `{"p":{"list":["b","a"]}}`,
			expected: `{"p":{"list":["a","b"],"k":1}}`,
		},
		{
			name:     "array kept against scalar",
			dst:      `{"a":[1]}`,
			src:      `{"a":false}`,
			expected: `{"a":[1]}`,
		},
		{
			name:     "array kept against null",
			dst:      `{"a":[1,1,2]}`,
			src:      `{"a":null}`,
			expected: `{"a":[1,2]}`,
		},
		{
			name:     "array kept against object",
			dst:      `{"a":[1,1,2]}`,
			src:      `{"a":{"x":1}}`,
			expected: `{"a":[1,2]}`,
		},
		{
			name:     "scalar replaced by array",
			dst:      `{"a":1}`,
			src:      `{"a":[1]}`,
			expected: `{"a":[1]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := mustObject(t, tt.dst)
			Merge(dst, mustObject(t, tt.src), Additive)
			if got := mustMarshal(t, dst); got != tt.expected {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestMerge_RecurseMergesArraysByIndex(t *testing.T) {
	recurse := func(existing, incoming any, path []string) Action { return Recurse }

	dst := mustObject(t, `{"a":[{"x":1},2,3]}`)
	Merge(dst, mustObject(t, `{"a":[{"y":2},9]}`), recurse)

	if got := mustMarshal(t, dst); got != `{"a":[{"x":1,"y":2},9,3]}` {
		t.Errorf("got %s", got)
	}
}

func TestMerge_UseExisting(t *testing.T) {
	keepExisting := func(existing, incoming any, path []string) Action {
		if existing == Missing {
			return Recurse
		}
		return UseExisting
	}

	dst := mustObject(t, `{"a":1,"b":{"c":2}}`)
	Merge(dst, mustObject(t, `{"a":5,"b":{"d":3},"e":4}`), keepExisting)

	if got := mustMarshal(t, dst); got != `{"a":1,"b":{"c":2},"e":4}` {
		t.Errorf("got %s", got)
	}
}

func TestMerge_UseExistingOnMissingKeySkipsKey(t *testing.T) {
	never := func(existing, incoming any, path []string) Action { return UseExisting }

	dst := mustObject(t, `{"a":1}`)
	Merge(dst, mustObject(t, `{"b":2}`), never)

	if got := mustMarshal(t, dst); got != `{"a":1}` {
		t.Errorf("got %s", got)
	}
}

func TestMerge_PolicySeesPaths(t *testing.T) {
	var paths []string
	record := func(existing, incoming any, path []string) Action {
		paths = append(paths, strings.Join(path, "."))
		return Recurse
	}

	dst := mustObject(t, `{"a":{"b":1}}`)
	Merge(dst, mustObject(t, `{"a":{"b":2,"c":[true]}}`), record)

	want := []string{"a", "a.b", "a.c", "a.c.0"}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_DoesNotAliasSource(t *testing.T) {
	dst := mustObject(t, `{}`)
	src := mustObject(t, `{"a":{"b":[1]},"c":[{"d":1}]}`)
	Merge(dst, src, Overwrite)

	inner, _ := src.Get("a")
	inner.(*Object).Set("b", "changed")
	list, _ := src.Get("c")
	list.([]any)[0].(*Object).Set("d", "changed")

	if got := mustMarshal(t, dst); got != `{"a":{"b":[1]},"c":[{"d":1}]}` {
		t.Errorf("dst changed with src: %s", got)
	}
}

func TestMerge_NilObjects(t *testing.T) {
	Merge(nil, NewObject(), Overwrite)

	dst := mustObject(t, `{"a":1}`)
	Merge(dst, nil, Overwrite)
	if got := mustMarshal(t, dst); got != `{"a":1}` {
		t.Errorf("got %s", got)
	}
}

func TestMerge_BadActionsPanic(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
	}{
		{"union on scalars", func(existing, incoming any, path []string) Action { return Union }},
		{"unknown action", func(existing, incoming any, path []string) Action { return Action(99) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			Merge(mustObject(t, `{"a":1}`), mustObject(t, `{"a":2}`), tt.policy)
		})
	}
}

func TestAction_String(t *testing.T) {
	tests := map[Action]string{
		Recurse:     "recurse",
		UseIncoming: "use-incoming",
		UseExisting: "use-existing",
		Union:       "union",
		Action(7):   "action(7)",
	}
	for action, want := range tests {
		if got := action.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
