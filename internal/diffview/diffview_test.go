package diffview

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dshills/jsonedit/internal/project/filestore"
)

func change(old, new string) filestore.Change {
	return filestore.Change{Path: "/proj/config.json", Diff: filestore.Diff{Old: old, New: new}}
}

func TestLines(t *testing.T) {
	got := Lines("a\nb\nc\n", "a\nx\nc\n")
	want := []Line{
		{Kind: Equal, Text: "a", OldNo: 1, NewNo: 1},
		{Kind: Removed, Text: "b", OldNo: 2},
		{Kind: Added, Text: "x", NewNo: 2},
		{Kind: Equal, Text: "c", OldNo: 3, NewNo: 3},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Lines mismatch (-want +got):\n%s", diff)
	}
}

func TestLines_NoTrailingNewline(t *testing.T) {
	got := Lines("{}", "{}\n")
	want := []Line{
		{Kind: Removed, Text: "{}", OldNo: 1, NoNewline: true},
		{Kind: Added, Text: "{}", NewNo: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Lines mismatch (-want +got):\n%s", diff)
	}
}

func TestStat(t *testing.T) {
	added, removed := Stat(change("a\nb\n", "a\nc\nd\n"))
	if added != 2 || removed != 1 {
		t.Errorf("Stat = +%d -%d, want +2 -1", added, removed)
	}
}

func TestRender(t *testing.T) {
	old := "{\n  \"a\": 1,\n  \"b\": 2\n}\n"
	new := "{\n  \"a\": 1,\n  \"b\": 3\n}\n"

	var buf bytes.Buffer
	if err := Render(&buf, change(old, new), DefaultOptions()); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	want := `--- a/proj/config.json
+++ b/proj/config.json
@@ -1,4 +1,4 @@
 {
   "a": 1,
-  "b": 2
+  "b": 3
 }
`
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestRender_NewFile(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, change("", "{}\n"), DefaultOptions()); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	want := `--- /dev/null
+++ b/proj/config.json
@@ -0,0 +1,1 @@
+{}
`
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestRender_SplitsDistantChanges(t *testing.T) {
	var oldLines, newLines []string
	for i := 0; i < 20; i++ {
		line := string(rune('a' + i))
		oldLines = append(oldLines, line)
		switch i {
		case 1, 17:
			newLines = append(newLines, strings.ToUpper(line))
		default:
			newLines = append(newLines, line)
		}
	}
	old := strings.Join(oldLines, "\n") + "\n"
	new := strings.Join(newLines, "\n") + "\n"

	var buf bytes.Buffer
	if err := Render(&buf, change(old, new), Options{Context: 1}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	out := buf.String()
	if n := strings.Count(out, "@@ -"); n != 2 {
		t.Fatalf("hunks = %d, want 2:\n%s", n, out)
	}
	if !strings.Contains(out, "@@ -1,3 +1,3 @@") || !strings.Contains(out, "@@ -17,3 +17,3 @@") {
		t.Errorf("unexpected hunk headers:\n%s", out)
	}
	if strings.Contains(out, " j\n") {
		t.Errorf("distant context should be omitted:\n%s", out)
	}
}

func TestRender_Unchanged(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, change("{}\n", "{}\n"), DefaultOptions()); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestRender_Color(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Color = true
	if err := Render(&buf, change("a\n", "b\n"), opts); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "\x1b[31m-a") {
		t.Errorf("removed line not red: %q", out)
	}
	if !strings.Contains(out, "\x1b[32m+b") {
		t.Errorf("added line not green: %q", out)
	}
}

func TestMergePatch(t *testing.T) {
	tests := []struct {
		name string
		old  string
		new  string
		want string
	}{
		{"changed field", `{"a":1,"b":2}`, `{"a":1,"b":3}`, `{"b":3}`},
		{"removed field", `{"a":1,"b":2}`, `{"a":1}`, `{"b":null}`},
		{"new file", "", `{"a":[1]}`, `{"a":[1]}`},
		{"bom", "\xEF\xBB\xBF{\"a\":1}", `{"a":1}`, `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MergePatch(change(tt.old, tt.new))
			if err != nil {
				t.Fatalf("MergePatch failed: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("MergePatch = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMergePatch_Invalid(t *testing.T) {
	if _, err := MergePatch(change(`{"a":`, `{}`)); err == nil {
		t.Error("expected error for invalid json")
	}
}
