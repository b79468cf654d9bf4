// Package diffview renders pending document changes for review.
package diffview

import (
	"fmt"
	"io"
	"strings"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/fatih/color"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"

	"github.com/dshills/jsonedit/internal/project/filestore"
	"github.com/dshills/jsonedit/internal/project/vfs"
)

// Kind classifies a diff line.
type Kind int

const (
	Equal Kind = iota
	Removed
	Added
)

// Line is one line of a line-oriented diff.
type Line struct {
	Kind Kind
	Text string
	// OldNo and NewNo are 1-based line numbers; zero when the line does not
	// exist on that side.
	OldNo int
	NewNo int
	// NoNewline marks a final line without a line terminator.
	NoNewline bool
}

// Lines computes a line-oriented diff of old and new.
func Lines(old, new string) []Line {
	dmp := diffpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(old, new)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lineArray)

	var (
		out        []Line
		oldN, newN int
	)
	for _, d := range diffs {
		for _, text := range splitLines(d.Text) {
			line := Line{Text: strings.TrimSuffix(text, "\n"), NoNewline: !strings.HasSuffix(text, "\n")}
			switch d.Type {
			case diffpatch.DiffEqual:
				oldN++
				newN++
				line.Kind, line.OldNo, line.NewNo = Equal, oldN, newN
			case diffpatch.DiffDelete:
				oldN++
				line.Kind, line.OldNo = Removed, oldN
			case diffpatch.DiffInsert:
				newN++
				line.Kind, line.NewNo = Added, newN
			}
			out = append(out, line)
		}
	}
	return out
}

func splitLines(s string) []string {
	parts := strings.SplitAfter(s, "\n")
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

// Stat counts added and removed lines of a change.
func Stat(change filestore.Change) (added, removed int) {
	for _, l := range Lines(change.Old, change.New) {
		switch l.Kind {
		case Added:
			added++
		case Removed:
			removed++
		}
	}
	return added, removed
}

// Options controls rendering.
type Options struct {
	// Color enables ANSI colors regardless of the output device.
	Color bool
	// Context is the number of unchanged lines shown around each change.
	Context int
}

// DefaultOptions returns uncolored output with three lines of context.
func DefaultOptions() Options {
	return Options{Context: 3}
}

type palette struct {
	header, hunk, added, removed *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		header:  color.New(color.Bold),
		hunk:    color.New(color.FgCyan),
		added:   color.New(color.FgGreen),
		removed: color.New(color.FgRed),
	}
	for _, c := range []*color.Color{p.header, p.hunk, p.added, p.removed} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Render writes change as a unified diff. Nothing is written when the
// change is empty.
func Render(w io.Writer, change filestore.Change, opts Options) error {
	if !change.Changed() {
		return nil
	}
	if opts.Context < 0 {
		opts.Context = 0
	}
	p := newPalette(opts.Color)
	lines := Lines(change.Old, change.New)

	oldName := "a" + change.Path
	if change.Old == "" {
		oldName = "/dev/null"
	}
	if _, err := p.header.Fprintf(w, "--- %s\n", oldName); err != nil {
		return err
	}
	if _, err := p.header.Fprintf(w, "+++ b%s\n", change.Path); err != nil {
		return err
	}

	for _, h := range hunks(lines, opts.Context) {
		if _, err := p.hunk.Fprintln(w, h.header()); err != nil {
			return err
		}
		for _, l := range h.lines {
			var err error
			switch l.Kind {
			case Equal:
				_, err = fmt.Fprintf(w, " %s\n", l.Text)
			case Removed:
				_, err = p.removed.Fprintf(w, "-%s\n", l.Text)
			case Added:
				_, err = p.added.Fprintf(w, "+%s\n", l.Text)
			}
			if err == nil && l.NoNewline {
				_, err = fmt.Fprintln(w, `\ No newline at end of file`)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

type hunk struct {
	oldStart, oldCount int
	newStart, newCount int
	lines              []Line
}

func (h hunk) header() string {
	return fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.oldStart, h.oldCount, h.newStart, h.newCount)
}

// hunks groups changed lines with up to context unchanged lines around them.
// Changes closer than twice the context share a hunk.
func hunks(lines []Line, context int) []hunk {
	var out []hunk
	i := 0
	for i < len(lines) {
		if lines[i].Kind == Equal {
			i++
			continue
		}

		start := max(i-context, 0)
		end := i
		for end < len(lines) {
			if lines[end].Kind != Equal {
				end++
				continue
			}
			run := end
			for run < len(lines) && lines[run].Kind == Equal {
				run++
			}
			if run == len(lines) || run-end > 2*context {
				end = min(end+context, len(lines))
				break
			}
			end = run
		}

		out = append(out, newHunk(lines, start, end))
		i = end
	}
	return out
}

func newHunk(lines []Line, start, end int) hunk {
	h := hunk{lines: lines[start:end]}
	for _, l := range h.lines {
		if l.Kind != Added {
			if h.oldStart == 0 {
				h.oldStart = l.OldNo
			}
			h.oldCount++
		}
		if l.Kind != Removed {
			if h.newStart == 0 {
				h.newStart = l.NewNo
			}
			h.newCount++
		}
	}
	if h.oldCount == 0 {
		h.oldStart = precedingNo(lines, start, func(l Line) int { return l.OldNo })
	}
	if h.newCount == 0 {
		h.newStart = precedingNo(lines, start, func(l Line) int { return l.NewNo })
	}
	return h
}

// precedingNo returns the last line number before index start on one side,
// which is where an empty range is anchored.
func precedingNo(lines []Line, start int, no func(Line) int) int {
	for i := start - 1; i >= 0; i-- {
		if n := no(lines[i]); n > 0 {
			return n
		}
	}
	return 0
}

// MergePatch summarises a change of JSON text as an RFC 7386 merge patch.
// A change from no file is described relative to an empty object.
func MergePatch(change filestore.Change) ([]byte, error) {
	old, _ := vfs.StripBOM([]byte(change.Old))
	if strings.TrimSpace(string(old)) == "" {
		old = []byte("{}")
	}
	patch, err := jsonpatch.CreateMergePatch(old, []byte(change.New))
	if err != nil {
		return nil, fmt.Errorf("merge patch %s: %w", change.Path, err)
	}
	return patch, nil
}
