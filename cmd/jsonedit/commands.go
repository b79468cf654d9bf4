package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"go.uber.org/zap"

	"github.com/dshills/jsonedit/internal/config"
	"github.com/dshills/jsonedit/internal/diffview"
	"github.com/dshills/jsonedit/internal/jsonfile"
	"github.com/dshills/jsonedit/internal/logging"
	perrors "github.com/dshills/jsonedit/internal/project/errors"
	"github.com/dshills/jsonedit/internal/project/filestore"
	"github.com/dshills/jsonedit/internal/project/vfs"
)

// app carries what every command needs.
type app struct {
	cfg    config.Config
	fsys   vfs.VFS
	log    *zap.Logger
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	color  bool
}

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commandOrder = []string{"show", "get", "set", "merge", "patch", "diff"}

var commands map[string]command

func init() {
	commands = map[string]command{
		"show":  {"Print a document", runShow},
		"get":   {"Print the value at a path", runGet},
		"set":   {"Merge properties, replacing arrays and objects", runSet},
		"merge": {"Merge properties, combining arrays and objects", runMerge},
		"patch": {"Apply an RFC 6902 JSON Patch", runPatch},
		"diff":  {"Show how the file would be rewritten", runDiff},
	}
}

// session is one loaded document and the store tracking it.
type session struct {
	store *filestore.Store
	doc   *jsonfile.Document
	sync  *filestore.SyncManager

	mu       sync.Mutex
	external map[string]bool
}

// open loads path into a new session. With watch set, external changes are
// tracked from before the file is read.
func (a *app) open(ctx context.Context, path string, watch bool) (*session, error) {
	mode, err := a.cfg.Mode()
	if err != nil {
		return nil, err
	}
	store := filestore.NewStore(a.fsys, filestore.WithLogger(logging.Component(a.log, "store")))
	doc := jsonfile.New(path, store,
		jsonfile.WithLogger(logging.Component(a.log, "json")),
		jsonfile.WithIndent(a.cfg.IndentString()),
		jsonfile.WithFileMode(mode),
	)
	s := &session{store: store, doc: doc, external: make(map[string]bool)}
	if watch {
		if err := s.watch(a); err != nil {
			return nil, err
		}
	}
	if err := doc.Load(ctx); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

// openExisting is open for commands that only read.
func (a *app) openExisting(ctx context.Context, path string) (*session, error) {
	s, err := a.open(ctx, path, false)
	if err != nil {
		return nil, err
	}
	exists, err := s.doc.Exists(ctx)
	if err == nil && !exists {
		err = &perrors.PathError{Op: "open", Path: s.doc.Path(), Err: perrors.ErrNotFound}
	}
	if err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

// watch starts reporting external modifications of the session's document.
// The baseline is taken immediately, so call it before the document is read.
func (s *session) watch(a *app) error {
	interval, err := a.cfg.SyncInterval()
	if err != nil {
		return err
	}
	s.sync = filestore.NewSyncManager(s.store, interval)
	s.sync.OnExternalChange(func(path string) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.external[path] = true
	})
	s.sync.Track(s.doc.Path())
	s.sync.Start()
	return nil
}

// changedOnDisk reports whether any tracked file was modified since it was
// read.
func (s *session) changedOnDisk(ctx context.Context) bool {
	if s.sync != nil {
		s.sync.CheckNow(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.external) > 0
}

func (s *session) close() {
	if s.sync != nil && s.sync.IsRunning() {
		s.sync.Stop()
	}
	s.store.CloseAll()
}

func newFlagSet(a *app, name, args string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.Usage = func() {
		fmt.Fprintf(a.stderr, "Usage: jsonedit %s [options] %s\n\n%s.\n\nOptions:\n", name, args, commands[name].summary)
		fs.PrintDefaults()
	}
	return fs
}

// parseArgs parses command flags and checks the positional argument count.
func parseArgs(fs *flag.FlagSet, args []string, n int) error {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return err
		}
		return errUsage
	}
	if fs.NArg() != n {
		fs.Usage()
		return errUsage
	}
	return nil
}

func (a *app) printJSON(data []byte) error {
	out := pretty.PrettyOptions(data, &pretty.Options{
		Width:  80,
		Indent: a.cfg.IndentString(),
	})
	if a.color {
		out = pretty.Color(out, nil)
	}
	_, err := a.stdout.Write(out)
	return err
}

func runShow(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "show", "<file>")
	if err := parseArgs(fs, args, 1); err != nil {
		return err
	}

	s, err := a.openExisting(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	defer s.close()

	text, err := s.doc.Text()
	if err != nil {
		return err
	}
	if a.color {
		text = pretty.Color(text, nil)
	}
	_, err = a.stdout.Write(text)
	return err
}

func runGet(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "get", "<file> <path>")
	raw := fs.Bool("r", false, "Print strings without quotes")
	if err := parseArgs(fs, args, 2); err != nil {
		return err
	}

	s, err := a.openExisting(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	defer s.close()

	res := s.doc.Get(fs.Arg(1))
	if !res.Exists() {
		return &perrors.PathError{Op: "get", Path: fs.Arg(1), Err: perrors.ErrNotFound}
	}
	if *raw && res.Type == gjson.String {
		_, err := fmt.Fprintln(a.stdout, res.String())
		return err
	}
	return a.printJSON([]byte(res.Raw))
}

// editOptions are the flags shared by mutating commands.
type editOptions struct {
	write   bool
	force   bool
	summary bool
}

func (o *editOptions) register(fs *flag.FlagSet) {
	fs.BoolVar(&o.write, "w", false, "Write the result to the file")
	fs.BoolVar(&o.force, "force", false, "Write even if the file changed on disk meanwhile")
	fs.BoolVar(&o.summary, "summary", false, "Print an RFC 7386 merge patch instead of a diff")
}

// edit loads file, applies fn, previews the change and optionally commits.
func (a *app) edit(ctx context.Context, file string, opts editOptions, fn func(doc *jsonfile.Document) error) error {
	s, err := a.open(ctx, file, true)
	if err != nil {
		return err
	}
	defer s.close()

	if err := fn(s.doc); err != nil {
		return err
	}

	changed, err := a.preview(ctx, s, opts.summary)
	if err != nil {
		return err
	}
	if !changed {
		fmt.Fprintln(a.stderr, "no changes")
		return nil
	}
	if !opts.write {
		fmt.Fprintln(a.stderr, "dry run, use -w to write")
		return nil
	}

	if s.changedOnDisk(ctx) && !opts.force {
		return &perrors.PathError{
			Op:   "write",
			Path: s.doc.Path(),
			Err:  fmt.Errorf("file changed on disk since it was read (use -force to overwrite)"),
		}
	}
	result := s.store.CommitAll(ctx)
	if err := result.Err(); err != nil {
		return err
	}
	for _, path := range result.Committed {
		a.log.Info("committed", zap.String("path", path))
		fmt.Fprintf(a.stderr, "wrote %s\n", path)
	}
	fmt.Fprintf(a.stderr, "%d commit(s)\n", s.store.GetStats().CommitCount)
	return nil
}

// preview prints every pending change and reports whether there was one.
func (a *app) preview(ctx context.Context, s *session, summary bool) (bool, error) {
	changes, err := s.store.DiffAll(ctx)
	if err != nil {
		return false, err
	}

	changed := false
	for _, change := range changes {
		if !change.Changed() {
			continue
		}
		changed = true

		if summary {
			patch, err := diffview.MergePatch(change)
			if err != nil {
				return false, err
			}
			if err := a.printJSON(patch); err != nil {
				return false, err
			}
			continue
		}

		opts := diffview.DefaultOptions()
		opts.Color = a.color
		if err := diffview.Render(a.stdout, change, opts); err != nil {
			return false, err
		}
		added, removed := diffview.Stat(change)
		fmt.Fprintf(a.stderr, "%s: %s %s\n", change.Path,
			color.GreenString("+%d", added), color.RedString("-%d", removed))
	}
	return changed, nil
}

func runSet(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "set", "<file> <properties|-|value>")
	var opts editOptions
	opts.register(fs)
	at := fs.String("at", "", "Set a single value at this dotted path; the last argument is the value")
	if err := parseArgs(fs, args, 2); err != nil {
		return err
	}

	if *at != "" {
		value := parseValue(fs.Arg(1))
		return a.edit(ctx, fs.Arg(0), opts, func(doc *jsonfile.Document) error {
			return doc.SetPath(*at, value)
		})
	}

	props, err := a.readProperties(fs.Arg(1))
	if err != nil {
		return err
	}
	return a.edit(ctx, fs.Arg(0), opts, func(doc *jsonfile.Document) error {
		return doc.Set(props)
	})
}

func runMerge(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "merge", "<file> <properties|->")
	var opts editOptions
	opts.register(fs)
	if err := parseArgs(fs, args, 2); err != nil {
		return err
	}

	props, err := a.readProperties(fs.Arg(1))
	if err != nil {
		return err
	}
	return a.edit(ctx, fs.Arg(0), opts, func(doc *jsonfile.Document) error {
		return doc.Merge(props)
	})
}

func runPatch(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "patch", "<file> <patch|->")
	var opts editOptions
	opts.register(fs)
	if err := parseArgs(fs, args, 2); err != nil {
		return err
	}

	ops, err := a.readInput(fs.Arg(1))
	if err != nil {
		return err
	}
	return a.edit(ctx, fs.Arg(0), opts, func(doc *jsonfile.Document) error {
		return doc.Patch(ops)
	})
}

func runDiff(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "diff", "<file>")
	summary := fs.Bool("summary", false, "Print an RFC 7386 merge patch instead of a diff")
	if err := parseArgs(fs, args, 1); err != nil {
		return err
	}

	s, err := a.openExisting(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	defer s.close()

	_, err = a.preview(ctx, s, *summary)
	return err
}
