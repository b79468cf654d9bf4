// Package filestore is the change-tracking layer of the editor.
//
// A Store is one edit session. Documents register themselves under a file
// path together with two adapters: a commit function that persists the
// document and a diff function that previews what a commit would change. The
// store guarantees a path is registered at most once and decides when the
// adapters run. Documents never write storage on their own.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	perrors "github.com/dshills/jsonedit/internal/project/errors"
	"github.com/dshills/jsonedit/internal/project/vfs"
)

// Data is the payload a File carries: either a tracked value or nothing.
// The zero value is absent.
type Data struct {
	value   any
	present bool
}

// Present wraps v as file data.
func Present(v any) Data {
	return Data{value: v, present: true}
}

// Absent returns empty file data.
func Absent() Data {
	return Data{}
}

// Get returns the value and whether one is present.
func (d Data) Get() (any, bool) {
	return d.value, d.present
}

// File is the handle passed to commit and diff adapters.
type File struct {
	filename string
	data     Data
}

// NewFile creates a file handle.
func NewFile(filename string, data Data) File {
	return File{filename: filename, data: data}
}

// Filename returns the absolute path of the tracked file.
func (f File) Filename() string { return f.filename }

// Data returns the value registered for the file.
func (f File) Data() Data { return f.data }

// Diff is the textual difference between storage and memory.
type Diff struct {
	Old string
	New string
}

// CommitFunc persists the data of a file to storage.
type CommitFunc func(ctx context.Context, f File) error

// DiffFunc computes what a commit of the file would change.
type DiffFunc func(ctx context.Context, f File) (Diff, error)

// Change is a Diff for a tracked path.
type Change struct {
	Path string
	Diff
}

// Changed reports whether committing would alter the file.
func (c Change) Changed() bool {
	return c.Old != c.New
}

type entry struct {
	file        File
	commit      CommitFunc
	diff        DiffFunc
	openedAt    time.Time
	committedAt time.Time
	commits     int
}

// Store tracks open files for one edit session.
// It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	id      string
	vfs     vfs.VFS
	entries map[string]*entry
	order   []string
	log     *zap.Logger

	// Event handlers
	onOpen   []func(path string)
	onCommit []func(path string)
	onClose  []func(path string)
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// NewStore creates a store backed by fsys.
func NewStore(fsys vfs.VFS, opts ...Option) *Store {
	s := &Store{
		id:      uuid.NewString(),
		vfs:     fsys,
		entries: make(map[string]*entry),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(zap.String("session", s.id))
	return s
}

// ID returns the session identifier.
func (s *Store) ID() string {
	return s.id
}

// FS returns the file system the store's documents read and write.
func (s *Store) FS() vfs.VFS {
	return s.vfs
}

// Logger returns the session logger.
func (s *Store) Logger() *zap.Logger {
	return s.log
}

func (s *Store) abs(path string) string {
	absPath, err := s.vfs.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}

// IsOpen returns true if path is registered.
func (s *Store) IsOpen(path string) bool {
	absPath := s.abs(path)

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[absPath]
	return ok
}

// Open registers data under path with its commit and diff adapters.
// A path is registered at most once: registering it again returns
// ErrAlreadyOpen and leaves the first registration in place.
func (s *Store) Open(path string, data any, commit CommitFunc, diff DiffFunc) error {
	if commit == nil || diff == nil {
		return &perrors.PathError{Op: "open", Path: path, Err: errors.New("commit and diff adapters are required")}
	}
	absPath := s.abs(path)

	payload := Absent()
	if data != nil {
		payload = Present(data)
	}

	s.mu.Lock()
	if _, exists := s.entries[absPath]; exists {
		s.mu.Unlock()
		return &perrors.PathError{Op: "open", Path: path, Err: perrors.ErrAlreadyOpen}
	}
	s.entries[absPath] = &entry{
		file:     NewFile(absPath, payload),
		commit:   commit,
		diff:     diff,
		openedAt: time.Now(),
	}
	s.order = append(s.order, absPath)
	handlers := make([]func(path string), len(s.onOpen))
	copy(handlers, s.onOpen)
	s.mu.Unlock()

	s.log.Debug("open", zap.String("path", absPath))
	for _, handler := range handlers {
		handler(absPath)
	}
	return nil
}

// Get returns the file handle registered for path.
func (s *Store) Get(path string) (File, bool) {
	absPath := s.abs(path)

	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[absPath]
	if !ok {
		return File{}, false
	}
	return e.file, true
}

// Paths returns the registered paths in registration order.
func (s *Store) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths := make([]string, len(s.order))
	copy(paths, s.order)
	return paths
}

// Count returns the number of registered paths.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) lookup(op, path string) (*entry, error) {
	absPath := s.abs(path)

	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[absPath]
	if !ok {
		return nil, &perrors.PathError{Op: op, Path: path, Err: perrors.ErrDocumentNotOpen}
	}
	return e, nil
}

// Diff runs the diff adapter registered for path.
func (s *Store) Diff(ctx context.Context, path string) (Change, error) {
	e, err := s.lookup("diff", path)
	if err != nil {
		return Change{}, err
	}
	d, err := e.diff(ctx, e.file)
	if err != nil {
		return Change{}, err
	}
	return Change{Path: e.file.Filename(), Diff: d}, nil
}

// DiffAll runs every diff adapter in registration order. Paths whose diff
// fails are left out of the result and reported in the joined error.
func (s *Store) DiffAll(ctx context.Context) ([]Change, error) {
	var (
		changes []Change
		errs    []error
	)
	for _, path := range s.Paths() {
		if err := ctx.Err(); err != nil {
			return changes, errors.Join(append(errs, err)...)
		}
		change, err := s.Diff(ctx, path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		changes = append(changes, change)
	}
	return changes, errors.Join(errs...)
}

// Commit runs the commit adapter registered for path.
func (s *Store) Commit(ctx context.Context, path string) error {
	e, err := s.lookup("commit", path)
	if err != nil {
		return err
	}
	if err := e.commit(ctx, e.file); err != nil {
		return err
	}

	s.mu.Lock()
	e.commits++
	e.committedAt = time.Now()
	handlers := make([]func(path string), len(s.onCommit))
	copy(handlers, s.onCommit)
	s.mu.Unlock()

	s.log.Debug("commit", zap.String("path", e.file.Filename()))
	for _, handler := range handlers {
		handler(e.file.Filename())
	}
	return nil
}

// CommitResult reports the outcome of CommitAll.
type CommitResult struct {
	Committed []string
	Failed    map[string]error
}

// Err joins the failures, or returns nil when every commit succeeded.
func (r CommitResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for path, err := range r.Failed {
		errs = append(errs, fmt.Errorf("%s: %w", path, err))
	}
	return errors.Join(errs...)
}

// CommitAll commits every registered path once, in registration order.
// A failing path does not stop the others. Once ctx is done the remaining
// paths fail with the context error.
func (s *Store) CommitAll(ctx context.Context) CommitResult {
	result := CommitResult{Failed: make(map[string]error)}
	for _, path := range s.Paths() {
		if err := ctx.Err(); err != nil {
			result.Failed[path] = err
			continue
		}
		if err := s.Commit(ctx, path); err != nil {
			result.Failed[path] = err
			continue
		}
		result.Committed = append(result.Committed, path)
	}
	if len(result.Failed) > 0 {
		s.log.Warn("commit failed", zap.Int("failed", len(result.Failed)), zap.Error(result.Err()))
	}
	return result
}

// Close drops the registration for path, discarding pending edits.
func (s *Store) Close(path string) error {
	absPath := s.abs(path)

	s.mu.Lock()
	if _, ok := s.entries[absPath]; !ok {
		s.mu.Unlock()
		return &perrors.PathError{Op: "close", Path: path, Err: perrors.ErrDocumentNotOpen}
	}
	delete(s.entries, absPath)
	for i, p := range s.order {
		if p == absPath {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	handlers := make([]func(path string), len(s.onClose))
	copy(handlers, s.onClose)
	s.mu.Unlock()

	for _, handler := range handlers {
		handler(absPath)
	}
	return nil
}

// CloseAll drops every registration.
func (s *Store) CloseAll() {
	for _, path := range s.Paths() {
		_ = s.Close(path)
	}
}

// Event handler registration

// OnOpen registers a handler called when a path is registered.
func (s *Store) OnOpen(handler func(path string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onOpen = append(s.onOpen, handler)
}

// OnCommit registers a handler called after a path is committed.
func (s *Store) OnCommit(handler func(path string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCommit = append(s.onCommit, handler)
}

// OnClose registers a handler called when a registration is dropped.
func (s *Store) OnClose(handler func(path string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClose = append(s.onClose, handler)
}

// Stats returns statistics about the store.
type Stats struct {
	OpenCount   int
	CommitCount int
}

// GetStats returns current store statistics.
func (s *Store) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{OpenCount: len(s.entries)}
	for _, e := range s.entries {
		stats.CommitCount += e.commits
	}
	return stats
}
