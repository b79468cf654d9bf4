// Package jsonfile edits JSON documents on disk through a filestore.Store.
//
// A Document is loaded once, mutated in memory with Set, Merge, SetPath or
// Patch, and persisted when the store commits it. Until then the store can
// preview the pending change through the document's diff adapter.
package jsonfile

import (
	"context"
	"encoding/json"
	"io/fs"
	"sync"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/dshills/jsonedit/internal/jsonvalue"
	perrors "github.com/dshills/jsonedit/internal/project/errors"
	"github.com/dshills/jsonedit/internal/project/filestore"
	"github.com/dshills/jsonedit/internal/project/vfs"
)

// Document is a JSON file whose root is an object.
type Document struct {
	mu sync.RWMutex

	path  string
	store *filestore.Store
	fsys  vfs.VFS
	log   *zap.Logger

	indent string
	mode   fs.FileMode

	// json is nil until Load succeeds.
	json *jsonvalue.Object
}

// Option configures a Document.
type Option func(*Document)

// WithLogger sets the document logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Document) {
		if l != nil {
			d.log = l
		}
	}
}

// WithIndent sets the indent unit used when writing. Defaults to two spaces.
func WithIndent(indent string) Option {
	return func(d *Document) {
		d.indent = indent
	}
}

// WithFileMode sets the permission of files created on commit.
func WithFileMode(mode fs.FileMode) Option {
	return func(d *Document) {
		d.mode = mode
	}
}

// New creates an unloaded document for path, tracked by store.
func New(path string, store *filestore.Store, opts ...Option) *Document {
	d := &Document{
		path:   path,
		store:  store,
		fsys:   store.FS(),
		log:    store.Logger().Named("json"),
		indent: "  ",
		mode:   0644,
	}
	if abs, err := d.fsys.Abs(path); err == nil {
		d.path = abs
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Path returns the absolute path of the backing file.
func (d *Document) Path() string {
	return d.path
}

// Document returns the in-memory mapping, or nil before Load.
func (d *Document) Document() *jsonvalue.Object {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.json
}

// Loaded reports whether the document holds a mapping.
func (d *Document) Loaded() bool {
	return d.Document() != nil
}

// Exists reports whether the backing file exists. A directory at the path
// is an error.
func (d *Document) Exists(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	info, err := d.fsys.Stat(d.path)
	if err != nil {
		if perrors.IsNotFound(err) {
			return false, nil
		}
		return false, perrors.NewPathError("stat", d.path, err)
	}
	if info.IsDir() {
		return false, perrors.NewPathError("stat", d.path, perrors.ErrIsDirectory)
	}
	return true, nil
}

// Load reads the backing file and registers the document with the store.
//
// If the path is already registered Load does nothing: no read and no second
// registration. A missing file loads as an empty object. A read or parse
// failure is returned and nothing is registered.
func (d *Document) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.store.IsOpen(d.path) {
		return nil
	}

	obj, err := d.read(ctx)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.json = obj
	d.mu.Unlock()

	if ce := d.log.Check(zap.DebugLevel, "read"); ce != nil {
		text, _ := jsonvalue.Marshal(obj)
		ce.Write(zap.String("path", d.path), zap.ByteString("json", text))
	}

	if err := d.store.Open(d.path, d, d.commit, d.diff); err != nil {
		// Another document took the path after IsOpen; edits here would
		// never be committed.
		d.mu.Lock()
		d.json = nil
		d.mu.Unlock()
		return err
	}
	return nil
}

func (d *Document) read(ctx context.Context) (*jsonvalue.Object, error) {
	exists, err := d.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return jsonvalue.NewObject(), nil
	}

	data, err := vfs.ReadText(d.fsys, d.path)
	if err != nil {
		return nil, &perrors.PathError{Op: "load", Path: d.path, Err: err}
	}
	obj, err := jsonvalue.ParseObject(data)
	if err != nil {
		return nil, &perrors.PathError{Op: "load", Path: d.path, Err: err}
	}
	return obj, nil
}

// Set merges properties into the document. On conflict an existing array or
// object is replaced by the incoming value; scalars are overwritten and new
// keys added. Set does nothing before Load.
//
// properties may be a *jsonvalue.Object, a map, a struct or anything else
// that encodes to a JSON object. A nil properties value changes nothing.
func (d *Document) Set(properties any) error {
	return d.apply(properties, jsonvalue.Overwrite)
}

// Merge merges properties into the document. Arrays present on both sides
// become their union in first-seen order; objects merge field by field.
// Merge does nothing before Load.
func (d *Document) Merge(properties any) error {
	return d.apply(properties, jsonvalue.Additive)
}

func (d *Document) apply(properties any, policy jsonvalue.Policy) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.json == nil || properties == nil {
		return nil
	}
	src, err := jsonvalue.NormalizeObject(properties)
	if err != nil {
		return err
	}
	jsonvalue.Merge(d.json, src, policy)
	return nil
}

// Get returns the value at a gjson path such as "plugins.0.name". The result
// does not exist before Load.
func (d *Document) Get(path string) gjson.Result {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.json == nil {
		return gjson.Result{}
	}
	data, err := jsonvalue.Marshal(d.json)
	if err != nil {
		return gjson.Result{}
	}
	return gjson.GetBytes(data, path)
}

// SetPath replaces the value at a dotted sjson path, creating intermediate
// objects. SetPath does nothing before Load.
func (d *Document) SetPath(path string, value any) error {
	return d.rewrite("set", path, func(data []byte) ([]byte, error) {
		v, err := jsonvalue.Normalize(value)
		if err != nil {
			return nil, err
		}
		raw, err := jsonvalue.Marshal(v)
		if err != nil {
			return nil, err
		}
		return sjson.SetRawBytes(data, path, raw)
	})
}

// DeletePath removes the value at a dotted sjson path. DeletePath does
// nothing before Load.
func (d *Document) DeletePath(path string) error {
	return d.rewrite("delete", path, func(data []byte) ([]byte, error) {
		return sjson.DeleteBytes(data, path)
	})
}

// Patch applies an RFC 6902 JSON Patch to the document. The patched value
// must still be an object. Keys keep their previous order; added keys follow.
// Patch does nothing before Load.
func (d *Document) Patch(ops []byte) error {
	patch, err := jsonpatch.DecodePatch(ops)
	if err != nil {
		return &perrors.PathError{Op: "patch", Path: d.path, Err: err}
	}
	return d.rewrite("patch", d.path, func(data []byte) ([]byte, error) {
		return patch.Apply(data)
	})
}

// rewrite replaces the document with fn applied to its compact encoding.
func (d *Document) rewrite(op, path string, fn func([]byte) ([]byte, error)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.json == nil {
		return nil
	}
	data, err := jsonvalue.Marshal(d.json)
	if err != nil {
		return err
	}
	out, err := fn(data)
	if err != nil {
		return &perrors.PathError{Op: op, Path: path, Err: err}
	}
	obj, err := jsonvalue.ParseObject(out)
	if err != nil {
		return &perrors.PathError{Op: op, Path: path, Err: err}
	}
	d.json = reorderLike(obj, d.json).(*jsonvalue.Object)
	return nil
}

// reorderLike orders the keys of every object in v the way the matching
// object in like is ordered. Keys only present in v follow, in v's order.
func reorderLike(v, like any) any {
	switch x := v.(type) {
	case *jsonvalue.Object:
		prev, ok := like.(*jsonvalue.Object)
		if !ok {
			return x
		}
		out := jsonvalue.NewObject()
		for _, k := range prev.Keys() {
			if val, ok := x.Get(k); ok {
				old, _ := prev.Get(k)
				out.Set(k, reorderLike(val, old))
			}
		}
		x.Range(func(k string, val any) bool {
			if !out.Has(k) {
				out.Set(k, val)
			}
			return true
		})
		return out
	case []any:
		prev, ok := like.([]any)
		if !ok {
			return x
		}
		for i := range x {
			if i < len(prev) {
				x[i] = reorderLike(x[i], prev[i])
			}
		}
		return x
	default:
		return v
	}
}

// MarshalJSON encodes the in-memory mapping, or null before Load.
func (d *Document) MarshalJSON() ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.json == nil {
		return []byte("null"), nil
	}
	return jsonvalue.Marshal(d.json)
}

var _ json.Marshaler = (*Document)(nil)
