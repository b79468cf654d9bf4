package jsonfile

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dshills/jsonedit/internal/jsonvalue"
	perrors "github.com/dshills/jsonedit/internal/project/errors"
	"github.com/dshills/jsonedit/internal/project/filestore"
)

// documentOf returns the loaded document carried by a file handle.
func documentOf(op string, file filestore.File) (*Document, error) {
	v, ok := file.Data().Get()
	if !ok {
		return nil, &perrors.PathError{Op: op, Path: file.Filename(), Err: perrors.ErrNoDocument}
	}
	doc, ok := v.(*Document)
	if !ok {
		return nil, &perrors.PathError{
			Op:   op,
			Path: file.Filename(),
			Err:  fmt.Errorf("%w: got %T", perrors.ErrNoDocument, v),
		}
	}
	if !doc.Loaded() {
		return nil, &perrors.PathError{Op: op, Path: file.Filename(), Err: perrors.ErrNoDocument}
	}
	return doc, nil
}

// Text returns the document as it would be written: indented JSON followed
// by a newline.
func (d *Document) Text() ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.json == nil {
		return nil, &perrors.PathError{Op: "encode", Path: d.path, Err: perrors.ErrNoDocument}
	}
	return d.encode()
}

// encode must be called with d.mu held.
func (d *Document) encode() ([]byte, error) {
	data, err := jsonvalue.MarshalIndent(d.json, d.indent)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// commit writes the handle's document to the handle's filename, replacing
// any previous content. Missing parent directories are created.
func (d *Document) commit(ctx context.Context, file filestore.File) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc, err := documentOf("commit", file)
	if err != nil {
		return err
	}
	text, err := doc.Text()
	if err != nil {
		return err
	}

	dir := d.fsys.Dir(file.Filename())
	if err := d.fsys.MkdirAll(dir, 0755); err != nil {
		return &perrors.PathError{Op: "commit", Path: file.Filename(), Err: err}
	}
	if err := d.fsys.WriteFile(file.Filename(), text, doc.mode); err != nil {
		return &perrors.PathError{Op: "commit", Path: file.Filename(), Err: err}
	}

	d.log.Debug("wrote", zap.String("path", file.Filename()), zap.Int("bytes", len(text)))
	return nil
}

// diff returns the on-disk text next to the text commit would write. It
// neither writes nor mutates anything. A file that does not exist yet has
// empty old text.
func (d *Document) diff(ctx context.Context, file filestore.File) (filestore.Diff, error) {
	if err := ctx.Err(); err != nil {
		return filestore.Diff{}, err
	}
	doc, err := documentOf("diff", file)
	if err != nil {
		return filestore.Diff{}, err
	}
	text, err := doc.Text()
	if err != nil {
		return filestore.Diff{}, err
	}

	old, err := d.fsys.ReadFile(file.Filename())
	if err != nil {
		if !perrors.IsNotFound(err) {
			return filestore.Diff{}, &perrors.PathError{Op: "diff", Path: file.Filename(), Err: err}
		}
		old = nil
	}
	return filestore.Diff{Old: string(old), New: string(text)}, nil
}
