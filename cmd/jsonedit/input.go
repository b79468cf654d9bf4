package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dshills/jsonedit/internal/jsonvalue"
	"github.com/dshills/jsonedit/internal/project/vfs"
)

// readInput reads a named file, or standard input for "-".
func (a *app) readInput(name string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(a.stdin)
	} else {
		data, err = a.fsys.ReadFile(name)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	data, _ = vfs.StripBOM(data)
	return data, nil
}

// readProperties reads a JSON or YAML property document. The format follows
// the file extension; otherwise JSON is tried first.
func (a *app) readProperties(name string) (any, error) {
	data, err := a.readInput(name)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return jsonvalue.ParseYAML(data)
	case ".json":
		return jsonvalue.Parse(data)
	}

	v, err := jsonvalue.Parse(data)
	if err == nil {
		return v, nil
	}
	if yv, yerr := jsonvalue.ParseYAML(data); yerr == nil {
		return yv, nil
	}
	return nil, fmt.Errorf("reading %s: %w", name, err)
}

// parseValue reads a command line value as JSON, falling back to a plain
// string.
func parseValue(s string) any {
	if v, err := jsonvalue.Parse([]byte(s)); err == nil {
		return v
	}
	return s
}
