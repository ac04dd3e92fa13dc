package table

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Options controls how files are loaded into a Table.
type Options struct {
	// MaxRows limits rows kept; 0 means unlimited.
	MaxRows int
	// Delimiter for CSV. If 0, picked from the file extension.
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// Categories forces the named columns to the Category storage type.
	Categories []string
	// CategoryMaxUnique is the distinct-value ceiling for inferring Category
	// from string data; negative disables inference.
	CategoryMaxUnique int
	// Engine selects the reader: "" or "native", or "duckdb".
	Engine string
	// XLSX sheet selection; SheetIndex is 1-based and used when SheetName is empty.
	SheetName  string
	SheetIndex int
}

// DefaultOptions returns reasonable defaults for interactive exploration.
func DefaultOptions() Options {
	return Options{
		MaxRows:           100000,
		CategoryMaxUnique: 20,
		SheetIndex:        1,
	}
}

const (
	EngineNative = "native"
	EngineDuckDB = "duckdb"
)

// Loader reads one file format into a Table.
type Loader interface {
	CanLoad(path string) bool
	Load(ctx context.Context, path string, opt Options) (*Table, error)
}

var registry []Loader

// Register adds a loader to the registry; later registrations lose ties.
func Register(l Loader) {
	registry = append(registry, l)
}

// ErrUnsupported indicates no loader accepts the file.
var ErrUnsupported = errors.New("unsupported table format")

// Load picks a loader for path and reads it.
func Load(ctx context.Context, path string, opt Options) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch strings.ToLower(strings.TrimSpace(opt.Engine)) {
	case "", EngineNative:
	case EngineDuckDB:
		return duckdbLoader{}.Load(ctx, path, opt)
	default:
		return nil, fmt.Errorf("unknown engine %q (use native|duckdb)", opt.Engine)
	}
	for _, l := range registry {
		if l.CanLoad(path) {
			return l.Load(ctx, path, opt)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
}

func hasExt(path string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

func init() {
	Register(csvLoader{})
	Register(xlsxLoader{})
	Register(parquetLoader{})
}
