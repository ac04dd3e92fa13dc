package table

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
)

// duckdbLoader reads CSV and Parquet through an in-memory DuckDB instance and
// keeps DuckDB's own column typing.
type duckdbLoader struct{}

var _ Loader = duckdbLoader{}

func (duckdbLoader) CanLoad(path string) bool { return hasExt(path, ".csv", ".tsv", ".parquet", ".pq") }

func (duckdbLoader) Load(ctx context.Context, path string, opt Options) (*Table, error) {
	var source string
	switch {
	case hasExt(path, ".parquet", ".pq"):
		source = fmt.Sprintf("read_parquet(%s)", quoteLiteral(path))
	case hasExt(path, ".csv", ".tsv"):
		source = fmt.Sprintf("read_csv_auto(%s)", quoteLiteral(path))
		if opt.Delimiter != 0 {
			source = fmt.Sprintf("read_csv_auto(%s, delim=%s)", quoteLiteral(path), quoteLiteral(string(opt.Delimiter)))
		}
	default:
		return nil, fmt.Errorf("%w: %s (duckdb engine)", ErrUnsupported, filepath.Ext(path))
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	defer func() { _ = db.Close() }()

	var total int
	if err := db.QueryRowContext(ctx, "SELECT count(*) FROM "+source).Scan(&total); err != nil {
		return nil, fmt.Errorf("count rows: %w", err)
	}
	query := "SELECT * FROM " + source
	if opt.MaxRows > 0 && total > opt.MaxRows {
		query = fmt.Sprintf("%s LIMIT %d", query, opt.MaxRows)
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	builders := make([]*duckColumn, len(types))
	for i, ct := range types {
		builders[i] = &duckColumn{name: ct.Name(), typ: duckdbStorage(ct.DatabaseTypeName())}
	}

	for rows.Next() {
		values := make([]any, len(types))
		targets := make([]any, len(types))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for i, b := range builders {
			b.add(values[i])
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	cols := make([]*Column, len(builders))
	for i, b := range builders {
		cols[i] = b.column(opt)
	}
	t, err := New(filepath.Base(path), cols...)
	if err != nil {
		return nil, err
	}
	if t.Rows() < total {
		t.Warnings = append(t.Warnings, fmt.Sprintf("processed only %d/%d rows due to MaxRows", t.Rows(), total))
	}
	return t, nil
}

// duckdbStorage maps a DuckDB type name, as reported by the driver, to a
// storage type. VARCHAR maps to Text and is refined to Category later.
func duckdbStorage(name string) StorageType {
	n := strings.ToUpper(strings.TrimSpace(name))
	switch {
	case strings.HasSuffix(n, "[]") || strings.HasPrefix(n, "LIST") || strings.HasPrefix(n, "STRUCT") ||
		strings.HasPrefix(n, "MAP") || strings.HasPrefix(n, "UNION") || strings.HasPrefix(n, "ARRAY"):
		return Nested
	case strings.HasPrefix(n, "DECIMAL"), n == "DOUBLE", n == "FLOAT", n == "REAL":
		return Float
	case n == "BIGINT", n == "INTEGER", n == "SMALLINT", n == "TINYINT", n == "HUGEINT",
		n == "UBIGINT", n == "UINTEGER", n == "USMALLINT", n == "UTINYINT", n == "UHUGEINT":
		return Int
	case strings.HasPrefix(n, "ENUM"):
		return Category
	case n == "DATE", strings.HasPrefix(n, "TIMESTAMP"):
		return Datetime
	case n == "BOOLEAN":
		return Bool
	case n == "VARCHAR", n == "TEXT", n == "STRING":
		return Text
	}
	return Binary
}

type duckColumn struct {
	name  string
	typ   StorageType
	nums  []float64
	strs  []string
	times []time.Time
	bools []bool
	valid []bool
}

func (c *duckColumn) add(v any) {
	ok := v != nil
	var (
		f  float64
		s  string
		ts time.Time
		b  bool
	)
	if ok {
		switch c.typ {
		case Int, Float:
			f, ok = toFloat(v)
		case Text, Category:
			s = toString(v)
		case Datetime:
			ts, ok = v.(time.Time)
			ts = ts.UTC()
		case Bool:
			b, ok = v.(bool)
		}
	}
	c.valid = append(c.valid, ok)
	switch c.typ {
	case Int, Float:
		c.nums = append(c.nums, f)
	case Text, Category:
		c.strs = append(c.strs, s)
	case Datetime:
		c.times = append(c.times, ts)
	case Bool:
		c.bools = append(c.bools, b)
	}
}

func (c *duckColumn) column(opt Options) *Column {
	switch c.typ {
	case Int, Float:
		return NewNumeric(c.name, c.typ, c.nums, c.valid)
	case Category:
		return NewStrings(c.name, Category, c.strs, c.valid)
	case Text:
		return stringColumn(c.name, c.strs, c.valid, opt)
	case Datetime:
		return NewTimes(c.name, c.times, c.valid)
	case Bool:
		return NewBools(c.name, c.bools, c.valid)
	}
	return NewOpaque(c.name, c.typ, len(c.valid), c.valid)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case *big.Int:
		f, _ := new(big.Float).SetInt(x).Float64()
		return f, true
	case interface{ Float64() float64 }:
		return x.Float64(), true
	}
	return 0, false
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	}
	return fmt.Sprint(v)
}

func quoteLiteral(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}
