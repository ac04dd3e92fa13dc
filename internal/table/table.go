package table

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// StorageType is the physical encoding of a column's values.
type StorageType int

const (
	Text StorageType = iota
	Int
	Float
	Category
	Datetime
	Bool
	Binary
	Nested
)

func (t StorageType) String() string {
	switch t {
	case Text:
		return "text"
	case Int:
		return "int"
	case Float:
		return "float"
	case Category:
		return "category"
	case Datetime:
		return "datetime"
	case Bool:
		return "bool"
	case Binary:
		return "binary"
	case Nested:
		return "nested"
	default:
		return fmt.Sprintf("storage(%d)", int(t))
	}
}

// IsNumeric reports whether values are stored as integers or floats.
func (t StorageType) IsNumeric() bool { return t == Int || t == Float }

// Column is a named, homogeneously typed sequence of values. Only the slice
// matching Type is populated; valid marks non-missing cells.
type Column struct {
	Name string
	Type StorageType

	nums  []float64
	strs  []string
	times []time.Time
	bools []bool
	valid []bool
	n     int
}

func validity(n int, valid []bool) []bool {
	out := make([]bool, n)
	if valid != nil {
		copy(out, valid)
		return out
	}
	for i := range out {
		out[i] = true
	}
	return out
}

// NewNumeric builds an Int or Float column. NaN values are treated as missing.
func NewNumeric(name string, typ StorageType, vals []float64, valid []bool) *Column {
	if !typ.IsNumeric() {
		typ = Float
	}
	v := validity(len(vals), valid)
	for i, x := range vals {
		if math.IsNaN(x) {
			v[i] = false
		}
	}
	return &Column{Name: name, Type: typ, nums: vals, valid: v, n: len(vals)}
}

// NewStrings builds a Category or Text column.
func NewStrings(name string, typ StorageType, vals []string, valid []bool) *Column {
	if typ != Category {
		typ = Text
	}
	return &Column{Name: name, Type: typ, strs: vals, valid: validity(len(vals), valid), n: len(vals)}
}

// NewTimes builds a Datetime column.
func NewTimes(name string, vals []time.Time, valid []bool) *Column {
	return &Column{Name: name, Type: Datetime, times: vals, valid: validity(len(vals), valid), n: len(vals)}
}

// NewBools builds a Bool column.
func NewBools(name string, vals []bool, valid []bool) *Column {
	return &Column{Name: name, Type: Bool, bools: vals, valid: validity(len(vals), valid), n: len(vals)}
}

// NewOpaque builds a column whose values are not retained (Binary or Nested).
func NewOpaque(name string, typ StorageType, n int, valid []bool) *Column {
	return &Column{Name: name, Type: typ, valid: validity(n, valid), n: n}
}

// Len returns the number of cells, missing included.
func (c *Column) Len() int { return c.n }

// Valid reports whether cell i holds a value.
func (c *Column) Valid(i int) bool { return i >= 0 && i < len(c.valid) && c.valid[i] }

// Float returns cell i of an Int or Float column.
func (c *Column) Float(i int) float64 { return c.nums[i] }

// String returns cell i of a Category or Text column.
func (c *Column) String(i int) string { return c.strs[i] }

// Time returns cell i of a Datetime column.
func (c *Column) Time(i int) time.Time { return c.times[i] }

// Bool returns cell i of a Bool column.
func (c *Column) Bool(i int) bool { return c.bools[i] }

// NonMissing counts valid cells.
func (c *Column) NonMissing() int {
	n := 0
	for _, ok := range c.valid {
		if ok {
			n++
		}
	}
	return n
}

// Table is a read-only rectangular dataset with named, ordered columns.
type Table struct {
	Name     string
	Columns  []*Column
	Warnings []string

	rows  int
	index map[string]int
}

// New assembles a table; all columns must have the same length and distinct names.
func New(name string, cols ...*Column) (*Table, error) {
	t := &Table{Name: name, Columns: cols, index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if c == nil {
			return nil, fmt.Errorf("column %d is nil", i)
		}
		if _, dup := t.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", c.Name)
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", c.Name, c.Len(), t.rows)
		}
		t.index[c.Name] = i
	}
	return t, nil
}

// MustNew is like New but panics on error. Intended for fixtures.
func MustNew(name string, cols ...*Column) *Table {
	t, err := New(name, cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// Rows returns the number of records.
func (t *Table) Rows() int { return t.rows }

// Column looks up a column by exact name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.Columns[i], true
}

// ColumnNames returns column names in table order.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Describe renders a one-line-per-column schema listing.
func (t *Table) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d rows, %d columns\n", safeName(t.Name), t.rows, len(t.Columns))
	for _, c := range t.Columns {
		fmt.Fprintf(&b, "- %s: %s (non-null %d)\n", safeName(c.Name), c.Type, c.NonMissing())
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}
