// Package summary classifies table columns into semantic kinds and computes
// the descriptive statistics the prompt composer renders.
package summary

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/datavizard/internal/table"
)

// Kind is the semantic classification of a column.
type Kind int

const (
	Numeric Kind = iota + 1
	Categorical
	Datetime
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	case Datetime:
		return "datetime"
	default:
		return "unknown"
	}
}

// Number is a statistic that may be undefined.
type Number struct {
	Value float64
	Valid bool
}

func some(v float64) Number { return Number{Value: v, Valid: true} }

// Instant is a timestamp statistic that may be undefined.
type Instant struct {
	Value time.Time
	Valid bool
}

type NumericStats struct {
	Count int
	Mean  Number
	Std   Number
	Min   Number
	Max   Number
}

type CategoricalStats struct {
	NUnique int
}

type DatetimeStats struct {
	Min     Instant
	Max     Instant
	NUnique int
}

// VariableSummary describes one classified column. Exactly one of the stats
// pointers is set, matching Kind.
type VariableSummary struct {
	Name        string
	Kind        Kind
	Numeric     *NumericStats
	Categorical *CategoricalStats
	Datetime    *DatetimeStats
}

// Stats returns the kind-scoped statistics by name. Undefined values map to nil.
func (v VariableSummary) Stats() map[string]any {
	num := func(n Number) any {
		if !n.Valid {
			return nil
		}
		return n.Value
	}
	inst := func(i Instant) any {
		if !i.Valid {
			return nil
		}
		return i.Value
	}
	switch {
	case v.Kind == Numeric && v.Numeric != nil:
		s := v.Numeric
		return map[string]any{"count": s.Count, "mean": num(s.Mean), "std": num(s.Std), "min": num(s.Min), "max": num(s.Max)}
	case v.Kind == Categorical && v.Categorical != nil:
		return map[string]any{"nunique": v.Categorical.NUnique}
	case v.Kind == Datetime && v.Datetime != nil:
		s := v.Datetime
		return map[string]any{"min": inst(s.Min), "max": inst(s.Max), "nunique": s.NUnique}
	}
	return map[string]any{}
}

// SkippedColumn records a requested column whose storage type has no kind.
type SkippedColumn struct {
	Name    string
	Storage table.StorageType
	Reason  string
}

// Summary is the ordered result of one summarization request.
type Summary struct {
	Variables []VariableSummary
	Skipped   []SkippedColumn
	Warnings  []string
}

// Names returns variable names in order.
func (s *Summary) Names() []string {
	out := make([]string, len(s.Variables))
	for i, v := range s.Variables {
		out[i] = v.Name
	}
	return out
}

// Summarizer computes summaries. The zero value logs nothing.
type Summarizer struct {
	log *slog.Logger
}

// New returns a Summarizer that reports skipped columns to log.
func New(log *slog.Logger) *Summarizer {
	return &Summarizer{log: log}
}

// Summarize uses a Summarizer without logging.
func Summarize(t *table.Table, columns []string) (*Summary, error) {
	return New(nil).Summarize(t, columns)
}

// Summarize validates every requested name before computing anything, then
// classifies each column in request order. Unsupported storage types are
// skipped with a warning; the table is only read.
func (s *Summarizer) Summarize(t *table.Table, columns []string) (*Summary, error) {
	if t == nil {
		return nil, errors.New("summarize: table is nil")
	}
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}
	var missing []string
	seen := make(map[string]bool)
	for _, name := range columns {
		if _, ok := t.Column(name); ok || seen[name] {
			continue
		}
		seen[name] = true
		missing = append(missing, name)
	}
	if len(missing) > 0 {
		return nil, &ColumnNotFoundError{Missing: missing, Available: t.ColumnNames()}
	}

	out := &Summary{Variables: make([]VariableSummary, 0, len(columns))}
	for _, name := range columns {
		col, _ := t.Column(name)
		v, ok := summarizeColumn(col)
		if !ok {
			reason := fmt.Sprintf("storage type %s is not numeric, categorical or datetime", col.Type)
			out.Skipped = append(out.Skipped, SkippedColumn{Name: name, Storage: col.Type, Reason: reason})
			out.Warnings = append(out.Warnings, fmt.Sprintf("skipped column %q: %s", name, reason))
			s.logger().Warn("skipping column", "column", name, "storage", col.Type.String(), "reason", reason)
			continue
		}
		out.Variables = append(out.Variables, v)
	}
	return out, nil
}

func (s *Summarizer) logger() *slog.Logger {
	if s == nil || s.log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.log
}

func summarizeColumn(c *table.Column) (VariableSummary, bool) {
	v := VariableSummary{Name: c.Name}
	switch {
	case c.Type.IsNumeric():
		v.Kind = Numeric
		v.Numeric = numericStats(c)
	case c.Type == table.Category:
		v.Kind = Categorical
		v.Categorical = categoricalStats(c)
	case c.Type == table.Datetime:
		v.Kind = Datetime
		v.Datetime = datetimeStats(c)
	default:
		return v, false
	}
	return v, true
}

func numericStats(c *table.Column) *NumericStats {
	vals := make([]float64, 0, c.Len())
	for i := 0; i < c.Len(); i++ {
		if c.Valid(i) {
			vals = append(vals, c.Float(i))
		}
	}
	st := &NumericStats{Count: len(vals)}
	if len(vals) == 0 {
		return st
	}
	mean, std := stat.MeanStdDev(vals, nil)
	st.Mean = some(mean)
	if len(vals) > 1 {
		st.Std = some(std)
	}
	st.Min = some(floats.Min(vals))
	st.Max = some(floats.Max(vals))
	return st
}

func categoricalStats(c *table.Column) *CategoricalStats {
	seen := make(map[string]struct{})
	for i := 0; i < c.Len(); i++ {
		if c.Valid(i) {
			seen[c.String(i)] = struct{}{}
		}
	}
	return &CategoricalStats{NUnique: len(seen)}
}

func datetimeStats(c *table.Column) *DatetimeStats {
	st := &DatetimeStats{}
	seen := make(map[time.Time]struct{})
	for i := 0; i < c.Len(); i++ {
		if !c.Valid(i) {
			continue
		}
		ts := c.Time(i).UTC()
		seen[ts] = struct{}{}
		if !st.Min.Valid || ts.Before(st.Min.Value) {
			st.Min = Instant{Value: ts, Valid: true}
		}
		if !st.Max.Valid || ts.After(st.Max.Value) {
			st.Max = Instant{Value: ts, Valid: true}
		}
	}
	st.NUnique = len(seen)
	return st
}
