package summary

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/datavizard/internal/table"
)

func peopleTable() *table.Table {
	return table.MustNew("people",
		table.NewNumeric("age", table.Int, []float64{20, 30, 40}, nil),
		table.NewStrings("city", table.Category, []string{"Paris", "Lyon", "Paris"}, nil),
		table.NewStrings("comment", table.Text, []string{"a", "b", "c"}, nil),
		table.NewTimes("seen", []time.Time{
			time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		}, nil),
		table.NewBools("active", []bool{true, false, true}, nil),
		table.NewNumeric("empty", table.Float, []float64{0, 0, 0}, []bool{false, false, false}),
	)
}

func TestSummarizeNumericAndCategorical(t *testing.T) {
	s, err := Summarize(peopleTable(), []string{"age", "city"})
	require.NoError(t, err)
	require.Len(t, s.Variables, 2)

	age := s.Variables[0]
	assert.Equal(t, "age", age.Name)
	assert.Equal(t, Numeric, age.Kind)
	assert.Equal(t, 3, age.Numeric.Count)
	assert.InDelta(t, 30.0, age.Numeric.Mean.Value, 1e-12)
	assert.InDelta(t, 10.0, age.Numeric.Std.Value, 1e-12, "sample standard deviation")
	assert.Equal(t, 20.0, age.Numeric.Min.Value)
	assert.Equal(t, 40.0, age.Numeric.Max.Value)

	city := s.Variables[1]
	assert.Equal(t, Categorical, city.Kind)
	assert.Equal(t, 2, city.Categorical.NUnique)
	assert.Equal(t, map[string]any{"nunique": 2}, city.Stats())
}

func TestSummarizeDatetime(t *testing.T) {
	s, err := Summarize(peopleTable(), []string{"seen"})
	require.NoError(t, err)
	dt := s.Variables[0].Datetime
	require.NotNil(t, dt)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), dt.Min.Value)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), dt.Max.Value)
	assert.Equal(t, 2, dt.NUnique)

	keys := s.Variables[0].Stats()
	assert.Len(t, keys, 3)
	assert.NotContains(t, keys, "count")
	assert.NotContains(t, keys, "mean")
}

func TestSummarizeFailsWholeRequestOnMissingNames(t *testing.T) {
	s, err := Summarize(peopleTable(), []string{"age", "nope", "city", "gone", "nope"})
	require.Error(t, err)
	assert.Nil(t, s)
	assert.True(t, errors.Is(err, ErrColumnNotFound))

	var nf *ColumnNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, []string{"nope", "gone"}, nf.Missing)
	assert.Contains(t, err.Error(), `"nope", "gone"`)
}

func TestSummarizeSkipsUnsupportedTypes(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	s, err := New(log).Summarize(peopleTable(), []string{"comment", "age", "active", "city"})
	require.NoError(t, err)

	assert.Equal(t, []string{"age", "city"}, s.Names())
	require.Len(t, s.Skipped, 2)
	assert.Equal(t, "comment", s.Skipped[0].Name)
	assert.Equal(t, table.Text, s.Skipped[0].Storage)
	assert.Equal(t, table.Bool, s.Skipped[1].Storage)
	assert.Len(t, s.Warnings, 2)
	assert.Contains(t, buf.String(), "column=comment")
	assert.Contains(t, buf.String(), "level=WARN")
}

func TestSummarizeSingleUnsupportedColumn(t *testing.T) {
	s, err := Summarize(peopleTable(), []string{"age", "city", "comment"})
	require.NoError(t, err)
	assert.Len(t, s.Variables, 2)
	assert.Len(t, s.Warnings, 1)
}

func TestSummarizeNoData(t *testing.T) {
	s, err := Summarize(peopleTable(), []string{"empty"})
	require.NoError(t, err)
	st := s.Variables[0].Numeric
	assert.Equal(t, 0, st.Count)
	assert.False(t, st.Mean.Valid)
	assert.False(t, st.Std.Valid)
	assert.False(t, st.Min.Valid)
	assert.False(t, st.Max.Valid)
	assert.Nil(t, s.Variables[0].Stats()["mean"])
}

func TestSummarizeSingleValueHasNoStd(t *testing.T) {
	tb := table.MustNew("one", table.NewNumeric("x", table.Float, []float64{4.5, math.NaN()}, nil))
	s, err := Summarize(tb, []string{"x"})
	require.NoError(t, err)
	st := s.Variables[0].Numeric
	assert.Equal(t, 1, st.Count)
	assert.True(t, st.Mean.Valid)
	assert.False(t, st.Std.Valid)
}

func TestSummarizeDuplicatesAndZeroRows(t *testing.T) {
	s, err := Summarize(peopleTable(), []string{"age", "age"})
	require.NoError(t, err)
	assert.Equal(t, []string{"age", "age"}, s.Names())

	empty := table.MustNew("empty", table.NewStrings("c", table.Category, nil, nil))
	s, err = Summarize(empty, []string{"c"})
	require.NoError(t, err)
	assert.Equal(t, 0, s.Variables[0].Categorical.NUnique)
}

func TestSummarizeRejectsEmptyRequest(t *testing.T) {
	_, err := Summarize(peopleTable(), nil)
	assert.ErrorIs(t, err, ErrNoColumns)
	_, err = Summarize(nil, []string{"a"})
	assert.Error(t, err)
}
