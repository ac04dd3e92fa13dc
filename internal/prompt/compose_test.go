package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/datavizard/internal/summary"
	"github.com/KaramelBytes/datavizard/internal/table"
)

func num(v float64) summary.Number { return summary.Number{Value: v, Valid: true} }

func TestComposeEndToEnd(t *testing.T) {
	tb := table.MustNew("people",
		table.NewNumeric("age", table.Int, []float64{20, 30, 40}, nil),
		table.NewStrings("city", table.Category, []string{"Paris", "Lyon", "Paris"}, nil),
	)
	s, err := summary.Summarize(tb, []string{"age", "city"})
	require.NoError(t, err)
	require.Len(t, s.Variables, 2)

	p := ComposeSummary(s, tb.Rows(), "focus on age")
	assert.Contains(t, p, "Variable #1 is age. It consists of numeric data and it has 3 datapoints. "+
		"This variable has a mean of 30.0, standard deviation of 10, minimum of 20, and a maximum of 40.")
	assert.Contains(t, p, "Variable #2 is city. It consists of categorical data and it has 3 datapoints. There are 2 unique categories.")
	assert.Contains(t, p, "The variables described above are: age, city.")
	assert.True(t, strings.HasSuffix(p, "<focus on age>"))
	assert.Contains(t, p, "DataFrame named df")
}

func TestComposeIsDeterministic(t *testing.T) {
	vars := []summary.VariableSummary{
		{Name: "x", Kind: summary.Numeric, Numeric: &summary.NumericStats{Count: 3, Mean: num(1.23456), Std: num(0.5), Min: num(-0.4), Max: num(2.5)}},
		{Name: "d", Kind: summary.Datetime, Datetime: &summary.DatetimeStats{
			Min:     summary.Instant{Value: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), Valid: true},
			Max:     summary.Instant{Value: time.Date(2024, 2, 2, 0, 0, 0, 0, time.FixedZone("X", 3600)), Valid: true},
			NUnique: 7,
		}},
	}
	a := Compose(vars, 10, "n")
	b := Compose(vars, 10, "n")
	assert.Equal(t, a, b)
	assert.Contains(t, a, "mean of 1.235, standard deviation of 1, minimum of 0, and a maximum of 3.")
	assert.Contains(t, a, "The values range from a minimum of 2024-01-02 03:04:05 to a maximum of 2024-02-01 23:00:00, with 7 unique values.")
}

func TestRoundingContract(t *testing.T) {
	v := summary.VariableSummary{Name: "pi", Kind: summary.Numeric,
		Numeric: &summary.NumericStats{Count: 2, Mean: num(3.14159), Std: num(2.0), Min: num(1), Max: num(5)}}
	p := Compose([]summary.VariableSummary{v}, 2, "")
	assert.Contains(t, p, "mean of 3.142,")
	assert.Contains(t, p, "standard deviation of 2,")

	cases := map[float64]string{30: "30.0", 2.5: "2.5", -2.0004: "-2.0", -1.25: "-1.25", 1e-9: "0.0", -1e-9: "0.0"}
	for in, want := range cases {
		assert.Equal(t, want, formatMean(num(in)), "mean %v", in)
	}
	whole := map[float64]string{2.5: "3", -2.5: "-3", -0.2: "0", 1234.49: "1234"}
	for in, want := range whole {
		assert.Equal(t, want, formatWhole(num(in)), "whole %v", in)
	}
}

func TestHugeMeanStaysFinite(t *testing.T) {
	for _, in := range []float64{1e306, -1e306, 1.5e15} {
		got := formatMean(num(in))
		assert.NotContains(t, got, "Inf", "mean %v", in)
		assert.True(t, strings.HasSuffix(got, ".0"), "mean %v -> %s", in, got)
	}
	assert.Equal(t, "1500000000000000.0", formatMean(num(1.5e15)))
}

func TestNoDataPlaceholder(t *testing.T) {
	v := summary.VariableSummary{Name: "empty", Kind: summary.Numeric, Numeric: &summary.NumericStats{}}
	d := summary.VariableSummary{Name: "when", Kind: summary.Datetime, Datetime: &summary.DatetimeStats{}}
	p := Compose([]summary.VariableSummary{v, d}, 0, "")
	assert.Contains(t, p, "mean of no data available, standard deviation of no data available, minimum of no data available, and a maximum of no data available.")
	assert.Contains(t, p, "minimum of no data available to a maximum of no data available, with 0 unique values.")
	assert.NotContains(t, p, "NaN")
}

func TestEmptyNotesAndNoVariables(t *testing.T) {
	p := Compose(nil, 5, "")
	assert.True(t, strings.HasSuffix(p, "Here are a few additional notes for guidance: <>"))
	assert.True(t, strings.HasPrefix(p, "No variables were summarized."))
	assert.Equal(t, p, ComposeSummary(nil, 5, ""))
}

func TestNumberingFollowsSurvivingColumns(t *testing.T) {
	tb := table.MustNew("t",
		table.NewStrings("note", table.Text, []string{"a", "b"}, nil),
		table.NewNumeric("x", table.Float, []float64{1, 2}, nil),
		table.NewBools("flag", []bool{true, false}, nil),
		table.NewStrings("c", table.Category, []string{"a", "a"}, nil),
	)
	s, err := summary.Summarize(tb, []string{"note", "x", "flag", "c"})
	require.NoError(t, err)
	p := ComposeSummary(s, tb.Rows(), "")
	assert.Contains(t, p, "Variable #1 is x.")
	assert.Contains(t, p, "Variable #2 is c.")
	assert.NotContains(t, p, "Variable #3")
	assert.NotContains(t, p, "note.")
}

func TestComposeFollowUp(t *testing.T) {
	p := ComposeFollowUp("\nplt.plot(df.x)\n", " Add a black background ")
	assert.True(t, strings.HasPrefix(p, "Following is a piece of python code for visualizations: ```\nplt.plot(df.x)\n```"))
	assert.Contains(t, p, "based on the following feedback - ```Add a black background```")
}
