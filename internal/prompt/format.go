package prompt

import (
	"math"
	"strconv"
	"strings"

	"github.com/KaramelBytes/datavizard/internal/summary"
)

// NoData replaces any undefined statistic in rendered text.
const NoData = "no data available"

// TimeLayout renders datetime statistics, always in UTC.
const TimeLayout = "2006-01-02 15:04:05"

// formatMean rounds half away from zero to three decimals and keeps at least
// one decimal digit: 30 -> "30.0", 3.14159 -> "3.142".
func formatMean(n summary.Number) string {
	if !n.Valid || math.IsNaN(n.Value) || math.IsInf(n.Value, 0) {
		return NoData
	}
	v := n.Value
	// Beyond 1e15 a float64 carries no fractional digits and scaling overflows.
	if math.Abs(v) < 1e15 {
		v = math.Round(v*1000) / 1000
	}
	if v == 0 {
		v = 0
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// formatWhole rounds half away from zero to an integer: 2.0 -> "2".
func formatWhole(n summary.Number) string {
	if !n.Valid || math.IsNaN(n.Value) || math.IsInf(n.Value, 0) {
		return NoData
	}
	v := math.Round(n.Value)
	if v == 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', 0, 64)
}

func formatInstant(i summary.Instant) string {
	if !i.Valid {
		return NoData
	}
	return i.Value.UTC().Format(TimeLayout)
}
