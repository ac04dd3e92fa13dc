package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var missingTokens = map[string]struct{}{
	"": {}, "na": {}, "n/a": {}, "nan": {}, "null": {}, "none": {}, "<na>": {},
}

func isMissing(s string) bool {
	_, ok := missingTokens[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// headerNames cleans raw header cells: blanks become "Unnamed: i" and
// repeated names get a ".n" suffix so every column stays addressable.
func headerNames(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[name]; dup {
			base := name
			for {
				n++
				name = fmt.Sprintf("%s.%d", base, n)
				if _, taken := seen[name]; !taken {
					break
				}
			}
			seen[base] = n
		}
		seen[name] = 0
		out[i] = name
	}
	return out
}

// columnsFromRecords infers one typed column per header entry from raw cell text.
func columnsFromRecords(header []string, records [][]string, opt Options) []*Column {
	names := headerNames(header)
	cols := make([]*Column, len(names))
	raw := make([]string, len(records))
	for j, name := range names {
		for i, rec := range records {
			if j < len(rec) {
				raw[i] = rec[j]
			} else {
				raw[i] = ""
			}
		}
		cols[j] = inferColumn(name, raw, opt)
	}
	return cols
}

// inferColumn picks the narrowest storage type that every non-missing cell
// satisfies: int, float, bool, datetime, then category or text.
func inferColumn(name string, raw []string, opt Options) *Column {
	n := len(raw)
	valid := make([]bool, n)
	vals := make([]string, n)
	allInt, allNum, allBool, allTime := true, true, true, true
	nonMissing := 0
	for i, s := range raw {
		s = strings.TrimSpace(s)
		vals[i] = s
		if isMissing(s) {
			continue
		}
		valid[i] = true
		nonMissing++
		if allInt {
			if _, err := strconv.ParseInt(s, 10, 64); err != nil {
				allInt = false
			}
		}
		if allNum {
			if _, ok := parseNumeric(s, opt); !ok {
				allNum = false
			}
		}
		if allBool {
			if _, ok := parseBool(s); !ok {
				allBool = false
			}
		}
		if allTime {
			if _, ok := parseTimeMaybe(s); !ok {
				allTime = false
			}
		}
	}

	if isForcedCategory(name, opt) {
		return NewStrings(name, Category, vals, valid)
	}
	if nonMissing == 0 {
		return NewNumeric(name, Float, make([]float64, n), valid)
	}
	switch {
	case allInt || allNum:
		typ := Float
		if allInt {
			typ = Int
		}
		nums := make([]float64, n)
		for i, s := range vals {
			if !valid[i] {
				continue
			}
			if allInt {
				x, _ := strconv.ParseInt(s, 10, 64)
				nums[i] = float64(x)
			} else {
				nums[i], _ = parseNumeric(s, opt)
			}
		}
		return NewNumeric(name, typ, nums, valid)
	case allBool:
		bs := make([]bool, n)
		for i, s := range vals {
			if valid[i] {
				bs[i], _ = parseBool(s)
			}
		}
		return NewBools(name, bs, valid)
	case allTime:
		ts := make([]time.Time, n)
		for i, s := range vals {
			if valid[i] {
				ts[i], _ = parseTimeMaybe(s)
			}
		}
		return NewTimes(name, ts, valid)
	}
	return stringColumn(name, vals, valid, opt)
}

// stringColumn decides between Category and Text for string data.
func stringColumn(name string, vals []string, valid []bool, opt Options) *Column {
	if isForcedCategory(name, opt) || looksCategorical(vals, valid, opt.CategoryMaxUnique) {
		return NewStrings(name, Category, vals, valid)
	}
	return NewStrings(name, Text, vals, valid)
}

func looksCategorical(vals []string, valid []bool, maxUnique int) bool {
	if maxUnique < 0 {
		return false
	}
	if maxUnique == 0 {
		maxUnique = DefaultOptions().CategoryMaxUnique
	}
	seen := make(map[string]struct{})
	nonMissing := 0
	for i, v := range vals {
		if !valid[i] {
			continue
		}
		nonMissing++
		seen[v] = struct{}{}
		if len(seen) > maxUnique {
			return false
		}
	}
	return nonMissing > 0 && len(seen)*2 <= nonMissing
}

func isForcedCategory(name string, opt Options) bool {
	for _, c := range opt.Categories {
		if strings.EqualFold(strings.TrimSpace(c), name) {
			return true
		}
	}
	return false
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true", "yes":
		return true, true
	case "false", "no":
		return false, true
	}
	return false, false
}

var timeLayouts = []string{
	time.RFC3339Nano, time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "2006-01-02T15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
}

func parseTimeMaybe(s string) (time.Time, bool) {
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0 && cpos > dpos:
			dec, thou = ',', '.'
		case cpos >= 0 && dpos >= 0:
			dec, thou = '.', ','
		case cpos >= 0:
			dec = ','
		default:
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
