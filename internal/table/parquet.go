package table

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
)

type parquetLoader struct{}

func (parquetLoader) CanLoad(path string) bool { return hasExt(path, ".parquet", ".pq") }

// parquetField maps one top-level schema field onto the leaf columns that
// carry its values.
type parquetField struct {
	name    string
	typ     StorageType
	kind    parquet.Kind
	logical string
	leaf    int
	leaves  int
	scale   int

	nums  []float64
	strs  []string
	times []time.Time
	bools []bool
	valid []bool
}

func (parquetLoader) Load(ctx context.Context, path string, opt Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	defer f.Close()

	r := parquet.NewReader(f)
	defer func() { _ = r.Close() }()

	fields := planParquet(r.Schema())
	total := int(r.NumRows())
	limit := total
	if opt.MaxRows > 0 && limit > opt.MaxRows {
		limit = opt.MaxRows
	}
	byLeaf := make(map[int]*parquetField)
	for _, pf := range fields {
		for i := 0; i < pf.leaves; i++ {
			byLeaf[pf.leaf+i] = pf
		}
	}

	buf := make([]parquet.Row, 256)
	read := 0
	for read < limit {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		want := min(len(buf), limit-read)
		n, err := r.ReadRows(buf[:want])
		for _, row := range buf[:n] {
			for _, pf := range fields {
				pf.grow()
			}
			for _, v := range row {
				pf := byLeaf[v.Column()]
				if pf == nil || v.IsNull() {
					continue
				}
				pf.set(read, v)
			}
			read++
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read parquet rows: %w", err)
		}
		if n == 0 {
			break
		}
	}

	cols := make([]*Column, len(fields))
	for i, pf := range fields {
		cols[i] = pf.column(opt)
	}
	t, err := New(filepath.Base(path), cols...)
	if err != nil {
		return nil, err
	}
	if total > read {
		t.Warnings = append(t.Warnings, fmt.Sprintf("processed only %d/%d rows due to MaxRows", read, total))
	}
	return t, nil
}

func planParquet(schema *parquet.Schema) []*parquetField {
	var out []*parquetField
	leaf := 0
	for _, fd := range schema.Fields() {
		pf := &parquetField{name: fd.Name(), leaf: leaf, leaves: countLeaves(fd)}
		leaf += pf.leaves
		if !fd.Leaf() || fd.Repeated() {
			pf.typ = Nested
			out = append(out, pf)
			continue
		}
		pf.kind = fd.Type().Kind()
		pf.logical = strings.ToUpper(fd.Type().String())
		pf.typ, pf.scale = parquetStorage(pf.kind, pf.logical)
		out = append(out, pf)
	}
	return out
}

func countLeaves(n parquet.Node) int {
	if n.Leaf() {
		return 1
	}
	c := 0
	for _, f := range n.Fields() {
		c += countLeaves(f)
	}
	return c
}

// parquetStorage maps a physical kind plus its logical annotation (as printed
// by the schema) to a storage type. The second result is the decimal scale.
func parquetStorage(kind parquet.Kind, logical string) (StorageType, int) {
	switch {
	case strings.HasPrefix(logical, "TIMESTAMP"), logical == "DATE":
		return Datetime, 0
	case logical == "ENUM":
		return Category, 0
	case strings.HasPrefix(logical, "DECIMAL"):
		return Float, decimalScale(logical)
	case logical == "STRING" || logical == "UTF8" || logical == "JSON":
		return Text, 0
	}
	switch kind {
	case parquet.Boolean:
		return Bool, 0
	case parquet.Int32, parquet.Int64:
		return Int, 0
	case parquet.Float, parquet.Double:
		return Float, 0
	}
	return Binary, 0
}

// decimalScale extracts s from "DECIMAL(p,s)".
func decimalScale(logical string) int {
	open, end := strings.IndexByte(logical, '('), strings.IndexByte(logical, ')')
	if open < 0 || end < open {
		return 0
	}
	parts := strings.Split(logical[open+1:end], ",")
	if len(parts) != 2 {
		return 0
	}
	s, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0
	}
	return s
}

func (pf *parquetField) grow() {
	pf.valid = append(pf.valid, false)
	switch pf.typ {
	case Int, Float:
		pf.nums = append(pf.nums, 0)
	case Text, Category:
		pf.strs = append(pf.strs, "")
	case Datetime:
		pf.times = append(pf.times, time.Time{})
	case Bool:
		pf.bools = append(pf.bools, false)
	}
}

func (pf *parquetField) set(row int, v parquet.Value) {
	pf.valid[row] = true
	switch pf.typ {
	case Int, Float:
		pf.nums[row] = pf.number(v)
	case Text, Category:
		pf.strs[row] = string(v.ByteArray())
	case Datetime:
		pf.times[row] = pf.instant(v)
	case Bool:
		pf.bools[row] = v.Boolean()
	}
}

func (pf *parquetField) number(v parquet.Value) float64 {
	var x float64
	switch pf.kind {
	case parquet.Int32:
		x = float64(v.Int32())
	case parquet.Int64:
		x = float64(v.Int64())
	case parquet.Float:
		x = float64(v.Float())
	case parquet.Double:
		x = v.Double()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		x = bigEndianSigned(v.ByteArray())
	}
	if pf.scale > 0 {
		x /= math.Pow10(pf.scale)
	}
	return x
}

func (pf *parquetField) instant(v parquet.Value) time.Time {
	if pf.logical == "DATE" {
		return time.Unix(int64(v.Int32())*86400, 0).UTC()
	}
	x := v.Int64()
	switch {
	case strings.Contains(pf.logical, "MILLIS"):
		return time.UnixMilli(x).UTC()
	case strings.Contains(pf.logical, "MICROS"):
		return time.UnixMicro(x).UTC()
	default:
		return time.Unix(0, x).UTC()
	}
}

func bigEndianSigned(b []byte) float64 {
	if len(b) == 0 {
		return 0
	}
	n := new(big.Int).SetBytes(b)
	if b[0]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8)))
	}
	f, _ := new(big.Float).SetInt(n).Float64()
	return f
}

func (pf *parquetField) column(opt Options) *Column {
	switch pf.typ {
	case Int, Float:
		return NewNumeric(pf.name, pf.typ, pf.nums, pf.valid)
	case Category:
		return NewStrings(pf.name, Category, pf.strs, pf.valid)
	case Text:
		return stringColumn(pf.name, pf.strs, pf.valid, opt)
	case Datetime:
		return NewTimes(pf.name, pf.times, pf.valid)
	case Bool:
		return NewBools(pf.name, pf.bools, pf.valid)
	}
	return NewOpaque(pf.name, pf.typ, len(pf.valid), pf.valid)
}
