package table

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const peopleCSV = `age,height,city,joined,active,comment
30,1.80,Paris,2024-01-02,true,first visit
40,1.65,Lyon,2024-02-03,false,second visit
NA,1.70,Paris,2024-03-04,true,third
35,,Paris,,false,fourth
`

func TestReadCSVInfersStorageTypes(t *testing.T) {
	tb, err := ReadCSV(strings.NewReader(peopleCSV), "people.csv", DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, 4, tb.Rows())

	want := map[string]StorageType{
		"age":     Int,
		"height":  Float,
		"city":    Category,
		"joined":  Datetime,
		"active":  Bool,
		"comment": Text,
	}
	for name, typ := range want {
		c, ok := tb.Column(name)
		require.True(t, ok, name)
		assert.Equal(t, typ, c.Type, name)
	}

	age, _ := tb.Column("age")
	assert.Equal(t, 3, age.NonMissing())
	assert.False(t, age.Valid(2))
	assert.Equal(t, 35.0, age.Float(3))

	joined, _ := tb.Column("joined")
	assert.Equal(t, time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC), joined.Time(1))
}

func TestReadCSVLocaleNumbersAndForcedCategory(t *testing.T) {
	in := "score;grade\n\"1.000,5\";1\n\"2.000,25\";2\n\"3,5\";1\n"
	opt := DefaultOptions()
	opt.Delimiter = ';'
	opt.Categories = []string{"Grade"}
	tb, err := ReadCSV(strings.NewReader(in), "scores.csv", opt)
	require.NoError(t, err)

	score, _ := tb.Column("score")
	require.Equal(t, Float, score.Type)
	assert.InDelta(t, 1000.5, score.Float(0), 1e-9)
	assert.InDelta(t, 2000.25, score.Float(1), 1e-9)
	assert.InDelta(t, 3.5, score.Float(2), 1e-9)

	grade, _ := tb.Column("grade")
	assert.Equal(t, Category, grade.Type)
	assert.Equal(t, "2", grade.String(1))
}

func TestReadCSVHeadersAndMaxRows(t *testing.T) {
	in := "a,,a\n1,2,3\n4,5,6\n7,8,9\n"
	opt := DefaultOptions()
	opt.MaxRows = 2
	tb, err := ReadCSV(strings.NewReader(in), "x.csv", opt)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "Unnamed: 1", "a.1"}, tb.ColumnNames())
	assert.Equal(t, 2, tb.Rows())
	require.Len(t, tb.Warnings, 1)
	assert.Contains(t, tb.Warnings[0], "processed only 2/3 rows")
}

func TestReadCSVGeneratedHeaderDoesNotCollide(t *testing.T) {
	tb, err := ReadCSV(strings.NewReader("a,a,a.1\n1,2,3\n"), "x.csv", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a.1", "a.1.1"}, tb.ColumnNames())

	tb, err = ReadCSV(strings.NewReader("a,a.1,a\n1,2,3\n"), "y.csv", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a.1", "a.2"}, tb.ColumnNames())
}

func TestReadCSVNumericLookingCellBlocksDatetime(t *testing.T) {
	tb, err := ReadCSV(strings.NewReader("when\n2020\n2021-03-04\n"), "w.csv", DefaultOptions())
	require.NoError(t, err)
	c, _ := tb.Column("when")
	assert.NotEqual(t, Datetime, c.Type)
	assert.Equal(t, "2020", c.String(0))

	tb, err = ReadCSV(strings.NewReader("when\n2021-03-04\n2022-01-01\n"), "w.csv", DefaultOptions())
	require.NoError(t, err)
	c, _ = tb.Column("when")
	require.Equal(t, Datetime, c.Type)
	for i := 0; i < c.Len(); i++ {
		assert.False(t, c.Time(i).IsZero(), "row %d", i)
	}
}

func TestReadCSVEmptyAndAllMissing(t *testing.T) {
	tb, err := ReadCSV(strings.NewReader(""), "empty.csv", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, tb.Rows())
	assert.Empty(t, tb.Columns)

	tb, err = ReadCSV(strings.NewReader("x,y\n,1\nnull,2\n"), "m.csv", DefaultOptions())
	require.NoError(t, err)
	x, _ := tb.Column("x")
	assert.Equal(t, Float, x.Type)
	assert.Equal(t, 0, x.NonMissing())
}

func TestHighCardinalityStringsStayText(t *testing.T) {
	var b strings.Builder
	b.WriteString("id\n")
	for i := 0; i < 30; i++ {
		b.WriteString("user-")
		b.WriteByte(byte('a' + i%26))
		b.WriteByte(byte('a' + i/26))
		b.WriteByte('\n')
	}
	tb, err := ReadCSV(strings.NewReader(b.String()), "ids.csv", DefaultOptions())
	require.NoError(t, err)
	c, _ := tb.Column("id")
	assert.Equal(t, Text, c.Type)
}

func TestLoadDispatchesByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "people.tsv")
	require.NoError(t, os.WriteFile(path, []byte("age\tcity\n1\tx\n2\tx\n"), 0o644))

	tb, err := Load(context.Background(), path, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "people.tsv", tb.Name)
	assert.Equal(t, []string{"age", "city"}, tb.ColumnNames())

	_, err = Load(context.Background(), filepath.Join(dir, "notes.docx"), DefaultOptions())
	assert.True(t, errors.Is(err, ErrUnsupported))

	opt := DefaultOptions()
	opt.Engine = "spark"
	_, err = Load(context.Background(), path, opt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown engine")
}
