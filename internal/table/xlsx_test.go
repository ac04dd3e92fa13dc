package table

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"note"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"cover sheet"}))

	_, err := f.NewSheet("Data")
	require.NoError(t, err)
	rows := [][]any{
		{"age", "city", "joined"},
		{30, "Paris", "2024-01-02"},
		{40, "Lyon", "2024-02-03"},
		{35, "Paris", "2024-03-04"},
		{50, "Paris", ""},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Data", cell, &r))
	}
	path := filepath.Join(t.TempDir(), "dataset.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestXLSXSheetSelection(t *testing.T) {
	path := writeWorkbook(t)

	opt := DefaultOptions()
	opt.SheetName = "data"
	byName, err := Load(context.Background(), path, opt)
	require.NoError(t, err)
	assert.Equal(t, "dataset.xlsx (sheet: Data)", byName.Name)
	assert.Equal(t, 4, byName.Rows())

	opt = DefaultOptions()
	opt.SheetIndex = 2
	byIndex, err := Load(context.Background(), path, opt)
	require.NoError(t, err)
	assert.Equal(t, "dataset.xlsx", byIndex.Name)

	age, ok := byIndex.Column("age")
	require.True(t, ok)
	assert.Equal(t, Int, age.Type)
	city, _ := byIndex.Column("city")
	assert.Equal(t, Category, city.Type)
	joined, _ := byIndex.Column("joined")
	assert.Equal(t, Datetime, joined.Type)
	assert.Equal(t, 3, joined.NonMissing())
}

func TestXLSXMissingSheetListsAvailable(t *testing.T) {
	path := writeWorkbook(t)
	opt := DefaultOptions()
	opt.SheetName = "Nope"
	_, err := Load(context.Background(), path, opt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Available sheets: Sheet1, Data")

	opt = DefaultOptions()
	opt.SheetIndex = 9
	_, err = Load(context.Background(), path, opt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}
