package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadRawRows_CSV(t *testing.T) {
	rows, err := ReadRawRows(fixturePath)
	require.NoError(t, err)
	require.Len(t, rows, 5)

	assert.Equal(t, "LD-0001", rows[0].SKU)
	assert.Equal(t, "asian, noodles, asian", rows[0].Tags)
	assert.Equal(t, "111", rows[0].VariantID)
	assert.Equal(t, "", rows[2].SKU)
}

func TestReadRecords_BOMAndShortRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bom.csv")
	content := "\ufeffSKU,Product_Title,Price\nA-1,Rice\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	recs, err := ReadRecords(path)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "A-1", recs[0]["sku"])
	assert.Equal(t, "Rice", recs[0]["product_title"])
	assert.Equal(t, "", recs[0]["price"])
}

func TestReadRawRows_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"sku", "product_title", "price", "image_url"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"X-1", "Jasmine Rice 5kg", "12.5", "https://cdn/x.jpg"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"X-2", "Green Tea"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	rows, err := ReadRawRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "X-1", rows[0].SKU)
	assert.Equal(t, "12.5", rows[0].Price)
	assert.Equal(t, "Green Tea", rows[1].ProductTitle)
	assert.Equal(t, "", rows[1].ImageURL)
}

func TestReadRawRows_MissingFile(t *testing.T) {
	_, err := ReadRawRows(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestParseImageIndex(t *testing.T) {
	index, err := ParseImageIndex([]byte(`{"A": {"image_url": "u", "image_filename": "a.jpg", "source_url": "s"}}`))
	require.NoError(t, err)
	assert.Equal(t, ImageIndexEntry{ImageURL: "u", ImageFilename: "a.jpg", SourceURL: "s"}, index["A"])

	index, err = ParseImageIndex([]byte(`null`))
	require.NoError(t, err)
	assert.NotNil(t, index)

	_, err = ParseImageIndex([]byte(`[1,2]`))
	assert.Error(t, err)
}
