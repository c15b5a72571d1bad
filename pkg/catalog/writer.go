package catalog

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// BuildImageIndex собирает индекс только по записям с картинкой.
func BuildImageIndex(entries []Entry) ImageIndex {
	index := make(ImageIndex, len(entries))
	for _, e := range entries {
		if e.ImageURL == "" {
			continue
		}
		index[e.SKU] = ImageIndexEntry{
			ImageURL:      e.ImageURL,
			ImageFilename: e.ImageFilename,
			SourceURL:     e.SourceURL,
		}
	}
	return index
}

// EncodeCleanedCSV пишет записи в w с заголовком CleanedColumns.
func EncodeCleanedCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CleanedColumns); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write(entryRecord(e)); err != nil {
			return fmt.Errorf("write %s: %w", e.SKU, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func entryRecord(e Entry) []string {
	caseSize := ""
	if e.CaseSize != nil {
		caseSize = strconv.Itoa(*e.CaseSize)
	}
	unitSize := ""
	if e.UnitSize != nil {
		unitSize = *e.UnitSize
	}
	return []string{
		e.SKU,
		e.Name,
		e.CanonicalCategory,
		e.Subcategory,
		e.Department,
		e.Vendor,
		formatPrice(e.Price),
		e.Currency,
		formatBool(e.IsWholesale),
		caseSize,
		unitSize,
		e.Unit,
		e.TemperatureZone,
		e.Tags,
		e.ImageURL,
		e.ImageFilename,
		e.SourceURL,
	}
}

// formatPrice пишет цену как "2.0" / "2.49": внешние потребители CSV ждут точку.
func formatPrice(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// formatBool — "True"/"False", как в исходной выгрузке.
func formatBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

// WriteCleanedCSV пишет очищенный CSV, создавая недостающие каталоги.
func WriteCleanedCSV(path string, entries []Entry) error {
	var buf bytes.Buffer
	if err := EncodeCleanedCSV(&buf, entries); err != nil {
		return fmt.Errorf("encode cleaned csv: %w", err)
	}
	return writeFile(path, buf.Bytes())
}

// WriteSummary пишет сводку с отступами. Не-ASCII символы остаются как есть.
func WriteSummary(path string, summary Summary) error {
	data, err := marshalIndent(summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return writeFile(path, data)
}

// WriteImageIndex пишет индекс картинок.
func WriteImageIndex(path string, index ImageIndex) error {
	data, err := marshalIndent(index)
	if err != nil {
		return fmt.Errorf("encode image index: %w", err)
	}
	return writeFile(path, data)
}

func marshalIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir for %s: %w", path, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
