package catalog

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadRawRows читает сырую выгрузку поставщика (.csv или .xlsx).
// Строки без SKU не отбрасываются: их учитывает Cleaner в total_rows.
func ReadRawRows(path string) ([]RawVariantRow, error) {
	records, err := ReadRecords(path)
	if err != nil {
		return nil, err
	}

	rows := make([]RawVariantRow, len(records))
	for i, rec := range records {
		rows[i] = rawFromRecord(rec)
	}
	return rows, nil
}

// ReadRecords читает табличный файл в список записей "колонка → значение".
//
// Имена колонок приводятся к нижнему регистру, BOM в начале файла снимается.
// Короткие строки дополняются пустыми значениями.
func ReadRecords(path string) ([]map[string]string, error) {
	var (
		table [][]string
		err   error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		table, err = readXLSX(path)
	default:
		table, err = readCSV(path)
	}
	if err != nil {
		return nil, err
	}
	if len(table) == 0 {
		return nil, nil
	}

	header := make([]string, len(table[0]))
	for i, name := range table[0] {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		header[i] = strings.ToLower(strings.TrimSpace(name))
	}

	records := make([]map[string]string, 0, len(table)-1)
	for _, row := range table[1:] {
		rec := make(map[string]string, len(header))
		for i, col := range header {
			if col == "" {
				continue
			}
			if i < len(row) {
				rec[col] = row[i]
			} else {
				rec[col] = ""
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var table [][]string
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		table = append(table, row)
	}
	return table, nil
}

// readXLSX читает первый лист книги.
func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: workbook has no sheets", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q of %s: %w", sheets[0], path, err)
	}
	return rows, nil
}

// ParseImageIndex разбирает JSON индекса картинок.
func ParseImageIndex(data []byte) (ImageIndex, error) {
	var index ImageIndex
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("decode image index: %w", err)
	}
	if index == nil {
		index = ImageIndex{}
	}
	return index, nil
}

// ReadImageIndex читает индекс картинок с диска.
func ReadImageIndex(path string) (ImageIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image index: %w", err)
	}
	return ParseImageIndex(data)
}
