// Package importer turns operator spreadsheets (CSV, XLSX and legacy XLS)
// into ledger rows for the shared row codec.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"apledger/internal/gateway"
)

// maxXLSRows bounds how many rows are read from a legacy workbook.
const maxXLSRows = 100000

var ErrUnsupportedFormat = errors.New("unsupported import format")

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
)

// FormatOf picks the reader from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".xls":
		return FormatXLS, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// File reads path and decodes its first sheet as ledger rows.
func File(path string, opts gateway.DecodeOptions) (gateway.LedgerLoad, error) {
	format, err := FormatOf(path)
	if err != nil {
		return gateway.LedgerLoad{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return gateway.LedgerLoad{}, fmt.Errorf("read %s: %w", path, err)
	}
	rows, err := ReadRows(bytes.NewReader(data), format)
	if err != nil {
		return gateway.LedgerLoad{}, fmt.Errorf("read %s: %w", path, err)
	}
	return gateway.DecodeLedger(rows, opts)
}

// ReadRows returns the cell text of the first sheet, header row first.
func ReadRows(r io.ReadSeeker, format Format) ([][]string, error) {
	var (
		rows [][]string
		err  error
	)
	switch format {
	case FormatCSV:
		rows, err = readCSV(r)
	case FormatXLSX:
		rows, err = readXLSX(r)
	case FormatXLS:
		rows, err = readXLS(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	if format != FormatCSV {
		normalizeDates(rows)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

func readXLS(r io.ReadSeeker) (rows [][]string, err error) {
	// the legacy parser panics on some truncated files
	defer func() {
		if p := recover(); p != nil {
			rows, err = nil, fmt.Errorf("open legacy workbook: %v", p)
		}
	}()
	wb, err := xls.OpenReader(r, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open legacy workbook: %w", err)
	}
	return wb.ReadAllCells(maxXLSRows), nil
}

// normalizeDates rewrites spreadsheet date serials in the Date column as
// ISO dates. Text dates are left for the row codec to parse.
func normalizeDates(rows [][]string) {
	if len(rows) == 0 {
		return
	}
	col := -1
	for i, h := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), gateway.ColDate) {
			col = i
			break
		}
	}
	if col < 0 {
		return
	}
	for _, row := range rows[1:] {
		if col >= len(row) {
			continue
		}
		serial, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
		if err != nil || serial <= 0 {
			continue
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			continue
		}
		row[col] = t.Format("2006-01-02")
	}
}
