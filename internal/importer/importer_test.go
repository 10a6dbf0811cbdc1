package importer

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"apledger/internal/core"
	"apledger/internal/gateway"
)

func seq() core.IDFunc {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("imp-%d", n)
	}
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"payables.csv", FormatCSV},
		{"PAYABLES.XLSX", FormatXLSX},
		{"old/export.xls", FormatXLS},
		{"macro.xlsm", FormatXLSX},
	}
	for _, tt := range tests {
		got, err := FormatOf(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}

	_, err := FormatOf("notes.txt")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFileCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.csv")
	content := "\ufeffDate,Vendor,Currency,Amount_F,Ex_Rate,Status,Is_Fixed\n" +
		"2024-06-01,Landlord,KRW,\"1,500,000\",,Wait,TRUE\n" +
		"2024-06-05,AWS,USD,100.5,1350,Wait,FALSE\n" +
		"not a date,Broken,KRW,1,1,Wait,FALSE\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	load, err := File(path, gateway.DecodeOptions{NewID: seq()})
	require.NoError(t, err)
	assert.Equal(t, 1, load.Dropped)
	require.Len(t, load.Records, 2)

	assert.Equal(t, "imp-1", load.Records[0].ID)
	assert.Equal(t, int64(1500000), load.Records[0].Money.Base())
	assert.True(t, load.Records[0].Recurring)
	assert.Equal(t, int64(135675), load.Records[1].Money.Base())
	assert.Equal(t, "2024-06-05", load.Records[1].DueDate.String())
}

func TestFileCSVStrict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edit.csv")
	content := "Date,Vendor,Currency,Amount_F,Ex_Rate,Status,Is_Fixed,ID\n" +
		"2024-06-01,Ok,KRW,1,1,Wait,false,a\n" +
		"2024-06-01,Bad,KRW,-5,1,Wait,false,b\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := File(path, gateway.DecodeOptions{Strict: true})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}

func TestReadRowsXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"Date", "Vendor", "Currency", "Amount_F", "Ex_Rate"},
		{time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), "Serial date", "USD", 10, 1350},
		{"2024-06-02", "Text date", "KRW", 5000, 1},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	got, err := ReadRows(bytes.NewReader(buf.Bytes()), FormatXLSX)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "2024-06-01", got[1][0])
	assert.Equal(t, "2024-06-02", got[2][0])

	load, err := gateway.DecodeLedger(got, gateway.DecodeOptions{NewID: seq()})
	require.NoError(t, err)
	require.Len(t, load.Records, 2)
	assert.Equal(t, int64(13500), load.Records[0].Money.Base())
	assert.True(t, load.Records[0].Money.Rate.Equal(decimal.NewFromInt(1350)))
	assert.Equal(t, int64(5000), load.Records[1].Money.Base())
}

func TestReadRowsRejectsBrokenWorkbooks(t *testing.T) {
	_, err := ReadRows(strings.NewReader("not a zip"), FormatXLSX)
	assert.Error(t, err)

	_, err = ReadRows(strings.NewReader("not an ole2 file"), FormatXLS)
	assert.Error(t, err)

	_, err = ReadRows(strings.NewReader(""), Format("ods"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestNormalizeDatesLeavesTextAlone(t *testing.T) {
	rows := [][]string{
		{"Vendor", "date"},
		{"A", "45444"},
		{"B", "2024/06/03"},
		{"C"},
	}
	normalizeDates(rows)
	assert.Equal(t, "2024-06-01", rows[1][1])
	assert.Equal(t, "2024/06/03", rows[2][1])
	assert.Len(t, rows[3], 1)
}
