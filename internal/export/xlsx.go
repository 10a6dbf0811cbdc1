package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	fontFamily  = "맑은 고딕"
	fontSize    = 10
	headerFill  = "D9EAD3"
	totalFill   = "FFF2CC"
	totalColor  = "0000FF"
	columnWidth = 20
	// built-in number format "#,##0"
	thousandsFmt = 3
)

type styles struct {
	header, cell, amount, totalLabel, totalAmount int
}

// WriteXLSX lays the document out as a styled workbook. The total cell
// carries the computed integer, not a formula.
func WriteXLSX(w io.Writer, doc Document) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := doc.Sheet
	if sheet == "" {
		sheet = SheetName
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	st, err := newStyles(f)
	if err != nil {
		return err
	}

	for col, h := range doc.Header {
		if err := setCell(f, sheet, col+1, 1, h, st.header); err != nil {
			return err
		}
	}

	row := 2
	for _, r := range doc.Rows {
		if err := setCell(f, sheet, 1, row, r.Date, st.cell); err != nil {
			return err
		}
		if err := setCell(f, sheet, 2, row, r.Vendor, st.cell); err != nil {
			return err
		}
		if err := setCell(f, sheet, 3, row, r.Amount, st.amount); err != nil {
			return err
		}
		row++
	}

	if err := setCell(f, sheet, 1, row, "", st.totalLabel); err != nil {
		return err
	}
	if err := setCell(f, sheet, 2, row, TotalLabel, st.totalLabel); err != nil {
		return err
	}
	if err := setCell(f, sheet, 3, row, doc.Total, st.totalAmount); err != nil {
		return err
	}

	if err := f.SetColWidth(sheet, "A", "C", columnWidth); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, value any, style int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("set %s: %w", cell, err)
	}
	if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
		return fmt.Errorf("style %s: %w", cell, err)
	}
	return nil
}

func newStyles(f *excelize.File) (styles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center"}
	font := func(bold bool, color string) *excelize.Font {
		return &excelize.Font{Family: fontFamily, Size: fontSize, Bold: bold, Color: color}
	}
	fill := func(color string) excelize.Fill {
		return excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}
	}

	var st styles
	defs := []struct {
		dst   *int
		style *excelize.Style
	}{
		{&st.header, &excelize.Style{Font: font(true, ""), Fill: fill(headerFill), Border: border, Alignment: center}},
		{&st.cell, &excelize.Style{Font: font(false, ""), Border: border, Alignment: center}},
		{&st.amount, &excelize.Style{Font: font(false, ""), Border: border, Alignment: center, NumFmt: thousandsFmt}},
		{&st.totalLabel, &excelize.Style{Font: font(true, ""), Fill: fill(totalFill), Border: border, Alignment: center}},
		{&st.totalAmount, &excelize.Style{
			Font: font(true, totalColor), Fill: fill(totalFill), Border: border, Alignment: center, NumFmt: thousandsFmt,
		}},
	}
	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return styles{}, fmt.Errorf("create style: %w", err)
		}
		*d.dst = id
	}
	return st, nil
}
