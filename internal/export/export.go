// Package export renders ledger records into the payables document handed to
// accounting: one row per record and a trailing total row.
package export

import (
	"strconv"

	"apledger/internal/core"
)

const (
	SheetName  = "미지급목록"
	TotalLabel = "합계"
)

// Header is the fixed column header of the document.
var Header = [3]string{"Date", "Vendor", "Amount_KRW"}

type (
	Row struct {
		Date   string
		Vendor string
		Amount int64
	}

	// Document is the format-neutral export. Writers only lay it out; the
	// total is always the one computed by Format.
	Document struct {
		Sheet  string
		Header [3]string
		Rows   []Row
		Total  int64
	}
)

// Format builds the document for records, keeping their order.
func Format(records []core.Obligation) Document {
	doc := Document{
		Sheet:  SheetName,
		Header: Header,
		Rows:   make([]Row, 0, len(records)),
	}
	for _, r := range records {
		doc.Rows = append(doc.Rows, Row{
			Date:   r.DueDate.String(),
			Vendor: r.Vendor,
			Amount: r.Money.Base(),
		})
		doc.Total += r.Money.Base()
	}
	return doc
}

// GroupThousands renders n with comma thousands separators: 1234567 -> "1,234,567".
func GroupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	sign := ""
	if s[0] == '-' {
		sign, s = "-", s[1:]
	}
	if len(s) <= 3 {
		return sign + s
	}

	head := len(s) % 3
	if head == 0 {
		head = 3
	}
	out := make([]byte, 0, len(s)+len(s)/3)
	out = append(out, s[:head]...)
	for i := head; i < len(s); i += 3 {
		out = append(out, ',')
		out = append(out, s[i:i+3]...)
	}
	return sign + string(out)
}
