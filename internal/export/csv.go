package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV writes the header, one line per row and the total line.
// Amounts are written with thousands grouping.
func WriteCSV(w io.Writer, doc Document) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(doc.Header[:]); err != nil {
		return fmt.Errorf("error writing CSV header: %w", err)
	}
	for _, r := range doc.Rows {
		if err := cw.Write([]string{r.Date, r.Vendor, GroupThousands(r.Amount)}); err != nil {
			return fmt.Errorf("error writing row for %s: %w", r.Vendor, err)
		}
	}
	if err := cw.Write([]string{"", TotalLabel, GroupThousands(doc.Total)}); err != nil {
		return fmt.Errorf("error writing total: %w", err)
	}

	cw.Flush()
	return cw.Error()
}
