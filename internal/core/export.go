package core

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// SheetHeader is the column layout shared by the CSV export and the
// spreadsheet mirror.
var SheetHeader = []string{"ID", "Ngày", "Nội dung", "Quỹ", "Đối tượng", "Loại", "Số tiền"}

// Row renders t in SheetHeader order.
func (t Transaction) Row() []string {
	return []string{
		t.ID,
		t.Date,
		t.Description,
		string(t.Fund),
		t.Person,
		string(t.Kind),
		strconv.FormatInt(int64(t.Amount), 10),
	}
}

// WriteCSV writes the header and one row per record.
func WriteCSV(w io.Writer, ledger []Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SheetHeader); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for i, t := range ledger {
		if err := cw.Write(t.Row()); err != nil {
			return fmt.Errorf("writing CSV row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
