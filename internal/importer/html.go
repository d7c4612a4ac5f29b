package importer

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/contracts"
)

// ParseHTML reads the first table whose header has a date and an amount column.
// Broker statements saved as web pages carry one such table.
func ParseHTML(r io.Reader, accountID string) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	var (
		res   *Result
		found bool
	)

	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		rows := table.Find("tr")
		if rows.Length() == 0 {
			return true
		}

		idx, err := newColumnIndex(cells(rows.First()))
		if err != nil {
			return true
		}

		found = true
		res = &Result{}
		rows.Slice(1, rows.Length()).Each(func(i int, tr *goquery.Selection) {
			row := cells(tr)
			if blank(row) {
				return
			}
			op, err := idx.toOperation(row, accountID)
			res.addRow(i+2, op, err)
		})
		return false
	})

	if !found {
		return nil, fmt.Errorf("%w: no table with %q and %q columns", contracts.ErrInvalidInput, ColDate, ColAmount)
	}
	return res, nil
}

func cells(tr *goquery.Selection) []string {
	out := make([]string, 0)
	tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
		out = append(out, strings.TrimSpace(cell.Text()))
	})
	return out
}
