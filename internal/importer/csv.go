package importer

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/contracts"
)

// ParseCSV reads a statement with a header row. Comma and semicolon
// delimiters are both accepted; the header decides which.
func ParseCSV(r io.Reader, accountID string) (*Result, error) {
	br := bufio.NewReader(r)
	first, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(first)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", contracts.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	idx, err := newColumnIndex(header)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			res.addRow(line, nil, err)
			continue
		}
		if blank(row) {
			continue
		}

		op, err := idx.toOperation(row, accountID)
		res.addRow(line, op, err)
	}

	return res, nil
}

func sniffDelimiter(head []byte) rune {
	firstLine := string(head)
	if i := strings.IndexByte(firstLine, '\n'); i >= 0 {
		firstLine = firstLine[:i]
	}
	if strings.Count(firstLine, ";") > strings.Count(firstLine, ",") {
		return ';'
	}
	return ','
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// WriteCSV exports operations with the canonical columns, so the file
// can be imported again
func WriteCSV(w io.Writer, ops []*contracts.Operation) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, op := range ops {
		if op == nil {
			continue
		}
		contractsCell := ""
		if op.Contracts != nil {
			contractsCell = strconv.Itoa(*op.Contracts)
		}
		record := []string{
			op.DateString(),
			FormatAmount(op.Amount),
			string(op.Kind),
			op.Instrument,
			op.Strategy,
			contractsCell,
			op.EntryType,
			op.ExitType,
			op.EntryTime,
			op.ExitTime,
			op.Mood,
			op.Notes,
			op.ID,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write operation %s: %w", op.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
