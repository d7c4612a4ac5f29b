package importer

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/internal/contracts"
)

// =============================================================================
// Import Result
// =============================================================================

// RowError reports one rejected row; Line is 1-based and counts the header
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"error"`
}

// Result is the outcome of parsing one statement
// ⭐ SSOT: a bad row is reported and skipped; it never aborts the import
type Result struct {
	Operations []*contracts.Operation `json:"-"`
	Rows       int                    `json:"rows"`
	Errors     []RowError             `json:"errors"`
}

func (r *Result) addRow(line int, op *contracts.Operation, err error) {
	r.Rows++
	if err != nil {
		r.Errors = append(r.Errors, RowError{Line: line, Message: err.Error()})
		return
	}
	r.Operations = append(r.Operations, op)
}

// Format is a statement file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
)

// DetectFormat picks a parser from the file name, falling back to sniffing the content
func DetectFormat(filename string, head []byte) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".html", ".htm":
		return FormatHTML
	case ".csv", ".txt":
		return FormatCSV
	}

	trimmed := bytes.TrimSpace(bytes.TrimPrefix(head, []byte("\ufeff")))
	if bytes.HasPrefix(trimmed, []byte("<")) {
		return FormatHTML
	}
	return FormatCSV
}

// Parse reads a CSV or HTML statement for accountID
func Parse(r io.Reader, filename, accountID string) (*Result, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(512)

	switch DetectFormat(filename, head) {
	case FormatHTML:
		return ParseHTML(br, accountID)
	default:
		return ParseCSV(br, accountID)
	}
}

// Summary is a one-line description of a parse result for logs and CLI output
func (r *Result) Summary() string {
	return fmt.Sprintf("%d rows, %d operations, %d rejected", r.Rows, len(r.Operations), len(r.Errors))
}
