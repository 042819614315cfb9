package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MrJamesThe3rd/mlms/internal/client"
	enc "github.com/MrJamesThe3rd/mlms/internal/encoding"
)

var ErrNoHeader = errors.New("no client header row found")

// RowError reports a data row that could not be turned into a client.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

type Result struct {
	Clients  []client.CreateParams
	Errors   []RowError
	Encoding enc.Charset
}

// Parser reads client registers exported from spreadsheets. The delimiter
// (comma or semicolon) and the header row are detected from the content, so
// preamble lines above the header are ignored.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(r io.Reader) (Result, error) {
	utf8r, charset, err := enc.NewUTF8Reader(r)
	if err != nil {
		return Result{}, fmt.Errorf("detect encoding: %w", err)
	}

	data, err := io.ReadAll(utf8r)
	if err != nil {
		return Result{}, fmt.Errorf("read input: %w", err)
	}

	for _, comma := range delimiters {
		rows, err := readRows(data, comma)
		if err != nil {
			continue
		}

		cols, headerIdx, ok := detectHeader(rows)
		if !ok {
			continue
		}

		res := parseRows(cols, rows[headerIdx+1:], headerIdx)
		res.Encoding = charset

		return res, nil
	}

	return Result{}, fmt.Errorf("%w: expected at least %s", ErrNoHeader, strings.Join(requiredFields(), ", "))
}

var delimiters = []rune{',', ';'}

func readRows(data []byte, comma rune) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	return rows, nil
}
