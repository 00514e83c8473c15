// internal/ingest/loader.go

// Package ingest reads product batches from CSV files and Excel workbooks.
package ingest

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/valpere/PriceScrapexter/internal/errors"
	"github.com/valpere/PriceScrapexter/internal/pipeline"
)

var (
	// ErrUnsupportedFormat is returned for files that are neither csv nor a readable workbook
	ErrUnsupportedFormat = stderrors.New("unsupported file type, upload an Excel file or csv")

	// ErrIncorrectColumns is returned when the header lacks a required column
	ErrIncorrectColumns = stderrors.New("file must contain the columns: title | url | xpath")
)

// RequiredColumns are the header names every batch must have
var RequiredColumns = []string{"title", "url", "xpath"}

// spreadsheetExtensions are accepted at upload time; only some of them can be read
var spreadsheetExtensions = map[string]bool{
	"xls": true, "xlsx": true, "xlsm": true, "xlsb": true,
	"odf": true, "ods": true, "odt": true,
	"xltx": true, "xltm": true,
}

// readableWorkbooks are the Office Open XML formats excelize can open
var readableWorkbooks = map[string]bool{
	"xlsx": true, "xlsm": true, "xltx": true, "xltm": true,
}

// Options controls how a file is decoded
type Options struct {
	Sheet    string `yaml:"sheet,omitempty" json:"sheet,omitempty"`
	Encoding string `yaml:"encoding,omitempty" json:"encoding,omitempty"`
}

// IsSupported reports whether name has a csv or spreadsheet extension
func IsSupported(name string) bool {
	ext := extension(name)
	return ext == "csv" || spreadsheetExtensions[ext]
}

// LoadFile opens path and loads its rows
func LoadFile(path string, opts Options) ([]pipeline.ProductRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(errors.KindInput, "open "+path, err)
	}
	defer f.Close()
	return Load(filepath.Base(path), f, opts)
}

// Load reads rows from r. The format is chosen by the extension of name.
func Load(name string, r io.Reader, opts Options) ([]pipeline.ProductRow, error) {
	ext := extension(name)

	var (
		table [][]string
		err   error
	)
	switch {
	case ext == "csv":
		table, err = readCSV(r, opts.Encoding)
	case readableWorkbooks[ext]:
		table, err = readWorkbook(r, opts.Sheet)
	case spreadsheetExtensions[ext]:
		err = fmt.Errorf("%w: .%s workbooks cannot be read, save the file as .xlsx or .csv", ErrUnsupportedFormat, ext)
	default:
		err = ErrUnsupportedFormat
	}
	if err != nil {
		return nil, errors.New(errors.KindInput, "load "+name, err)
	}

	rows, err := toRows(table)
	if err != nil {
		return nil, errors.New(errors.KindInput, "load "+name, err)
	}
	return rows, nil
}

func extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

func readCSV(r io.Reader, charset string) ([][]string, error) {
	enc, err := lookupEncoding(charset)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(transform.NewReader(r, enc.NewDecoder()))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	table, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return table, nil
}

// ValidEncoding reports an error for charsets the csv reader cannot decode
func ValidEncoding(name string) error {
	_, err := lookupEncoding(name)
	return err
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8BOM, nil
	case "windows-1251", "cp1251":
		return charmap.Windows1251, nil
	case "koi8-r", "koi8r":
		return charmap.KOI8R, nil
	case "cp866", "ibm866":
		return charmap.CodePage866, nil
	default:
		return nil, fmt.Errorf("unsupported encoding: %s", name)
	}
}

func readWorkbook(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	table, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return table, nil
}

// toRows maps a header plus data rows onto ProductRows
func toRows(table [][]string) ([]pipeline.ProductRow, error) {
	if len(table) == 0 {
		return nil, ErrIncorrectColumns
	}

	index := make(map[string]int, len(table[0]))
	for i, name := range table[0] {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, seen := index[key]; !seen {
			index[key] = i
		}
	}
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w (missing %q)", ErrIncorrectColumns, col)
		}
	}

	rows := make([]pipeline.ProductRow, 0, len(table)-1)
	for i, record := range table[1:] {
		if isBlank(record) {
			continue
		}

		line := i + 2
		values := make(map[string]string, len(RequiredColumns))
		for _, col := range RequiredColumns {
			v := cell(record, index[col])
			if v == "" {
				return nil, fmt.Errorf("row %d: empty %s", line, col)
			}
			values[col] = v
		}

		rows = append(rows, pipeline.ProductRow{
			Title: values["title"],
			URL:   values["url"],
			XPath: values["xpath"],
		})
	}
	return rows, nil
}

func cell(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
