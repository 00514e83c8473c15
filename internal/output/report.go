// internal/output/report.go
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/valpere/PriceScrapexter/internal/pipeline"
)

// Report formats
const (
	FormatXLSX = "xlsx"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Report is the document written by WriteReport for json and yaml formats
type Report struct {
	GeneratedAt time.Time          `json:"generated_at" yaml:"generated_at"`
	Summary     pipeline.Summary   `json:"summary" yaml:"summary"`
	Messages    []string           `json:"messages" yaml:"messages"`
	Outcomes    []pipeline.Outcome `json:"outcomes" yaml:"outcomes"`
}

// NewReport builds a report for result
func NewReport(result pipeline.Result) Report {
	return Report{
		GeneratedAt: time.Now().UTC(),
		Summary:     result.Summary,
		Messages:    FormatSummary(result.Summary),
		Outcomes:    result.Outcomes,
	}
}

// InferFormat picks a report format from the file extension
func InferFormat(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return FormatXLSX, nil
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("cannot infer report format from %q", path)
	}
}

// WriteReport writes result to path. An empty format is inferred from the extension.
func WriteReport(path, format string, result pipeline.Result) error {
	if format == "" {
		var err error
		if format, err = InferFormat(path); err != nil {
			return err
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	if format == FormatXLSX {
		return writeXLSX(path, result)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	defer f.Close()

	if err := EncodeReport(f, format, NewReport(result)); err != nil {
		return err
	}
	return f.Close()
}

// EncodeReport writes report as json or yaml
func EncodeReport(w io.Writer, format string, report Report) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported report format: %s", format)
	}
}

const (
	outcomesSheet = "Outcomes"
	summarySheet  = "Summary"
)

func writeXLSX(path string, result pipeline.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", outcomesSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	outcomeRows := [][]interface{}{{"Title", "URL", "XPath", "Domain", "Price", "Status", "Error", "Duration (ms)"}}
	for _, o := range result.Outcomes {
		status, message := "ok", ""
		if o.Failure != nil {
			status = string(o.Failure.Kind)
			message = o.Failure.Message
		}
		var price interface{}
		if o.Price != nil {
			price = *o.Price
		}
		outcomeRows = append(outcomeRows, []interface{}{
			o.Row.Title, o.Row.URL, o.Row.XPath, o.Domain, price, status, message, o.Duration.Milliseconds(),
		})
	}

	summaryRows := [][]interface{}{{"Domain", "Attempts", "Count", "Average"}}
	for _, d := range result.Summary.Domains {
		var avg interface{} = "no data collected"
		if d.Average != nil {
			avg = *d.Average
		}
		summaryRows = append(summaryRows, []interface{}{d.Domain, d.Attempts, d.Count, avg})
	}

	for sheet, rows := range map[string][][]interface{}{outcomesSheet: outcomeRows, summarySheet: summaryRows} {
		if err := writeSheet(f, sheet, rows, headerStyle); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, rows [][]interface{}, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}

	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}
	return nil
}
