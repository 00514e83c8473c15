// internal/output/summary.go
package output

import (
	"fmt"

	"github.com/valpere/PriceScrapexter/internal/pipeline"
)

// FormatSummary renders a batch summary as the lines sent to the user at the end
// of a run: the row count, then one line per domain in first-seen order.
func FormatSummary(s pipeline.Summary) []string {
	lines := make([]string, 0, len(s.Domains)+1)
	lines = append(lines, fmt.Sprintf("File loaded. %d rows loaded.", s.TotalRows))

	for _, d := range s.Domains {
		if d.Average == nil {
			lines = append(lines, fmt.Sprintf("Could not collect data for site: %s", d.Domain))
			continue
		}
		lines = append(lines, fmt.Sprintf("Average price on site: %s - %s", d.Domain, pipeline.FormatPrice(*d.Average)))
	}
	return lines
}
