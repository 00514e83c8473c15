// internal/pipeline/aggregate.go
package pipeline

type domainStats struct {
	attempts int
	count    int
	sum      float64
}

// Aggregator groups successful prices by domain. It is not safe for concurrent use.
type Aggregator struct {
	order     []string
	domains   map[string]*domainStats
	total     int
	succeeded int
}

// NewAggregator creates an empty aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{domains: make(map[string]*domainStats)}
}

// Observe folds one outcome into the aggregate. A domain is registered on first
// sight even when its row failed, so it can be reported as having no data.
func (a *Aggregator) Observe(o Outcome) {
	a.total++
	if o.Price != nil {
		a.succeeded++
	}

	if o.Domain == "" {
		return
	}

	stats, ok := a.domains[o.Domain]
	if !ok {
		stats = &domainStats{}
		a.domains[o.Domain] = stats
		a.order = append(a.order, o.Domain)
	}
	stats.attempts++
	if o.Price != nil {
		stats.count++
		stats.sum += *o.Price
	}
}

// Summarize returns per-domain averages in first-seen order.
func (a *Aggregator) Summarize() Summary {
	summary := Summary{
		TotalRows: a.total,
		Succeeded: a.succeeded,
		Failed:    a.total - a.succeeded,
		Domains:   make([]DomainSummary, 0, len(a.order)),
	}

	for _, domain := range a.order {
		stats := a.domains[domain]
		ds := DomainSummary{
			Domain:   domain,
			Attempts: stats.attempts,
			Count:    stats.count,
		}
		if stats.count > 0 {
			avg := stats.sum / float64(stats.count)
			ds.Average = &avg
		}
		summary.Domains = append(summary.Domains, ds)
	}
	return summary
}
