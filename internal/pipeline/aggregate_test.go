// internal/pipeline/aggregate_test.go
package pipeline

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAggregator(t *testing.T) {
	tests := []struct {
		name     string
		outcomes []Outcome
		want     Summary
	}{
		{
			name: "average over successes only",
			outcomes: []Outcome{
				{Domain: "a.example", Price: ptr(10)},
				{Domain: "a.example", Price: ptr(20)},
				{Domain: "a.example"},
				{Domain: "a.example", Price: ptr(30)},
			},
			want: Summary{
				TotalRows: 4,
				Succeeded: 3,
				Failed:    1,
				Domains:   []DomainSummary{{Domain: "a.example", Attempts: 4, Count: 3, Average: ptr(20)}},
			},
		},
		{
			name: "domain without data is kept",
			outcomes: []Outcome{
				{Domain: "b.example"},
				{Domain: "b.example"},
			},
			want: Summary{
				TotalRows: 2,
				Failed:    2,
				Domains:   []DomainSummary{{Domain: "b.example", Attempts: 2}},
			},
		},
		{
			name: "first seen order and empty domain excluded",
			outcomes: []Outcome{
				{Domain: "z.example", Price: ptr(1)},
				{Domain: ""},
				{Domain: "a.example", Price: ptr(2)},
				{Domain: "z.example", Price: ptr(3)},
			},
			want: Summary{
				TotalRows: 4,
				Succeeded: 3,
				Failed:    1,
				Domains: []DomainSummary{
					{Domain: "z.example", Attempts: 2, Count: 2, Average: ptr(2)},
					{Domain: "a.example", Attempts: 1, Count: 1, Average: ptr(2)},
				},
			},
		},
		{
			name:     "empty batch",
			outcomes: nil,
			want:     Summary{Domains: []DomainSummary{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAggregator()
			for _, o := range tt.outcomes {
				a.Observe(o)
			}
			if diff := cmp.Diff(tt.want, a.Summarize()); diff != "" {
				t.Errorf("summary mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAggregator_ZeroPriceCounts(t *testing.T) {
	a := NewAggregator()
	a.Observe(Outcome{Domain: "a.example", Price: ptr(0)})
	a.Observe(Outcome{Domain: "a.example", Price: ptr(10)})

	got := a.Summarize().Domains[0]
	if got.Count != 2 || got.Average == nil || *got.Average != 5 {
		t.Errorf("expected zero price to count, got %+v", got)
	}
}
