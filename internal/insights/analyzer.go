// Package insights derives read-only views over a snapshot of the event log.
package insights

import (
	"fmt"

	"eco_gateway/internal/carbon"
	"eco_gateway/internal/eventlog"
)

// Analyzer holds a sorted, immutable snapshot of usage records. All views are
// recomputed from the snapshot on every call; build a new Analyzer to pick up
// records appended later.
type Analyzer struct {
	records     []carbon.UsageRecord
	heavyModels map[string]struct{}
}

// Option customises an Analyzer.
type Option func(*Analyzer)

// WithHeavyModels replaces the heavy-model set used by recommendations.
func WithHeavyModels(models []string) Option {
	return func(a *Analyzer) {
		a.heavyModels = make(map[string]struct{}, len(models))
		for _, m := range models {
			a.heavyModels[m] = struct{}{}
		}
	}
}

// NewAnalyzer loads the event log at path once.
func NewAnalyzer(path string, opts ...Option) (*Analyzer, error) {
	records, err := eventlog.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load event log: %w", err)
	}
	return newAnalyzer(records, opts), nil
}

// NewAnalyzerFromRecords builds an Analyzer over a copy of records, sorted
// ascending by timestamp.
func NewAnalyzerFromRecords(records []carbon.UsageRecord, opts ...Option) *Analyzer {
	copied := make([]carbon.UsageRecord, len(records))
	copy(copied, records)
	eventlog.SortByTimestamp(copied)
	return newAnalyzer(copied, opts)
}

func newAnalyzer(records []carbon.UsageRecord, opts []Option) *Analyzer {
	a := &Analyzer{records: records}
	WithHeavyModels(carbon.DefaultHeavyModels)(a)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Len returns the number of records in the snapshot.
func (a *Analyzer) Len() int {
	return len(a.records)
}

func (a *Analyzer) totalCarbon() float64 {
	var total float64
	for _, r := range a.records {
		total += r.CarbonGCO2eq
	}
	return total
}

func meanCarbon(records []carbon.UsageRecord) float64 {
	var total float64
	for _, r := range records {
		total += r.CarbonGCO2eq
	}
	return ratio(total, float64(len(records)))
}
