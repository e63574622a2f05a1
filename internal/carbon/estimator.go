package carbon

import (
	"context"
	"time"

	"eco_gateway/internal/utils"
)

// Appender persists a record to the event log.
type Appender interface {
	Append(v any) error
}

// Publisher receives every record after it has been appended. Publishers
// feed best-effort exports such as the usage queue.
type Publisher interface {
	Publish(ctx context.Context, rec UsageRecord) error
}

// Compute returns the carbon (g) and energy (kWh) attributed to a call.
// Token counts are not validated; negative inputs yield negative results.
func Compute(table *CoefficientTable, model string, inputTokens, outputTokens int64) (carbonG, energyKWh float64) {
	total := inputTokens + outputTokens
	carbonG = (float64(total) / 1000) * table.Coefficient(model)
	energyKWh = carbonG / GridIntensity
	return carbonG, energyKWh
}

// Estimator turns token counts into usage records and logs them.
type Estimator struct {
	table      *CoefficientTable
	appender   Appender
	publishers []Publisher
	now        func() time.Time
	logger     *utils.Logger

	publishTimeout time.Duration
}

// DefaultPublishTimeout bounds how long Estimate waits on its publishers.
const DefaultPublishTimeout = 250 * time.Millisecond

// EstimatorOption customises an Estimator.
type EstimatorOption func(*Estimator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) EstimatorOption {
	return func(e *Estimator) { e.now = now }
}

// WithPublishers adds publishers invoked after each append.
func WithPublishers(publishers ...Publisher) EstimatorOption {
	return func(e *Estimator) { e.publishers = append(e.publishers, publishers...) }
}

// WithPublishTimeout overrides DefaultPublishTimeout.
func WithPublishTimeout(d time.Duration) EstimatorOption {
	return func(e *Estimator) { e.publishTimeout = d }
}

// WithLogger overrides the diagnostic logger.
func WithLogger(logger *utils.Logger) EstimatorOption {
	return func(e *Estimator) { e.logger = logger }
}

// NewEstimator creates an estimator. A nil table means DefaultTable and a nil
// appender disables persistence.
func NewEstimator(table *CoefficientTable, appender Appender, opts ...EstimatorOption) *Estimator {
	if table == nil {
		table = DefaultTable()
	}
	e := &Estimator{
		table:    table,
		appender: appender,
		now:      time.Now,
		logger:   utils.NewLogger("estimator"),

		publishTimeout: DefaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Table returns the coefficient table in use.
func (e *Estimator) Table() *CoefficientTable {
	return e.table
}

// Estimate computes the record for a completed call, appends it to the event
// log and hands it to the publishers. Append and publish failures are logged
// and never returned.
func (e *Estimator) Estimate(ctx context.Context, model string, inputTokens, outputTokens int64) UsageRecord {
	carbonG, energyKWh := Compute(e.table, model, inputTokens, outputTokens)
	rec := UsageRecord{
		Timestamp:    e.now().UTC(),
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		EnergyKWh:    energyKWh,
		CarbonGCO2eq: carbonG,
	}

	if e.appender != nil {
		if err := e.appender.Append(rec); err != nil {
			e.logger.Error("Failed to append usage record", "model", model, "error", err)
		}
	}

	if len(e.publishers) > 0 {
		pctx, cancel := context.WithTimeout(ctx, e.publishTimeout)
		for _, p := range e.publishers {
			if err := p.Publish(pctx, rec); err != nil {
				e.logger.Warn("Failed to publish usage record", "model", model, "error", err)
			}
		}
		cancel()
	}

	return rec
}
