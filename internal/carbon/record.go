package carbon

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// UsageRecord is one logged estimate for a single completed provider call.
type UsageRecord struct {
	Timestamp    time.Time
	Model        string
	InputTokens  int64
	OutputTokens int64
	EnergyKWh    float64
	CarbonGCO2eq float64
}

// TotalTokens returns input plus output tokens.
func (r UsageRecord) TotalTokens() int64 {
	return r.InputTokens + r.OutputTokens
}

type usageRecordJSON struct {
	Timestamp    string  `json:"timestamp"`
	Model        string  `json:"model"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	EnergyKWh    float64 `json:"energy_kwh"`
	CarbonGCO2eq float64 `json:"carbon_gco2eq"`
}

// MarshalJSON writes the event-log wire shape.
func (r UsageRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(usageRecordJSON{
		Timestamp:    FormatTimestamp(r.Timestamp),
		Model:        r.Model,
		InputTokens:  r.InputTokens,
		OutputTokens: r.OutputTokens,
		EnergyKWh:    r.EnergyKWh,
		CarbonGCO2eq: r.CarbonGCO2eq,
	})
}

// UnmarshalJSON reads the event-log wire shape strictly. Lenient reading of
// foreign log lines lives in the eventlog package.
func (r *UsageRecord) UnmarshalJSON(data []byte) error {
	var wire usageRecordJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	ts, err := ParseTimestamp(wire.Timestamp)
	if err != nil {
		return err
	}
	*r = UsageRecord{
		Timestamp:    ts,
		Model:        wire.Model,
		InputTokens:  wire.InputTokens,
		OutputTokens: wire.OutputTokens,
		EnergyKWh:    wire.EnergyKWh,
		CarbonGCO2eq: wire.CarbonGCO2eq,
	}
	return nil
}

// FormatTimestamp renders t as ISO-8601. Times in time.UTC are written
// without an offset, any other location with one ("+00:00" for a zero
// offset). Microseconds are written as six digits when non-zero.
func FormatTimestamp(t time.Time) string {
	var b strings.Builder
	b.WriteString(t.Format("2006-01-02T15:04:05"))
	if us := t.Nanosecond() / int(time.Microsecond); us != 0 {
		fmt.Fprintf(&b, ".%06d", us)
	}
	if t.Location() != time.UTC {
		b.WriteString(t.Format("-07:00"))
	}
	return b.String()
}

var timestampLayouts = []struct {
	layout string
	zoned  bool
}{
	{time.RFC3339Nano, true},
	{"2006-01-02T15:04:05.999999999", false},
	{"2006-01-02T15:04:05", false},
	{"2006-01-02T15:04", false},
	{"2006-01-02 15:04:05.999999999Z07:00", true},
	{"2006-01-02 15:04:05.999999999", false},
	{"2006-01-02 15:04:05", false},
	{"2006-01-02 15:04", false},
	{"2006-01-02T15:04:05.999999999-0700", true},
	{"2006-01-02", false},
}

// ParseTimestamp accepts naive and offset-qualified ISO-8601 timestamps.
// Naive values are returned in time.UTC. Zoned values, "Z" included, keep
// their offset as a fixed zone so hour-of-day reflects the stored wall clock
// and FormatTimestamp writes the offset back.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, l := range timestampLayouts {
		t, err := time.Parse(l.layout, s)
		if err != nil {
			continue
		}
		if l.zoned {
			_, offset := t.Zone()
			t = t.In(time.FixedZone("", offset))
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
