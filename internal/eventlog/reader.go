package eventlog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"eco_gateway/internal/carbon"
)

// UnknownModel replaces a missing or non-string model value.
const UnknownModel = "unknown"

// ParseLine leniently parses one log line. It reports false for lines that
// are not JSON objects, lack a timestamp or model key, or carry a timestamp
// that is not ISO-8601. Numeric fields that are missing or not numbers count
// as zero.
func ParseLine(line []byte) (carbon.UsageRecord, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] != '{' {
		return carbon.UsageRecord{}, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return carbon.UsageRecord{}, false
	}

	rawTS, hasTS := fields["timestamp"]
	rawModel, hasModel := fields["model"]
	if !hasTS || !hasModel {
		return carbon.UsageRecord{}, false
	}

	var tsText string
	if err := json.Unmarshal(rawTS, &tsText); err != nil {
		return carbon.UsageRecord{}, false
	}
	ts, err := carbon.ParseTimestamp(tsText)
	if err != nil {
		return carbon.UsageRecord{}, false
	}

	model := UnknownModel
	var modelText string
	if err := json.Unmarshal(rawModel, &modelText); err == nil && !bytes.Equal(bytes.TrimSpace(rawModel), []byte("null")) {
		model = modelText
	}

	return carbon.UsageRecord{
		Timestamp:    ts,
		Model:        model,
		InputTokens:  intField(fields["input_tokens"]),
		OutputTokens: intField(fields["output_tokens"]),
		EnergyKWh:    floatField(fields["energy_kwh"]),
		CarbonGCO2eq: floatField(fields["carbon_gco2eq"]),
	}, true
}

func floatField(raw json.RawMessage) float64 {
	if raw == nil {
		return 0
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func intField(raw json.RawMessage) int64 {
	if raw == nil {
		return 0
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	f := floatField(raw)
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0
	}
	return int64(f)
}

// Load reads every valid record from the log at path, sorted ascending by
// timestamp. A missing file yields an empty slice.
func Load(path string) ([]carbon.UsageRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []carbon.UsageRecord{}, nil
		}
		return nil, fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// Read parses records from r. Malformed lines are skipped; a partial final
// line without a newline is parsed like any other.
func Read(r io.Reader) ([]carbon.UsageRecord, error) {
	records := []carbon.UsageRecord{}
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			if rec, ok := ParseLine(line); ok {
				records = append(records, rec)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read event log: %w", err)
		}
	}

	SortByTimestamp(records)
	return records, nil
}

// SortByTimestamp stable-sorts records ascending by timestamp.
func SortByTimestamp(records []carbon.UsageRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
}
