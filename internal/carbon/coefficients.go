package carbon

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// GridIntensity is the fixed grid intensity in gCO2eq per kWh used to derive
// energy from carbon.
const GridIntensity = 475.0

// DefaultCoefficient applies to models absent from the table (gCO2eq / 1000 tokens).
const DefaultCoefficient = 0.5

// DefaultHeavyModels lists the models flagged as carbon-heavy by the
// model-optimization recommendation.
var DefaultHeavyModels = []string{"openai:gpt-4-turbo", "openai:gpt-4o"}

var builtinCoefficients = map[string]float64{
	"openai:gpt-4o-mini": 0.8,
	"openai:gpt-4-turbo": 1.2,
	"mistral:small":      0.3,
	"mistral:medium":     0.6,
	"mistral:large":      1.0,
}

// CoefficientTable maps a model identifier to grams of CO2eq per 1000 tokens.
// It is immutable after construction and safe for concurrent use.
type CoefficientTable struct {
	coefficients map[string]float64
	fallback     float64
}

// NewCoefficientTable copies coefficients into a new table.
func NewCoefficientTable(coefficients map[string]float64, fallback float64) *CoefficientTable {
	copied := make(map[string]float64, len(coefficients))
	for model, coef := range coefficients {
		copied[model] = coef
	}
	return &CoefficientTable{coefficients: copied, fallback: fallback}
}

// DefaultTable returns the built-in coefficient table.
func DefaultTable() *CoefficientTable {
	return NewCoefficientTable(builtinCoefficients, DefaultCoefficient)
}

// Coefficient returns the coefficient for model, or the table default.
func (t *CoefficientTable) Coefficient(model string) float64 {
	if coef, ok := t.coefficients[model]; ok {
		return coef
	}
	return t.fallback
}

// Default returns the fallback coefficient.
func (t *CoefficientTable) Default() float64 {
	return t.fallback
}

// Entry is a single row of the table.
type Entry struct {
	Model       string  `json:"model" yaml:"model"`
	Coefficient float64 `json:"coefficient" yaml:"coefficient"`
}

// Entries lists the configured models sorted by identifier.
func (t *CoefficientTable) Entries() []Entry {
	entries := make([]Entry, 0, len(t.coefficients))
	for model, coef := range t.coefficients {
		entries = append(entries, Entry{Model: model, Coefficient: coef})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Model < entries[j].Model })
	return entries
}

// coefficientFile is the on-disk YAML layout:
//
//	default: 0.5
//	models:
//	  mistral:small: 0.3
//	heavy_models:
//	  - openai:gpt-4o
type coefficientFile struct {
	Default     *float64           `yaml:"default"`
	Models      map[string]float64 `yaml:"models"`
	HeavyModels []string           `yaml:"heavy_models"`
}

// Profile bundles a coefficient table with its heavy-model list.
type Profile struct {
	Table       *CoefficientTable
	HeavyModels []string
}

// DefaultProfile returns the built-in table and heavy-model list.
func DefaultProfile() Profile {
	heavy := make([]string, len(DefaultHeavyModels))
	copy(heavy, DefaultHeavyModels)
	return Profile{Table: DefaultTable(), HeavyModels: heavy}
}

// LoadCoefficientFile reads a YAML coefficient file. Omitted sections fall
// back to the built-in values.
func LoadCoefficientFile(path string) (Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read coefficient file: %w", err)
	}
	return ParseCoefficients(raw)
}

// ParseCoefficients decodes the YAML coefficient layout.
func ParseCoefficients(raw []byte) (Profile, error) {
	var file coefficientFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return Profile{}, fmt.Errorf("parse coefficient file: %w", err)
	}

	profile := DefaultProfile()

	fallback := DefaultCoefficient
	if file.Default != nil {
		if *file.Default < 0 {
			return Profile{}, fmt.Errorf("default coefficient must not be negative, got %v", *file.Default)
		}
		fallback = *file.Default
	}

	models := builtinCoefficients
	if file.Models != nil {
		for model, coef := range file.Models {
			if coef < 0 {
				return Profile{}, fmt.Errorf("coefficient for %q must not be negative, got %v", model, coef)
			}
		}
		models = file.Models
	}
	profile.Table = NewCoefficientTable(models, fallback)

	if file.HeavyModels != nil {
		profile.HeavyModels = make([]string, len(file.HeavyModels))
		copy(profile.HeavyModels, file.HeavyModels)
	}
	return profile, nil
}
