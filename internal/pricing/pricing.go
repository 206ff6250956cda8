package pricing

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ModelPricing is the USD price per 1K tokens.
type ModelPricing struct {
	Input  float64 `yaml:"input"`
	Output float64 `yaml:"output"`
}

// Table maps provider → model → price.
type Table struct {
	Providers map[string]map[string]ModelPricing
}

// Default carries list prices for the reviewer models aiscore ships with.
func Default() *Table {
	return &Table{Providers: map[string]map[string]ModelPricing{
		"openai": {
			"gpt-4":         {Input: 0.03, Output: 0.06},
			"gpt-4-turbo":   {Input: 0.01, Output: 0.03},
			"gpt-4o":        {Input: 0.0025, Output: 0.01},
			"gpt-4o-mini":   {Input: 0.00015, Output: 0.0006},
			"gpt-3.5-turbo": {Input: 0.0005, Output: 0.0015},
		},
	}}
}

// Load reads a YAML pricing file and overlays it on the defaults.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pricing file: %w", err)
	}
	var providers map[string]map[string]ModelPricing
	if err := yaml.Unmarshal(data, &providers); err != nil {
		return nil, fmt.Errorf("parsing pricing file: %w", err)
	}
	t := Default()
	for provider, models := range providers {
		if t.Providers[provider] == nil {
			t.Providers[provider] = make(map[string]ModelPricing)
		}
		for model, p := range models {
			t.Providers[provider][model] = p
		}
	}
	return t, nil
}

// Lookup finds the price of model, falling back to the longest known
// prefix so dated snapshots ("gpt-4-0613") use their family price.
func (t *Table) Lookup(provider, model string) (ModelPricing, bool) {
	if t == nil || t.Providers == nil {
		return ModelPricing{}, false
	}
	models, ok := t.Providers[provider]
	if !ok {
		return ModelPricing{}, false
	}
	if p, ok := models[model]; ok {
		return p, true
	}
	best := ""
	for name := range models {
		if strings.HasPrefix(model, name+"-") && len(name) > len(best) {
			best = name
		}
	}
	if best == "" {
		return ModelPricing{}, false
	}
	return models[best], true
}

// Cost calculates total cost for a request. Prices are per 1K tokens.
func (t *Table) Cost(provider, model string, inputTokens, outputTokens int) float64 {
	p, ok := t.Lookup(provider, model)
	if !ok {
		return 0
	}
	return (float64(inputTokens)/1000.0)*p.Input + (float64(outputTokens)/1000.0)*p.Output
}
