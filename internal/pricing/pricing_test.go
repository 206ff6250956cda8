package pricing_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/signalnine/aiscore/internal/pricing"
)

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func TestLoadOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	content := `openai:
  gpt-4:
    input: 0.02
    output: 0.04
local:
  llama3:
    input: 0.001
    output: 0.002
`
	path := filepath.Join(dir, "pricing.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	table, err := pricing.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got, want := table.Cost("openai", "gpt-4", 1000, 500), 0.04; abs(got-want) > 1e-9 {
		t.Errorf("overridden gpt-4: got %f, want %f", got, want)
	}
	if got, want := table.Cost("local", "llama3", 2000, 1000), 0.004; abs(got-want) > 1e-9 {
		t.Errorf("new provider: got %f, want %f", got, want)
	}
	if _, ok := table.Lookup("openai", "gpt-4o-mini"); !ok {
		t.Error("defaults should survive the overlay")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := pricing.Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestCostDatedSnapshot(t *testing.T) {
	table := pricing.Default()
	got := table.Cost("openai", "gpt-4-0613", 1000, 1000)
	if want := 0.09; abs(got-want) > 1e-9 {
		t.Errorf("got %f, want %f", got, want)
	}
	// gpt-4o-mini-2024 must resolve to gpt-4o-mini, not gpt-4 or gpt-4o.
	p, ok := table.Lookup("openai", "gpt-4o-mini-2024-07-18")
	if !ok || p.Input != 0.00015 {
		t.Errorf("longest prefix not chosen: %+v %v", p, ok)
	}
}

func TestCostUnknownModel(t *testing.T) {
	table := &pricing.Table{}
	if cost := table.Cost("unknown", "unknown", 1000, 500); cost != 0 {
		t.Errorf("expected 0 for unknown model, got %f", cost)
	}
	var nilTable *pricing.Table
	if cost := nilTable.Cost("openai", "gpt-4", 1000, 500); cost != 0 {
		t.Errorf("expected 0 for nil table, got %f", cost)
	}
}
