package matching

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadTablesFromFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "tables.json")

	content := `{
		"metro_areas": {"auckland": ["auckland", "manukau"]},
		"countries": {"new zealand": ["auckland", "wellington"]},
		"occupation_groups": [["nurse", "midwife"]]
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing tables file: %v", err)
	}

	tables, err := LoadTablesFromFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !tables.sameMetro("auckland, new zealand", "manukau, new zealand") {
		t.Fatalf("expected override metro cluster to apply")
	}
	if !tables.sameCountry("auckland", "wellington") {
		t.Fatalf("expected override country list to apply")
	}
	if !tables.similarOccupation("nurse practitioner", "midwife") {
		t.Fatalf("expected override occupation group to apply")
	}
}

func TestLoadTablesFromFileFallsBackToDefaults(t *testing.T) {
	t.Parallel()

	tables, err := LoadTablesFromFile(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
	if tables == nil {
		t.Fatalf("expected default tables on read failure")
	}
	if !tables.sameMetro("sydney", "parramatta") {
		t.Fatalf("expected default metro clusters on read failure")
	}
}

func TestLoadTablesFromFileInvalidJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tables.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("writing tables file: %v", err)
	}

	tables, err := LoadTablesFromFile(path)
	if err == nil {
		t.Fatalf("expected error for invalid json")
	}
	if tables == nil || !tables.sameCountry("delhi", "mumbai") {
		t.Fatalf("expected default tables on parse failure")
	}
}
