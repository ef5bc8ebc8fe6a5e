package replay

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadFixture(t *testing.T) {
	path := writeFixture(t, `{
		"description": "two rivals",
		"goal": "test goal",
		"seed": 7,
		"cycles": [
			{"generation": [{"title": "alpha", "text": "a"}], "expected_top": ["alpha"]}
		]
	}`)

	f, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if f.Goal != "test goal" || f.Seed != 7 || len(f.Cycles) != 1 {
		t.Fatalf("unexpected fixture: %+v", f)
	}
	// Absent settings fall back to defaults.
	if f.Settings.NumHypotheses != 3 || f.Settings.EvolutionTopK != 2 {
		t.Fatalf("default settings not applied: %+v", f.Settings)
	}
}

func TestLoadFixtureMissingGoal(t *testing.T) {
	path := writeFixture(t, `{"cycles": [{"generation": []}]}`)
	if _, err := LoadFixture(path); err == nil {
		t.Fatal("expected error for missing goal")
	}
}

func TestLoadFixtureNoCycles(t *testing.T) {
	path := writeFixture(t, `{"goal": "g"}`)
	if _, err := LoadFixture(path); err == nil {
		t.Fatal("expected error for empty cycles")
	}
}

func TestLoadFixtureBadJSON(t *testing.T) {
	path := writeFixture(t, `{"goal": `)
	if _, err := LoadFixture(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadFixtureMissingFile(t *testing.T) {
	if _, err := LoadFixture(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadTestdataFixture(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "basic.json"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if f.Description == "" || len(f.Cycles) == 0 {
		t.Fatalf("unexpected fixture: %+v", f)
	}
}
