package db

import (
	"os"
	"path/filepath"
	"testing"
)

func writeMigrations(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, sql := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(sql), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestMigratorLoad(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"001_organizations.sql": "CREATE TABLE organizations (id UUID PRIMARY KEY);",
		"002_patients.sql":      "CREATE TABLE patients (id UUID PRIMARY KEY);",
	})

	migrations, err := NewMigrator(nil, dir).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("loaded %d migrations, want 2", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[0].Name != "001_organizations.sql" {
		t.Errorf("first migration = %d %q", migrations[0].Version, migrations[0].Name)
	}
	if migrations[0].SQL == "" {
		t.Error("expected SQL content to be loaded")
	}
}

func TestMigratorLoad_SortsByVersion(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"010_late.sql":   "SELECT 10;",
		"002_second.sql": "SELECT 2;",
		"001_first.sql":  "SELECT 1;",
		"005_middle.sql": "SELECT 5;",
	})

	migrations, err := NewMigrator(nil, dir).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []int{1, 2, 5, 10}
	if len(migrations) != len(want) {
		t.Fatalf("loaded %d migrations, want %d", len(migrations), len(want))
	}
	for i, v := range want {
		if migrations[i].Version != v {
			t.Errorf("migrations[%d].Version = %d, want %d", i, migrations[i].Version, v)
		}
	}
}

func TestMigratorLoad_SkipsUnversionedFiles(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"001_valid.sql":    "SELECT 1;",
		"readme.sql":       "-- no version prefix",
		"notes.txt":        "not sql",
		"abc_invalid.sql":  "-- non-numeric prefix",
		"002_also_ok.sql":  "SELECT 2;",
		"003_encounters.x": "wrong extension",
	})

	migrations, err := NewMigrator(nil, dir).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("loaded %d migrations, want 2", len(migrations))
	}
}

func TestMigratorLoad_MissingDir(t *testing.T) {
	if _, err := NewMigrator(nil, "/nonexistent/migrations").Load(); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestParseVersion(t *testing.T) {
	cases := []struct {
		name    string
		version int
		ok      bool
	}{
		{"001_core.sql", 1, true},
		{"042_billing.sql", 42, true},
		{"abc_bad.sql", 0, false},
		{"noseparator.sql", 0, false},
		{"001_core.txt", 0, false},
	}
	for _, tc := range cases {
		v, ok := parseVersion(tc.name)
		if v != tc.version || ok != tc.ok {
			t.Errorf("parseVersion(%q) = (%d, %v), want (%d, %v)", tc.name, v, ok, tc.version, tc.ok)
		}
	}
}
