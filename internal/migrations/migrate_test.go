package migrations

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindLatestMigrationVersion(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"000001_init.up.sql", "000001_init.down.sql", "000012_drops_index.up.sql", "README.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "000099_dir"), 0o755); err != nil {
		t.Fatal(err)
	}
	if got := findLatestMigrationVersion(dir); got != 12 {
		t.Errorf("latest = %d, want 12", got)
	}
	if got := findLatestMigrationVersion(filepath.Join(dir, "missing")); got != 0 {
		t.Errorf("missing dir = %d, want 0", got)
	}
}

func TestShippedMigrationsPresent(t *testing.T) {
	if got := findLatestMigrationVersion("../../migrations"); got < 1 {
		t.Errorf("no migrations found in repository migrations dir")
	}
}

func TestRunMigrationsRequiresURL(t *testing.T) {
	if err := RunMigrations("", ""); err == nil {
		t.Error("expected error for empty database URL")
	}
}
