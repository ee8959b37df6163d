package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[log]
verbosity = 2
file = "mixin.log"

[runtime]
strict = true

[journal]
path = "trace/journal.db"

[stress]
goroutines = 16
iterations = 500
`)

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if c.Log.Verbosity != 2 {
		t.Errorf("log verbosity = %d, want 2", c.Log.Verbosity)
	}
	if !c.StrictMode(false) {
		t.Error("strict = false, want true")
	}
	if c.Stress.Goroutines != 16 || c.Stress.Iterations != 500 {
		t.Errorf("stress = %+v", c.Stress)
	}

	absDir, _ := filepath.Abs(dir)
	if c.Dir != absDir {
		t.Errorf("dir = %q, want %q", c.Dir, absDir)
	}
	if want := filepath.Join(absDir, "trace", "journal.db"); c.JournalPath() != want {
		t.Errorf("journal path = %q, want %q", c.JournalPath(), want)
	}
	if want := filepath.Join(absDir, "mixin.log"); c.LogFile() != want {
		t.Errorf("log file = %q, want %q", c.LogFile(), want)
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[log]
verbosity = -1
`)

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Stress.Goroutines != 8 || c.Stress.Iterations != 10000 {
		t.Errorf("stress defaults = %+v", c.Stress)
	}
	if c.StrictMode(true) != true || c.StrictMode(false) != false {
		t.Error("unset strict should fall back to the given default")
	}
	if c.JournalPath() != "" {
		t.Errorf("journal path = %q, want empty", c.JournalPath())
	}
	if c.LogFile() != "" {
		t.Errorf("log file = %q, want empty", c.LogFile())
	}
}

func TestLoadStrictFalse(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "[runtime]\nstrict = false\n")
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.StrictMode(true) {
		t.Error("explicit strict = false should override the default")
	}
}

func TestLoadAbsolutePaths(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(t.TempDir(), "elsewhere.db")
	writeConfig(t, dir, "[journal]\npath = \""+filepath.ToSlash(abs)+"\"\n")
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.JournalPath() != filepath.ToSlash(abs) {
		t.Errorf("journal path = %q, want %q", c.JournalPath(), abs)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"syntax", "[log\nverbosity = 1", "parse error"},
		{"verbosity", "[log]\nverbosity = 9", "log.verbosity"},
		{"goroutines", "[stress]\ngoroutines = -1", "stress.goroutines"},
		{"iterations", "[stress]\niterations = -5", "stress.iterations"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, tt.content)
			_, err := Load(dir)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("expected error for missing mixin.toml")
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "[stress]\ngoroutines = 3\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	c, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if c.Stress.Goroutines != 3 {
		t.Errorf("goroutines = %d, want 3", c.Stress.Goroutines)
	}
	absRoot, _ := filepath.Abs(root)
	if c.Dir != absRoot {
		t.Errorf("dir = %q, want %q", c.Dir, absRoot)
	}
}

func TestFindAndLoadNone(t *testing.T) {
	c, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if c == nil || c.Stress.Goroutines != 8 {
		t.Errorf("expected defaults, got %+v", c)
	}
}
