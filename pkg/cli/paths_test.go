package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewPaths(t *testing.T) {
	paths, err := NewPaths()
	if err != nil {
		t.Fatalf("NewPaths error: %v", err)
	}

	if paths.HomeDir == "" {
		t.Error("HomeDir should not be empty")
	}
}

func TestPaths_BaseDir(t *testing.T) {
	tmpDir := t.TempDir()
	paths := &Paths{HomeDir: tmpDir}

	baseDir := paths.BaseDir()
	expected := filepath.Join(tmpDir, BaseDirName)

	if baseDir != expected {
		t.Errorf("BaseDir() = %q, want %q", baseDir, expected)
	}
}

func TestPaths_BlobFile(t *testing.T) {
	tmpDir := t.TempDir()
	paths := &Paths{HomeDir: tmpDir}

	blob := paths.BlobFile()
	expected := filepath.Join(tmpDir, BaseDirName, BlobFileName)

	if blob != expected {
		t.Errorf("BlobFile() = %q, want %q", blob, expected)
	}
}

func TestPaths_JournalDir(t *testing.T) {
	tmpDir := t.TempDir()
	paths := &Paths{HomeDir: tmpDir}

	dir := paths.JournalDir()
	expected := filepath.Join(tmpDir, BaseDirName, "journal")

	if dir != expected {
		t.Errorf("JournalDir() = %q, want %q", dir, expected)
	}
}

func TestPaths_ProfilePath(t *testing.T) {
	tmpDir := t.TempDir()
	paths := &Paths{HomeDir: tmpDir}

	tests := []struct {
		name string
		ref  string
		want string
	}{
		{
			name: "bare name",
			ref:  "bench",
			want: filepath.Join(tmpDir, BaseDirName, "profiles", "bench.yaml"),
		},
		{
			name: "explicit extension",
			ref:  "bench.yaml",
			want: "bench.yaml",
		},
		{
			name: "relative path",
			ref:  "profiles/bench.yaml",
			want: "profiles/bench.yaml",
		},
		{
			name: "absolute path",
			ref:  "/etc/dollcore/bench.yaml",
			want: "/etc/dollcore/bench.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := paths.ProfilePath(tt.ref); got != tt.want {
				t.Errorf("ProfilePath(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestPaths_EnsureBaseDir(t *testing.T) {
	// Use temp directory to avoid polluting user's home
	tmpDir := t.TempDir()
	paths := &Paths{HomeDir: tmpDir}

	if err := paths.EnsureBaseDir(); err != nil {
		t.Fatalf("EnsureBaseDir error: %v", err)
	}

	info, err := os.Stat(paths.BaseDir())
	if err != nil {
		t.Fatalf("BaseDir not created: %v", err)
	}

	if !info.IsDir() {
		t.Error("BaseDir should be a directory")
	}
}

func TestPaths_EnsureJournalDir(t *testing.T) {
	tmpDir := t.TempDir()
	paths := &Paths{HomeDir: tmpDir}

	if err := paths.EnsureJournalDir(); err != nil {
		t.Fatalf("EnsureJournalDir error: %v", err)
	}

	info, err := os.Stat(paths.JournalDir())
	if err != nil {
		t.Fatalf("JournalDir not created: %v", err)
	}

	if !info.IsDir() {
		t.Error("JournalDir should be a directory")
	}
}

func TestPaths_EnsureProfileDir(t *testing.T) {
	tmpDir := t.TempDir()
	paths := &Paths{HomeDir: tmpDir}

	if err := paths.EnsureProfileDir(); err != nil {
		t.Fatalf("EnsureProfileDir error: %v", err)
	}

	info, err := os.Stat(paths.ProfileDir())
	if err != nil {
		t.Fatalf("ProfileDir not created: %v", err)
	}

	if !info.IsDir() {
		t.Error("ProfileDir should be a directory")
	}
}
