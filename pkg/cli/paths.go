package cli

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// BaseDirName is the dollcore directory name under the user's home.
	BaseDirName = ".dollcore"
	// BlobFileName is the device config blob filename.
	BlobFileName = "config.bin"
)

// Paths resolves the host-side directory layout under ~/.dollcore.
type Paths struct {
	// HomeDir is the user's home directory.
	HomeDir string
}

// NewPaths creates a Paths rooted at the current user's home directory.
func NewPaths() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Paths{HomeDir: home}, nil
}

// BaseDir returns the dollcore directory (~/.dollcore).
func (p *Paths) BaseDir() string {
	return filepath.Join(p.HomeDir, BaseDirName)
}

// BlobFile returns the device config blob path (~/.dollcore/config.bin).
func (p *Paths) BlobFile() string {
	return filepath.Join(p.BaseDir(), BlobFileName)
}

// JournalDir returns the journal database directory (~/.dollcore/journal).
func (p *Paths) JournalDir() string {
	return filepath.Join(p.BaseDir(), "journal")
}

// ProfileDir returns the run profile directory (~/.dollcore/profiles).
func (p *Paths) ProfileDir() string {
	return filepath.Join(p.BaseDir(), "profiles")
}

// ProfilePath resolves a profile reference to a file path. A bare name
// (no separator, no extension) maps to ~/.dollcore/profiles/<name>.yaml;
// anything else is taken as a literal path.
func (p *Paths) ProfilePath(ref string) string {
	if strings.ContainsRune(ref, os.PathSeparator) || strings.ContainsRune(ref, '/') {
		return ref
	}
	if filepath.Ext(ref) != "" {
		return ref
	}
	return filepath.Join(p.ProfileDir(), ref+".yaml")
}

// EnsureBaseDir creates the dollcore directory if it doesn't exist.
func (p *Paths) EnsureBaseDir() error {
	return os.MkdirAll(p.BaseDir(), 0755)
}

// EnsureJournalDir creates the journal directory if it doesn't exist.
func (p *Paths) EnsureJournalDir() error {
	return os.MkdirAll(p.JournalDir(), 0755)
}

// EnsureProfileDir creates the profile directory if it doesn't exist.
func (p *Paths) EnsureProfileDir() error {
	return os.MkdirAll(p.ProfileDir(), 0755)
}
