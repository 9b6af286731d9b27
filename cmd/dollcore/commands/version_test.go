package commands

import (
	"strings"
	"testing"
)

func TestVersion(t *testing.T) {
	setupTestEnv(t)

	stdout, _, code := runCmd(t, "version")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stdout, "dollcore") {
		t.Fatalf("expected 'dollcore', got: %s", stdout)
	}
}

func TestVersionVerbose(t *testing.T) {
	setupTestEnv(t)

	stdout, _, code := runCmd(t, "version", "-v")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stdout, "go:") {
		t.Fatalf("expected go runtime line, got: %s", stdout)
	}
	if !strings.Contains(stdout, ".dollcore") {
		t.Fatalf("expected home line, got: %s", stdout)
	}
}
