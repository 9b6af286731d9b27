package commands

import (
	"strings"
	"testing"
)

func TestEventsBadFilter(t *testing.T) {
	setupTestEnv(t)

	_, stderr, code := runCmd(t, "events", "--filter", "((")
	if code == 0 {
		t.Fatal("expected non-zero exit for bad jq expression")
	}
	if !strings.Contains(stderr, "invalid jq expression") {
		t.Fatalf("expected 'invalid jq expression', got: %s", stderr)
	}
}

func TestEventsEmptyJournal(t *testing.T) {
	setupTestEnv(t)

	stdout, _, code := runCmd(t, "events")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if strings.TrimSpace(stdout) != "" {
		t.Fatalf("expected no output for empty journal, got: %s", stdout)
	}
}
