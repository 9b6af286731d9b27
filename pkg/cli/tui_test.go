package cli

import (
	"strings"
	"testing"
)

func TestStateBadge(t *testing.T) {
	styles := NewStyles(DefaultTheme)

	for _, state := range []string{"init", "connecting", "idle", "recording", "processing", "playing", "error"} {
		badge := styles.StateBadge(state)
		if !strings.Contains(badge, state) {
			t.Errorf("StateBadge(%q) = %q, should contain state name", state, badge)
		}
	}
}

func TestKeyValue_Alignment(t *testing.T) {
	styles := NewStyles(DefaultTheme)

	out := styles.KeyValue([][2]string{
		{"device", "ARUN_DEV_001234"},
		{"encoding", "mulaw"},
	})

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if !strings.Contains(lines[0], "ARUN_DEV_001234") {
		t.Errorf("line 0 = %q, missing value", lines[0])
	}
	if !strings.Contains(lines[1], "mulaw") {
		t.Errorf("line 1 = %q, missing value", lines[1])
	}
}

func TestFrame_Render(t *testing.T) {
	f := Frame{
		Styles: NewStyles(DefaultTheme),
		Title:  "dollcore",
		State:  "idle",
		Sections: []Section{
			{Label: "Status", Content: func() []string { return []string{"epoch 1"} }},
			{Label: "Log", Content: func() []string { return []string{"boot"} }},
		},
		Help: "press | quit",
	}

	out := f.Render(60, 18)
	if !strings.Contains(out, "dollcore") {
		t.Error("render should contain title")
	}
	if !strings.Contains(out, "idle") {
		t.Error("render should contain state badge")
	}
	if !strings.Contains(out, "epoch 1") {
		t.Error("render should contain section content")
	}
}

func TestFrame_RenderZeroSize(t *testing.T) {
	f := Frame{Styles: NewStyles(DefaultTheme)}
	if got := f.Render(0, 0); got != "Loading..." {
		t.Errorf("Render(0,0) = %q", got)
	}
}
