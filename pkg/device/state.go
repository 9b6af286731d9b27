// Package device implements the toy's control core: a single-threaded state
// machine fed by prioritized events from the button, the battery gauge, the
// link supervisor, and the audio transport. One Controller owns the device
// lifecycle from boot to deep sleep.
package device

import (
	"encoding/json"
	"fmt"
)

// State is the controller's lifecycle phase. Exactly one state is active at
// a time; transitions happen only inside Handle and Tick on the main loop.
type State int

const (
	// StateInit is the power-on phase before the channel attempt starts.
	StateInit State = iota
	// StateConnecting covers WiFi association and the channel dial.
	StateConnecting
	// StateIdle is connected and waiting for the button.
	StateIdle
	// StateRecording streams microphone chunks to the server.
	StateRecording
	// StateProcessing waits for the server's response after end-of-stream.
	StateProcessing
	// StatePlaying drains the server response through the speaker.
	StatePlaying
	// StateError holds a failure; recoverable kinds leave it by backoff,
	// fatal kinds only by reset.
	StateError
)

// String returns the state's wire name.
func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateConnecting:
		return "connecting"
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateProcessing:
		return "processing"
	case StatePlaying:
		return "playing"
	case StateError:
		return "error"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ParseState maps a wire name back to a State.
func ParseState(name string) (State, error) {
	switch name {
	case "init":
		return StateInit, nil
	case "connecting":
		return StateConnecting, nil
	case "idle":
		return StateIdle, nil
	case "recording":
		return StateRecording, nil
	case "processing":
		return StateProcessing, nil
	case "playing":
		return StatePlaying, nil
	case "error":
		return StateError, nil
	}
	return StateInit, fmt.Errorf("device: unknown state %q", name)
}

// MarshalJSON implements json.Marshaler.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *State) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	parsed, err := ParseState(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Busy reports whether an exchange with the server is in flight. Busy
// states ignore new button presses rather than queueing them.
func (s State) Busy() bool {
	switch s {
	case StateRecording, StateProcessing, StatePlaying:
		return true
	}
	return false
}
