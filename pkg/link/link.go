// Package link maintains the device's path to the server: a WiFi
// association plus a WebSocket duplex channel on top of it. The Supervisor
// owns the session substate (down, wifi up, channel up), reconnects with
// jittered exponential backoff, and tracks application-level keepalive.
//
// A Supervisor is confined to the device loop goroutine. Only the dial
// attempt and the socket receive loop run concurrently, and both hand their
// results back through channels drained by Tick.
package link

import (
	"errors"
	"fmt"
	"time"
)

// Timing defaults.
const (
	DefaultAssocTimeout     = 10 * time.Second
	DefaultHandshakeTimeout = 5 * time.Second
	DefaultBackoffBase      = time.Second
	DefaultBackoffCap       = 30 * time.Second
	DefaultKeepaliveIdle    = 20 * time.Second
	DefaultPongTimeout      = 10 * time.Second
)

var (
	// ErrNotUp is returned by Send while the channel is down.
	ErrNotUp = errors.New("link: channel not up")

	// ErrWifiLost reports that the radio dropped its association.
	ErrWifiLost = errors.New("link: wifi association lost")

	// ErrPongTimeout reports a missed keepalive reply.
	ErrPongTimeout = errors.New("link: pong timeout")
)

// State is the session substate.
type State int

const (
	// Down means no WiFi association.
	Down State = iota
	// WifiUp means associated but no channel.
	WifiUp
	// ChannelUp means the duplex channel is open.
	ChannelUp
)

func (s State) String() string {
	switch s {
	case Down:
		return "down"
	case WifiUp:
		return "wifi_up"
	case ChannelUp:
		return "channel_up"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// EventKind discriminates link events.
type EventKind int

const (
	// EventLinkUp fires when the channel comes up. The session epoch has
	// already been advanced when the event is delivered.
	EventLinkUp EventKind = iota
	// EventLinkDown fires when the channel is lost for any reason.
	EventLinkDown
)

func (k EventKind) String() string {
	switch k {
	case EventLinkUp:
		return "link_up"
	case EventLinkDown:
		return "link_down"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is delivered by Tick to the device controller.
type Event struct {
	Kind EventKind

	// Cause is set on EventLinkDown.
	Cause error
}
