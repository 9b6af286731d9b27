package device

import (
	"fmt"

	"github.com/arunika/dollcore/pkg/transport"
)

// EventKind identifies a controller input. The numeric order is the
// dispatch priority: when one loop pass gathers several events, they are
// handled in ascending kind order so that faults and link loss are seen
// before the work they invalidate.
type EventKind int

const (
	// EventFault reports a failure from a pipeline or event source.
	EventFault EventKind = iota
	// EventLinkDown reports loss of the duplex channel.
	EventLinkDown
	// EventLinkUp reports the duplex channel coming up.
	EventLinkUp
	// EventInbound carries a decoded server response.
	EventInbound
	// EventCaptureTick carries one microphone chunk.
	EventCaptureTick
	// EventButtonHeld is the long press, a force reset.
	EventButtonHeld
	// EventButtonPressed is the short press toggling record.
	EventButtonPressed
	// EventPlaybackFinished reports the speaker queue ran dry.
	EventPlaybackFinished
	// EventLowBattery reports charge below the sleep threshold while not
	// charging.
	EventLowBattery
	// EventBooted starts the lifecycle. Synthesized once at power-on and
	// again after a force reset.
	EventBooted
)

// String returns the event kind's log name.
func (k EventKind) String() string {
	switch k {
	case EventFault:
		return "fault"
	case EventLinkDown:
		return "link_down"
	case EventLinkUp:
		return "link_up"
	case EventInbound:
		return "inbound"
	case EventCaptureTick:
		return "capture_tick"
	case EventButtonHeld:
		return "button_held"
	case EventButtonPressed:
		return "button_pressed"
	case EventPlaybackFinished:
		return "playback_finished"
	case EventLowBattery:
		return "low_battery"
	case EventBooted:
		return "booted"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is one controller input. Only the fields named by the kind are
// set.
type Event struct {
	Kind EventKind

	// Cause is set on EventLinkDown and EventFault.
	Cause error

	// Fault is the classification for EventFault.
	Fault ErrorKind

	// Response is the decoded payload for EventInbound.
	Response transport.Response

	// Chunk is the capture buffer for EventCaptureTick.
	Chunk []byte
}
