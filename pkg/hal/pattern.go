package hal

import "fmt"

// Pattern is a status LED animation. The controller maps device states to
// patterns; the indicator implementation renders them.
type Pattern int

const (
	// PatternOff turns the LED off.
	PatternOff Pattern = iota
	// PatternBreathing is the idle animation.
	PatternBreathing
	// PatternBlink signals connecting or waiting on the server.
	PatternBlink
	// PatternPulse signals active recording.
	PatternPulse
	// PatternSolid signals playback.
	PatternSolid
	// PatternFault is the fatal error signal.
	PatternFault
)

func (p Pattern) String() string {
	switch p {
	case PatternOff:
		return "off"
	case PatternBreathing:
		return "breathing"
	case PatternBlink:
		return "blink"
	case PatternPulse:
		return "pulse"
	case PatternSolid:
		return "solid"
	case PatternFault:
		return "fault"
	}
	return fmt.Sprintf("Pattern(%d)", int(p))
}
