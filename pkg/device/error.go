package device

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorKind classifies failures into the categories the controller acts on.
// The category decides recovery: recoverable kinds re-enter StateInit after
// backoff, fatal kinds park the device until an external reset, and
// KindInvalidParam only aborts the operation that raised it.
type ErrorKind int

const (
	// KindOk is the absence of a failure.
	KindOk ErrorKind = iota
	// KindInit is a hardware bring-up failure.
	KindInit
	// KindConfig is a corrupt or invalid configuration.
	KindConfig
	// KindNetwork is a WiFi or TCP failure.
	KindNetwork
	// KindAudio is a codec or DMA failure.
	KindAudio
	// KindWebSocket is a channel protocol failure.
	KindWebSocket
	// KindMemory is an allocation failure.
	KindMemory
	// KindTimeout is an expired deadline.
	KindTimeout
	// KindInvalidParam is a rejected argument.
	KindInvalidParam
)

// String returns the kind's wire name.
func (k ErrorKind) String() string {
	switch k {
	case KindOk:
		return "ok"
	case KindInit:
		return "init"
	case KindConfig:
		return "config"
	case KindNetwork:
		return "network"
	case KindAudio:
		return "audio"
	case KindWebSocket:
		return "websocket"
	case KindMemory:
		return "memory"
	case KindTimeout:
		return "timeout"
	case KindInvalidParam:
		return "invalid_param"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// MarshalJSON implements json.Marshaler.
func (k ErrorKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (k *ErrorKind) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	switch name {
	case "ok":
		*k = KindOk
	case "init":
		*k = KindInit
	case "config":
		*k = KindConfig
	case "network":
		*k = KindNetwork
	case "audio":
		*k = KindAudio
	case "websocket":
		*k = KindWebSocket
	case "memory":
		*k = KindMemory
	case "timeout":
		*k = KindTimeout
	case "invalid_param":
		*k = KindInvalidParam
	default:
		return fmt.Errorf("device: unknown error kind %q", name)
	}
	return nil
}

// Recoverable reports whether the controller schedules an automatic
// re-init after backoff for this kind.
func (k ErrorKind) Recoverable() bool {
	switch k {
	case KindNetwork, KindAudio, KindWebSocket, KindTimeout:
		return true
	}
	return false
}

// Fatal reports whether the device stays in StateError until reset or
// power cycle.
func (k ErrorKind) Fatal() bool {
	switch k {
	case KindInit, KindConfig, KindMemory:
		return true
	}
	return false
}

// Error carries a classified failure through the controller and out to the
// process exit code.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// E wraps err with a kind and the operation that raised it.
func E(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("device: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("device: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the classification from an error chain. Unclassified
// errors and nil report KindOk.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindOk
}
