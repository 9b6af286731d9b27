package device_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/arunika/dollcore/pkg/device"
)

func TestErrorKindClassification(t *testing.T) {
	tests := []struct {
		kind        device.ErrorKind
		name        string
		recoverable bool
		fatal       bool
	}{
		{device.KindOk, "ok", false, false},
		{device.KindInit, "init", false, true},
		{device.KindConfig, "config", false, true},
		{device.KindNetwork, "network", true, false},
		{device.KindAudio, "audio", true, false},
		{device.KindWebSocket, "websocket", true, false},
		{device.KindMemory, "memory", false, true},
		{device.KindTimeout, "timeout", true, false},
		{device.KindInvalidParam, "invalid_param", false, false},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.name {
			t.Errorf("%d.String() = %q, want %q", int(tt.kind), got, tt.name)
		}
		if got := tt.kind.Recoverable(); got != tt.recoverable {
			t.Errorf("%v.Recoverable() = %v, want %v", tt.kind, got, tt.recoverable)
		}
		if got := tt.kind.Fatal(); got != tt.fatal {
			t.Errorf("%v.Fatal() = %v, want %v", tt.kind, got, tt.fatal)
		}
		if tt.kind.Recoverable() && tt.kind.Fatal() {
			t.Errorf("%v is both recoverable and fatal", tt.kind)
		}
	}
}

func TestErrorKindJSON(t *testing.T) {
	b, err := json.Marshal(device.KindWebSocket)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"websocket"` {
		t.Fatalf("marshal = %s, want \"websocket\"", b)
	}

	var k device.ErrorKind
	if err := json.Unmarshal([]byte(`"invalid_param"`), &k); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if k != device.KindInvalidParam {
		t.Fatalf("unmarshal = %v, want invalid_param", k)
	}
	if err := json.Unmarshal([]byte(`"meltdown"`), &k); err == nil {
		t.Fatal("unknown kind accepted")
	}
}

func TestErrorWrapping(t *testing.T) {
	cause := errors.New("i2s bus stuck")
	err := device.E(device.KindAudio, "start capture", cause)

	if !errors.Is(err, cause) {
		t.Error("cause lost through wrap")
	}
	if got := device.KindOf(err); got != device.KindAudio {
		t.Errorf("KindOf = %v, want audio", got)
	}
	wrapped := fmt.Errorf("boot: %w", err)
	if got := device.KindOf(wrapped); got != device.KindAudio {
		t.Errorf("KindOf through fmt wrap = %v, want audio", got)
	}
	if got := device.KindOf(errors.New("plain")); got != device.KindOk {
		t.Errorf("KindOf(plain) = %v, want ok", got)
	}
	if got := device.KindOf(nil); got != device.KindOk {
		t.Errorf("KindOf(nil) = %v, want ok", got)
	}

	want := "device: start capture: i2s bus stuck"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	bare := device.E(device.KindConfig, "load", nil)
	if bare.Error() != "device: load: config" {
		t.Errorf("Error() = %q", bare.Error())
	}
}
