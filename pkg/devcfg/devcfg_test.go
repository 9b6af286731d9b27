package devcfg_test

import (
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"

	"github.com/arunika/dollcore/pkg/audio/pcm"
	"github.com/arunika/dollcore/pkg/devcfg"
	"github.com/arunika/dollcore/pkg/kv"
)

func TestBlobSize(t *testing.T) {
	// 32+64+256+32 string bytes, u16 port, u8 encoding, u32 checksum.
	if devcfg.BlobSize != 391 {
		t.Fatalf("BlobSize = %d, want 391", devcfg.BlobSize)
	}
}

func TestBlobRoundTrip(t *testing.T) {
	cfgs := map[string]devcfg.Config{
		"default": devcfg.Default(),
		"provisioned": {
			SSID:       "doll-lab-2g",
			Passphrase: "hunter2hunter2",
			ServerURL:  "wss://staging.arunika.com/gw",
			DeviceID:   "ARUN_DEV_9f31aa",
			ServerPort: 8443,
			Encoding:   pcm.AlawMono8K,
		},
		"open network": {
			SSID:       "cafe",
			Passphrase: "",
			ServerURL:  "wss://api.arunika.com",
			DeviceID:   "ARUN_DEV_001234",
			ServerPort: 443,
			Encoding:   pcm.L16Mono8K,
		},
	}
	for name, cfg := range cfgs {
		t.Run(name, func(t *testing.T) {
			blob, err := cfg.MarshalBlob()
			if err != nil {
				t.Fatalf("MarshalBlob: %v", err)
			}
			if len(blob) != devcfg.BlobSize {
				t.Fatalf("blob length = %d, want %d", len(blob), devcfg.BlobSize)
			}
			got, err := devcfg.UnmarshalBlob(blob)
			if err != nil {
				t.Fatalf("UnmarshalBlob: %v", err)
			}
			if got != cfg {
				t.Errorf("round trip = %+v, want %+v", got, cfg)
			}
		})
	}
}

func TestBlobRejectsCorruption(t *testing.T) {
	blob, err := devcfg.Default().MarshalBlob()
	if err != nil {
		t.Fatalf("MarshalBlob: %v", err)
	}

	flipped := append([]byte(nil), blob...)
	flipped[10] ^= 0x01
	if _, err := devcfg.UnmarshalBlob(flipped); !errors.Is(err, devcfg.ErrBlobCRC) {
		t.Errorf("flipped byte: err = %v, want ErrBlobCRC", err)
	}

	if _, err := devcfg.UnmarshalBlob(blob[:100]); !errors.Is(err, devcfg.ErrBlobSize) {
		t.Errorf("short blob: err = %v, want ErrBlobSize", err)
	}
	if _, err := devcfg.UnmarshalBlob(nil); !errors.Is(err, devcfg.ErrBlobSize) {
		t.Errorf("nil blob: err = %v, want ErrBlobSize", err)
	}
	if _, err := devcfg.UnmarshalBlob(append(blob, 0)); !errors.Is(err, devcfg.ErrBlobSize) {
		t.Errorf("long blob: err = %v, want ErrBlobSize", err)
	}
}

func TestBlobRejectsInvalidContent(t *testing.T) {
	blob, err := devcfg.Default().MarshalBlob()
	if err != nil {
		t.Fatalf("MarshalBlob: %v", err)
	}
	// Zero the port field and fix up the checksum so only validation trips.
	body := devcfg.BlobSize - 4
	blob[body-3] = 0
	blob[body-2] = 0
	binary.LittleEndian.PutUint32(blob[body:], crc32.ChecksumIEEE(blob[:body]))

	if _, err := devcfg.UnmarshalBlob(blob); err == nil {
		t.Fatal("expected validation error for port 0")
	}
}

func TestValidate(t *testing.T) {
	mutate := func(f func(*devcfg.Config)) devcfg.Config {
		c := devcfg.Default()
		f(&c)
		return c
	}
	long := func(n int) string {
		b := make([]byte, n)
		for i := range b {
			b[i] = 'x'
		}
		return string(b)
	}

	cases := []struct {
		name    string
		cfg     devcfg.Config
		wantErr bool
	}{
		{"default", devcfg.Default(), false},
		{"ws scheme", mutate(func(c *devcfg.Config) { c.ServerURL = "ws://localhost:9090" }), false},
		{"empty ssid", mutate(func(c *devcfg.Config) { c.SSID = "" }), true},
		{"ssid too long", mutate(func(c *devcfg.Config) { c.SSID = long(33) }), true},
		{"passphrase too long", mutate(func(c *devcfg.Config) { c.Passphrase = long(65) }), true},
		{"empty url", mutate(func(c *devcfg.Config) { c.ServerURL = "" }), true},
		{"url too long", mutate(func(c *devcfg.Config) { c.ServerURL = "wss://h/" + long(250) }), true},
		{"http scheme", mutate(func(c *devcfg.Config) { c.ServerURL = "http://api.arunika.com" }), true},
		{"no host", mutate(func(c *devcfg.Config) { c.ServerURL = "wss://" }), true},
		{"empty id", mutate(func(c *devcfg.Config) { c.DeviceID = "" }), true},
		{"id too long", mutate(func(c *devcfg.Config) { c.DeviceID = long(33) }), true},
		{"id with space", mutate(func(c *devcfg.Config) { c.DeviceID = "ARUN DEV" }), true},
		{"id with control byte", mutate(func(c *devcfg.Config) { c.DeviceID = "ARUN\x01DEV" }), true},
		{"port zero", mutate(func(c *devcfg.Config) { c.ServerPort = 0 }), true},
		{"bad encoding", mutate(func(c *devcfg.Config) { c.Encoding = pcm.Format(9) }), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestStoreFileRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "doll.cfg")
	s := &devcfg.Store{Path: path}

	got, usedDefaults, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load missing: %v", err)
	}
	if !usedDefaults {
		t.Fatal("Load missing: expected defaults")
	}
	if got != devcfg.Default() {
		t.Fatalf("Load missing = %+v, want defaults", got)
	}

	want := devcfg.Default()
	want.SSID = "doll-lab-2g"
	want.DeviceID = "ARUN_DEV_9f31aa"
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, usedDefaults, err = s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if usedDefaults {
		t.Fatal("Load after save: unexpected defaults")
	}
	if got != want {
		t.Fatalf("Load = %+v, want %+v", got, want)
	}
}

func TestStoreKVRoundTrip(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory(nil)
	defer mem.Close()
	s := &devcfg.Store{KV: mem}

	_, usedDefaults, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load missing: %v", err)
	}
	if !usedDefaults {
		t.Fatal("Load missing: expected defaults")
	}

	want := devcfg.Default()
	want.ServerPort = 8443
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, usedDefaults, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if usedDefaults {
		t.Fatal("Load after save: unexpected defaults")
	}
	if got != want {
		t.Fatalf("Load = %+v, want %+v", got, want)
	}
}

func TestStoreCorruptFallsBack(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "doll.cfg")
	junk := make([]byte, devcfg.BlobSize)
	for i := range junk {
		junk[i] = byte(i)
	}
	if err := os.WriteFile(path, junk, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s := &devcfg.Store{Path: path}
	got, usedDefaults, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load corrupt: %v", err)
	}
	if !usedDefaults {
		t.Fatal("Load corrupt: expected defaults")
	}
	if got != devcfg.Default() {
		t.Fatalf("Load corrupt = %+v, want defaults", got)
	}
}

func TestStoreNoBacking(t *testing.T) {
	ctx := context.Background()
	s := &devcfg.Store{}

	got, usedDefaults, err := s.Load(ctx)
	if err != nil || !usedDefaults || got != devcfg.Default() {
		t.Fatalf("Load = (%+v, %v, %v), want (defaults, true, nil)", got, usedDefaults, err)
	}
	if err := s.Save(ctx, devcfg.Default()); !errors.Is(err, devcfg.ErrNoBacking) {
		t.Fatalf("Save: err = %v, want ErrNoBacking", err)
	}
}
