package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/arunika/dollcore/pkg/audio/pcm"
	"github.com/arunika/dollcore/pkg/cli"
	"github.com/arunika/dollcore/pkg/clock"
	"github.com/arunika/dollcore/pkg/devcfg"
	"github.com/arunika/dollcore/pkg/device"
	"github.com/arunika/dollcore/pkg/hal"
	"github.com/arunika/dollcore/pkg/journal"
	"github.com/arunika/dollcore/pkg/kv"
	"github.com/arunika/dollcore/pkg/link"
	"github.com/arunika/dollcore/pkg/transport"
)

var (
	flagProfile string
	flagBackend string
	flagConsole bool
)

var runDeviceCmd = &cobra.Command{
	Use:   "run [blob-path]",
	Short: "Run the device loop",
	Long: `Run the device lifecycle loop.

The loop binds the hardware set, the link supervisor and the audio
transport, then drives the controller until interrupted or the battery
forces deep sleep. SIGINT and SIGTERM shut down cleanly (exit 0); deep
sleep exits 7.

A profile is a YAML file selecting the backend and scripting the power
state, looked up by name under ~/.dollcore/profiles or by path:

  backend: mock        # auto, malgo, mock
  console: true
  battery: 80
  charging: false
  endpoint: wss://staging.arunika.com
  device_id: ARUN_DEV_TEST01

With --console the loop runs behind an interactive prompt:

  press            short button press (start/finish a recording)
  hold             long press (force reset)
  battery <pct>    set the battery level
  charging on|off  set external power
  drop             drop the WiFi association (mock backend)
  stats            show the status frame
  quit             shut down`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDevice,
}

func init() {
	addRunFlags(runDeviceCmd)
	rootCmd.AddCommand(runDeviceCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagProfile, "profile", "", "run profile name or YAML path")
	cmd.Flags().StringVar(&flagBackend, "backend", "", "hardware backend: auto, malgo, mock")
	cmd.Flags().BoolVar(&flagConsole, "console", false, "interactive console on stdin")
}

// Profile is the host-side run profile: backend selection, console mode, a
// scripted power state, and overrides applied on top of the config blob.
type Profile struct {
	Backend  string `yaml:"backend,omitempty"`
	Console  bool   `yaml:"console,omitempty"`
	Battery  *int   `yaml:"battery,omitempty"`
	Charging *bool  `yaml:"charging,omitempty"`
	Volume   int    `yaml:"volume,omitempty"`

	Endpoint   string `yaml:"endpoint,omitempty"`
	DeviceID   string `yaml:"device_id,omitempty"`
	Encoding   string `yaml:"encoding,omitempty"`
	SSID       string `yaml:"ssid,omitempty"`
	Passphrase string `yaml:"passphrase,omitempty"`
}

// applyTo overlays the profile's device overrides onto the blob config.
func (p *Profile) applyTo(dev *devcfg.Config) error {
	if p.Endpoint != "" {
		dev.ServerURL = p.Endpoint
	}
	if p.DeviceID != "" {
		dev.DeviceID = p.DeviceID
	}
	if p.SSID != "" {
		dev.SSID = p.SSID
	}
	if p.Passphrase != "" {
		dev.Passphrase = p.Passphrase
	}
	if p.Encoding != "" {
		f, err := pcm.ParseTag(p.Encoding)
		if err != nil {
			return err
		}
		dev.Encoding = f
	}
	return nil
}

func runDevice(cmd *cobra.Command, args []string) error {
	paths, err := cli.NewPaths()
	if err != nil {
		return device.E(device.KindConfig, "home directory", err)
	}

	var prof Profile
	if flagProfile != "" {
		if err := cli.LoadFile(paths.ProfilePath(flagProfile), &prof); err != nil {
			return device.E(device.KindConfig, "run profile", err)
		}
	}
	if flagBackend != "" {
		prof.Backend = flagBackend
	}
	if flagConsole {
		prof.Console = true
	}

	backend, err := hal.ParseBackend(prof.Backend)
	if err != nil {
		return device.E(device.KindConfig, "run profile", err)
	}

	blobPath := paths.BlobFile()
	if len(args) == 1 {
		// An explicit path must exist; only the default falls back to
		// factory defaults.
		blobPath = args[0]
		if _, err := os.Stat(blobPath); err != nil {
			return device.E(device.KindConfig, "config blob", err)
		}
	} else if err := paths.EnsureBaseDir(); err != nil {
		return device.E(device.KindConfig, "config dir", err)
	}

	cfgStore := &devcfg.Store{Path: blobPath}
	dev, defaulted, err := cfgStore.Load(cmd.Context())
	if err != nil {
		return device.E(device.KindConfig, "config blob", err)
	}
	if defaulted {
		slog.Warn("config blob missing or corrupt, using factory defaults", "path", blobPath)
	}
	if err := prof.applyTo(&dev); err != nil {
		return device.E(device.KindConfig, "run profile", err)
	}
	if err := dev.Validate(); err != nil {
		return device.E(device.KindConfig, "config blob", err)
	}

	log := slog.Default()
	var logBuf *cli.LogWriter
	if prof.Console {
		// The console owns the terminal; log lines land in the stats view.
		logBuf = cli.NewLogWriter(200)
		log = slog.New(slog.NewTextHandler(logBuf, &slog.HandlerOptions{Level: &logLevel}))
		slog.SetDefault(log)
	}

	hw, hooks, cleanup, err := openHardware(backend, &prof, log)
	if err != nil {
		return err
	}
	defer cleanup()
	if prof.Volume > 0 {
		if err := hw.Audio.SetVolume(prof.Volume); err != nil {
			return device.E(device.KindConfig, "run profile", err)
		}
	}

	jstore, closeJournal := openJournalStore(paths, log)
	defer closeJournal()
	jr := journal.New(jstore, log)

	sup := link.New(link.Config{Device: dev, Radio: hw.Radio, Log: log})
	tr := transport.New(transport.Config{Link: sup, Device: dev, Capture: hw.Audio.Format(), Log: log})
	playback := transport.NewPlayback(hw.Audio.Format())

	ctrl := device.New(device.Config{
		HW:        hw,
		Link:      sup,
		Transport: tr,
		Playback:  playback,
		Recorder:  jr.Recorder(),
		Log:       log,
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if hooks.mic != nil {
		go mockMicPump(ctx, hooks.mic)
	}

	if prof.Console {
		go runConsole(ctx, consoleEnv{
			hooks:   hooks,
			ctrl:    ctrl,
			dev:     dev,
			logBuf:  logBuf,
			started: time.Now(),
			cancel:  cancel,
		})
	} else {
		fmt.Printf("device %s, channel %s\n", dev.DeviceID, link.ChannelURL(dev))
		fmt.Println("Press Ctrl+C to exit")
	}

	return device.Run(ctx, ctrl, clock.System())
}

// openJournalStore opens the on-disk journal. Flash trouble never blocks a
// run: on failure the journal degrades to memory and the records die with
// the process.
func openJournalStore(paths *cli.Paths, log *slog.Logger) (kv.Store, func()) {
	if err := paths.EnsureJournalDir(); err != nil {
		log.Warn("journal dir unavailable, keeping records in memory", "err", err)
		return kv.NewMemory(nil), func() {}
	}
	bdg, err := kv.NewBadger(kv.BadgerOptions{Dir: paths.JournalDir()})
	if err != nil {
		log.Warn("journal store unavailable, keeping records in memory", "err", err)
		return kv.NewMemory(nil), func() {}
	}
	return bdg, func() {
		if err := bdg.Close(); err != nil {
			log.Warn("journal close failed", "err", err)
		}
	}
}

// consoleHooks are the scriptable ends of the hardware the console drives.
type consoleHooks struct {
	button *hal.Debouncer
	power  powerScript
	radio  *hal.MockRadio // nil when the backend has no droppable radio
	mic    *hal.MockAudio // nil unless the mock backend needs a mic pump
}

// powerScript is implemented by both the mock and host power monitors.
type powerScript interface {
	SetBattery(percent int)
	SetCharging(charging bool)
}

func openHardware(backend hal.Backend, prof *Profile, log *slog.Logger) (hal.Set, *consoleHooks, func(), error) {
	switch backend {
	case hal.BackendMalgo:
		return openHostHardware(prof, log)
	case hal.BackendMock:
		hw, hooks := openMockHardware(prof, log)
		return hw, hooks, func() {}, nil
	default: // BackendAuto
		hw, hooks, cleanup, err := openHostHardware(prof, log)
		if err == nil {
			return hw, hooks, cleanup, nil
		}
		log.Warn("host audio unavailable, falling back to mock hardware", "err", err)
		hw, hooks = openMockHardware(prof, log)
		return hw, hooks, func() {}, nil
	}
}

func openHostHardware(prof *Profile, log *slog.Logger) (hal.Set, *consoleHooks, func(), error) {
	hs, err := hal.OpenHost(hal.DefaultChunkBytes, log)
	if err != nil {
		return hal.Set{}, nil, nil, device.E(device.KindAudio, "open host audio", err)
	}
	applyPower(hs.Power, prof)
	hooks := &consoleHooks{button: hs.Button, power: hs.Power}
	return hs.Set(), hooks, func() { _ = hs.Close() }, nil
}

func openMockHardware(prof *Profile, log *slog.Logger) (hal.Set, *consoleHooks) {
	ms := hal.NewMockSet(pcm.L16Mono8K)
	applyPower(ms.Power, prof)
	hooks := &consoleHooks{button: ms.Button, power: ms.Power, radio: ms.Radio, mic: ms.Audio}

	// Pattern changes land in the log instead of a silent recorder.
	set := ms.Set()
	set.Indicator = &hal.LogIndicator{Log: log}
	return set, hooks
}

func applyPower(p powerScript, prof *Profile) {
	if prof.Battery != nil {
		p.SetBattery(*prof.Battery)
	}
	if prof.Charging != nil {
		p.SetCharging(*prof.Charging)
	}
}

// mockMicPump emulates the microphone DMA on mock hardware: while capture
// is armed it feeds one silent chunk per chunk period so the uplink carries
// real frames.
func mockMicPump(ctx context.Context, mic *hal.MockAudio) {
	period := mic.Format().Duration(hal.DefaultChunkBytes)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	chunk := make([]byte, hal.DefaultChunkBytes)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if mic.Capturing() {
				mic.FeedCapture(chunk)
			}
		}
	}
}
