package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/arunika/dollcore/pkg/cli"
	"github.com/arunika/dollcore/pkg/devcfg"
	"github.com/arunika/dollcore/pkg/device"
	"github.com/arunika/dollcore/pkg/hal"
	"github.com/arunika/dollcore/pkg/link"
)

// Status frame geometry and the synthetic short-press width.
const (
	consoleWidth  = 78
	consoleHeight = 22
	pressWidth    = 80 * time.Millisecond
)

const consoleHelp = `Commands:
  press            short button press (start/finish a recording)
  hold             long press (force reset)
  battery <pct>    set the battery level
  charging on|off  set external power
  drop             drop the WiFi association (mock backend)
  stats            show the status frame
  quit             shut down`

// consoleEnv is everything the console needs from the run command.
type consoleEnv struct {
	hooks   *consoleHooks
	ctrl    *device.Controller
	dev     devcfg.Config
	logBuf  *cli.LogWriter
	started time.Time
	cancel  context.CancelFunc
}

// runConsole reads operator commands from stdin and scripts the hardware.
// It runs beside the device loop and only touches goroutine-safe surfaces:
// the debouncer, the power monitor, the mock radio, and the published
// stats snapshot.
func runConsole(ctx context.Context, env consoleEnv) {
	styles := cli.NewStyles(cli.DefaultTheme)
	fmt.Printf("dollcore console, device %s\n", env.dev.DeviceID)
	fmt.Println(styles.Help.Render("type 'help' for commands, 'quit' to exit"))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			env.cancel()
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "press":
			now := time.Now()
			env.hooks.button.Edge(true, now)
			env.hooks.button.Edge(false, now.Add(pressWidth))

		case "hold":
			// Backdate the press past the long-press threshold; the next
			// loop poll observes the held level and fires the reset.
			env.hooks.button.Edge(true, time.Now().Add(-hal.LongPressAfter-time.Second))
			time.Sleep(50 * time.Millisecond)
			env.hooks.button.Edge(false, time.Now())

		case "battery":
			if len(fields) != 2 {
				fmt.Println("usage: battery <pct>")
				continue
			}
			pct, err := strconv.Atoi(fields[1])
			if err != nil || pct < 0 || pct > 100 {
				fmt.Println("battery level must be 0..100")
				continue
			}
			env.hooks.power.SetBattery(pct)

		case "charging":
			if len(fields) != 2 || (fields[1] != "on" && fields[1] != "off") {
				fmt.Println("usage: charging on|off")
				continue
			}
			env.hooks.power.SetCharging(fields[1] == "on")

		case "drop":
			if env.hooks.radio == nil {
				fmt.Println("no droppable radio on this backend")
				continue
			}
			env.hooks.radio.Drop()

		case "stats":
			fmt.Println(renderStatus(env, styles))

		case "help":
			fmt.Println(consoleHelp)

		case "quit", "exit":
			env.cancel()
			return

		default:
			fmt.Printf("unknown command %q (try 'help')\n", fields[0])
		}
	}
}

func renderStatus(env consoleEnv, styles cli.Styles) string {
	stats := env.ctrl.Published()
	f := cli.Frame{
		Styles: styles,
		Title:  "dollcore " + env.dev.DeviceID,
		State:  stats.State.String(),
		Sections: []cli.Section{
			{Label: "Status", Content: func() []string { return statusLines(env, stats) }},
			{Label: "Log", Content: env.logBuf.Lines},
		},
		Help: "press, hold, battery N, charging on|off, drop, stats, quit",
	}
	return f.Render(consoleWidth, consoleHeight)
}

func statusLines(env consoleEnv, s device.Stats) []string {
	charge := fmt.Sprintf("%d%%", s.Battery)
	if s.Charging {
		charge += " charging"
	}
	errLine := fmt.Sprintf("faults %d, timeouts %d", s.Faults, s.Timeouts)
	if s.LastError != device.KindOk {
		errLine += fmt.Sprintf(", last error %s", s.LastError)
	}
	return []string{
		fmt.Sprintf("channel   %s", link.ChannelURL(env.dev)),
		fmt.Sprintf("battery   %s", charge),
		fmt.Sprintf("session   epoch %d, reconnects %d", s.SessionEpoch, s.Reconnects),
		fmt.Sprintf("uplink    %d chunks, %s, gaps %d, stale %d",
			s.Transport.ChunksSent, cli.FormatBytes(int64(s.Transport.BytesSent)),
			s.Transport.Gaps, s.Transport.StaleDrops),
		fmt.Sprintf("downlink  %d responses, %d playback drops",
			s.Transport.Responses, s.PlaybackDrops),
		errLine,
		fmt.Sprintf("uptime    %s, %d transitions, %d recordings",
			cli.FormatDuration(time.Since(env.started)), s.Transitions, s.Recordings),
	}
}
