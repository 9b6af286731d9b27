// Package main is the entry point for the dollcore device runtime.
//
// Usage:
//
//	dollcore [flags] [command] [args]
//
// Commands:
//
//	run        - Run the device loop (also the default command)
//	config     - Inspect or write the device config blob
//	events     - Dump journal records
//	version    - Show version information
//
// The process exit code classifies fatal failures: 0 clean shutdown,
// 2 config, 3 network, 4 audio, 7 power (deep sleep on low battery).
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/arunika/dollcore/cmd/dollcore/commands"
	"github.com/arunika/dollcore/pkg/device"
)

const (
	exitConfig  = 2
	exitNetwork = 3
	exitAudio   = 4
	exitPower   = 7
)

func main() {
	// Populate the environment from .env before DOLLCORE_LOG is read.
	_ = godotenv.Load()

	if err := commands.Execute(); err != nil {
		if errors.Is(err, device.ErrDeepSleep) {
			fmt.Fprintln(os.Stderr, "battery low, powering down")
			os.Exit(exitPower)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a failure to the documented process exit codes.
func exitCode(err error) int {
	switch device.KindOf(err) {
	case device.KindConfig, device.KindInvalidParam:
		return exitConfig
	case device.KindNetwork, device.KindWebSocket:
		return exitNetwork
	case device.KindAudio:
		return exitAudio
	}
	return 1
}
