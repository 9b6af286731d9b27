// Package cli provides host-side presentation helpers shared by the
// dollcore commands.
//
// This package includes:
//   - The ~/.dollcore/ directory layout (config blob, journal database,
//     run profiles)
//   - Output formatting (YAML, JSON, raw)
//   - A lipgloss theme with device state badges and a bordered status
//     frame for the run console
//   - Profile file loading (YAML/JSON)
//
// Example usage:
//
//	paths, err := cli.NewPaths()
//	blob := paths.BlobFile()
//
//	cli.Output(result, cli.OutputOptions{
//	    Format: cli.FormatJSON,
//	})
package cli
