package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/itchyny/gojq"
	"github.com/spf13/cobra"

	"github.com/arunika/dollcore/pkg/cli"
	"github.com/arunika/dollcore/pkg/journal"
	"github.com/arunika/dollcore/pkg/kv"
)

var (
	flagEventsN      int
	flagEventsFilter string
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Dump journal records",
	Long: `Dump device journal records as JSON, newest first.

Records carry a kind (boot, state_change, link, error, sleep) and the
fields that kind sets. The optional --filter is a jq expression run per
record; every value it produces is printed, so select() drops records and
path expressions project fields.

Examples:
  dollcore events -n 20
  dollcore events --filter 'select(.kind == "error")'
  dollcore events --filter 'select(.kind == "state_change") | .to'`,
	Args: cobra.NoArgs,
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().IntVarP(&flagEventsN, "limit", "n", 50, "maximum records")
	eventsCmd.Flags().StringVar(&flagEventsFilter, "filter", "", "jq expression applied to each record")
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, args []string) error {
	var query *gojq.Query
	if flagEventsFilter != "" {
		q, err := gojq.Parse(flagEventsFilter)
		if err != nil {
			return fmt.Errorf("invalid jq expression %q: %w", flagEventsFilter, err)
		}
		query = q
	}

	paths, err := cli.NewPaths()
	if err != nil {
		return err
	}
	bdg, err := kv.NewBadger(kv.BadgerOptions{Dir: paths.JournalDir()})
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer bdg.Close()

	recs, err := journal.New(bdg, slog.Default()).Recent(cmd.Context(), flagEventsN)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for _, rec := range recs {
		if query == nil {
			if err := enc.Encode(rec); err != nil {
				return err
			}
			continue
		}
		if err := emitFiltered(enc, query, rec); err != nil {
			return err
		}
	}
	return nil
}

// emitFiltered runs the jq query over one record and prints every produced
// value. gojq consumes plain maps, so the record round-trips through JSON.
func emitFiltered(enc *json.Encoder, query *gojq.Query, rec journal.Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	var input any
	if err := json.Unmarshal(raw, &input); err != nil {
		return err
	}

	iter := query.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, ok := v.(error); ok {
			return fmt.Errorf("jq error: %w", err)
		}
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
}
