package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"metrics-monitor/internal/collector"
	"metrics-monitor/internal/repository"
)

var defaultSeedSymbols = []string{"AAPL", "GOOGL", "MSFT"}

type seedOptions struct {
	duration time.Duration
	step     time.Duration
	symbols  []string
	seed     int64
}

func (o *seedOptions) register(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&o.duration, "duration", 24*time.Hour, "how far back the generated history starts")
	cmd.Flags().DurationVar(&o.step, "step", time.Hour, "spacing between generated snapshots")
	cmd.Flags().StringSliceVar(&o.symbols, "symbols", defaultSeedSymbols, "instrument symbols to generate")
	cmd.Flags().Int64Var(&o.seed, "seed", 1, "random seed")
}

// generate writes synthetic history ending at the current hour.
func (o *seedOptions) generate(ctx context.Context, out io.Writer, store *repository.SQLiteStore) error {
	symbols := make([]string, 0, len(o.symbols))
	for _, s := range o.symbols {
		if s = strings.TrimSpace(s); s != "" {
			symbols = append(symbols, s)
		}
	}

	end := time.Now().UTC().Truncate(time.Hour)
	written, err := collector.GenerateHistory(ctx, store, collector.HistoryOptions{
		Start:   end.Add(-o.duration),
		End:     end,
		Step:    o.step,
		Symbols: symbols,
		Seed:    o.seed,
	})
	if err != nil {
		return fmt.Errorf("failed to generate history after %d snapshots: %w", written, err)
	}
	fmt.Fprintf(out, "Wrote %d snapshots\n", written)
	return nil
}

type SeedCmd struct {
	opts seedOptions
}

func NewSeedCmd() *SeedCmd {
	return &SeedCmd{}
}

func (c *SeedCmd) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Add synthetic system and instrument history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := dbPathFlag(cmd)
			if err != nil {
				return err
			}
			store, err := openStore(path)
			if err != nil {
				return err
			}
			defer store.Close()

			return c.opts.generate(cmd.Context(), cmd.OutOrStdout(), store)
		},
	}
	c.opts.register(cmd)
	return cmd
}
