package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

type ViewCmd struct{}

func NewViewCmd() *ViewCmd {
	return &ViewCmd{}
}

func (c *ViewCmd) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Print devices, metrics and the most recent facts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := dbPathFlag(cmd)
			if err != nil {
				return err
			}
			limit, err := cmd.Flags().GetInt("limit")
			if err != nil {
				return fmt.Errorf("failed to get limit flag: %w", err)
			}

			store, err := openStore(path)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			devices, err := store.ListDevices(ctx)
			if err != nil {
				return fmt.Errorf("failed to list devices: %w", err)
			}
			fmt.Fprintln(out, "Devices")
			table := newTable(out, []string{"ID", "Name", "Type", "Created"})
			for _, d := range devices {
				table.Append([]string{strconv.FormatInt(d.ID, 10), d.Name, d.Type, d.CreatedAt})
			}
			table.Render()

			metrics, err := store.ListMetrics(ctx)
			if err != nil {
				return fmt.Errorf("failed to list metrics: %w", err)
			}
			fmt.Fprintln(out, "Metrics")
			table = newTable(out, []string{"ID", "Name", "Type", "Unit", "Created"})
			for _, m := range metrics {
				table.Append([]string{strconv.FormatInt(m.ID, 10), m.Name, m.Type, m.Unit, m.CreatedAt})
			}
			table.Render()

			facts, err := store.RecentFacts(ctx, limit)
			if err != nil {
				return fmt.Errorf("failed to read recent facts: %w", err)
			}
			fmt.Fprintf(out, "Recent facts (%d)\n", len(facts))
			table = newTable(out, []string{"ID", "Device", "Metric", "Value", "Timestamp"})
			for _, f := range facts {
				table.Append([]string{
					strconv.FormatInt(f.ID, 10), f.Device, f.Metric,
					strconv.FormatFloat(f.Value, 'f', 2, 64), f.Timestamp,
				})
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().Int("limit", 10, "number of recent facts to show")
	return cmd
}
