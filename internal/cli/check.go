package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

type CheckCmd struct{}

func NewCheckCmd() *CheckCmd {
	return &CheckCmd{}
}

func (c *CheckCmd) Command() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report the database file, SQLite version, tables and row counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := dbPathFlag(cmd)
			if err != nil {
				return err
			}

			info, err := os.Stat(path)
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("database file %s not found", path)
			} else if err != nil {
				return fmt.Errorf("failed to stat %s: %w", path, err)
			}

			store, err := openStore(path)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read stats: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database: %s (%d bytes)\n", path, info.Size())
			fmt.Fprintf(out, "SQLite version: %s\n", stats.SQLiteVersion)
			fmt.Fprintf(out, "Tables: %d\n", len(stats.Tables))

			table := newTable(out, []string{"Table", "Rows"})
			table.Append([]string{"devices", strconv.FormatInt(stats.Devices, 10)})
			table.Append([]string{"metrics", strconv.FormatInt(stats.Metrics, 10)})
			table.Append([]string{"device_metrics", strconv.FormatInt(stats.Facts, 10)})
			table.Render()
			return nil
		},
	}
}
