package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type ResetCmd struct {
	yes      bool
	withData bool
	opts     seedOptions
}

func NewResetCmd() *ResetCmd {
	return &ResetCmd{}
}

func (c *ResetCmd) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the database and recreate an empty schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := dbPathFlag(cmd)
			if err != nil {
				return err
			}
			if !c.yes {
				return fmt.Errorf("refusing to delete %s without --yes", path)
			}

			// WAL mode leaves two sidecar files next to the database.
			for _, f := range []string{path, path + "-wal", path + "-shm"} {
				if err := os.Remove(f); err != nil && !errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("failed to remove %s: %w", f, err)
				}
			}

			store, err := openStore(path)
			if err != nil {
				return err
			}
			defer store.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "Recreated %s\n", path)

			if c.withData {
				return c.opts.generate(cmd.Context(), cmd.OutOrStdout(), store)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&c.yes, "yes", false, "confirm deleting the existing database")
	cmd.Flags().BoolVar(&c.withData, "with-data", false, "add synthetic history after recreating")
	c.opts.register(cmd)
	return cmd
}
