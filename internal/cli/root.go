// Package cli implements metricsctl, the operator tool for inspecting and
// rebuilding the metrics database.
package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"metrics-monitor/internal/repository"
	"metrics-monitor/internal/util"
)

type ExitCode int

const (
	exitCodeSuccess = 0
	exitCodeError   = 1
)

func Run(args []string) ExitCode {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	// PersistentPostRun is skipped when a command fails.
	util.ShutdownLogging()
	if err != nil {
		return exitCodeError
	}
	return exitCodeSuccess
}

func NewRootCmd() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:           "metricsctl",
		Short:         "Inspect, reset and seed the metrics database.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := util.LOG_LEVEL_WARN
			if verbose {
				level = util.LOG_LEVEL_DEBUG
			}
			err := util.InitLogging(util.LogConfig{Level: level, Console: true})
			if err != nil && !errors.Is(err, util.ErrLoggingAlreadyInitialized) {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			util.ShutdownLogging()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "set debug logging level")
	rootCmd.PersistentFlags().String("db-path", "metrics.db", "SQLite database file")

	rootCmd.AddCommand(
		NewCheckCmd().Command(),
		NewViewCmd().Command(),
		NewResetCmd().Command(),
		NewSeedCmd().Command(),
	)
	return rootCmd
}

func dbPathFlag(cmd *cobra.Command) (string, error) {
	path, err := cmd.Root().PersistentFlags().GetString("db-path")
	if err != nil {
		return "", fmt.Errorf("failed to get db-path flag: %w", err)
	}
	if path == "" {
		return "", errors.New("db-path must not be empty")
	}
	return path, nil
}

func openStore(path string) (*repository.SQLiteStore, error) {
	store := repository.NewSQLiteStore(path)
	if err := store.Init(); err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return store, nil
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(true)
	table.SetHeader(header)
	return table
}
