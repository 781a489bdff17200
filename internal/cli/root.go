// Package cli implements the scanflow command line: scan execution, bulk
// scans, action resolution, pending queue review, and reconciliation.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/juakali/scanflow/internal/engine"
	"github.com/juakali/scanflow/internal/remote"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	Database string // SQLite path for the on-device store
	APIBase  string // package/scan API base URL
	Offline  bool   // force offline behavior regardless of the API

	OperatorID   string
	OperatorName string
	OperatorRole string

	// Authority overrides the remote client (for testing).
	// If nil, an HTTP client for APIBase is used.
	Authority remote.Authority

	// Tokens overrides the idempotency token generator (for testing).
	// If nil, defaults to UUIDv7.
	Tokens engine.TokenGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the scanflow CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "scanflow",
		Short: "scanflow - parcel scan actions from the field",
		Long: `scanflow advances packages through the delivery lifecycle by scan actions,
queues actions while the device is offline, and reconciles the queue against
the package authority when connectivity returns.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}

			logLevel := slog.LevelInfo
			if opts.Verbose {
				logLevel = slog.LevelDebug
			}
			handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: logLevel,
			})
			slog.SetDefault(slog.New(handler))
			return nil
		},
	}

	// Global flags. Env variables fill the defaults so field devices can be
	// provisioned once instead of repeating flags on every scan.
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", envOr("SCANFLOW_DB", "scanflow.db"), "path to the on-device SQLite database")
	cmd.PersistentFlags().StringVar(&opts.APIBase, "api", os.Getenv("SCANFLOW_API"), "package authority base URL")
	cmd.PersistentFlags().BoolVar(&opts.Offline, "offline", false, "treat the device as offline")
	cmd.PersistentFlags().StringVar(&opts.OperatorID, "operator-id", os.Getenv("SCANFLOW_OPERATOR_ID"), "acting operator id")
	cmd.PersistentFlags().StringVar(&opts.OperatorName, "operator-name", os.Getenv("SCANFLOW_OPERATOR_NAME"), "acting operator name")
	cmd.PersistentFlags().StringVar(&opts.OperatorRole, "role", os.Getenv("SCANFLOW_OPERATOR_ROLE"), "acting operator role (rider|agent|warehouse|admin|client|customer)")

	cmd.AddCommand(NewScanCommand(opts))
	cmd.AddCommand(NewBulkCommand(opts))
	cmd.AddCommand(NewActionsCommand(opts))
	cmd.AddCommand(NewPendingCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
