package cli

import (
	"github.com/spf13/cobra"
)

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Replay queued scan actions against the authority",
		Long: `Run one reconciliation sweep over the pending queue.

Queued actions are replayed per package in the order they were scanned.
Actions the authority acknowledges are removed; actions it rejects are
flagged for review and block the rest of that package's queue; a network
failure stops the sweep until the next sync.

Example:
  scanflow sync --api https://api.example.com`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, rootOpts)
		},
	}
	return cmd
}

func runSync(cmd *cobra.Command, opts *RootOptions) error {
	if opts.Offline {
		return NewExitError(ExitCommandError, "cannot sync while --offline")
	}

	a, err := buildApp(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.reconciler.Run(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "reconciliation sweep failed", err)
	}

	f := formatter(cmd, opts)
	if f.IsJSON() {
		if err := f.JSON(result); err != nil {
			return err
		}
	} else {
		f.Textf("applied %d, flagged %d, skipped %d", result.Applied, result.Flagged, result.Skipped)
		if result.Aborted {
			f.Textf("sweep aborted by a network failure; run sync again when the link is back")
		}
	}

	if result.Flagged > 0 {
		return NewExitError(ExitFailure, "some actions need operator attention")
	}
	return nil
}
