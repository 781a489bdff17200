package cli

import (
	"github.com/spf13/cobra"

	"github.com/juakali/scanflow/internal/engine"
	"github.com/juakali/scanflow/internal/model"
)

// NewBulkCommand creates the bulk command.
func NewBulkCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulk <action> <code>...",
		Short: "Apply one action to many packages as a single batch",
		Long: `Apply one scan action to a list of package codes.

Online, the batch goes to the authority in one call and each code comes
back with its own outcome; one code failing never aborts the rest. Offline,
each code is queued individually for the next sync.

Example:
  scanflow bulk deliver PKG-A1-20240101 PKG-B2-20240101 --role rider --operator-id r-17`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBulk(cmd, rootOpts, model.ActionType(args[0]), args[1:])
		},
	}
	return cmd
}

func runBulk(cmd *cobra.Command, opts *RootOptions, action model.ActionType, codes []string) error {
	op, err := operatorFromOptions(opts)
	if err != nil {
		return err
	}

	a, err := buildApp(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer a.Close()

	result := a.executor.ProcessBulk(cmd.Context(), codes, action, op, scanMetadata())
	f := formatter(cmd, opts)

	if f.IsJSON() {
		if err := f.JSON(result); err != nil {
			return err
		}
	} else {
		for _, o := range result.Outcomes {
			switch o.Status {
			case engine.StatusApplied:
				f.Textf("%s: applied, now %s", o.Code, o.NewState)
			case engine.StatusQueued:
				f.Textf("%s: queued (token %s)", o.Code, o.Token)
			default:
				f.Textf("%s: %s - %s", o.Code, o.Status, o.Reason)
			}
		}
		f.Textf("total %d, successful %d, failed %d, queued %d",
			result.Total, result.Successful, result.Failed, result.Queued)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, "some codes failed")
	}
	return nil
}
