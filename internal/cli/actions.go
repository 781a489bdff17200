package cli

import (
	"github.com/spf13/cobra"
)

// NewActionsCommand creates the actions command.
func NewActionsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actions <code>",
		Short: "Show the legal actions for a package",
		Long: `Resolve the legal actions for a package as seen by the acting role.

Online, the package is fetched fresh; offline, the cached snapshot is used
and the output is marked as possibly stale.

Example:
  scanflow actions PKG-AB12-20240101 --role rider --operator-id r-17`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActions(cmd, rootOpts, args[0])
		},
	}
	return cmd
}

func runActions(cmd *cobra.Command, opts *RootOptions, code string) error {
	op, err := operatorFromOptions(opts)
	if err != nil {
		return err
	}

	a, err := buildApp(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer a.Close()

	descriptors, entry, err := a.executor.ResolveActions(cmd.Context(), code, op.Role)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to resolve actions", err)
	}

	f := formatter(cmd, opts)
	if f.IsJSON() {
		return f.JSON(map[string]any{
			"code":    entry.Snapshot.Code,
			"state":   entry.Snapshot.State,
			"stale":   entry.Stale,
			"actions": descriptors,
		})
	}

	f.Textf("%s: %s (%s)", entry.Snapshot.Code, entry.Snapshot.State, entry.Snapshot.DeliveryType)
	if entry.Stale {
		f.Textf("warning: offline cached data, may be stale")
	}
	if len(descriptors) == 0 {
		f.Textf("no actions available for role %s", op.Role)
		return nil
	}
	for _, d := range descriptors {
		f.Textf("  %-20s %s", d.ID, d.Label)
	}
	return nil
}
