package cli

import (
	"github.com/spf13/cobra"
)

// NewPendingCommand creates the pending command group.
func NewPendingCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "Review and manage queued scan actions",
	}
	cmd.AddCommand(newPendingListCommand(rootOpts))
	cmd.AddCommand(newPendingDiscardCommand(rootOpts))
	return cmd
}

func newPendingListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List queued scan actions in replay order",
		Long: `List every queued scan action in the order reconciliation will replay
them. Actions flagged "needs attention" were rejected by the authority and
wait for an operator decision; they are skipped by sync.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			pending, err := a.queue.List(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to list pending actions", err)
			}

			f := formatter(cmd, rootOpts)
			if f.IsJSON() {
				return f.JSON(map[string]any{"pending": pending, "count": len(pending)})
			}

			if len(pending) == 0 {
				f.Textf("no pending actions")
				return nil
			}
			for _, pa := range pending {
				mark := " "
				if pa.NeedsAttention {
					mark = "!"
				}
				f.Textf("%s %s  %-20s %-12s attempts=%d token=%s",
					mark, pa.QueuedAt.Format("2006-01-02 15:04"), pa.Code, pa.Action, pa.Attempts, pa.Token)
			}
			f.Textf("%d pending", len(pending))
			return nil
		},
	}
}

func newPendingDiscardCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "discard <token>",
		Short: "Discard a queued scan action",
		Long: `Remove a queued action by its token. Meant for actions flagged by sync
after an authority rejection - discarding is the operator saying "this scan
will never apply, stop holding the queue for it".`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.queue.Remove(cmd.Context(), args[0]); err != nil {
				return WrapExitError(ExitCommandError, "failed to discard pending action", err)
			}

			f := formatter(cmd, rootOpts)
			if f.IsJSON() {
				return f.JSON(map[string]any{"discarded": args[0]})
			}
			f.Textf("discarded %s", args[0])
			return nil
		},
	}
}
