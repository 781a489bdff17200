package cli

import (
	"github.com/spf13/cobra"

	"github.com/juakali/scanflow/internal/engine"
	"github.com/juakali/scanflow/internal/model"
)

// NewScanCommand creates the scan command.
func NewScanCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <code> <action>",
		Short: "Execute one scan action against a package",
		Long: `Execute a scan action for a package code.

Online, the action is submitted to the authority immediately. When the
device is offline or the call hits a network failure, the action is queued
and replayed by the next sync.

Example:
  scanflow scan PKG-AB12-20240101 deliver --role rider --operator-id r-17
  scanflow scan PKG-AB12-20240101 collect --offline --role warehouse --operator-id w-3`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, rootOpts, args[0], model.ActionType(args[1]))
		},
	}
	return cmd
}

func runScan(cmd *cobra.Command, opts *RootOptions, code string, action model.ActionType) error {
	op, err := operatorFromOptions(opts)
	if err != nil {
		return err
	}

	a, err := buildApp(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer a.Close()

	out := a.executor.Execute(cmd.Context(), code, action, op, scanMetadata())
	f := formatter(cmd, opts)

	if f.IsJSON() {
		payload := map[string]any{
			"status": out.Status,
			"code":   out.Code,
			"action": out.Action,
		}
		if out.NewState != "" {
			payload["new_state"] = out.NewState
		}
		if out.Token != "" {
			payload["token"] = out.Token
		}
		if out.Reason != "" {
			payload["reason"] = out.Reason
		}
		if msg := out.ErrorMessage(); msg != "" {
			payload["error"] = msg
		}
		if out.FromCache {
			payload["from_cache"] = true
		}
		if err := f.JSON(payload); err != nil {
			return err
		}
	} else {
		printOutcomeText(f, out)
	}

	switch out.Status {
	case engine.StatusApplied, engine.StatusQueued:
		return nil
	default:
		return NewExitError(ExitFailure, "scan did not apply")
	}
}

func printOutcomeText(f *OutputFormatter, out engine.Outcome) {
	switch out.Status {
	case engine.StatusApplied:
		f.Textf("applied: %s is now %s", out.Code, out.NewState)
	case engine.StatusQueued:
		f.Textf("queued: %s %s (token %s)", out.Code, out.Action, out.Token)
		if out.FromCache {
			f.Textf("note: resolved against offline cached data")
		}
	case engine.StatusRejected:
		f.Textf("rejected: %s", out.Reason)
	case engine.StatusFailed:
		f.Textf("failed: %s", out.ErrorMessage())
	}
}
