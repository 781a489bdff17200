package cli

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/juakali/scanflow/internal/cache"
	"github.com/juakali/scanflow/internal/engine"
	"github.com/juakali/scanflow/internal/model"
	"github.com/juakali/scanflow/internal/remote"
	"github.com/juakali/scanflow/internal/store"
)

// app wires the engine from flags for one command invocation.
// Commands are one-shot: open, act, close.
type app struct {
	store      *store.Store
	queue      *engine.Queue
	cache      *cache.Cache
	executor   *engine.Executor
	reconciler *engine.Reconciler
	signal     *engine.StaticSignal
}

// buildApp constructs the wired engine. The caller must Close it.
func buildApp(ctx context.Context, opts *RootOptions) (*app, error) {
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	q, err := engine.NewQueue(ctx, st)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to open pending queue", err)
	}

	authority := opts.Authority
	if authority == nil {
		authority = remote.NewHTTPAuthority(opts.APIBase, remote.WithBearerToken(os.Getenv("SCANFLOW_TOKEN")))
	}

	// One-shot commands decide connectivity up front: --offline pins the
	// signal, otherwise a configured API means "assume online and let the
	// executor downgrade on network failure".
	signal := engine.NewStaticSignal(!opts.Offline && opts.APIBase != "")

	c := cache.New(st)
	var execOpts []engine.ExecutorOption
	if opts.Tokens != nil {
		execOpts = append(execOpts, engine.WithTokenGenerator(opts.Tokens))
	}
	exec := engine.NewExecutor(authority, c, q, signal, execOpts...)

	return &app{
		store:      st,
		queue:      q,
		cache:      c,
		executor:   exec,
		reconciler: engine.NewReconciler(exec),
		signal:     signal,
	}, nil
}

// Close releases the app's store.
func (a *app) Close() error {
	return a.store.Close()
}

// operator builds the acting operator from flags, validating the role.
func operatorFromOptions(opts *RootOptions) (model.Operator, error) {
	role := model.Role(opts.OperatorRole)
	if !role.IsValid() {
		return model.Operator{}, NewExitError(ExitCommandError,
			"a valid --role is required (rider|agent|warehouse|admin|client|customer)")
	}
	if opts.OperatorID == "" {
		return model.Operator{}, NewExitError(ExitCommandError, "--operator-id is required")
	}
	return model.Operator{ID: opts.OperatorID, Name: opts.OperatorName, Role: role}, nil
}

// scanMetadata stamps a scan with the device context.
func scanMetadata() model.Metadata {
	host, _ := os.Hostname()
	return model.Metadata{
		Timestamp: time.Now().UTC(),
		Device:    host,
	}
}

// formatter builds the output formatter for a command.
func formatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
}
