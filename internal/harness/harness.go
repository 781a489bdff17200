// Package harness runs YAML-defined scan scenarios against the real engine
// and compares the resulting event trace with golden files.
//
// A scenario seeds the authority and the device cache, flips connectivity,
// and drives scans, bulk scans, and reconciliation sweeps through the same
// executor the CLI uses. Tokens are sequential and metadata is fixed, so a
// scenario's trace is byte-for-byte reproducible.
//
// # Scenario Format
//
//	name: offline_scan_reconcile
//	description: "What this scenario demonstrates"
//	packages:
//	  - code: PKG-AB12-20240101
//	    state: submitted
//	    delivery_type: doorstep
//	    cached: true
//	steps:
//	  - online: false
//	  - scan: { code: PKG-AB12-20240101, action: collect, role: rider }
//	    expect: { status: queued }
//	  - online: true
//	  - sync: true
//	    expect: { applied: 1 }
//	asserts:
//	  queue: 0
//	  authority:
//	    PKG-AB12-20240101: in_transit
package harness

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/juakali/scanflow/internal/cache"
	"github.com/juakali/scanflow/internal/engine"
	"github.com/juakali/scanflow/internal/model"
	"github.com/juakali/scanflow/internal/testutil"
)

// Scenario is one YAML-defined end-to-end flow.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario demonstrates.
	Description string `yaml:"description"`

	// Packages seeds the authority's package table. Seeds with cached: true
	// are also written to the device cache, standing in for an earlier
	// online fetch.
	Packages []PackageSeed `yaml:"packages"`

	// Steps is the flow to execute, in order.
	Steps []Step `yaml:"steps"`

	// Asserts checks final state after all steps ran.
	Asserts *Asserts `yaml:"asserts,omitempty"`
}

// PackageSeed is one package known to the authority at scenario start.
// CachedState, when set, caches the package under a different state than
// the authority holds, modeling a device whose cache has gone stale.
type PackageSeed struct {
	Code         string `yaml:"code"`
	State        string `yaml:"state"`
	DeliveryType string `yaml:"delivery_type"`
	Cached       bool   `yaml:"cached,omitempty"`
	CachedState  string `yaml:"cached_state,omitempty"`
}

// Step is one scenario action. Exactly one of Online, Scan, Bulk, or Sync
// is set per step.
type Step struct {
	// Online flips the connectivity signal.
	Online *bool `yaml:"online,omitempty"`

	// Scan executes a single scan action.
	Scan *ScanStep `yaml:"scan,omitempty"`

	// Bulk executes a bulk scan.
	Bulk *BulkStep `yaml:"bulk,omitempty"`

	// Sync runs one reconciliation sweep.
	Sync bool `yaml:"sync,omitempty"`

	// Expect validates the step's result. Nil means no validation.
	Expect *Expect `yaml:"expect,omitempty"`
}

// ScanStep is a single scan invocation.
type ScanStep struct {
	Code   string `yaml:"code"`
	Action string `yaml:"action"`
	Role   string `yaml:"role"`
}

// BulkStep is a bulk scan invocation.
type BulkStep struct {
	Action string   `yaml:"action"`
	Codes  []string `yaml:"codes"`
	Role   string   `yaml:"role"`
}

// Expect validates a step result. Only the set fields are checked.
type Expect struct {
	// Status is the expected scan outcome status (scan steps).
	Status string `yaml:"status,omitempty"`

	// NewState is the expected post-action state (scan steps).
	NewState string `yaml:"new_state,omitempty"`

	// Applied, Flagged, and Skipped are expected sweep counts (sync steps).
	Applied *int `yaml:"applied,omitempty"`
	Flagged *int `yaml:"flagged,omitempty"`
	Skipped *int `yaml:"skipped,omitempty"`
}

// Asserts checks final state after the flow.
type Asserts struct {
	// Queue is the expected number of pending actions.
	Queue *int `yaml:"queue,omitempty"`

	// Authority maps package codes to their expected authoritative state.
	Authority map[string]string `yaml:"authority,omitempty"`
}

// Event is one recorded step result in the scenario trace.
type Event struct {
	Step      string              `json:"step"`
	Code      string              `json:"code,omitempty"`
	Action    string              `json:"action,omitempty"`
	Status    string              `json:"status,omitempty"`
	NewState  string              `json:"new_state,omitempty"`
	Token     string              `json:"token,omitempty"`
	Reason    string              `json:"reason,omitempty"`
	FromCache bool                `json:"from_cache,omitempty"`
	Error     string              `json:"error,omitempty"`
	Sweep     *engine.SweepResult `json:"sweep,omitempty"`
	Bulk      *engine.BulkResult  `json:"bulk,omitempty"`
}

// Result is a completed scenario run.
type Result struct {
	Scenario string  `json:"scenario"`
	Events   []Event `json:"events"`
}

// LoadScenario reads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("load scenario %s: %w", path, err)
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("load scenario %s: missing name", path)
	}
	return &sc, nil
}

// seqTokens issues sequential tokens so traces are reproducible.
type seqTokens struct {
	mu sync.Mutex
	n  int
}

func (g *seqTokens) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("tok-%04d", g.n)
}

// Run executes a scenario against a fresh store and scripted authority,
// validating each step's expect clause as it goes.
func Run(t *testing.T, sc *Scenario) *Result {
	t.Helper()
	ctx := context.Background()

	st := testutil.OpenStore(t)
	q, err := engine.NewQueue(ctx, st)
	require.NoError(t, err)

	authority := testutil.NewFakeAuthority()
	signal := testutil.NewManualSignal(false)
	c := cache.New(st)
	exec := engine.NewExecutor(authority, c, q, signal,
		engine.WithTokenGenerator(&seqTokens{}))
	reconciler := engine.NewReconciler(exec)

	for _, seed := range sc.Packages {
		snap := testutil.SnapshotFixture(seed.Code,
			model.PackageState(seed.State), model.DeliveryType(seed.DeliveryType))
		authority.Seed(snap)
		if seed.Cached || seed.CachedState != "" {
			cached := snap
			if seed.CachedState != "" {
				cached.State = model.PackageState(seed.CachedState)
			}
			require.NoError(t, c.Put(ctx, cached))
		}
	}

	result := &Result{Scenario: sc.Name}
	for i, step := range sc.Steps {
		switch {
		case step.Online != nil:
			signal.SetOnline(*step.Online)

		case step.Scan != nil:
			out := exec.Execute(ctx, step.Scan.Code, model.ActionType(step.Scan.Action),
				scenarioOperator(step.Scan.Role), scenarioMetadata())
			result.Events = append(result.Events, Event{
				Step:      "scan",
				Code:      out.Code,
				Action:    string(out.Action),
				Status:    string(out.Status),
				NewState:  string(out.NewState),
				Token:     out.Token,
				Reason:    out.Reason,
				FromCache: out.FromCache,
				Error:     out.ErrorMessage(),
			})
			checkScanExpect(t, i, step.Expect, out)

		case step.Bulk != nil:
			bulk := exec.ProcessBulk(ctx, step.Bulk.Codes, model.ActionType(step.Bulk.Action),
				scenarioOperator(step.Bulk.Role), scenarioMetadata())
			result.Events = append(result.Events, Event{
				Step:   "bulk",
				Action: step.Bulk.Action,
				Bulk:   &bulk,
			})

		case step.Sync:
			sweep, err := reconciler.Run(ctx)
			require.NoError(t, err, "step %d: sync", i)
			result.Events = append(result.Events, Event{Step: "sync", Sweep: &sweep})
			checkSweepExpect(t, i, step.Expect, sweep)

		default:
			t.Fatalf("step %d: empty step", i)
		}
	}

	if sc.Asserts != nil {
		if sc.Asserts.Queue != nil {
			n, err := q.Len(ctx)
			require.NoError(t, err)
			assert.Equal(t, *sc.Asserts.Queue, n, "final queue length")
		}
		for code, want := range sc.Asserts.Authority {
			state, ok := authority.State(code)
			require.True(t, ok, "authority has no package %s", code)
			assert.Equal(t, model.PackageState(want), state, "authority state for %s", code)
		}
	}

	return result
}

func checkScanExpect(t *testing.T, step int, expect *Expect, out engine.Outcome) {
	t.Helper()
	if expect == nil {
		return
	}
	if expect.Status != "" {
		assert.Equal(t, expect.Status, string(out.Status), "step %d: status", step)
	}
	if expect.NewState != "" {
		assert.Equal(t, expect.NewState, string(out.NewState), "step %d: new state", step)
	}
}

func checkSweepExpect(t *testing.T, step int, expect *Expect, sweep engine.SweepResult) {
	t.Helper()
	if expect == nil {
		return
	}
	if expect.Applied != nil {
		assert.Equal(t, *expect.Applied, sweep.Applied, "step %d: applied", step)
	}
	if expect.Flagged != nil {
		assert.Equal(t, *expect.Flagged, sweep.Flagged, "step %d: flagged", step)
	}
	if expect.Skipped != nil {
		assert.Equal(t, *expect.Skipped, sweep.Skipped, "step %d: skipped", step)
	}
}

func scenarioOperator(role string) model.Operator {
	return model.Operator{
		ID:   "op-" + role,
		Name: "Scenario Operator",
		Role: model.Role(role),
	}
}

func scenarioMetadata() model.Metadata {
	return testutil.MetadataFixture()
}
