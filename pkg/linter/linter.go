// Package linter is the public entry point: it decodes a module, runs
// the control-dependence and divergence analyses over every function in
// it, and reports every derivative found under non-uniform control flow
// through a caller-supplied diag.Consumer. It plays the same role as
// the underlying binary analysis library's own Linter class: a stable
// facade in front of an internal pipeline that is free to change shape.
package linter

import (
	"fmt"

	"github.com/l3aro/divergence-lint/internal/config"
	"github.com/l3aro/divergence-lint/internal/diag"
	"github.com/l3aro/divergence-lint/pkg/cfgview"
	"github.com/l3aro/divergence-lint/pkg/controldep"
	"github.com/l3aro/divergence-lint/pkg/defuse"
	"github.com/l3aro/divergence-lint/pkg/derivcheck"
	"github.com/l3aro/divergence-lint/pkg/divergence"
	"github.com/l3aro/divergence-lint/pkg/ir"
	"github.com/l3aro/divergence-lint/pkg/postdom"
)

// ConsistencyError reports that building the control dependence graph
// for Function failed an internal consistency check (an inconsistent
// post-dominator tree or CFG, which never happens on a well-formed
// module but is checked defensively rather than assumed). RunModule
// reports it through the consumer and skips the offending function
// instead of aborting the whole run.
type ConsistencyError struct {
	Function ir.ID
	Err      error
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("internal consistency error in function %s: %s", e.Function, e.Err)
}

func (e *ConsistencyError) Unwrap() error {
	return e.Err
}

// Linter runs the derivative/non-uniform-control-flow check over a
// decoded module. Construct one with New; its zero value has no
// consumer and no configuration and is not ready to use. A Linter from
// New discards every message until SetMessageConsumer is called.
type Linter struct {
	consumer diag.Consumer
	cfg      *config.Config
}

// New returns a Linter that discards diagnostics until SetMessageConsumer
// is called, configured with config.DefaultConfig().
func New() *Linter {
	return &Linter{consumer: diag.Discard, cfg: config.DefaultConfig()}
}

// SetConfig replaces the configuration Run resolves open analysis
// questions and rendering preferences from.
func (l *Linter) SetConfig(cfg *config.Config) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	l.cfg = cfg
}

// SetMessageConsumer replaces the sink every diagnostic is reported
// through.
func (l *Linter) SetMessageConsumer(consumer diag.Consumer) {
	if consumer == nil {
		consumer = diag.Discard
	}
	l.consumer = consumer
}

// Run decodes words as a module and lints every function in it. Its
// return value solely reflects whether the module could be decoded: a
// per-function consistency failure (an inconsistent post-dominator
// tree or CFG, which never happens on a well-formed module but is
// checked defensively rather than assumed) is reported at LevelError
// through the consumer and that function is skipped, without affecting
// the return value.
func (l *Linter) Run(words []uint32) bool {
	mod, err := ir.DecodeModule(words)
	if err != nil {
		l.consumer(diag.LevelError, "", diag.Position{}, err.Error())
		return false
	}
	return l.RunModule(mod)
}

// RunModule lints an already-decoded module. It is exposed separately
// from Run so callers that build or transform a module in memory (such
// as tests) don't have to round-trip
// through the binary encoding first. It always returns true: decoding
// already succeeded by the time a module reaches here, and a
// per-function consistency failure is reported through the consumer
// rather than surfaced in the return value.
func (l *Linter) RunModule(mod *ir.Module) bool {
	du := defuse.Build(mod)
	for _, fn := range mod.Functions {
		l.runFunction(mod, fn, du)
	}
	return true
}

func (l *Linter) runFunction(mod *ir.Module, fn *ir.Function, du *defuse.Index) {
	cfg := cfgview.Build(fn)
	pdt := postdom.Build(cfg)
	cdg, err := controldep.Build(cfg, pdt)
	if err != nil {
		cerr := &ConsistencyError{Function: fn.ResultID, Err: err}
		l.consumer(diag.LevelError, "", diag.Position{}, cerr.Error()+", skipping")
		return
	}
	state := divergence.Run(mod, fn, cfg, cdg, du, divergence.Options{
		ImageLoadsDivergent: l.cfg.ImageLoadsDivergent,
	})
	derivcheck.Check(fn, du, state, l.consumer, derivcheck.Options{
		FriendlyNames: l.cfg.FriendlyNames,
	})
}
