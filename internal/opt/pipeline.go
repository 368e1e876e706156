// Package opt holds the optimization passes of the middle-end and the
// pipeline that runs them.
package opt

import (
	"time"

	"github.com/tliron/commonlog"

	"lazyjit/internal/analysis"
	"lazyjit/internal/config"
	"lazyjit/internal/ir"
)

var log = commonlog.GetLogger("lazyjit.opt")

// Pass is a single transformation of one function
type Pass interface {
	Name() string
	Description() string
	Apply(fn *ir.Function) bool // Returns true if changes were made
}

// Options carries the analysis settings passes run their analyses with
type Options struct {
	Mode         analysis.Mode
	Engine       []analysis.Option
	Verify       bool
	MaxInputSize int
}

// OptionsFromConfig translates the loaded settings
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Mode:         cfg.Analysis.Mode(),
		Engine:       cfg.Analysis.EngineOptions(),
		Verify:       cfg.Optimizer.Verify,
		MaxInputSize: cfg.Optimizer.MaxInputSize,
	}
}

// check verifies fn after an edit when verification is enabled
func (o Options) check(fn *ir.Function) {
	if o.Verify {
		ir.MustVerify(fn)
	}
}

// Pipeline manages the sequence of passes
type Pipeline struct {
	passes []Pass
	opts   Options
}

func NewPipeline(opts Options, passes ...Pass) *Pipeline {
	return &Pipeline{passes: passes, opts: opts}
}

// FromConfig builds the pipeline the configuration names
func FromConfig(cfg config.Config) (*Pipeline, error) {
	opts := OptionsFromConfig(cfg)
	p := NewPipeline(opts)
	for _, name := range cfg.Optimizer.Passes {
		pass, err := Lookup(name, opts)
		if err != nil {
			return nil, err
		}
		p.AddPass(pass)
	}
	return p, nil
}

// AddPass adds a pass to the end of the pipeline
func (p *Pipeline) AddPass(pass Pass) {
	p.passes = append(p.passes, pass)
}

func (p *Pipeline) Passes() []Pass { return p.passes }

// Run executes every pass on fn in order and reports whether any changed it.
// Functions above the configured size are left alone.
func (p *Pipeline) Run(fn *ir.Function) bool {
	if size := instructionCount(fn); p.opts.MaxInputSize > 0 && size > p.opts.MaxInputSize {
		log.Info("function too large, skipped", "function", fn.Name, "size", size, "limit", p.opts.MaxInputSize)
		return false
	}

	changed := false
	for _, pass := range p.passes {
		start := time.Now()
		applied := pass.Apply(fn)
		log.Info("pass done",
			"pass", pass.Name(), "function", fn.Name, "changed", applied, "elapsed", time.Since(start))
		if applied {
			changed = true
			p.opts.check(fn)
		}
	}
	return changed
}

// Summarize infers which arguments fn always evaluates and whether it
// calls out. It reports false when no return is reachable.
func (p *Pipeline) Summarize(fn *ir.Function) (*analysis.SignatureState, bool) {
	sig, ok := analysis.Run(fn, analysis.Signature{}, p.opts.Engine...).Final()
	if ok {
		log.Debug("signature", "function", fn.Name, "leaf", sig.Leaf, "args", sig.String())
	}
	return sig, ok
}

func instructionCount(fn *ir.Function) int {
	n := 0
	for _, bb := range fn.Blocks() {
		n += len(bb.Instrs)
	}
	return n
}
