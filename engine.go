package sitegen

import (
	"fmt"
	"path"
	"time"

	"github.com/quintans/faults"
	"github.com/spf13/afero"
)

// Engine is the top-level driver wiring the value model, parser, pipe
// registry, evaluator, build-action expander and page builder together
// (components A-H). It owns the I/O capability and pipe registry; nothing
// else is shared mutable state (§5).
type Engine struct {
	io            *IO
	pipes         PipeRegistry
	snippetFolder string
	outputFolder  string
	dryRun        bool
}

type Option func(*Engine)

// WithSnippetFolder sets the folder `{% snippet %}` directives resolve
// against. Defaults to "snippets/".
func WithSnippetFolder(folder string) Option {
	return func(e *Engine) { e.snippetFolder = folder }
}

// WithOutputFolder sets the folder every build action's output path is
// joined against. Defaults to "build/".
func WithOutputFolder(folder string) Option {
	return func(e *Engine) { e.outputFolder = folder }
}

// WithDryRun reports actions without writing any output.
func WithDryRun(dryRun bool) Option {
	return func(e *Engine) { e.dryRun = dryRun }
}

// NewEngine wraps an afero filesystem and a pipe registry as the build
// engine's capability set, mirroring copycat's NewCopyCat constructor.
func NewEngine(fsys afero.Fs, pipes PipeRegistry, options ...Option) *Engine {
	e := &Engine{
		io:            NewIO(fsys),
		pipes:         pipes,
		snippetFolder: "snippets/",
		outputFolder:  "build/",
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// ActionResult reports the outcome of running one manifest action, so a
// caller can continue past a single action's failure and report both
// successes and failures at the end of a run (§5 "continue-on-error").
type ActionResult struct {
	Index   int
	Err     error
	Elapsed time.Duration
}

// Run decodes a manifest document and executes every action it describes in
// order. A single action's failure does not stop the run; it is recorded in
// the returned results (§5).
func (e *Engine) Run(manifest Value) ([]ActionResult, error) {
	actions, err := DecodeManifest(manifest)
	if err != nil {
		return nil, faults.Wrap(err)
	}

	ctx := TemplateContext{SnippetFolder: e.snippetFolder, OutputFolder: e.outputFolder}
	bctx := BuildContext{SnippetFolder: e.snippetFolder, OutputFolder: e.outputFolder}

	var results []ActionResult
	for i, action := range actions {
		start := time.Now()
		err := e.runAction(action, ctx, bctx)
		results = append(results, ActionResult{Index: i, Err: err, Elapsed: time.Since(start)})
	}
	return results, nil
}

func (e *Engine) runAction(action BuildAction, ctx TemplateContext, bctx BuildContext) error {
	expanded, err := Expand(action, e.pipes, e.io, ctx)
	if err != nil {
		return faults.Wrap(err)
	}
	for _, ea := range expanded {
		if err := e.runExpanded(ea, bctx); err != nil {
			return faults.Wrap(err)
		}
	}
	return nil
}

func (e *Engine) runExpanded(ea ExpandedAction, bctx BuildContext) error {
	switch a := ea.(type) {
	case ExpandedBuildPage:
		if e.dryRun {
			return nil
		}
		return BuildPage(a, e.pipes, e.io, bctx)
	case ExpandedCopyFiles:
		if e.dryRun {
			return nil
		}
		to := path.Join(bctx.OutputFolder, a.To)
		return e.io.CopyTree(a.From, to)
	default:
		return faults.Errorf("unrecognized expanded action %T", ea)
	}
}

// Summary renders a single line counting a Run's actions, how many
// succeeded and how many failed.
func Summary(results []ActionResult) string {
	var ok, failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
		} else {
			ok++
		}
	}
	return fmt.Sprintf("%d action(s): %d ok, %d failed", len(results), ok, failed)
}
