package sitegen

import (
	"path"
	"strings"
)

// BuildContext carries the paths a page render needs beyond the template
// context itself: the snippet/output folders and the build root each output
// path is relative to (§4.6).
type BuildContext struct {
	SnippetFolder string
	OutputFolder  string
}

// BuildPage executes a single expanded page render (component G): read the
// input, compute its auxiliary params, render, and write the result to its
// full output path (§4.6).
func BuildPage(action ExpandedBuildPage, pipes PipeRegistry, io *IO, bctx BuildContext) error {
	nodes, err := io.ReadTemplate(action.Input)
	if err != nil {
		return err
	}

	outputFull := path.Join(bctx.OutputFolder, action.Output)

	params := action.Params.Clone()
	params.Set("_input", StringValue(action.Input))
	params.Set("_output", StringValue(action.Output))
	params.Set("_outputfolder", StringValue(bctx.OutputFolder))
	params.Set("_outputfull", StringValue(outputFull))
	params.Set("_dots", StringValue(dotsFor(action.Output)))

	ctx := TemplateContext{SnippetFolder: bctx.SnippetFolder, OutputFolder: bctx.OutputFolder}
	text, err := Render(nodes, params, pipes, io, ctx)
	if err != nil {
		if action.Source != nil {
			return &BMSourcedError{Source: *action.Source, Inner: err}
		}
		return err
	}

	return io.Write(outputFull, text)
}

// dotsFor computes `_dots`: the relative-ascent prefix from output's parent
// directory back to the build root, trailing slash trimmed (§4.6, §9
// "`_dots` computation"). An output with no parent directory (a bare
// filename at the build root) has nothing to ascend, so `_dots` is empty —
// the convention this implementation picks for the source's open question.
func dotsFor(output string) string {
	dir := path.Dir(output)
	if dir == "." || dir == "/" {
		return ""
	}
	depth := strings.Count(dir, "/") + 1
	segments := make([]string, depth)
	for i := range segments {
		segments[i] = ".."
	}
	return strings.Join(segments, "/")
}
