package sitegen

import (
	"sort"
	"strconv"
	"strings"

	"github.com/quintans/faults"
	sprig "github.com/Masterminds/sprig/v3"
)

// PipeDefinition is either a template-defined pipe (an AST) or a
// host-defined pipe (a pure Go function), each with an optional modtime
// marker used by the on-disk cache (§3 "Pipe definition").
type PipeDefinition struct {
	Template []Node
	Fn       PipeFunc
	ModTime  *int64 // nil marks the pipe (and any chain using it) uncacheable.
}

// PipeFunc is a host-provided pipe: a pure function over the input value,
// its literal arguments, the pipe registry (so it can re-enter named
// pipes) and a read-only I/O handle.
type PipeFunc func(value Value, args []string, pipes PipeRegistry, io ReadOnlyIO) (Value, error)

// ReadOnlyIO is the capability surface handed to host-function pipes: read
// access only, so a pipe cannot itself trigger writes (§3).
type ReadOnlyIO interface {
	Read(path string) (string, error)
}

type PipeRegistry map[string]*PipeDefinition

func NewPipeRegistry() PipeRegistry { return make(PipeRegistry) }

// WithSprigFuncs registers sprig's text function map as host-function pipes
// (upper, lower, trim, indent, sha256sum, ...), each taking its literal pipe
// args positionally and seeded as uncacheable (sprig functions carry no
// modification time) (SPEC_FULL.md "DOMAIN STACK"). Every entry is
// registered, but one whose signature callSprigFunc does not adapt returns
// an error when invoked.
func WithSprigFuncs(reg PipeRegistry) PipeRegistry {
	for name, fn := range sprig.TxtFuncMap() {
		reg[name] = sprigPipe(name, fn)
	}
	return reg
}

func sprigPipe(name string, fn any) *PipeDefinition {
	return &PipeDefinition{
		Fn: func(value Value, args []string, _ PipeRegistry, _ ReadOnlyIO) (Value, error) {
			result, err := callSprigFunc(fn, value, args)
			if err != nil {
				return Value{}, faults.Errorf("sprig func %s: %w", name, err)
			}
			return result, nil
		},
	}
}

// Origin tags provenance of a value entering a pipe chain, carried into
// error messages (§4.4 "Origin").
type Origin struct {
	Kind     OriginKind
	Path     string // set when Kind == OriginValue or OriginFileFrom
	Filename string // set when Kind == OriginFile or OriginFileFrom
}

type OriginKind int

const (
	OriginValue OriginKind = iota
	OriginFile
	OriginFileFrom
)

func (o Origin) String() string {
	switch o.Kind {
	case OriginValue:
		return "value(" + o.Path + ")"
	case OriginFile:
		return "file(" + o.Filename + ")"
	case OriginFileFrom:
		return "file-from(" + o.Filename + ", " + o.Path + ")"
	default:
		return "unknown-origin"
	}
}

// renderFunc is supplied by eval.go so pipe.go can re-enter template
// rendering without an import cycle inside a single package; it is just a
// local indirection point kept for readability of call sites.
type renderFunc func(nodes []Node, params *OrderedMap, pipes PipeRegistry, io *IO, ctx TemplateContext) (string, error)

// ExecutePipes folds chain left over value, executing the default Template
// pipe inline and dispatching named pipes to ExecuteNamedPipe (§4.4).
func ExecutePipes(value Value, chain PipeChain, params *OrderedMap, origin Origin, pipes PipeRegistry, io *IO, ctx TemplateContext, render renderFunc) (Value, error) {
	cur := value
	for i, step := range chain {
		if step.IsTemplate {
			text, err := ToString(cur)
			if err != nil {
				return Value{}, err
			}
			nodes, err := ParseTemplate(text)
			if err != nil {
				return Value{}, &WithinTemplatePipeError{Index: i, Origin: origin.String(), Inner: err}
			}
			rendered, err := render(nodes, params, pipes, io, ctx)
			if err != nil {
				return Value{}, &WithinTemplatePipeError{Index: i, Origin: origin.String(), Inner: err}
			}
			cur = StringValue(rendered)
			continue
		}
		next, err := executeNamedPipe(cur, step, i, origin, params, pipes, io, ctx, render)
		if err != nil {
			return Value{}, err
		}
		cur = next
	}
	return cur, nil
}

func executeNamedPipe(value Value, step Pipe, index int, origin Origin, params *OrderedMap, pipes PipeRegistry, io *IO, ctx TemplateContext, render renderFunc) (Value, error) {
	def, ok := pipes[step.Name]
	if !ok {
		return Value{}, &PipeMissingError{Name: step.Name}
	}
	switch {
	case def.Template != nil:
		pipeParams := NewOrderedMap()
		if value.Kind == KindMapping {
			pipeParams = value.Mapping.Clone()
		} else {
			pipeParams.Set("it", value)
		}
		argValues := make([]Value, len(step.Args))
		for i, a := range step.Args {
			argValues[i] = StringValue(a)
		}
		pipeParams.Set("params", SequenceValue(argValues))
		rendered, err := render(def.Template, pipeParams, pipes, io, ctx)
		if err != nil {
			return Value{}, &WithinTemplateNamedPipeError{Name: step.Name, Index: index, Origin: origin.String(), Inner: err}
		}
		return StringValue(rendered), nil
	case def.Fn != nil:
		result, err := def.Fn(value, step.Args, pipes, io)
		if err != nil {
			return Value{}, &PipeExecutionError{Message: err.Error(), Name: step.Name, Index: index, Origin: origin.String()}
		}
		return result, nil
	default:
		return Value{}, &PipeMissingError{Name: step.Name}
	}
}

// --- cached file retrieval (§4.4 "File retrieval with cache") ---

// GetFile resolves filename through chain, serving from the on-disk pipe
// cache when the chain is cacheable and up to date.
func GetFile(filename string, chain PipeChain, params *OrderedMap, origin Origin, pipes PipeRegistry, io *IO, ctx TemplateContext, render renderFunc) (string, error) {
	cacheable, cacheKey, maxInputMtime := pipeCacheStatus(filename, chain, pipes, io)

	if cacheable {
		if cacheMtime := io.ModTime(cacheKey); cacheMtime != nil && *cacheMtime >= maxInputMtime {
			return io.Read(cacheKey)
		}
	}

	raw, err := io.Read(filename)
	if err != nil {
		return "", err
	}
	result, err := ExecutePipes(StringValue(raw), chain, params, origin, pipes, io, ctx, render)
	if err != nil {
		return "", err
	}
	text, err := ToString(result)
	if err != nil {
		return "", err
	}

	if cacheable {
		if err := io.WriteAtomic(cacheKey, text); err != nil {
			return "", err
		}
	}
	return text, nil
}

// pipeCacheStatus computes whether chain is cacheable for filename, its
// deterministic cache path, and the freshness threshold the cache file must
// meet or beat (§4.4 "Key", "Freshness").
func pipeCacheStatus(filename string, chain PipeChain, pipes PipeRegistry, io *IO) (cacheable bool, cacheKey string, maxInputMtime int64) {
	for _, step := range chain {
		if step.IsTemplate {
			return false, "", 0
		}
	}

	var maxMtime int64
	if mtime := io.ModTime(filename); mtime != nil {
		maxMtime = *mtime
	}

	var keyParts []string
	keyParts = append(keyParts, "cache/"+escapeCacheComponent(strings.ReplaceAll(filename, "/", "-")))
	for _, step := range chain {
		def, ok := pipes[step.Name]
		if !ok || def.ModTime == nil {
			return false, "", 0
		}
		if *def.ModTime > maxMtime {
			maxMtime = *def.ModTime
		}
		part := "__" + escapeCacheComponent(step.Name)
		for _, arg := range step.Args {
			part += "_" + escapeCacheComponent(arg)
		}
		keyParts = append(keyParts, part)
	}
	return true, strings.Join(keyParts, ""), maxMtime
}

// escapeCacheComponent percent-escapes the reserved cache-key separators so
// that a pipe name or literal argument containing "_" or "__" can never
// collide two distinct chains onto the same cache path (§9 "Pipe-cache key
// injectivity" names this as an open question in the source; this
// implementation closes it by escaping).
func escapeCacheComponent(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '_':
			b.WriteString("%5F")
		case '%':
			b.WriteString("%25")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// --- sort-and-filter helper used by eval.go's For handling ---

// stableSortByKey sorts indices by their precomputed text key, stable on
// ties (§4.3.1 step 4, tie-break rule).
func stableSortByKey(keys []string, ascending bool) []int {
	idx := make([]int, len(keys))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		if ascending {
			return keys[idx[i]] < keys[idx[j]]
		}
		return keys[idx[i]] > keys[idx[j]]
	})
	return idx
}

// callSprigFunc adapts a sprig FuncMap entry (which always has a concrete
// Go signature chosen by sprig) to the pipe convention of (Value, []string)
// -> (Value, error). It handles the string-in, string-out shapes listed in
// the switch below (upper, lower, trim, trunc, indent, sha256sum, ...); any
// other signature, such as quote's or date's, yields an error.
func callSprigFunc(fn any, value Value, args []string) (Value, error) {
	text, err := ToString(value)
	if err != nil {
		return Value{}, err
	}
	switch f := fn.(type) {
	case func(string) string:
		return StringValue(f(text)), nil
	case func(string) (string, error):
		out, err := f(text)
		if err != nil {
			return Value{}, err
		}
		return StringValue(out), nil
	case func(int, string) string:
		n := 0
		if len(args) > 0 {
			n, _ = strconv.Atoi(args[0])
		}
		return StringValue(f(n, text)), nil
	case func(string, string) string:
		arg := ""
		if len(args) > 0 {
			arg = args[0]
		}
		return StringValue(f(arg, text)), nil
	case func(string, ...string) (string, error):
		out, err := f(text, args...)
		if err != nil {
			return Value{}, err
		}
		return StringValue(out), nil
	default:
		return Value{}, faults.New("unsupported sprig function signature for pipe use")
	}
}
