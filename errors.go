package sitegen

import "fmt"

// LookupErrorKind enumerates the ways a value-path lookup can fail. The
// first three are "lookup-shaped" (§7): IfExists, LookupCatcher and for-loop
// filters treat them as absence rather than propagating them.
type LookupErrorKind int

const (
	KeyNotPresent LookupErrorKind = iota
	FieldNotPresent
	IndexOOB
	FieldOnUnfieldable
	IndexOnUnindexable
	IndexWithNonIntegerValue
)

func (k LookupErrorKind) String() string {
	switch k {
	case KeyNotPresent:
		return "KeyNotPresent"
	case FieldNotPresent:
		return "FieldNotPresent"
	case IndexOOB:
		return "IndexOOB"
	case FieldOnUnfieldable:
		return "FieldOnUnfieldable"
	case IndexOnUnindexable:
		return "IndexOnUnindexable"
	case IndexWithNonIntegerValue:
		return "IndexWithNonIntegerValue"
	default:
		return "UnknownLookupError"
	}
}

// LookupError is returned by Lookup/applyAccess; Index is only meaningful
// when Kind == IndexOOB.
type LookupError struct {
	Kind  LookupErrorKind
	Path  string
	Index int
}

func (e *LookupError) Error() string {
	if e.Kind == IndexOOB {
		return fmt.Sprintf("%s(%q, %d)", e.Kind, e.Path, e.Index)
	}
	return fmt.Sprintf("%s(%q)", e.Kind, e.Path)
}

// IsLookupShaped reports whether err is one of the three "absence" errors
// that IfExists, LookupCatcher and for-loop filters recognize (§7).
func IsLookupShaped(err error) bool {
	le, ok := err.(*LookupError)
	if !ok {
		return false
	}
	switch le.Kind {
	case KeyNotPresent, FieldNotPresent, IndexOOB:
		return true
	default:
		return false
	}
}

// ForOnUnindexableError is returned by ToIterable when a for-loop tries to
// iterate a non-sequence value.
type ForOnUnindexableError struct {
	Location string
}

func (e *ForOnUnindexableError) Error() string {
	return fmt.Sprintf("ForOnUnindexable(%s)", e.Location)
}

// ParseError wraps a template parser failure (§4.2).
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string { return "ParseError: " + e.Message }

// --- Evaluator wrapper errors (§7 "wrapped with context") ---

// InIfExistsLoopError wraps an error raised while rendering an IfExists
// branch.
type InIfExistsLoopError struct {
	Branch string // "then" or "else"
	Path   string
	Inner  error
}

func (e *InIfExistsLoopError) Error() string {
	return fmt.Sprintf("%s\n  at if-exists(%s) %s branch", e.Inner.Error(), e.Path, e.Branch)
}
func (e *InIfExistsLoopError) Unwrap() error { return e.Inner }

// IntoValueNotHashError is returned when an Into statement's path does not
// resolve to a mapping.
type IntoValueNotHashError struct {
	Path string
}

func (e *IntoValueNotHashError) Error() string {
	return fmt.Sprintf("IntoValueNotHash(%q)", e.Path)
}

// InIntoStatementError wraps a render error raised inside an Into body.
type InIntoStatementError struct {
	Path  string
	Inner error
}

func (e *InIntoStatementError) Error() string {
	return fmt.Sprintf("%s\n  at into(%s)", e.Inner.Error(), e.Path)
}
func (e *InIntoStatementError) Unwrap() error { return e.Inner }

// OnForLoopIterationError wraps a body-render error raised during one
// for-loop iteration.
type OnForLoopIterationError struct {
	Bind  string
	Index int
	Inner error
}

func (e *OnForLoopIterationError) Error() string {
	return fmt.Sprintf("%s\n  at for %s (iteration %d)", e.Inner.Error(), e.Bind, e.Index)
}
func (e *OnForLoopIterationError) Unwrap() error { return e.Inner }

// OnForLoopIterationIncludeKeyError wraps a non-lookup-shaped error raised
// while evaluating a for-loop's include-key predicate.
type OnForLoopIterationIncludeKeyError struct {
	Bind  string
	Index int
	Inner error
}

func (e *OnForLoopIterationIncludeKeyError) Error() string {
	return fmt.Sprintf("%s\n  at for %s include-key (iteration %d)", e.Inner.Error(), e.Bind, e.Index)
}
func (e *OnForLoopIterationIncludeKeyError) Unwrap() error { return e.Inner }

// OnForLoopIterationExcludeKeyError mirrors the include-key variant for the
// exclude-key predicate.
type OnForLoopIterationExcludeKeyError struct {
	Bind  string
	Index int
	Inner error
}

func (e *OnForLoopIterationExcludeKeyError) Error() string {
	return fmt.Sprintf("%s\n  at for %s exclude-key (iteration %d)", e.Inner.Error(), e.Bind, e.Index)
}
func (e *OnForLoopIterationExcludeKeyError) Unwrap() error { return e.Inner }

// OnForLoopIterationSortKeyError wraps a sort-key evaluation failure.
type OnForLoopIterationSortKeyError struct {
	Bind  string
	Index int
	Inner error
}

func (e *OnForLoopIterationSortKeyError) Error() string {
	return fmt.Sprintf("%s\n  at for %s sort-key (iteration %d)", e.Inner.Error(), e.Bind, e.Index)
}
func (e *OnForLoopIterationSortKeyError) Unwrap() error { return e.Inner }

// --- Pipe errors (§4.4, §7) ---

// PipeMissingError is returned when a named pipe is not registered.
type PipeMissingError struct {
	Name string
}

func (e *PipeMissingError) Error() string { return fmt.Sprintf("PipeMissing(%q)", e.Name) }

// PipeExecutionError wraps a host-function pipe's reported failure.
type PipeExecutionError struct {
	Message string
	Name    string
	Index   int
	Origin  string
}

func (e *PipeExecutionError) Error() string {
	return fmt.Sprintf("PipeExecutionError(%s) in pipe %q (#%d) from %s", e.Message, e.Name, e.Index, e.Origin)
}

// WithinTemplatePipeError wraps a failure from the default Template pipe.
type WithinTemplatePipeError struct {
	Index  int
	Origin string
	Inner  error
}

func (e *WithinTemplatePipeError) Error() string {
	return fmt.Sprintf("%s\n  at template pipe #%d from %s", e.Inner.Error(), e.Index, e.Origin)
}
func (e *WithinTemplatePipeError) Unwrap() error { return e.Inner }

// WithinTemplateNamedPipeError wraps a failure rendering a template-defined
// named pipe.
type WithinTemplateNamedPipeError struct {
	Name   string
	Index  int
	Origin string
	Inner  error
}

func (e *WithinTemplateNamedPipeError) Error() string {
	return fmt.Sprintf("%s\n  at pipe %q #%d from %s", e.Inner.Error(), e.Name, e.Index, e.Origin)
}
func (e *WithinTemplateNamedPipeError) Unwrap() error { return e.Inner }

// --- Build-action expansion errors (§4.5, §7) ---

type BMFIsntArrayError struct{ File string }

func (e *BMFIsntArrayError) Error() string { return fmt.Sprintf("BMFIsntArray(%q)", e.File) }

type BMFContainsNonMapError struct {
	File string
	Pos  int
}

func (e *BMFContainsNonMapError) Error() string {
	return fmt.Sprintf("BMFContainsNonMap(%q, %d)", e.File, e.Pos)
}

type FlattenOnNonArrayError struct{ Key string }

func (e *FlattenOnNonArrayError) Error() string {
	return fmt.Sprintf("FlattenOnNonArray(%q)", e.Key)
}

type FlattenKeyNotFoundError struct{ Key string }

func (e *FlattenKeyNotFoundError) Error() string {
	return fmt.Sprintf("FlattenKeyNotFound(%q)", e.Key)
}

type BMMappingIsntStringError struct{ Key string }

func (e *BMMappingIsntStringError) Error() string {
	return fmt.Sprintf("BMMappingIsntString(%q)", e.Key)
}

type BMMappingParseError struct {
	Key   string
	Inner error
}

func (e *BMMappingParseError) Error() string {
	return fmt.Sprintf("BMMappingParseError(%q): %s", e.Key, e.Inner.Error())
}
func (e *BMMappingParseError) Unwrap() error { return e.Inner }

type BMMappingTemplateError struct {
	Key   string
	Inner error
}

func (e *BMMappingTemplateError) Error() string {
	return fmt.Sprintf("BMMappingTemplateError(%q): %s", e.Key, e.Inner.Error())
}
func (e *BMMappingTemplateError) Unwrap() error { return e.Inner }

type BMOutputNotSpecifiedError struct{}

func (e *BMOutputNotSpecifiedError) Error() string { return "BMOutputNotSpecified" }

type BMInputNotSpecifiedError struct{ Output string }

func (e *BMInputNotSpecifiedError) Error() string {
	return fmt.Sprintf("BMInputNotSpecified(%q)", e.Output)
}

// ParamsSource tags an expanded build-multiple entry with its origin, for
// error attribution (§4.5, §9's "ParamsSource").
type ParamsSource struct {
	GroupingIndex int
	Index         int
	File          *string
	FlattenIndex  *int
}

func (s ParamsSource) String() string {
	out := fmt.Sprintf("grouping %d, entry %d", s.GroupingIndex, s.Index)
	if s.File != nil {
		out += fmt.Sprintf(", file %q", *s.File)
	}
	if s.FlattenIndex != nil {
		out += fmt.Sprintf(", flatten index %d", *s.FlattenIndex)
	}
	return out
}

// BMSourcedError wraps any per-entry expansion error with the source tag
// that produced it.
type BMSourcedError struct {
	Source ParamsSource
	Inner  error
}

func (e *BMSourcedError) Error() string {
	return fmt.Sprintf("%s\n  at %s", e.Inner.Error(), e.Source.String())
}
func (e *BMSourcedError) Unwrap() error { return e.Inner }

// --- Manifest decode errors (§6) ---

type ManifestMissingKeyError struct{ Key string }

func (e *ManifestMissingKeyError) Error() string { return fmt.Sprintf("MissingKey(%q)", e.Key) }

type ManifestKeyNotArrayError struct{ Key string }

func (e *ManifestKeyNotArrayError) Error() string { return fmt.Sprintf("KeyNotArray(%q)", e.Key) }

type ManifestEntryNotHashError struct {
	Key string
	Pos int
}

func (e *ManifestEntryNotHashError) Error() string {
	return fmt.Sprintf("EntryNotHash(%q, %d)", e.Key, e.Pos)
}

type ManifestEntryNotStringError struct {
	Key string
	Pos int
}

func (e *ManifestEntryNotStringError) Error() string {
	return fmt.Sprintf("EntryNotString(%q, %d)", e.Key, e.Pos)
}

type ManifestUnexpectedTypeError struct{ Value string }

func (e *ManifestUnexpectedTypeError) Error() string {
	return fmt.Sprintf("UnexpectedType(%q)", e.Value)
}

// ManifestAtEntryError attributes a manifest decode error to the failing
// action's index in the root sequence.
type ManifestAtEntryError struct {
	Index int
	Inner error
}

func (e *ManifestAtEntryError) Error() string {
	return fmt.Sprintf("%s\n  at entry %d", e.Inner.Error(), e.Index)
}
func (e *ManifestAtEntryError) Unwrap() error { return e.Inner }
