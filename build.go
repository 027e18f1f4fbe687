package sitegen

// BuildAction is the sum type the manifest decodes into (§3 "Build
// action").
type BuildAction interface {
	isBuildAction()
}

type BuildPageAction struct {
	Output string
	Input  string
	Params *OrderedMap
}

type MatrixGrouping struct {
	Files   []string
	Params  []*OrderedMap
	Mapping *OrderedMap // key -> template-string Value
	Flatten *string
}

type BuildMultiplePagesAction struct {
	DefaultParams *OrderedMap
	Groupings     []MatrixGrouping
	Include       *string
	Exclude       *string
}

type CopyFilesAction struct {
	From string
	To   string
}

func (BuildPageAction) isBuildAction()         {}
func (BuildMultiplePagesAction) isBuildAction() {}
func (CopyFilesAction) isBuildAction()          {}

// ExpandedAction is what Expand ultimately produces: something the page
// builder or a plain file copy can execute directly (§4.5).
type ExpandedAction interface {
	isExpandedAction()
}

// ExpandedBuildPage carries the originating source tag for error
// attribution even though it has already resolved to concrete params
// (§4.5 step 7, §7 "BMSourced").
type ExpandedBuildPage struct {
	Output string
	Input  string
	Params *OrderedMap
	Source *ParamsSource // nil for a plain BuildPage action
}

type ExpandedCopyFiles struct {
	From string
	To   string
}

func (ExpandedBuildPage) isExpandedAction()  {}
func (ExpandedCopyFiles) isExpandedAction()  {}

// Expand turns one manifest action into the list of concrete page renders
// / copies it describes (component F).
func Expand(action BuildAction, pipes PipeRegistry, io *IO, ctx TemplateContext) ([]ExpandedAction, error) {
	switch a := action.(type) {
	case BuildPageAction:
		return []ExpandedAction{ExpandedBuildPage{Output: a.Output, Input: a.Input, Params: a.Params}}, nil
	case CopyFilesAction:
		return []ExpandedAction{ExpandedCopyFiles{From: a.From, To: a.To}}, nil
	case BuildMultiplePagesAction:
		return expandMultiplePages(a, pipes, io, ctx)
	default:
		return nil, nil
	}
}

// sourcedEntry is one not-yet-merged matrix entry, tagged with the source
// it was collected from (§4.5 step 1).
type sourcedEntry struct {
	params  *OrderedMap
	source  ParamsSource
	mapping *OrderedMap
	flatten *string
}

func expandMultiplePages(action BuildMultiplePagesAction, pipes PipeRegistry, io *IO, ctx TemplateContext) ([]ExpandedAction, error) {
	var entries []sourcedEntry

	for groupingIndex, grouping := range action.Groupings {
		for _, file := range grouping.Files {
			doc, err := io.ReadDocument(file)
			if err != nil {
				return nil, err
			}
			if doc.Kind != KindSequence {
				return nil, wrapSource(groupingIndex, 0, &file, nil, &BMFIsntArrayError{File: file})
			}
			for pos, item := range doc.Sequence {
				fileCopy := file
				if item.Kind != KindMapping {
					return nil, wrapSource(groupingIndex, pos, &file, nil, &BMFContainsNonMapError{File: file, Pos: pos})
				}
				entries = append(entries, sourcedEntry{
					params:  item.Mapping,
					source:  ParamsSource{GroupingIndex: groupingIndex, Index: pos, File: &fileCopy},
					mapping: grouping.Mapping,
					flatten: grouping.Flatten,
				})
			}
		}
		for j, p := range grouping.Params {
			entries = append(entries, sourcedEntry{
				params:  p,
				source:  ParamsSource{GroupingIndex: groupingIndex, Index: j},
				mapping: grouping.Mapping,
				flatten: grouping.Flatten,
			})
		}
	}

	var expanded []ExpandedAction
	for _, entry := range entries {
		merged := action.DefaultParams.Clone()
		for _, k := range entry.params.Keys() {
			v, _ := entry.params.Get(k)
			merged.Set(k, v)
		}

		children, err := flattenEntry(merged, entry)
		if err != nil {
			return nil, err
		}

		for _, child := range children {
			afterMapping, err := applyMapping(child.params, entry.mapping, pipes, io, ctx)
			if err != nil {
				return nil, wrapSource2(child.source, err)
			}

			outputValue, ok := afterMapping.Get("output")
			if !ok || outputValue.Kind != KindString {
				return nil, wrapSource2(child.source, &BMOutputNotSpecifiedError{})
			}
			inputValue, ok := afterMapping.Get("input")
			if !ok || inputValue.Kind != KindString {
				return nil, wrapSource2(child.source, &BMInputNotSpecifiedError{Output: outputValue.Str})
			}

			if action.Include != nil && !afterMapping.Has(*action.Include) {
				continue
			}
			if action.Exclude != nil && afterMapping.Has(*action.Exclude) {
				continue
			}

			source := child.source
			expanded = append(expanded, ExpandedBuildPage{
				Output: outputValue.Str,
				Input:  inputValue.Str,
				Params: afterMapping,
				Source: &source,
			})
		}
	}
	return expanded, nil
}

// childEntry is one flatten-expanded child of a sourcedEntry, carrying its
// own merged params and (possibly updated) source tag.
type childEntry struct {
	params *OrderedMap
	source ParamsSource
}

// flattenEntry applies §4.5 step 3: if entry carries a flatten key, explode
// it into one child per array element; otherwise it is its own only child.
func flattenEntry(merged *OrderedMap, entry sourcedEntry) ([]childEntry, error) {
	if entry.flatten == nil {
		return []childEntry{{params: merged, source: entry.source}}, nil
	}
	key := *entry.flatten
	arrayValue, ok := merged.Get(key)
	if !ok {
		return nil, wrapSource2(entry.source, &FlattenKeyNotFoundError{Key: key})
	}
	if arrayValue.Kind != KindSequence {
		return nil, wrapSource2(entry.source, &FlattenOnNonArrayError{Key: key})
	}

	var children []childEntry
	for i, el := range arrayValue.Sequence {
		childParams := merged.Clone()
		childParams.Set("_flatten_array", arrayValue)
		childParams.Set("_flatten_index", IntValue(int64(i)))
		childParams.Set(key, el)
		idx := i
		src := entry.source
		src.FlattenIndex = &idx
		children = append(children, childEntry{params: childParams, source: src})
	}
	return children, nil
}

// applyMapping runs §4.5 step 4: iterate mapping in key order, parsing and
// rendering each value as a template against the current merged params,
// inserting results as they're produced so later mapping entries can see
// earlier ones.
func applyMapping(params *OrderedMap, mapping *OrderedMap, pipes PipeRegistry, io *IO, ctx TemplateContext) (*OrderedMap, error) {
	if mapping == nil {
		return params, nil
	}
	cur := params
	for _, key := range mapping.Keys() {
		rawValue, _ := mapping.Get(key)
		if rawValue.Kind != KindString {
			return nil, &BMMappingIsntStringError{Key: key}
		}
		nodes, err := ParseTemplate(rawValue.Str)
		if err != nil {
			return nil, &BMMappingParseError{Key: key, Inner: err}
		}
		rendered, err := Render(nodes, cur, pipes, io, ctx)
		if err != nil {
			return nil, &BMMappingTemplateError{Key: key, Inner: err}
		}
		cur = cur.Extend(key, StringValue(rendered))
	}
	return cur, nil
}

func wrapSource(groupingIndex, index int, file *string, flattenIndex *int, inner error) error {
	return &BMSourcedError{Source: ParamsSource{GroupingIndex: groupingIndex, Index: index, File: file, FlattenIndex: flattenIndex}, Inner: inner}
}

func wrapSource2(source ParamsSource, inner error) error {
	return &BMSourcedError{Source: source, Inner: inner}
}
