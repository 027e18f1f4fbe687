package sitegen

import (
	"strings"
)

// TemplateContext carries the two folder prefixes a render needs for file
// and snippet resolution (§3 "Template context").
type TemplateContext struct {
	SnippetFolder string
	OutputFolder  string
}

// Render walks nodes in order, concatenating each node's rendering
// (component E, §4.3).
func Render(nodes []Node, params *OrderedMap, pipes PipeRegistry, io *IO, ctx TemplateContext) (string, error) {
	var b strings.Builder
	for _, node := range nodes {
		text, err := renderNode(node, params, pipes, io, ctx)
		if err != nil {
			return "", err
		}
		b.WriteString(text)
	}
	return b.String(), nil
}

func renderNode(node Node, params *OrderedMap, pipes PipeRegistry, io *IO, ctx TemplateContext) (string, error) {
	switch n := node.(type) {
	case PlainTextNode:
		return n.Text, nil

	case ReplaceNode:
		value, err := Lookup(n.Path, params)
		if err != nil {
			return "", err
		}
		result, err := ExecutePipes(value, n.Pipes, params, Origin{Kind: OriginValue, Path: n.Path.String()}, pipes, io, ctx, Render)
		if err != nil {
			return "", err
		}
		return ToString(result)

	case FileNode:
		name := n.Name
		if n.Snippet {
			name = ctx.SnippetFolder + name
		}
		return GetFile(name, n.Pipes, params, Origin{Kind: OriginFile, Filename: name}, pipes, io, ctx, Render)

	case FileAtNode:
		nameValue, err := Lookup(n.Path, params)
		if err != nil {
			return "", err
		}
		resolved, err := ExecutePipes(nameValue, n.ValuePipes, params, Origin{Kind: OriginValue, Path: n.Path.String()}, pipes, io, ctx, Render)
		if err != nil {
			return "", err
		}
		name, err := ToString(resolved)
		if err != nil {
			return "", err
		}
		if n.Snippet {
			name = ctx.SnippetFolder + name
		}
		return GetFile(name, n.ContentsPipes, params, Origin{Kind: OriginFileFrom, Filename: name, Path: n.Path.String()}, pipes, io, ctx, Render)

	case IfExistsNode:
		_, err := Lookup(n.Path, params)
		if err == nil {
			text, rerr := Render(n.Then, params, pipes, io, ctx)
			if rerr != nil {
				return "", &InIfExistsLoopError{Branch: "then", Path: n.Path.String(), Inner: rerr}
			}
			return text, nil
		}
		if IsLookupShaped(err) {
			text, rerr := Render(n.Else, params, pipes, io, ctx)
			if rerr != nil {
				return "", &InIfExistsLoopError{Branch: "else", Path: n.Path.String(), Inner: rerr}
			}
			return text, nil
		}
		return "", err

	case IntoNode:
		value, err := Lookup(n.Path, params)
		if err != nil {
			return "", err
		}
		if value.Kind != KindMapping {
			return "", &IntoValueNotHashError{Path: n.Path.String()}
		}
		text, err := Render(n.Body, value.Mapping, pipes, io, ctx)
		if err != nil {
			return "", &InIntoStatementError{Path: n.Path.String(), Inner: err}
		}
		return text, nil

	case LookupCatcherNode:
		var lastErr error
		for _, alt := range n.Alternatives {
			text, err := Render(alt, params, pipes, io, ctx)
			if err == nil {
				return text, nil
			}
			if !IsLookupShaped(err) {
				return "", err
			}
			lastErr = err
		}
		return "", lastErr

	case ForNode:
		return renderFor(n, params, pipes, io, ctx)

	default:
		return "", nil
	}
}

// renderFor implements the five-step For semantics of §4.3.1.
func renderFor(n ForNode, params *OrderedMap, pipes PipeRegistry, io *IO, ctx TemplateContext) (string, error) {
	var entries []Value

	for _, grouping := range n.Groupings {
		for _, vg := range grouping.Values {
			value, err := Lookup(vg.Path, params)
			if err != nil {
				return "", err
			}
			result, err := ExecutePipes(value, vg.Pipes, params, Origin{Kind: OriginValue, Path: vg.Path.String()}, pipes, io, ctx, Render)
			if err != nil {
				return "", err
			}
			items, err := ToIterable(vg.Path.String(), result)
			if err != nil {
				return "", err
			}
			entries = append(entries, items...)
		}
		for _, filename := range grouping.Filenames {
			doc, err := io.ReadDocument(filename)
			if err != nil {
				return "", err
			}
			items, err := ToIterable(filename, doc)
			if err != nil {
				return "", err
			}
			entries = append(entries, items...)
		}
		for _, vp := range grouping.FilesAt {
			nameValue, err := Lookup(vp, params)
			if err != nil {
				return "", err
			}
			filename, err := ToString(nameValue)
			if err != nil {
				return "", err
			}
			doc, err := io.ReadDocument(filename)
			if err != nil {
				return "", err
			}
			items, err := ToIterable(vp.String(), doc)
			if err != nil {
				return "", err
			}
			entries = append(entries, items...)
		}
	}

	type renderedEntry struct {
		key  string
		text string
	}
	var rendered []renderedEntry

	for i, entry := range entries {
		extended := params.Extend(n.Bind, entry)

		if n.Sort.IncludeKey != nil {
			_, err := Lookup(*n.Sort.IncludeKey, extended)
			if err != nil {
				if IsLookupShaped(err) {
					continue
				}
				return "", &OnForLoopIterationIncludeKeyError{Bind: n.Bind, Index: i, Inner: err}
			}
		}
		if n.Sort.ExcludeKey != nil {
			_, err := Lookup(*n.Sort.ExcludeKey, extended)
			if err == nil {
				continue
			}
			if !IsLookupShaped(err) {
				return "", &OnForLoopIterationExcludeKeyError{Bind: n.Bind, Index: i, Inner: err}
			}
		}

		key := ""
		if n.Sort.SortKey != nil {
			keyValue, err := Lookup(*n.Sort.SortKey, extended)
			if err != nil {
				return "", &OnForLoopIterationSortKeyError{Bind: n.Bind, Index: i, Inner: err}
			}
			key, err = ToString(keyValue)
			if err != nil {
				return "", &OnForLoopIterationSortKeyError{Bind: n.Bind, Index: i, Inner: err}
			}
		}

		text, err := Render(n.Body, extended, pipes, io, ctx)
		if err != nil {
			return "", &OnForLoopIterationError{Bind: n.Bind, Index: i, Inner: err}
		}

		rendered = append(rendered, renderedEntry{key: key, text: text})
	}

	if n.Sort.SortKey != nil {
		keys := make([]string, len(rendered))
		for i, r := range rendered {
			keys[i] = r.key
		}
		order := stableSortByKey(keys, n.Sort.Ascending)
		sorted := make([]renderedEntry, len(rendered))
		for i, idx := range order {
			sorted[i] = rendered[idx]
		}
		rendered = sorted
	}

	sep := ""
	if len(n.Sep) > 0 {
		s, err := Render(n.Sep, params, pipes, io, ctx)
		if err != nil {
			return "", err
		}
		sep = s
	}

	var b strings.Builder
	for i, r := range rendered {
		if i > 0 {
			b.WriteString(sep)
		}
		b.WriteString(r.text)
	}
	return b.String(), nil
}
