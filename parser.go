package sitegen

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseTemplate parses template source into its AST (component C). Parse
// failures surface as a single *ParseError carrying the underlying message
// (§4.2).
func ParseTemplate(source string) ([]Node, error) {
	p := &parser{src: []rune(source)}
	nodes, stop, err := p.parseSequence()
	if err != nil {
		return nil, &ParseError{Message: err.Error()}
	}
	if stop != "" {
		return nil, &ParseError{Message: fmt.Sprintf("unexpected %q at top level", stop)}
	}
	return nodes, nil
}

type parser struct {
	src []rune
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) rest() string { return string(p.src[p.pos:]) }

func (p *parser) hasPrefix(s string) bool {
	return strings.HasPrefix(p.rest(), s)
}

func (p *parser) consume(s string) bool {
	if p.hasPrefix(s) {
		p.pos += len([]rune(s))
		return true
	}
	return false
}

func (p *parser) expect(s string) error {
	if !p.consume(s) {
		return fmt.Errorf("expected %q at position %d, found %q", s, p.pos, p.peekSnippet())
	}
	return nil
}

func (p *parser) peekSnippet() string {
	end := p.pos + 20
	if end > len(p.src) {
		end = len(p.src)
	}
	return string(p.src[p.pos:end])
}

func (p *parser) skipSpaces() {
	for !p.eof() && isSpace(p.src[p.pos]) {
		p.pos++
	}
}

func isSpace(r rune) bool { return r == ' ' || r == '\t' || r == '\n' || r == '\r' }

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentCont(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

func (p *parser) readIdent() (string, error) {
	if p.eof() || !isIdentStart(p.src[p.pos]) {
		return "", fmt.Errorf("expected identifier at position %d, found %q", p.pos, p.peekSnippet())
	}
	start := p.pos
	p.pos++
	for !p.eof() && isIdentCont(p.src[p.pos]) {
		p.pos++
	}
	return string(p.src[start:p.pos]), nil
}

// readKeyword reads letters and hyphens, used for tag keywords like
// "if-exists" and "in-file-at".
func (p *parser) readKeyword() string {
	start := p.pos
	for !p.eof() && (isIdentCont(p.src[p.pos]) || p.src[p.pos] == '-') {
		p.pos++
	}
	return string(p.src[start:p.pos])
}

// --- value paths (§3 "Value path") ---

func (p *parser) parseValuePath() (ValuePath, error) {
	base, err := p.readIdent()
	if err != nil {
		return ValuePath{}, err
	}
	path := ValuePath{Base: base}
	for {
		if p.consume(".") {
			name, err := p.readIdent()
			if err != nil {
				return ValuePath{}, err
			}
			path.Accesses = append(path.Accesses, FieldAccess{Name: name})
			continue
		}
		if p.consume("[") {
			p.skipSpaces()
			if !p.eof() && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
				start := p.pos
				for !p.eof() && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
					p.pos++
				}
				n, err := strconv.Atoi(string(p.src[start:p.pos]))
				if err != nil {
					return ValuePath{}, err
				}
				p.skipSpaces()
				if err := p.expect("]"); err != nil {
					return ValuePath{}, err
				}
				path.Accesses = append(path.Accesses, IndexAccess{N: n})
			} else {
				inner, err := p.parseValuePath()
				if err != nil {
					return ValuePath{}, err
				}
				p.skipSpaces()
				if err := p.expect("]"); err != nil {
					return ValuePath{}, err
				}
				path.Accesses = append(path.Accesses, IndexAtAccess{Path: inner})
			}
			continue
		}
		break
	}
	return path, nil
}

// --- pipe chains (§4.2 "Pipe syntax") ---

// parsePipeChain parses zero or more `| name arg*` / `| $` steps, stopping
// at the first character that cannot start another pipe step.
func (p *parser) parsePipeChain() (PipeChain, error) {
	return p.parsePipeSteps(false)
}

// parsePipeSteps is parsePipeChain, except that with bareFirst set the first
// step may omit its leading `|` (the contents chain after a FileAt `::`).
func (p *parser) parsePipeSteps(bareFirst bool) (PipeChain, error) {
	var chain PipeChain
	for {
		save := p.pos
		p.skipSpaces()
		if !p.consume("|") {
			if !bareFirst || len(chain) > 0 || p.eof() || !(isIdentStart(p.src[p.pos]) || p.src[p.pos] == '$') {
				p.pos = save
				break
			}
		}
		p.skipSpaces()
		if p.consume("$") {
			chain = append(chain, TemplatePipe())
			continue
		}
		name, err := p.readIdent()
		if err != nil {
			return nil, fmt.Errorf("parsing pipe name: %w", err)
		}
		var args []string
		for {
			save2 := p.pos
			p.skipSpaces()
			arg, ok, err := p.tryReadArg()
			if err != nil {
				return nil, err
			}
			if !ok {
				p.pos = save2
				break
			}
			args = append(args, arg)
		}
		chain = append(chain, Pipe{Name: name, Args: args})
	}
	return chain, nil
}

// tryReadArg reads one pipe argument: a double-quoted string (with `\"`
// escaping) or a bare token of non-space, non-delimiter characters. Returns
// ok=false without consuming input if nothing arg-shaped is present.
func (p *parser) tryReadArg() (string, bool, error) {
	if p.eof() {
		return "", false, nil
	}
	if p.src[p.pos] == '"' {
		p.pos++
		var b strings.Builder
		for {
			if p.eof() {
				return "", false, fmt.Errorf("unterminated quoted argument")
			}
			c := p.src[p.pos]
			if c == '\\' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '"' {
				b.WriteRune('"')
				p.pos += 2
				continue
			}
			if c == '"' {
				p.pos++
				break
			}
			b.WriteRune(c)
			p.pos++
		}
		return b.String(), true, nil
	}
	if p.hasPrefix("|") || p.hasPrefix("%}") || p.hasPrefix("}}") || p.hasPrefix("::") || p.src[p.pos] == ',' || p.src[p.pos] == ';' || p.eof() {
		return "", false, nil
	}
	start := p.pos
	for !p.eof() && !isSpace(p.src[p.pos]) && p.src[p.pos] != '|' && p.src[p.pos] != ',' && p.src[p.pos] != ';' &&
		!p.hasPrefix("%}") && !p.hasPrefix("}}") && !p.hasPrefix("::") {
		p.pos++
	}
	if p.pos == start {
		return "", false, nil
	}
	return string(p.src[start:p.pos]), true, nil
}

// readBareOrQuoted reads a filename token: a quoted string, or a run of
// non-space characters not starting a pipe/tag-close.
func (p *parser) readBareOrQuoted() (string, error) {
	arg, ok, err := p.tryReadArg()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("expected a filename at position %d, found %q", p.pos, p.peekSnippet())
	}
	return arg, nil
}

// --- top-level sequence scanning ---

// parseSequence scans nodes until EOF, a raw catcher marker ("{&" / "{?%}"),
// or a "{% <keyword> %}" tag whose keyword is in stopKeywords. It returns
// the nodes scanned and which stop condition was hit ("" for EOF, "&" or
// "?%" for the raw markers, or the matched keyword).
func (p *parser) parseSequence(stopKeywords ...string) ([]Node, string, error) {
	var nodes []Node
	for {
		if p.eof() {
			if len(stopKeywords) > 0 {
				return nil, "", fmt.Errorf("unexpected end of template, expected one of %v", stopKeywords)
			}
			return nodes, "", nil
		}
		if p.hasPrefix("{{") {
			node, err := p.parseReplace()
			if err != nil {
				return nil, "", err
			}
			nodes = append(nodes, node)
			continue
		}
		if p.hasPrefix("{%?") {
			node, err := p.parseCatcher()
			if err != nil {
				return nil, "", err
			}
			nodes = append(nodes, node)
			continue
		}
		if p.hasPrefix("{&") {
			return nodes, "&", nil
		}
		if p.hasPrefix("{?%}") {
			p.pos += len("{?%}")
			return nodes, "?%", nil
		}
		if p.hasPrefix("{%") {
			save := p.pos
			p.pos += len("{%")
			p.skipSpaces()
			keyword := p.readKeyword()
			isStop := false
			for _, k := range stopKeywords {
				if k == keyword {
					isStop = true
					break
				}
			}
			if isStop {
				p.skipSpaces()
				if err := p.expect("%}"); err != nil {
					return nil, "", err
				}
				return nodes, keyword, nil
			}
			p.pos = save
			node, err := p.parseTag()
			if err != nil {
				return nil, "", err
			}
			nodes = append(nodes, node)
			continue
		}
		text := p.readPlainText()
		nodes = append(nodes, PlainTextNode{Text: text})
	}
}

func (p *parser) readPlainText() string {
	start := p.pos
	for !p.eof() {
		if p.hasPrefix("{{") || p.hasPrefix("{%") || p.hasPrefix("{&") || p.hasPrefix("{?%}") {
			break
		}
		p.pos++
	}
	return string(p.src[start:p.pos])
}

func (p *parser) parseReplace() (Node, error) {
	if err := p.expect("{{"); err != nil {
		return nil, err
	}
	p.skipSpaces()
	path, err := p.parseValuePath()
	if err != nil {
		return nil, fmt.Errorf("parsing replace path: %w", err)
	}
	chain, err := p.parsePipeChain()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if err := p.expect("}}"); err != nil {
		return nil, err
	}
	return ReplaceNode{Path: path, Pipes: chain}, nil
}

// parseTag dispatches on the keyword of a "{% keyword ... %}" tag that is
// not a stop-keyword for the current sequence.
func (p *parser) parseTag() (Node, error) {
	if err := p.expect("{%"); err != nil {
		return nil, err
	}
	p.skipSpaces()
	keyword := p.readKeyword()
	switch keyword {
	case "if-exists":
		return p.parseIfExists()
	case "for":
		return p.parseFor()
	case "into":
		return p.parseInto()
	case "file":
		return p.parseFileTag(false)
	case "snippet":
		return p.parseFileTag(true)
	default:
		return nil, fmt.Errorf("unknown tag %q at position %d", keyword, p.pos)
	}
}

func (p *parser) parseIfExists() (Node, error) {
	p.skipSpaces()
	path, err := p.parseValuePath()
	if err != nil {
		return nil, fmt.Errorf("parsing if-exists path: %w", err)
	}
	p.skipSpaces()
	if err := p.expect("%}"); err != nil {
		return nil, err
	}
	thenNodes, stop, err := p.parseSequence("else", "endif")
	if err != nil {
		return nil, err
	}
	var elseNodes []Node
	if stop == "else" {
		elseNodes, _, err = p.parseSequence("endif")
		if err != nil {
			return nil, err
		}
	}
	return IfExistsNode{Path: path, Then: thenNodes, Else: elseNodes}, nil
}

func (p *parser) parseInto() (Node, error) {
	p.skipSpaces()
	path, err := p.parseValuePath()
	if err != nil {
		return nil, fmt.Errorf("parsing into path: %w", err)
	}
	p.skipSpaces()
	if err := p.expect("%}"); err != nil {
		return nil, err
	}
	body, _, err := p.parseSequence("endinto")
	if err != nil {
		return nil, err
	}
	return IntoNode{Path: path, Body: body}, nil
}

func (p *parser) parseFileTag(snippet bool) (Node, error) {
	p.skipSpaces()
	if p.consume("@") {
		path, err := p.parseValuePath()
		if err != nil {
			return nil, fmt.Errorf("parsing file-at path: %w", err)
		}
		valuePipes, err := p.parsePipeChain()
		if err != nil {
			return nil, err
		}
		var contentsPipes PipeChain
		p.skipSpaces()
		if p.consume("::") {
			contentsPipes, err = p.parsePipeSteps(true)
			if err != nil {
				return nil, err
			}
		}
		p.skipSpaces()
		if err := p.expect("%}"); err != nil {
			return nil, err
		}
		return FileAtNode{Snippet: snippet, Path: path, ValuePipes: valuePipes, ContentsPipes: contentsPipes}, nil
	}
	name, err := p.readBareOrQuoted()
	if err != nil {
		return nil, err
	}
	chain, err := p.parsePipeChain()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if err := p.expect("%}"); err != nil {
		return nil, err
	}
	return FileNode{Snippet: snippet, Name: name, Pipes: chain}, nil
}

// parseFor parses `for <bind> <groupings> <sort-and-filter?> %}` followed
// by a body, an optional `{% sep %}` section, and `{% endfor %}`.
func (p *parser) parseFor() (Node, error) {
	p.skipSpaces()
	bind, err := p.readIdent()
	if err != nil {
		return nil, fmt.Errorf("parsing for-loop bind name: %w", err)
	}
	groupings, err := p.parseForGroupings()
	if err != nil {
		return nil, err
	}
	sortAndFilter, err := p.parseSortAndFilter()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if err := p.expect("%}"); err != nil {
		return nil, err
	}
	body, stop, err := p.parseSequence("sep", "endfor")
	if err != nil {
		return nil, err
	}
	var sep []Node
	if stop == "sep" {
		sep, _, err = p.parseSequence("endfor")
		if err != nil {
			return nil, err
		}
	}
	return ForNode{Bind: bind, Groupings: groupings, Sort: sortAndFilter, Body: body, Sep: sep}, nil
}

// parseForGroupings parses one or more `;`-separated groupings, each built
// from `in <path>(|pipe)?(, <path>(|pipe)?)*`, `in-file <name>` and
// `in-file-at <path>` clauses in any order (§3 "For-grouping").
func (p *parser) parseForGroupings() ([]ForGrouping, error) {
	var groupings []ForGrouping
	for {
		grouping, err := p.parseOneForGrouping()
		if err != nil {
			return nil, err
		}
		groupings = append(groupings, grouping)
		save := p.pos
		p.skipSpaces()
		if p.consume(";") {
			continue
		}
		p.pos = save
		break
	}
	return groupings, nil
}

func (p *parser) parseOneForGrouping() (ForGrouping, error) {
	var grouping ForGrouping
	for {
		save := p.pos
		p.skipSpaces()
		kw := p.peekKeyword()
		switch kw {
		case "in":
			p.readKeyword()
			for {
				p.skipSpaces()
				path, err := p.parseValuePath()
				if err != nil {
					return ForGrouping{}, fmt.Errorf("parsing for-loop value grouping: %w", err)
				}
				chain, err := p.parsePipeChain()
				if err != nil {
					return ForGrouping{}, err
				}
				grouping.Values = append(grouping.Values, ValueGrouping{Path: path, Pipes: chain})
				save2 := p.pos
				p.skipSpaces()
				if p.consume(",") {
					continue
				}
				p.pos = save2
				break
			}
		case "in-file-at":
			p.readKeyword()
			p.skipSpaces()
			path, err := p.parseValuePath()
			if err != nil {
				return ForGrouping{}, fmt.Errorf("parsing in-file-at: %w", err)
			}
			grouping.FilesAt = append(grouping.FilesAt, path)
		case "in-file":
			p.readKeyword()
			p.skipSpaces()
			name, err := p.readBareOrQuoted()
			if err != nil {
				return ForGrouping{}, fmt.Errorf("parsing in-file: %w", err)
			}
			grouping.Filenames = append(grouping.Filenames, name)
		default:
			p.pos = save
			return grouping, nil
		}
	}
}

// peekKeyword reads a keyword without committing the cursor if it isn't
// one we understand at this point.
func (p *parser) peekKeyword() string {
	save := p.pos
	kw := p.readKeyword()
	p.pos = save
	return kw
}

func (p *parser) parseSortAndFilter() (SortAndFilter, error) {
	var sf SortAndFilter
	sf.Ascending = true
	for {
		save := p.pos
		p.skipSpaces()
		kw := p.peekKeyword()
		switch kw {
		case "sort":
			p.readKeyword()
			p.skipSpaces()
			path, err := p.parseValuePath()
			if err != nil {
				return sf, fmt.Errorf("parsing sort key: %w", err)
			}
			sf.SortKey = &path
		case "asc":
			p.readKeyword()
			sf.Ascending = true
		case "desc":
			p.readKeyword()
			sf.Ascending = false
		case "include":
			p.readKeyword()
			p.skipSpaces()
			path, err := p.parseValuePath()
			if err != nil {
				return sf, fmt.Errorf("parsing include key: %w", err)
			}
			sf.IncludeKey = &path
		case "exclude":
			p.readKeyword()
			p.skipSpaces()
			path, err := p.parseValuePath()
			if err != nil {
				return sf, fmt.Errorf("parsing exclude key: %w", err)
			}
			sf.ExcludeKey = &path
		default:
			p.pos = save
			return sf, nil
		}
	}
}

// parseCatcher parses a LookupCatcher: `{%? %} alt {& %} alt ... {?%}`.
func (p *parser) parseCatcher() (Node, error) {
	if err := p.expect("{%?"); err != nil {
		return nil, err
	}
	p.skipSpaces()
	if err := p.expect("%}"); err != nil {
		return nil, err
	}
	var alts [][]Node
	for {
		nodes, stop, err := p.parseSequence()
		if err != nil {
			return nil, err
		}
		alts = append(alts, nodes)
		switch stop {
		case "&":
			if err := p.expect("{&"); err != nil {
				return nil, err
			}
			p.skipSpaces()
			if err := p.expect("%}"); err != nil {
				return nil, err
			}
			continue
		case "?%":
			return LookupCatcherNode{Alternatives: alts}, nil
		default:
			return nil, fmt.Errorf("unterminated lookup-catcher at position %d", p.pos)
		}
	}
}
