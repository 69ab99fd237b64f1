package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Template source is lexed into literal text, `{{ … }}` output statements and
// `{% … %}` control tags, then parsed into a node tree.

type tokenKind int

const (
	tokText tokenKind = iota
	tokOutput
	tokTag
)

type token struct {
	kind tokenKind
	val  string
}

func lexTemplate(src string) ([]token, error) {
	var toks []token
	for len(src) > 0 {
		outIdx := strings.Index(src, "{{")
		tagIdx := strings.Index(src, "{%")

		next, open, closing, kind := -1, "", "", tokText
		switch {
		case outIdx >= 0 && (tagIdx < 0 || outIdx < tagIdx):
			next, open, closing, kind = outIdx, "{{", "}}", tokOutput
		case tagIdx >= 0:
			next, open, closing, kind = tagIdx, "{%", "%}", tokTag
		}

		if next < 0 {
			toks = append(toks, token{tokText, src})
			break
		}
		if next > 0 {
			toks = append(toks, token{tokText, src[:next]})
		}
		src = src[next+len(open):]
		end := strings.Index(src, closing)
		if end < 0 {
			return nil, fmt.Errorf("unclosed %q statement", open)
		}
		toks = append(toks, token{kind, strings.TrimSpace(src[:end])})
		src = src[end+len(closing):]
	}
	return toks, nil
}

type node interface {
	exec(b *strings.Builder, st *state) error
}

type textNode string

func (n textNode) exec(b *strings.Builder, _ *state) error {
	b.WriteString(string(n))
	return nil
}

type outputNode struct {
	expr *expression
}

func (n *outputNode) exec(b *strings.Builder, st *state) error {
	v, err := n.expr.eval(st)
	if err != nil {
		return err
	}
	b.WriteString(stringify(v))
	return nil
}

type ifNode struct {
	cond *expression
	then []node
	els  []node
}

func (n *ifNode) exec(b *strings.Builder, st *state) error {
	v, err := n.cond.eval(st)
	if err != nil {
		return err
	}
	if truthy(v) {
		return execNodes(b, n.then, st)
	}
	return execNodes(b, n.els, st)
}

type forNode struct {
	name string
	seq  *expression
	body []node
}

func (n *forNode) exec(b *strings.Builder, st *state) error {
	v, err := n.seq.eval(st)
	if err != nil {
		return err
	}
	for _, item := range sequence(v) {
		st.push(n.name, item)
		err := execNodes(b, n.body, st)
		st.pop()
		if err != nil {
			return err
		}
	}
	return nil
}

func parseTemplate(src string) ([]node, error) {
	toks, err := lexTemplate(src)
	if err != nil {
		return nil, err
	}
	p := &templateParser{toks: toks}
	nodes, term, err := p.parseBlock(nil)
	if err != nil {
		return nil, err
	}
	if term != "" {
		return nil, fmt.Errorf("unexpected {%% %s %%}", term)
	}
	return nodes, nil
}

type templateParser struct {
	toks []token
	pos  int
}

// parseBlock consumes tokens until EOF or one of the stop tags, which is
// returned as term so the caller can decide what closes its block.
func (p *templateParser) parseBlock(stop map[string]bool) (nodes []node, term string, err error) {
	for p.pos < len(p.toks) {
		tok := p.toks[p.pos]
		p.pos++

		switch tok.kind {
		case tokText:
			nodes = append(nodes, textNode(tok.val))
		case tokOutput:
			expr, err := parseExpression(tok.val)
			if err != nil {
				return nil, "", err
			}
			nodes = append(nodes, &outputNode{expr: expr})
		case tokTag:
			head, rest, _ := strings.Cut(tok.val, " ")
			if stop[head] {
				return nodes, head, nil
			}
			n, err := p.parseTag(head, strings.TrimSpace(rest))
			if err != nil {
				return nil, "", err
			}
			nodes = append(nodes, n)
		}
	}
	return nodes, "", nil
}

func (p *templateParser) parseTag(head, rest string) (node, error) {
	switch head {
	case "if":
		cond, err := parseExpression(rest)
		if err != nil {
			return nil, err
		}
		then, term, err := p.parseBlock(map[string]bool{"else": true, "endif": true})
		if err != nil {
			return nil, err
		}
		n := &ifNode{cond: cond, then: then}
		if term == "else" {
			n.els, term, err = p.parseBlock(map[string]bool{"endif": true})
			if err != nil {
				return nil, err
			}
		}
		if term != "endif" {
			return nil, fmt.Errorf("{%% if %%} without matching {%% endif %%}")
		}
		return n, nil
	case "for":
		name, seqSrc, ok := strings.Cut(rest, " in ")
		name = strings.TrimSpace(name)
		if !ok || name == "" || strings.ContainsAny(name, ". ") {
			return nil, fmt.Errorf("malformed {%% for %%} tag: %q", rest)
		}
		seq, err := parseExpression(strings.TrimSpace(seqSrc))
		if err != nil {
			return nil, err
		}
		body, term, err := p.parseBlock(map[string]bool{"endfor": true})
		if err != nil {
			return nil, err
		}
		if term != "endfor" {
			return nil, fmt.Errorf("{%% for %%} without matching {%% endfor %%}")
		}
		return &forNode{name: name, seq: seq, body: body}, nil
	default:
		return nil, fmt.Errorf("unknown tag %q", head)
	}
}

// Expressions: value ( '|' filter )* where value is a literal, a dotted path
// or a helper call with positional and key=value arguments.

type opKind int

const (
	opLiteral opKind = iota
	opPath
	opCall
)

type kwarg struct {
	key   string
	value operand
}

type operand struct {
	kind    opKind
	literal any
	path    []string
	args    []operand
	kwargs  []kwarg
}

type filterCall struct {
	name string
	args []operand
}

type expression struct {
	base    operand
	filters []filterCall
}

func (e *expression) eval(st *state) (any, error) {
	v, err := e.base.eval(st)
	if err != nil {
		return nil, err
	}
	for _, f := range e.filters {
		args := make([]any, 0, len(f.args))
		for _, a := range f.args {
			av, err := a.eval(st)
			if err != nil {
				return nil, err
			}
			args = append(args, av)
		}
		v, err = applyFilter(f.name, v, args)
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (o *operand) eval(st *state) (any, error) {
	switch o.kind {
	case opLiteral:
		return o.literal, nil
	case opPath:
		return resolvePath(st, o.path), nil
	case opCall:
		fn, ok := resolvePath(st, o.path).(Func)
		if !ok {
			// Calling something that is not a helper resolves like any
			// other undefined reference.
			return nil, nil
		}
		args := make([]any, 0, len(o.args))
		for _, a := range o.args {
			av, err := a.eval(st)
			if err != nil {
				return nil, err
			}
			args = append(args, av)
		}
		var opts map[string]any
		if len(o.kwargs) > 0 {
			opts = make(map[string]any, len(o.kwargs))
			for _, kw := range o.kwargs {
				v, err := kw.value.eval(st)
				if err != nil {
					return nil, err
				}
				opts[kw.key] = v
			}
		}
		return fn(args, opts), nil
	default:
		return nil, nil
	}
}

// resolvePath walks a dotted reference through nested maps. Any miss along
// the way yields nil.
func resolvePath(st *state, path []string) any {
	cur := st.lookupRoot(path[0])
	for _, seg := range path[1:] {
		switch m := cur.(type) {
		case map[string]any:
			cur = m[seg]
		case Context:
			cur = m[seg]
		case map[any]any:
			cur = m[seg]
		default:
			return nil
		}
	}
	return cur
}

func parseExpression(src string) (*expression, error) {
	s := &exprScanner{src: src}
	base, err := s.parseOperand(true)
	if err != nil {
		return nil, err
	}
	expr := &expression{base: base}

	for {
		s.skipSpace()
		if !s.consume('|') {
			break
		}
		s.skipSpace()
		name := s.readIdent()
		if name == "" {
			return nil, fmt.Errorf("expected filter name in %q", src)
		}
		f := filterCall{name: name}
		if s.consume('(') {
			args, _, err := s.parseArgs(false)
			if err != nil {
				return nil, err
			}
			f.args = args
		}
		expr.filters = append(expr.filters, f)
	}

	s.skipSpace()
	if !s.eof() {
		return nil, fmt.Errorf("unexpected %q in expression %q", s.rest(), src)
	}
	return expr, nil
}

type exprScanner struct {
	src string
	pos int
}

func (s *exprScanner) eof() bool    { return s.pos >= len(s.src) }
func (s *exprScanner) rest() string { return s.src[s.pos:] }

func (s *exprScanner) peek() byte {
	if s.eof() {
		return 0
	}
	return s.src[s.pos]
}

func (s *exprScanner) consume(c byte) bool {
	if !s.eof() && s.src[s.pos] == c {
		s.pos++
		return true
	}
	return false
}

func (s *exprScanner) skipSpace() {
	for !s.eof() && (s.src[s.pos] == ' ' || s.src[s.pos] == '\t') {
		s.pos++
	}
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '-' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func (s *exprScanner) readIdent() string {
	start := s.pos
	for !s.eof() && isIdentByte(s.src[s.pos]) {
		s.pos++
	}
	return s.src[start:s.pos]
}

// parseOperand reads one value. Calls are only recognized when allowCall is
// set; filter and call arguments stay simple (literals and paths).
func (s *exprScanner) parseOperand(allowCall bool) (operand, error) {
	s.skipSpace()
	if s.eof() {
		return operand{}, fmt.Errorf("empty expression")
	}

	switch c := s.peek(); {
	case c == '"' || c == '\'':
		str, err := s.readString(c)
		if err != nil {
			return operand{}, err
		}
		return operand{kind: opLiteral, literal: str}, nil
	case c >= '0' && c <= '9' || c == '-':
		return s.readNumber()
	}

	first := s.readIdent()
	if first == "" {
		return operand{}, fmt.Errorf("unexpected %q in expression", s.rest())
	}
	switch first {
	case "true":
		return operand{kind: opLiteral, literal: true}, nil
	case "false":
		return operand{kind: opLiteral, literal: false}, nil
	}

	path := []string{first}
	for s.consume('.') {
		seg := s.readIdent()
		if seg == "" {
			return operand{}, fmt.Errorf("trailing dot in reference %q", s.src)
		}
		path = append(path, seg)
	}

	if allowCall && s.consume('(') {
		args, kwargs, err := s.parseArgs(true)
		if err != nil {
			return operand{}, err
		}
		return operand{kind: opCall, path: path, args: args, kwargs: kwargs}, nil
	}
	return operand{kind: opPath, path: path}, nil
}

// parseArgs reads a parenthesized argument list; the opening paren is already
// consumed. Keyword arguments are only allowed for helper calls.
func (s *exprScanner) parseArgs(allowKwargs bool) ([]operand, []kwarg, error) {
	var args []operand
	var kwargs []kwarg

	s.skipSpace()
	if s.consume(')') {
		return args, kwargs, nil
	}
	for {
		s.skipSpace()

		// Lookahead for `ident=`: a keyword argument.
		if allowKwargs {
			mark := s.pos
			key := s.readIdent()
			s.skipSpace()
			if key != "" && s.consume('=') && s.peek() != '=' {
				val, err := s.parseOperand(false)
				if err != nil {
					return nil, nil, err
				}
				kwargs = append(kwargs, kwarg{key: key, value: val})
			} else {
				s.pos = mark
				arg, err := s.parseOperand(false)
				if err != nil {
					return nil, nil, err
				}
				args = append(args, arg)
			}
		} else {
			arg, err := s.parseOperand(false)
			if err != nil {
				return nil, nil, err
			}
			args = append(args, arg)
		}

		s.skipSpace()
		if s.consume(')') {
			return args, kwargs, nil
		}
		if !s.consume(',') {
			return nil, nil, fmt.Errorf("expected ',' or ')' in argument list of %q", s.src)
		}
	}
}

func (s *exprScanner) readString(quote byte) (string, error) {
	s.pos++ // opening quote
	var b strings.Builder
	for !s.eof() {
		c := s.src[s.pos]
		s.pos++
		switch c {
		case quote:
			return b.String(), nil
		case '\\':
			if s.eof() {
				return "", fmt.Errorf("unterminated string in %q", s.src)
			}
			b.WriteByte(s.src[s.pos])
			s.pos++
		default:
			b.WriteByte(c)
		}
	}
	return "", fmt.Errorf("unterminated string in %q", s.src)
}

func (s *exprScanner) readNumber() (operand, error) {
	start := s.pos
	if s.peek() == '-' {
		s.pos++
	}
	for !s.eof() && (s.src[s.pos] >= '0' && s.src[s.pos] <= '9' || s.src[s.pos] == '.') {
		s.pos++
	}
	text := s.src[start:s.pos]
	if n, err := strconv.Atoi(text); err == nil {
		return operand{kind: opLiteral, literal: n}, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return operand{}, fmt.Errorf("malformed number %q", text)
	}
	return operand{kind: opLiteral, literal: f}, nil
}
