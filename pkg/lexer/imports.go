// Package lexer finds import-like expressions in generated JavaScript without
// building a syntax tree. It walks the token stream produced by the
// vimagination javascript tokeniser and reports byte offsets into the input so
// callers can splice the source text directly.
package lexer

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"vimagination.zapto.org/javascript"
	"vimagination.zapto.org/parser"
)

const (
	// DynamicStatic marks `import ... from "x"`, `import "x"` and
	// `export ... from "x"`.
	DynamicStatic = -1
	// DynamicMeta marks `import.meta`.
	DynamicMeta = -2
)

var ErrScan = errors.New("lexer: scan failed")

// Import is one import-like expression found in a chunk.
type Import struct {
	// Start is the offset of the `import` or `export` keyword.
	Start int
	// End is the offset just past the statement, call or meta property.
	End int
	// Dynamic is DynamicStatic, DynamicMeta, or for `import(...)` calls the
	// offset of the opening parenthesis. Anything <= -1 is not a dynamic load.
	Dynamic int
	// Specifier is the decoded value of a string literal specifier. Named is
	// false when the specifier is an expression or could not be decoded.
	Specifier string
	Named     bool
	SpecStart int
	SpecEnd   int
}

// IsDynamic reports whether the occurrence is an `import(...)` call.
func (i Import) IsDynamic() bool {
	return i.Dynamic > -1
}

type token struct {
	parser.Token
	pos int
}

func (t token) end() int {
	return t.pos + len(t.Data)
}

func (t token) is(data string) bool {
	return t.Data == data
}

func (t token) isString() bool {
	return t.Type == javascript.TokenStringLiteral || t.Type == javascript.TokenNoSubstitutionTemplate
}

func (t token) isName() bool {
	if t.Data == "" {
		return false
	}
	c := t.Data[0]
	return c == '_' || c == '$' || c >= utf8.RuneSelf ||
		'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

func trivia(t parser.TokenType) bool {
	switch t {
	case javascript.TokenWhitespace, javascript.TokenLineTerminator,
		javascript.TokenSingleLineComment, javascript.TokenMultiLineComment:
		return true
	}
	return false
}

// tokenize returns the significant tokens of code with their offsets. On a
// tokeniser error the tokens read so far are returned along with the error.
func tokenize(code string) ([]token, error) {
	tk := parser.NewStringTokeniser(code)
	javascript.SetTokeniser(&tk)

	var toks []token
	pos := 0
	for {
		tok, err := tk.GetToken()
		if tok.Type == parser.TokenDone || errors.Is(err, io.EOF) {
			return toks, nil
		}
		if err != nil || tok.Type == parser.TokenError {
			if err == nil {
				err = errors.New(tok.Data)
			}
			return toks, fmt.Errorf("%w: offset %d: %v", ErrScan, pos, err)
		}
		if !trivia(tok.Type) {
			toks = append(toks, token{Token: tok, pos: pos})
		}
		pos += len(tok.Data)
	}
}

// Scan returns the import-like expressions of code in source order. If the
// tokeniser fails part way, the occurrences found before the failure are
// returned together with an error wrapping ErrScan.
func Scan(code string) ([]Import, error) {
	toks, err := tokenize(code)
	s := scanner{toks: toks}
	for s.i < len(s.toks) {
		s.step()
	}
	return s.imports, err
}

type scanner struct {
	toks    []token
	i       int
	imports []Import
}

func (s *scanner) peek(n int) (token, bool) {
	if s.i+n >= len(s.toks) {
		return token{}, false
	}
	return s.toks[s.i+n], true
}

func (s *scanner) step() {
	tok := s.toks[s.i]
	if !tok.is("import") && !tok.is("export") {
		s.i++
		return
	}
	// obj.import(...) and obj?.import are property accesses.
	if s.i > 0 {
		if prev := s.toks[s.i-1]; prev.is(".") || prev.is("?.") {
			s.i++
			return
		}
	}
	if tok.is("export") {
		s.exportFrom()
		return
	}

	next, ok := s.peek(1)
	switch {
	case !ok:
		s.i++
	case next.is("("):
		s.dynamic()
	case next.is("."):
		s.meta()
	case next.isString() || next.is("{") || next.is("*") || next.isName():
		s.static()
	default:
		// import as a property key or class field.
		s.i++
	}
}

// dynamic handles `import(spec, opts)`. Scanning resumes inside the argument
// list so nested loads are reported too.
func (s *scanner) dynamic() {
	start := s.toks[s.i]
	open := s.toks[s.i+1]
	imp := Import{
		Start:     start.pos,
		Dynamic:   open.pos,
		SpecStart: open.end(),
		SpecEnd:   open.end(),
		End:       open.end(),
	}

	depth := 0
	argEnd := -1
args:
	for j := s.i + 2; j < len(s.toks); j++ {
		t := s.toks[j]
		switch {
		case t.is("(") || t.is("[") || t.is("{"):
			depth++
		case (t.is(")") || t.is("]") || t.is("}")) && depth > 0:
			depth--
		case t.is(")"):
			imp.End = t.end()
			if argEnd < 0 {
				argEnd = j
			}
			break args
		case t.is(",") && depth == 0 && argEnd < 0:
			argEnd = j
		}
	}

	if argEnd > s.i+2 {
		first := s.toks[s.i+2]
		imp.SpecStart = first.pos
		imp.SpecEnd = s.toks[argEnd-1].end()
		if argEnd == s.i+3 && first.isString() {
			imp.Specifier, imp.Named = unquote(first.Data)
		}
	}

	s.imports = append(s.imports, imp)
	s.i += 2
}

func (s *scanner) meta() {
	start := s.toks[s.i]
	end := s.toks[s.i+1].end()
	if prop, ok := s.peek(2); ok && prop.is("meta") {
		end = prop.end()
		s.i++
	}
	s.imports = append(s.imports, Import{
		Start:     start.pos,
		End:       end,
		Dynamic:   DynamicMeta,
		SpecStart: -1,
		SpecEnd:   -1,
	})
	s.i += 2
}

// static handles `import "x"` and `import a, {b as c} from "x"`.
func (s *scanner) static() {
	start := s.toks[s.i]
	s.i++
	if t, ok := s.peek(0); ok && t.isString() {
		s.staticSpecifier(start, t)
		return
	}
	for s.i < len(s.toks) {
		t := s.toks[s.i]
		if t.is(";") {
			return
		}
		if t.is("from") {
			if spec, ok := s.peek(1); ok && spec.isString() {
				s.i++
				s.staticSpecifier(start, spec)
				return
			}
		}
		s.i++
	}
}

// exportFrom handles `export * from "x"`, `export * as ns from "x"` and
// `export {a, b as c} from "x"`. Other exports are not occurrences.
func (s *scanner) exportFrom() {
	start := s.toks[s.i]
	s.i++
	t, ok := s.peek(0)
	if !ok {
		return
	}
	switch {
	case t.is("*"):
		s.i++
		if as, ok := s.peek(0); ok && as.is("as") {
			s.i += 2
		}
	case t.is("{"):
		for s.i < len(s.toks) && !s.toks[s.i].is("}") {
			s.i++
		}
		s.i++
	default:
		return
	}
	from, ok := s.peek(0)
	if !ok || !from.is("from") {
		return
	}
	if spec, ok := s.peek(1); ok && spec.isString() {
		s.i++
		s.staticSpecifier(start, spec)
	}
}

func (s *scanner) staticSpecifier(start, spec token) {
	imp := Import{
		Start:     start.pos,
		End:       spec.end(),
		Dynamic:   DynamicStatic,
		SpecStart: spec.pos,
		SpecEnd:   spec.end(),
	}
	imp.Specifier, imp.Named = unquote(spec.Data)
	if semi, ok := s.peek(1); ok && semi.is(";") {
		imp.End = semi.end()
	}
	s.imports = append(s.imports, imp)
	s.i++
}
