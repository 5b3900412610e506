package lexer

import "fmt"

// ErrorKind classifies scanner failures.
type ErrorKind uint8

const (
	ErrBadChar ErrorKind = iota
	ErrInconsistentIndent
	ErrUnterminatedString
	ErrTabIndent
)

// Error is a lexical error carrying the offending position.
type Error struct {
	Kind   ErrorKind
	Line   int
	Col    int
	Detail string
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrInconsistentIndent:
		return fmt.Sprintf("line %d:%d: inconsistent indentation", e.Line, e.Col)
	case ErrUnterminatedString:
		return fmt.Sprintf("line %d:%d: unterminated string literal", e.Line, e.Col)
	case ErrTabIndent:
		return fmt.Sprintf("line %d:%d: tab in indentation", e.Line, e.Col)
	default:
		return fmt.Sprintf("line %d:%d: unexpected character %s", e.Line, e.Col, e.Detail)
	}
}

// Scanner performs lexical analysis on a source-subset program. Tokens are
// produced lazily through Next; the stream is restartable from scratch via
// Reset but never mid-stream.
type Scanner struct {
	src       string
	cursor    int
	line      int
	lineStart int

	indents     []int
	pending     []Token
	atLineStart bool
	brackets    int
	needNewline bool
	eofDone     bool
}

// NewScanner creates a scanner for the given source text.
func NewScanner(src string) *Scanner {
	s := &Scanner{}
	s.Reset(src)
	return s
}

// Reset re-initializes the scanner with new source.
func (s *Scanner) Reset(src string) {
	s.src = src
	s.cursor = 0
	s.line = 1
	s.lineStart = 0
	s.indents = s.indents[:0]
	s.indents = append(s.indents, 0)
	s.pending = s.pending[:0]
	s.atLineStart = true
	s.brackets = 0
	s.needNewline = false
	s.eofDone = false
}

func (s *Scanner) col() int { return s.cursor - s.lineStart + 1 }

func (s *Scanner) errAt(kind ErrorKind, detail string) error {
	return &Error{Kind: kind, Line: s.line, Col: s.col(), Detail: detail}
}

func (s *Scanner) peek() byte {
	if s.cursor+1 >= len(s.src) {
		return 0
	}
	return s.src[s.cursor+1]
}

func (s *Scanner) make(kind Kind, lit string, line, col int) Token {
	if kind != KindNewline && kind != KindIndent && kind != KindDedent {
		s.needNewline = true
	}
	return Token{Kind: kind, Lit: lit, Line: line, Col: col}
}

// Next returns the next token, or an error on malformed input.
func (s *Scanner) Next() (Token, error) {
	if len(s.pending) > 0 {
		tok := s.pending[0]
		s.pending = s.pending[1:]
		return tok, nil
	}

	if s.atLineStart && s.brackets == 0 {
		tok, emitted, err := s.scanIndentation()
		if err != nil {
			return Token{}, err
		}
		if emitted {
			return tok, nil
		}
	}

	s.skipSpaces()

	if s.cursor >= len(s.src) {
		return s.emitEOF(), nil
	}

	ch := s.src[s.cursor]
	line, col := s.line, s.col()

	switch {
	case ch == '#':
		for s.cursor < len(s.src) && s.src[s.cursor] != '\n' {
			s.cursor++
		}
		return s.Next()
	case ch == '\n':
		s.advanceLine()
		if s.brackets > 0 || !s.needNewline {
			return s.Next()
		}
		s.atLineStart = true
		s.needNewline = false
		return Token{Kind: KindNewline, Lit: "\n", Line: line, Col: col}, nil
	case ch == '\'' || ch == '"':
		return s.scanString(KindString, ch, line, col)
	case (ch == 'f' || ch == 'F') && (s.peek() == '\'' || s.peek() == '"'):
		s.cursor++ // the f prefix
		return s.scanString(KindFString, s.src[s.cursor], line, col)
	case isDigit(ch):
		return s.scanNumber(line, col), nil
	case isAlpha(ch):
		return s.scanIdentifier(line, col), nil
	default:
		return s.scanOperator(ch, line, col)
	}
}

// emitEOF flushes a trailing newline and any open indentation levels before
// the terminal EOF token.
func (s *Scanner) emitEOF() Token {
	if s.eofDone {
		return Token{Kind: KindEOF, Line: s.line, Col: s.col()}
	}
	s.eofDone = true
	if s.needNewline {
		s.needNewline = false
		s.pending = append(s.pending, Token{Kind: KindNewline, Lit: "\n", Line: s.line, Col: s.col()})
	}
	for len(s.indents) > 1 {
		s.indents = s.indents[:len(s.indents)-1]
		s.pending = append(s.pending, Token{Kind: KindDedent, Line: s.line, Col: 1})
	}
	s.pending = append(s.pending, Token{Kind: KindEOF, Line: s.line, Col: s.col()})
	tok := s.pending[0]
	s.pending = s.pending[1:]
	return tok
}

// scanIndentation measures the leading whitespace of the next non-blank line
// and emits synthetic indent or dedent tokens on level changes.
func (s *Scanner) scanIndentation() (Token, bool, error) {
	for {
		width := 0
		for s.cursor < len(s.src) {
			if s.src[s.cursor] == ' ' {
				width++
				s.cursor++
			} else if s.src[s.cursor] == '\t' {
				return Token{}, false, s.errAt(ErrTabIndent, "\\t")
			} else {
				break
			}
		}
		if s.cursor >= len(s.src) {
			s.atLineStart = false
			return Token{}, false, nil
		}
		// Blank and comment-only lines carry no indentation meaning.
		if s.src[s.cursor] == '\n' {
			s.advanceLine()
			continue
		}
		if s.src[s.cursor] == '#' {
			for s.cursor < len(s.src) && s.src[s.cursor] != '\n' {
				s.cursor++
			}
			continue
		}

		s.atLineStart = false
		top := s.indents[len(s.indents)-1]
		if width > top {
			s.indents = append(s.indents, width)
			return Token{Kind: KindIndent, Line: s.line, Col: 1}, true, nil
		}
		for width < s.indents[len(s.indents)-1] {
			s.indents = s.indents[:len(s.indents)-1]
			s.pending = append(s.pending, Token{Kind: KindDedent, Line: s.line, Col: 1})
		}
		if width != s.indents[len(s.indents)-1] {
			return Token{}, false, s.errAt(ErrInconsistentIndent, "")
		}
		if len(s.pending) > 0 {
			tok := s.pending[0]
			s.pending = s.pending[1:]
			return tok, true, nil
		}
		return Token{}, false, nil
	}
}

func (s *Scanner) advanceLine() {
	s.cursor++
	s.line++
	s.lineStart = s.cursor
}

func (s *Scanner) skipSpaces() {
	for s.cursor < len(s.src) {
		ch := s.src[s.cursor]
		if ch == ' ' || ch == '\t' || ch == '\r' {
			s.cursor++
		} else if ch == '\n' && s.brackets > 0 {
			s.advanceLine()
		} else {
			break
		}
	}
}

func (s *Scanner) scanString(kind Kind, quote byte, line, col int) (Token, error) {
	s.cursor++ // opening quote
	var lit []byte
	for {
		if s.cursor >= len(s.src) || s.src[s.cursor] == '\n' {
			return Token{}, &Error{Kind: ErrUnterminatedString, Line: line, Col: col}
		}
		ch := s.src[s.cursor]
		if ch == quote {
			s.cursor++
			return s.make(kind, string(lit), line, col), nil
		}
		if ch == '\\' && s.cursor+1 < len(s.src) {
			switch s.src[s.cursor+1] {
			case 'n':
				lit = append(lit, '\n')
			case 't':
				lit = append(lit, '\t')
			case '\\':
				lit = append(lit, '\\')
			case '\'':
				lit = append(lit, '\'')
			case '"':
				lit = append(lit, '"')
			default:
				lit = append(lit, '\\', s.src[s.cursor+1])
			}
			s.cursor += 2
			continue
		}
		lit = append(lit, ch)
		s.cursor++
	}
}

func (s *Scanner) scanNumber(line, col int) Token {
	start := s.cursor
	for s.cursor < len(s.src) && isDigit(s.src[s.cursor]) {
		s.cursor++
	}
	if s.cursor < len(s.src) && s.src[s.cursor] == '.' && s.cursor+1 < len(s.src) && isDigit(s.src[s.cursor+1]) {
		s.cursor++
		for s.cursor < len(s.src) && isDigit(s.src[s.cursor]) {
			s.cursor++
		}
	}
	if s.cursor < len(s.src) && (s.src[s.cursor] == 'e' || s.src[s.cursor] == 'E') {
		next := s.peek()
		if isDigit(next) || ((next == '+' || next == '-') && s.cursor+2 < len(s.src) && isDigit(s.src[s.cursor+2])) {
			s.cursor++
			if s.src[s.cursor] == '+' || s.src[s.cursor] == '-' {
				s.cursor++
			}
			for s.cursor < len(s.src) && isDigit(s.src[s.cursor]) {
				s.cursor++
			}
		}
	}
	return s.make(KindNumber, s.src[start:s.cursor], line, col)
}

func (s *Scanner) scanIdentifier(line, col int) Token {
	start := s.cursor
	for s.cursor < len(s.src) && (isAlpha(s.src[s.cursor]) || isDigit(s.src[s.cursor])) {
		s.cursor++
	}
	lit := s.src[start:s.cursor]
	if IsKeyword(lit) {
		return s.make(KindKeyword, lit, line, col)
	}
	return s.make(KindIdentifier, lit, line, col)
}

func (s *Scanner) scanOperator(ch byte, line, col int) (Token, error) {
	two := ""
	if s.cursor+1 < len(s.src) {
		two = s.src[s.cursor : s.cursor+2]
	}
	switch two {
	case "**", "//", "==", "!=", "<=", ">=", "+=", "-=", "*=", "/=":
		s.cursor += 2
		return s.make(KindOperator, two, line, col), nil
	}
	switch ch {
	case '+', '-', '*', '/', '%', '<', '>', '=', '@':
		s.cursor++
		return s.make(KindOperator, string(ch), line, col), nil
	case '(', ')', '[', ']', ',', ':', '.':
		s.cursor++
		if ch == '(' || ch == '[' {
			s.brackets++
		} else if (ch == ')' || ch == ']') && s.brackets > 0 {
			s.brackets--
		}
		return s.make(KindDelimiter, string(ch), line, col), nil
	}
	return Token{}, s.errAt(ErrBadChar, fmt.Sprintf("%q", string(ch)))
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}
