package lexer

// Kind represents the type of token identified by the scanner.
type Kind uint8

const (
	KindEOF Kind = iota
	KindNewline
	KindIndent
	KindDedent
	KindIdentifier
	KindKeyword
	KindNumber
	KindString
	KindFString
	KindOperator
	KindDelimiter
)

func (k Kind) String() string {
	switch k {
	case KindEOF:
		return "end of file"
	case KindNewline:
		return "newline"
	case KindIndent:
		return "indent"
	case KindDedent:
		return "dedent"
	case KindIdentifier:
		return "identifier"
	case KindKeyword:
		return "keyword"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindFString:
		return "f-string"
	case KindOperator:
		return "operator"
	case KindDelimiter:
		return "delimiter"
	default:
		return "invalid"
	}
}

// Position is a line/column pair in the source text, 1-based.
type Position struct {
	Line int
	Col  int
}

// Token is a lexical unit. Lit holds the literal text (for strings, the
// decoded contents without quotes). Tokens are immutable once produced.
type Token struct {
	Kind Kind
	Lit  string
	Line int
	Col  int
}

// Pos returns the token's source position.
func (t Token) Pos() Position { return Position{Line: t.Line, Col: t.Col} }

// keywords of the supported subset, plus reserved words the parser rejects
// as unsupported constructs so they do not masquerade as identifiers.
var keywords = map[string]bool{
	"def": true, "return": true, "pass": true, "break": true,
	"continue": true, "if": true, "elif": true, "else": true,
	"while": true, "for": true, "in": true, "and": true, "or": true,
	"not": true, "True": true, "False": true, "None": true,
	"async": true, "await": true, "del": true,

	"class": true, "import": true, "from": true, "try": true,
	"except": true, "finally": true, "raise": true, "with": true,
	"lambda": true, "yield": true, "global": true, "nonlocal": true,
	"is": true, "assert": true,
}

// IsKeyword reports whether s is a reserved word of the source subset.
func IsKeyword(s string) bool { return keywords[s] }
