package rdl

import (
	"github.com/alecthomas/participle/v2/lexer"

	rerrors "github.com/OpenTraceLab/regbind/internal/errors"
)

// RDLLexer defines the lexical structure of register-description and
// address-map documents. Only the tokens needed to find block boundaries are
// distinguished; everything else falls through to Punct or Other.
var RDLLexer = lexer.MustSimple([]lexer.SimpleRule{
	// Comments - C++ style, line and block
	{Name: "Comment", Pattern: `//[^\n]*|/\*(?s:.*?)\*/`},

	// Whitespace
	{Name: "Whitespace", Pattern: `\s+`},

	// String literals with escape sequences
	{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"`},

	// Numbers: hex, Verilog-style sized literals, decimal
	{Name: "Number", Pattern: `0[xX][0-9a-fA-F_]+|[0-9]*'[bBdDhHoO][0-9a-fA-F_xXzZ]+|[0-9]+`},

	// Identifiers (keywords such as reg, field, addrmap are compared by value)
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},

	// Compound assignment operators used by address-map entries
	{Name: "Op", Pattern: `\+=|%=|->`},

	// Single-character punctuation
	{Name: "Punct", Pattern: `[{}\[\]();:,=@.#<>?!&|^~*/+-]`},

	// Anything else (escaped identifiers, stray bytes from legacy encodings)
	{Name: "Other", Pattern: `.`},
})

var (
	tokIdent   = RDLLexer.Symbols()["Ident"]
	tokNumber  = RDLLexer.Symbols()["Number"]
	tokString  = RDLLexer.Symbols()["String"]
	tokComment = RDLLexer.Symbols()["Comment"]
	tokSpace   = RDLLexer.Symbols()["Whitespace"]
)

// tokenize lexes text and drops comments, whitespace and the trailing EOF.
// Token offsets index into text.
func tokenize(format, text string) ([]lexer.Token, error) {
	lex, err := RDLLexer.LexString("", text)
	if err != nil {
		return nil, rerrors.NewParse(format, err)
	}
	all, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, rerrors.NewParse(format, err)
	}

	toks := make([]lexer.Token, 0, len(all)/2)
	for _, tok := range all {
		if tok.EOF() || tok.Type == tokComment || tok.Type == tokSpace {
			continue
		}
		toks = append(toks, tok)
	}
	return toks, nil
}

func isIdent(tok lexer.Token, value string) bool {
	return tok.Type == tokIdent && tok.Value == value
}

// matchBrace returns the index of the "}" closing the "{" at open, or -1.
func matchBrace(toks []lexer.Token, open int) int {
	depth := 0
	for i := open; i < len(toks); i++ {
		switch toks[i].Value {
		case "{":
			depth++
		case "}":
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
