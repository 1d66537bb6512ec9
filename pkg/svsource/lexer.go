package svsource

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// SVLexer tokenizes SystemVerilog register models. It never fails: anything
// not covered by a rule becomes an Other token.
var SVLexer = lexer.MustSimple([]lexer.SimpleRule{
	// Comments - line and block
	{Name: "Comment", Pattern: `//[^\n]*|/\*(?s:.*?)\*/`},

	// Whitespace
	{Name: "Whitespace", Pattern: `\s+`},

	// String literals; a string cannot span lines
	{Name: "String", Pattern: `"(?:[^"\\\n]|\\.)*"`},

	// Compiler directives and macro uses (`uvm_object_utils, `ifdef)
	{Name: "Directive", Pattern: "`[a-zA-Z_][a-zA-Z0-9_]*"},

	// System tasks and functions ($sformatf)
	{Name: "SysIdent", Pattern: `\$[a-zA-Z_][a-zA-Z0-9_$]*`},

	// Numbers: based literals ('h10, 8'hFF), unbased unsized ('1), decimals
	{Name: "Number", Pattern: `[0-9]*'[sS]?[bBoOdDhH][0-9a-fA-F_xXzZ?]+|'[01xXzZ]|[0-9][0-9_]*(?:\.[0-9_]+)?`},

	// Identifiers; keywords are compared by value
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_$]*`},

	// Class scope operator
	{Name: "Scope", Pattern: `::`},

	// Single-character punctuation
	{Name: "Punct", Pattern: `[-+*/%=<>!&|^~?:;,.()\[\]{}#@']`},

	{Name: "Other", Pattern: `.`},
})

var (
	tokIdent   = SVLexer.Symbols()["Ident"]
	tokScope   = SVLexer.Symbols()["Scope"]
	tokComment = SVLexer.Symbols()["Comment"]
	tokSpace   = SVLexer.Symbols()["Whitespace"]
)

func isIdent(tok lexer.Token, value string) bool {
	return tok.Type == tokIdent && tok.Value == value
}
