package rdl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	rerrors "github.com/OpenTraceLab/regbind/internal/errors"
	"github.com/OpenTraceLab/regbind/pkg/keyword"
)

// entryGrammar is one register instance inside an addrmap.
// Example: external FOO_R3_W FOO_R3_W[2] @0x0020 += 0x4;
//
//nolint:govet // participle grammar tags are not standard struct tags
type entryGrammar struct {
	External bool   `@"external"?`
	Type     string `@Ident`
	Name     string `@Ident`
	Size     string `( "[" @Number "]" )?`
	Offset   string `( "@" @Number )?`
	Stride   string `( "+=" @Number )?`
	Align    string `( "%=" @Number )? ";"`
}

// Entry is a classified address-map line.
type Entry struct {
	Name     string
	Type     string // register type the instance refers to
	Category Category
	Count    int // elements for arrays, 0 for scalars
	Offset   string
	Stride   string
	Line     int
	Text     string
}

// EntryParser parses single address-map statements.
type EntryParser struct {
	parser *participle.Parser[entryGrammar]
}

// NewEntryParser creates a new address-map entry parser.
func NewEntryParser() (*EntryParser, error) {
	parser, err := participle.Build[entryGrammar](
		participle.Lexer(RDLLexer),
		participle.Elide("Comment", "Whitespace"),
		participle.UseLookahead(2),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build parser: %w", err)
	}
	return &EntryParser{parser: parser}, nil
}

// ParseString parses one statement, including its terminating semicolon.
func (p *EntryParser) ParseString(input string) (*Entry, error) {
	g, err := p.parser.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	entry := &Entry{
		Name:   g.Name,
		Type:   g.Type,
		Offset: g.Offset,
		Stride: g.Stride,
		Text:   strings.TrimSpace(input),
	}
	if g.Size != "" {
		n, err := strconv.ParseUint(strings.ReplaceAll(g.Size, "_", ""), 0, 32)
		if err != nil {
			return nil, fmt.Errorf("bad array size %q: %w", g.Size, err)
		}
		entry.Count = int(n)
	}

	// First match wins: external array, array, scalar, external scalar.
	switch {
	case g.External && g.Size != "":
		entry.Category = ExternalArray
	case g.Size != "":
		entry.Category = Array
	case !g.External:
		entry.Category = Scalar
	default:
		entry.Category = ExternalScalar
	}
	return entry, nil
}

// Ignored is an address-map statement that produced no entry.
type Ignored struct {
	Line   int
	Text   string
	Reason string
}

// Classification is the address map split by register category. Every list
// preserves listing order.
type Classification struct {
	Map             string
	Scalars         []Entry
	ExternalScalars []Entry
	Arrays          []Entry
	ExternalArrays  []Entry
	Disqualified    []Entry
	Ignored         []Ignored
}

// Entries returns the entries of one category.
func (c *Classification) Entries(cat Category) []Entry {
	switch cat {
	case Scalar:
		return c.Scalars
	case ExternalScalar:
		return c.ExternalScalars
	case Array:
		return c.Arrays
	case ExternalArray:
		return c.ExternalArrays
	}
	return nil
}

// Names returns the register names of one category.
func (c *Classification) Names(cat Category) []string {
	entries := c.Entries(cat)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// Len counts classified entries, disqualified ones included.
func (c *Classification) Len() int {
	return len(c.Scalars) + len(c.ExternalScalars) + len(c.Arrays) +
		len(c.ExternalArrays) + len(c.Disqualified)
}

func (c *Classification) add(e Entry) {
	switch e.Category {
	case Scalar:
		c.Scalars = append(c.Scalars, e)
	case ExternalScalar:
		c.ExternalScalars = append(c.ExternalScalars, e)
	case Array:
		c.Arrays = append(c.Arrays, e)
	case ExternalArray:
		c.ExternalArrays = append(c.ExternalArrays, e)
	}
}

// Classify finds the addrmap section of text and classifies each register
// instance named "<block>_...". When several addrmaps are present, the one
// named after block wins, otherwise the first. Disqualified names are kept
// apart so callers can report them.
func Classify(text, block string, filter *keyword.Filter) (*Classification, error) {
	toks, err := tokenize("RDL", text)
	if err != nil {
		return nil, err
	}

	name, body, ok := findAddrmap(toks, block)
	if !ok {
		return nil, rerrors.NewNotFound("addrmap", block)
	}

	parser, err := NewEntryParser()
	if err != nil {
		return nil, err
	}

	result := &Classification{Map: name}
	for _, stmt := range splitStatements(body) {
		first, last := stmt[0], stmt[len(stmt)-1]
		src := text[first.Pos.Offset : last.Pos.Offset+len(last.Value)]

		if hasBraces(stmt) {
			result.Ignored = append(result.Ignored, Ignored{Line: first.Pos.Line, Text: src, Reason: "nested definition"})
			continue
		}
		entry, err := parser.ParseString(src)
		if err != nil {
			result.Ignored = append(result.Ignored, Ignored{Line: first.Pos.Line, Text: src, Reason: err.Error()})
			continue
		}
		entry.Line = first.Pos.Line

		switch {
		case !HasBlockPrefix(entry.Name, block):
			result.Ignored = append(result.Ignored, Ignored{Line: entry.Line, Text: src, Reason: "outside block " + block})
		case filter.IsDisqualified(entry.Name):
			result.Disqualified = append(result.Disqualified, *entry)
		default:
			result.add(*entry)
		}
	}

	return result, nil
}

// findAddrmap returns the name and body tokens of the selected addrmap.
func findAddrmap(toks []lexer.Token, block string) (string, []lexer.Token, bool) {
	var (
		name  string
		body  []lexer.Token
		found bool
	)
	for i := 0; i+2 < len(toks); i++ {
		if !isIdent(toks[i], "addrmap") || toks[i+1].Type != tokIdent || toks[i+2].Value != "{" {
			continue
		}
		end := matchBrace(toks, i+2)
		if end < 0 {
			break
		}
		if !found || strings.EqualFold(toks[i+1].Value, block) {
			name, body, found = toks[i+1].Value, toks[i+3:end], true
		}
		if strings.EqualFold(name, block) {
			break
		}
		i = end
	}
	return name, body, found
}

// splitStatements cuts body at top-level semicolons. A trailing statement
// without a semicolon is dropped.
func splitStatements(body []lexer.Token) [][]lexer.Token {
	var (
		stmts [][]lexer.Token
		start int
		depth int
	)
	for i, tok := range body {
		switch tok.Value {
		case "{":
			depth++
		case "}":
			depth--
		case ";":
			if depth == 0 {
				stmts = append(stmts, body[start:i+1])
				start = i + 1
			}
		}
	}
	return stmts
}

func hasBraces(stmt []lexer.Token) bool {
	for _, tok := range stmt {
		if tok.Value == "{" || tok.Value == "}" {
			return true
		}
	}
	return false
}
