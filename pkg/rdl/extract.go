package rdl

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	rerrors "github.com/OpenTraceLab/regbind/internal/errors"
)

// Extract builds the register dictionary from an RDL document. Only register
// definitions named "<block>_..." are kept. Registers are recognised wherever
// they appear outside another register; nested registers are not supported.
//
//	reg FOO_R0_X {
//	    field { name = "A"; sw = rw; } A[7:0] = 0;
//	    field { name = "B"; } B[8:8];
//	};
func Extract(text, block string) (*Dictionary, error) {
	toks, err := tokenize("RDL", text)
	if err != nil {
		return nil, err
	}

	dict := NewDictionary(block)
	for i := 0; i < len(toks); i++ {
		if !isIdent(toks[i], "reg") || i+2 >= len(toks) {
			continue
		}
		if toks[i+1].Type != tokIdent || toks[i+2].Value != "{" {
			continue
		}

		end := matchBrace(toks, i+2)
		if end < 0 {
			return nil, &rerrors.ParseError{
				Format:  "RDL",
				Message: fmt.Sprintf("line %d: register %s is not closed", toks[i].Pos.Line, toks[i+1].Value),
			}
		}

		name := toks[i+1].Value
		if HasBlockPrefix(name, block) {
			reg := &Register{
				Name: name,
				Root: CanonicalRoot(name, block),
				Line: toks[i].Pos.Line,
			}
			collectFields(reg, text, toks[i+3:end])
			dict.add(reg)
		}
		i = end
	}

	return dict, nil
}

// collectFields reads anonymous field instances from a register body:
// field { ... } NAME[msb:lsb] ... ;
func collectFields(reg *Register, text string, body []lexer.Token) {
	for j := 0; j < len(body); j++ {
		if !isIdent(body[j], "field") || j+1 >= len(body) || body[j+1].Value != "{" {
			continue
		}
		closing := matchBrace(body, j+1)
		if closing < 0 {
			return
		}
		title := nameProperty(body[j+2 : closing])

		k := closing + 1
		for k < len(body) && body[k].Type == tokIdent {
			field, next := fieldInstance(text, body, k)
			field.Title = title
			reg.addField(field)
			if next >= len(body) || body[next].Value != "," {
				k = next
				break
			}
			k = next + 1
		}
		j = k - 1
	}
}

// fieldInstance reads "NAME" or "NAME[...]" starting at body[k] and returns
// the index of the first token after it.
func fieldInstance(text string, body []lexer.Token, k int) (Field, int) {
	name := body[k]
	field := Field{Name: name.Value, Raw: name.Value, Line: name.Pos.Line}
	next := k + 1
	if next < len(body) && body[next].Value == "[" {
		for m := next + 1; m < len(body); m++ {
			if body[m].Value == "]" {
				field.Raw = text[name.Pos.Offset : body[m].Pos.Offset+1]
				next = m + 1
				break
			}
			if body[m].Value == ";" {
				break
			}
		}
	}
	return field, next
}

// nameProperty returns the unquoted value of `name = "..."` in a field body.
func nameProperty(body []lexer.Token) string {
	for i := 0; i+2 < len(body); i++ {
		if isIdent(body[i], "name") && body[i+1].Value == "=" && body[i+2].Type == tokString {
			return strings.Trim(body[i+2].Value, `"`)
		}
	}
	return ""
}
