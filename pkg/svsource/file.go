// Package svsource locates register class declarations and register array
// loops inside a generated UVM register model, reporting exact byte spans so
// callers can insert text without re-searching the document.
package svsource

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	rerrors "github.com/OpenTraceLab/regbind/internal/errors"
)

// File is a tokenized verification source. Spans returned by its locators
// index into Source().
type File struct {
	src     string
	toks    []lexer.Token
	classes []classDecl
	loops   []loopDecl
}

type classDecl struct {
	name   string
	base   string
	start  int // token index of "class"
	end    int // token index of "endclass", or len(toks)
	marker int // token index of the closing "endfunction", or -1
	region int // token index of the "function" keyword owning marker
}

type arrayRef struct {
	index       string
	configured  bool
	constructed bool
}

type loopDecl struct {
	start   int // token index of "for"/"foreach"
	begin   int // token index of "begin"
	end     int // token index of the matching "end"
	hasDecl bool
	refs    map[string]*arrayRef // keyed by upper-cased array name
}

// Parse tokenizes src and indexes every class declaration and every
// begin/end loop it contains.
func Parse(src string) (*File, error) {
	lex, err := SVLexer.LexString("", src)
	if err != nil {
		return nil, rerrors.NewParse("SystemVerilog", err)
	}
	all, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, rerrors.NewParse("SystemVerilog", err)
	}

	f := &File{src: src}
	for _, tok := range all {
		if tok.EOF() || tok.Type == tokComment || tok.Type == tokSpace {
			continue
		}
		f.toks = append(f.toks, tok)
	}

	f.scanClasses()
	f.scanLoops()
	return f, nil
}

// Source returns the text the file was parsed from.
func (f *File) Source() string {
	return f.src
}

func (f *File) scanClasses() {
	toks := f.toks
	for i := 0; i+1 < len(toks); i++ {
		if !isIdent(toks[i], "class") || toks[i+1].Type != tokIdent {
			continue
		}
		if i > 0 && isIdent(toks[i-1], "typedef") {
			continue
		}
		c := classDecl{name: toks[i+1].Value, start: i, end: len(toks), marker: -1, region: -1}

		// The base is the last name of a scoped reference: uvm_pkg::uvm_reg.
		j := i + 2
		inBase := false
		for ; j < len(toks) && toks[j].Value != ";"; j++ {
			switch {
			case isIdent(toks[j], "extends"):
				inBase = true
			case inBase && toks[j].Type == tokIdent:
				c.base = toks[j].Value
			case inBase && toks[j].Type != tokScope:
				inBase = false
			}
		}
		for ; j < len(toks); j++ {
			if isIdent(toks[j], "endclass") {
				c.end = j
				break
			}
		}

		c.region, c.marker = buildFunction(toks[:c.end], i)
		f.classes = append(f.classes, c)
		i = c.end
	}
}

// buildFunction finds the endfunction closing build() between from and the
// end of toks, falling back to the first endfunction when build is absent.
func buildFunction(toks []lexer.Token, from int) (int, int) {
	firstFn, firstEnd := -1, -1
	for i := from; i < len(toks); i++ {
		if !isIdent(toks[i], "function") {
			continue
		}
		name := functionName(toks, i)
		end := -1
		for j := i + 1; j < len(toks); j++ {
			if isIdent(toks[j], "endfunction") {
				end = j
				break
			}
		}
		if end < 0 {
			break
		}
		if name == "build" {
			return i, end
		}
		if firstEnd < 0 {
			firstFn, firstEnd = i, end
		}
		i = end
	}
	return firstFn, firstEnd
}

// functionName returns the identifier directly before the argument list or
// the terminating semicolon of a function header.
func functionName(toks []lexer.Token, fn int) string {
	for k := fn + 1; k < len(toks); k++ {
		if toks[k].Value == "(" || toks[k].Value == ";" {
			if toks[k-1].Type == tokIdent {
				return toks[k-1].Value
			}
			return ""
		}
	}
	return ""
}

func (f *File) scanLoops() {
	toks := f.toks
	for i := 0; i < len(toks); i++ {
		if loop, ok := f.loopAt(i); ok {
			f.loops = append(f.loops, loop)
		}
	}
}

// loopAt recognises `for|foreach (...) begin ... end` at token i.
func (f *File) loopAt(i int) (loopDecl, bool) {
	toks := f.toks
	if !(isIdent(toks[i], "for") || isIdent(toks[i], "foreach")) || i+1 >= len(toks) || toks[i+1].Value != "(" {
		return loopDecl{}, false
	}
	closeParen := matchPair(toks, i+1, "(", ")")
	if closeParen < 0 || closeParen+1 >= len(toks) || !isIdent(toks[closeParen+1], "begin") {
		return loopDecl{}, false
	}
	begin := closeParen + 1
	end := matchBeginEnd(toks, begin)
	if end < 0 {
		return loopDecl{}, false
	}

	loop := loopDecl{start: i, begin: begin, end: end, refs: make(map[string]*arrayRef)}
	stmtStart := true
	for k := begin + 1; k < end; k++ {
		if nested, ok := f.loopAt(k); ok {
			k = nested.end
			stmtStart = true
			continue
		}
		tok := toks[k]
		if stmtStart && tok.Type == tokIdent && declKeywords[tok.Value] {
			loop.hasDecl = loop.hasDecl || statementAssigns(toks[k:end])
		}
		stmtStart = tok.Value == ";" || isIdent(tok, "begin")

		if tok.Type == tokIdent && k+1 < end && toks[k+1].Value == "[" {
			f.recordRef(&loop, k)
		}
	}
	return loop, true
}

// declKeywords start a variable declaration inside a loop body.
var declKeywords = map[string]bool{
	"int": true, "integer": true, "longint": true, "shortint": true,
	"bit": true, "logic": true, "automatic": true, "static": true,
	"uvm_reg_addr_t": true,
}

func statementAssigns(toks []lexer.Token) bool {
	for _, tok := range toks {
		switch tok.Value {
		case "=":
			return true
		case ";":
			return false
		}
	}
	return false
}

// recordRef notes what the statement does with NAME[idx] at token k.
func (f *File) recordRef(loop *loopDecl, k int) {
	toks := f.toks
	closeBracket := matchPair(toks, k+1, "[", "]")
	if closeBracket < 0 || closeBracket+1 >= loop.end {
		return
	}

	key := strings.ToUpper(toks[k].Value)
	ref := loop.refs[key]
	if ref == nil {
		ref = &arrayRef{index: strings.TrimSpace(f.src[toks[k+1].Pos.Offset+1 : toks[closeBracket].Pos.Offset])}
		loop.refs[key] = ref
	}

	next := toks[closeBracket+1]
	switch {
	case next.Value == "." && closeBracket+2 < loop.end:
		switch toks[closeBracket+2].Value {
		case "configure":
			ref.configured = true
		case "build":
			ref.constructed = true
		}
	case next.Value == "=":
		for j := closeBracket + 2; j < loop.end && toks[j].Value != ";"; j++ {
			if isIdent(toks[j], "create") || isIdent(toks[j], "new") {
				ref.constructed = true
				break
			}
		}
	}
}

func matchPair(toks []lexer.Token, open int, left, right string) int {
	depth := 0
	for i := open; i < len(toks); i++ {
		switch toks[i].Value {
		case left:
			depth++
		case right:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func matchBeginEnd(toks []lexer.Token, begin int) int {
	depth := 0
	for i := begin; i < len(toks); i++ {
		if toks[i].Type != tokIdent {
			continue
		}
		switch toks[i].Value {
		case "begin":
			depth++
		case "end":
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
