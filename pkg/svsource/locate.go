package svsource

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/OpenTraceLab/regbind/pkg/rdl"
)

// SpanKind distinguishes register class blocks from array loops.
type SpanKind int

const (
	ClassBlock SpanKind = iota
	LoopBlock
)

// Span describes one block of the source and where generated statements go.
// All offsets are byte offsets into File.Source().
type Span struct {
	Kind  SpanKind
	Name  string // class name, or array name for loops
	Base  string // base class for class blocks
	Index string // loop index expression for loop blocks
	Line  int

	Start int // first byte of the block
	End   int // one past the last byte of the block

	// RegionStart is where the body that receives statements begins: the
	// build function header for classes, the begin keyword for loops.
	RegionStart int

	// MarkerOffset is the insertion point, directly before the closing
	// marker line (endfunction for classes, end for loops).
	MarkerOffset int
	Marker       string

	idents map[string]struct{}
}

// Text returns the full block text.
func (s *Span) Text(src string) string {
	return src[s.Start:s.End]
}

// Region returns the text between RegionStart and the insertion point.
func (s *Span) Region(src string) string {
	return src[s.RegionStart:s.MarkerOffset]
}

// Indent returns the leading whitespace of the marker line.
func (s *Span) Indent() string {
	return s.Marker[:len(s.Marker)-len(strings.TrimLeft(s.Marker, " \t"))]
}

// Newline returns the line ending used by the marker line.
func (s *Span) Newline() string {
	if strings.HasSuffix(s.Marker, "\r") {
		return "\r\n"
	}
	return "\n"
}

// Declares reports whether name appears as an identifier inside the block,
// ignoring case.
func (s *Span) Declares(name string) bool {
	_, ok := s.idents[strings.ToUpper(name)]
	return ok
}

// Candidate is a class whose name shares the register root but was not
// accepted.
type Candidate struct {
	Name   string
	Reason string
}

// RegisterBase is the class every scalar register model extends.
const RegisterBase = "uvm_reg"

// LocateScalar returns every uvm_reg class named root + "_<block>_REG" or
// root + "_MAC_<block>_REG" (case-insensitive) that has an insertion point.
// Classes that merely share the root prefix, extend another base or have no
// endfunction are returned as rejected candidates.
func (f *File) LocateScalar(root, block string) ([]Span, []Candidate) {
	var (
		spans    []Span
		rejected []Candidate
	)
	prefix := strings.ToUpper(root) + "_"
	for _, c := range f.classes {
		upper := strings.ToUpper(c.name)
		if !strings.HasPrefix(upper, prefix) {
			continue
		}
		if !hasAcceptedSuffix(upper[len(prefix)-1:], block) {
			rejected = append(rejected, Candidate{Name: c.name, Reason: "suffix does not match block " + block})
			continue
		}
		if c.base != RegisterBase {
			reason := "does not extend " + RegisterBase
			if c.base != "" {
				reason = "extends " + c.base + ", not " + RegisterBase
			}
			rejected = append(rejected, Candidate{Name: c.name, Reason: reason})
			continue
		}
		if c.marker < 0 {
			rejected = append(rejected, Candidate{Name: c.name, Reason: "no endfunction inside class"})
			continue
		}
		spans = append(spans, f.classSpan(c))
	}
	return spans, rejected
}

func hasAcceptedSuffix(suffix, block string) bool {
	for _, accepted := range rdl.ClassSuffixes(block) {
		if suffix == accepted {
			return true
		}
	}
	return false
}

func (f *File) classSpan(c classDecl) Span {
	end := len(f.src)
	if c.end < len(f.toks) {
		end = f.toks[c.end].Pos.Offset + len(f.toks[c.end].Value)
	}
	span := Span{
		Kind:        ClassBlock,
		Name:        c.name,
		Base:        c.base,
		Line:        f.toks[c.start].Pos.Line,
		Start:       lineStart(f.src, f.toks[c.start].Pos.Offset),
		End:         end,
		RegionStart: f.toks[c.region].Pos.Offset,
		idents:      identSet(f.toks[c.start:c.end]),
	}
	span.MarkerOffset, span.Marker = f.marker(f.toks[c.marker])
	return span
}

// LocateArray returns the loops that declare a variable and both configure
// and construct root + "_N[idx]", in source order.
func (f *File) LocateArray(root string) []Span {
	name := strings.ToUpper(root) + "_N"
	var spans []Span
	for _, loop := range f.loops {
		ref, ok := loop.refs[name]
		if !ok || !loop.hasDecl || !ref.configured || !ref.constructed {
			continue
		}
		span := Span{
			Kind:        LoopBlock,
			Name:        root + "_N",
			Index:       ref.index,
			Line:        f.toks[loop.start].Pos.Line,
			Start:       lineStart(f.src, f.toks[loop.start].Pos.Offset),
			End:         f.toks[loop.end].Pos.Offset + len(f.toks[loop.end].Value),
			RegionStart: f.toks[loop.begin].Pos.Offset,
			idents:      identSet(f.toks[loop.begin:loop.end]),
		}
		span.MarkerOffset, span.Marker = f.marker(f.toks[loop.end])
		spans = append(spans, span)
	}
	return spans
}

// marker returns the insertion offset and marker text for a closing token.
// When only whitespace precedes the token on its line, insertion happens at
// the start of that line; otherwise directly before the token.
func (f *File) marker(tok lexer.Token) (int, string) {
	start := lineStart(f.src, tok.Pos.Offset)
	if strings.TrimSpace(f.src[start:tok.Pos.Offset]) != "" {
		start = tok.Pos.Offset
	}
	end := strings.IndexByte(f.src[tok.Pos.Offset:], '\n')
	if end < 0 {
		end = len(f.src)
	} else {
		end += tok.Pos.Offset
	}
	return start, f.src[start:end]
}

func lineStart(src string, off int) int {
	return strings.LastIndexByte(src[:off], '\n') + 1
}

func identSet(toks []lexer.Token) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range toks {
		if tok.Type == tokIdent {
			set[strings.ToUpper(tok.Value)] = struct{}{}
		}
	}
	return set
}
