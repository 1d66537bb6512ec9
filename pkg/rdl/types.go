package rdl

import (
	"fmt"
	"strings"
)

// Field is one field of a register as written in the description document.
type Field struct {
	Name  string // root name, document casing, e.g. "Ring_Size"
	Raw   string // token including any bit range, e.g. "Ring_Size[23:8]"
	Title string // value of the name property, if any
	Line  int
}

// Register is a register definition with its fields in document order.
type Register struct {
	Name   string // as written after "reg"
	Root   string // Name with any block class suffix removed
	Fields []Field
	Line   int
}

func (r *Register) addField(f Field) {
	for _, existing := range r.Fields {
		if strings.EqualFold(existing.Name, f.Name) {
			return
		}
	}
	r.Fields = append(r.Fields, f)
}

// Dictionary maps register roots to their field lists. It is filled once by
// an extractor and read-only afterwards.
type Dictionary struct {
	Block string
	order []string
	regs  map[string]*Register
}

// NewDictionary creates an empty dictionary for block.
func NewDictionary(block string) *Dictionary {
	return &Dictionary{
		Block: strings.ToUpper(block),
		regs:  make(map[string]*Register),
	}
}

// add stores r unless a register with the same root exists. The first
// occurrence wins; it reports whether r was stored.
func (d *Dictionary) add(r *Register) bool {
	key := strings.ToUpper(r.Root)
	if _, ok := d.regs[key]; ok {
		return false
	}
	d.regs[key] = r
	d.order = append(d.order, key)
	return true
}

// Lookup finds a register by name. Block class suffixes and case are ignored.
func (d *Dictionary) Lookup(name string) (*Register, bool) {
	r, ok := d.regs[strings.ToUpper(CanonicalRoot(name, d.Block))]
	return r, ok
}

// Registers returns the registers in document order.
func (d *Dictionary) Registers() []*Register {
	out := make([]*Register, 0, len(d.order))
	for _, key := range d.order {
		out = append(out, d.regs[key])
	}
	return out
}

// Len returns the number of registers.
func (d *Dictionary) Len() int {
	return len(d.order)
}

// Category is the structural shape of a register in the address map.
type Category int

const (
	Scalar Category = iota
	ExternalScalar
	Array
	ExternalArray
)

var categoryNames = [...]string{"scalar", "external", "array", "external-array"}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// IsExternal reports whether storage for the register lives outside the model.
func (c Category) IsExternal() bool {
	return c == ExternalScalar || c == ExternalArray
}

// IsArray reports whether the register is instantiated as an indexed group.
func (c Category) IsArray() bool {
	return c == Array || c == ExternalArray
}

// HasBlockPrefix reports whether name starts with "<block>_", ignoring case.
func HasBlockPrefix(name, block string) bool {
	return strings.HasPrefix(strings.ToUpper(name), strings.ToUpper(block)+"_")
}

// ClassSuffixes returns the accepted register class suffixes for block,
// longest first.
func ClassSuffixes(block string) []string {
	block = strings.ToUpper(block)
	return []string{"_MAC_" + block + "_REG", "_" + block + "_REG"}
}

// CanonicalRoot strips a trailing block class suffix from name.
func CanonicalRoot(name, block string) string {
	upper := strings.ToUpper(name)
	for _, suffix := range ClassSuffixes(block) {
		if strings.HasSuffix(upper, suffix) && len(upper) > len(suffix) {
			return name[:len(name)-len(suffix)]
		}
	}
	return name
}
