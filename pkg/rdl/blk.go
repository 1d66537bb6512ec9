package rdl

import (
	"fmt"
	"strings"

	rerrors "github.com/OpenTraceLab/regbind/internal/errors"
)

// ExtractBLK builds the register dictionary from a BLK document:
//
//	RXDMA_R0_RING_BASE_MSB <mac_rxdma_reg_dec: 0x4> 32
//	{
//	    Ring_Size           23:8 NUM DEF=0x0000 RW;
//	    Ring_Base_Addr_MSB   7:0 NUM DEF=0x00 RW;
//	};
func ExtractBLK(text, block string) (*Dictionary, error) {
	lines := strings.Split(text, "\n")
	dict := NewDictionary(block)

	for i := 0; i < len(lines); i++ {
		header := strings.Fields(lines[i])
		if len(header) < 2 || !HasBlockPrefix(header[0], block) || !strings.HasPrefix(header[1], "<") {
			continue
		}

		open := i
		if header[len(header)-1] != "{" {
			open = nextNonBlank(lines, i+1)
			if open < 0 || strings.TrimSpace(lines[open]) != "{" {
				continue
			}
		}

		reg := &Register{
			Name: header[0],
			Root: CanonicalRoot(header[0], block),
			Line: i + 1,
		}

		closed := false
		for k := open + 1; k < len(lines); k++ {
			line := strings.TrimSpace(lines[k])
			if line == "}" || strings.HasPrefix(line, "};") {
				closed = true
				i = k
				break
			}
			cols := strings.Fields(line)
			if len(cols) < 2 || !strings.HasSuffix(line, ";") {
				continue
			}
			field := Field{Name: cols[0], Raw: cols[0], Line: k + 1}
			if isBitRange(cols[1]) {
				field.Raw = cols[0] + "[" + cols[1] + "]"
			}
			reg.addField(field)
		}
		if !closed {
			return nil, &rerrors.ParseError{
				Format:  "BLK",
				Message: fmt.Sprintf("line %d: register %s is not closed", i+1, header[0]),
			}
		}

		dict.add(reg)
	}

	return dict, nil
}

func nextNonBlank(lines []string, from int) int {
	for i := from; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != "" {
			return i
		}
	}
	return -1
}

// isBitRange matches "7", "7:0" and similar.
func isBitRange(s string) bool {
	if s == "" {
		return false
	}
	for _, part := range strings.Split(s, ":") {
		if part == "" {
			return false
		}
		for _, c := range part {
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	return true
}
