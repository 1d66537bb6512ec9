package rdl

import (
	"path/filepath"
	"strings"

	rerrors "github.com/OpenTraceLab/regbind/internal/errors"
)

// Format selects the register-description grammar.
type Format int

const (
	FormatAuto Format = iota
	FormatRDL
	FormatBLK
)

func (f Format) String() string {
	switch f {
	case FormatRDL:
		return "rdl"
	case FormatBLK:
		return "blk"
	default:
		return "auto"
	}
}

// ParseFormat maps a flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "rdl":
		return FormatRDL, nil
	case "blk":
		return FormatBLK, nil
	}
	return FormatAuto, rerrors.NewValidation("format", s, "must be one of auto, rdl, blk")
}

// Resolve turns FormatAuto into a concrete format using the document path.
// Files ending in .blk are BLK, everything else is RDL.
func (f Format) Resolve(path string) Format {
	if f != FormatAuto {
		return f
	}
	if strings.EqualFold(filepath.Ext(path), ".blk") {
		return FormatBLK
	}
	return FormatRDL
}

// ExtractFormat dispatches to the extractor for format. FormatAuto is RDL.
func ExtractFormat(format Format, text, block string) (*Dictionary, error) {
	if format == FormatBLK {
		return ExtractBLK(text, block)
	}
	return Extract(text, block)
}
