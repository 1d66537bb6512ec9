package annotate

import (
	"log/slog"
	"strings"

	rerrors "github.com/OpenTraceLab/regbind/internal/errors"
	"github.com/OpenTraceLab/regbind/internal/logging"
	"github.com/OpenTraceLab/regbind/pkg/keyword"
	"github.com/OpenTraceLab/regbind/pkg/rdl"
)

// UnsupportedBlock is the top-level block the register models are not
// generated for.
const UnsupportedBlock = "UMAC"

// Config controls one annotation run.
type Config struct {
	// Block is the block identifier, e.g. "RXDMA". Validate upper-cases it.
	Block string

	// Format selects the register-description grammar (default: RDL)
	Format rdl.Format

	// Keywords disqualify register and field names (default when nil:
	// keyword.DefaultKeywords). An empty non-nil slice disables filtering.
	Keywords []string

	// IndentUnit is added to the closing marker's indentation for every
	// inserted statement (default: four spaces)
	IndentUnit string

	// Logger receives per-register diagnostics (default: discard)
	Logger *slog.Logger
}

// DefaultConfig returns a Config with the standard keyword set.
func DefaultConfig() *Config {
	return &Config{
		Format:     rdl.FormatRDL,
		Keywords:   append([]string(nil), keyword.DefaultKeywords...),
		IndentUnit: "    ",
	}
}

// Validate normalizes the configuration and rejects unusable block names.
func (c *Config) Validate() error {
	c.Block = strings.ToUpper(strings.TrimSpace(c.Block))
	if c.Block == "" {
		return rerrors.NewValidation("block", "", "block name is required")
	}
	for _, r := range c.Block {
		if !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_') {
			return rerrors.NewValidation("block", c.Block, "block name may only contain letters, digits and underscores")
		}
	}
	if c.Block == UnsupportedBlock {
		return &rerrors.ValidationError{
			Field:   "block",
			Value:   c.Block,
			Message: UnsupportedBlock + " is not supported",
			Err:     rerrors.ErrUnsupported,
		}
	}

	if c.Format == rdl.FormatAuto {
		c.Format = rdl.FormatRDL
	}
	if c.Keywords == nil {
		c.Keywords = append([]string(nil), keyword.DefaultKeywords...)
	}
	if c.IndentUnit == "" {
		c.IndentUnit = "    "
	}
	if c.Logger == nil {
		c.Logger = logging.Discard()
	}
	return nil
}

// Filter builds the keyword filter for this configuration.
func (c *Config) Filter() *keyword.Filter {
	return keyword.NewFilter(c.Keywords...)
}
