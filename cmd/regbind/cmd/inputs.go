package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/OpenTraceLab/regbind/internal/textio"
	"github.com/OpenTraceLab/regbind/pkg/annotate"
	"github.com/OpenTraceLab/regbind/pkg/keyword"
	"github.com/OpenTraceLab/regbind/pkg/rdl"
)

// inputFlags are the description-side flags shared by annotate and inspect.
type inputFlags struct {
	block       string
	description string
	addrmap     string
	format      string
	keywords    []string
}

func (f *inputFlags) reset() {
	*f = inputFlags{format: "auto", keywords: append([]string(nil), keyword.DefaultKeywords...)}
}

func (f *inputFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	// Accept the option names of the original backdoor script.
	flags.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		switch name {
		case "input-blkfile", "description":
			name = "rdl"
		case "input-svfile":
			name = "source"
		}
		return pflag.NormalizedName(name)
	})

	flags.StringVarP(&f.block, "block", "b", "",
		"block identifier, e.g. rxdma (case-insensitive)")
	flags.StringVarP(&f.description, "rdl", "r", "",
		"register description document (.rdl or .blk)")
	flags.StringVar(&f.addrmap, "addrmap", "",
		"address map document (default: searched in the description)")
	flags.StringVar(&f.format, "format", "auto",
		"description format (auto, rdl, blk)")
	flags.StringSliceVar(&f.keywords, "keywords", keyword.DefaultKeywords,
		"substrings that disqualify register and field names")

	cmd.MarkFlagRequired("block")
	cmd.MarkFlagRequired("rdl")
}

// config builds a validated engine configuration.
func (f *inputFlags) config() (*annotate.Config, error) {
	format, err := rdl.ParseFormat(f.format)
	if err != nil {
		return nil, err
	}
	cfg := annotate.DefaultConfig()
	cfg.Block = f.block
	cfg.Format = format.Resolve(f.description)
	cfg.Keywords = f.keywords
	cfg.Logger = logger
	return cfg, cfg.Validate()
}

// documents reads the description and, when given, the address map.
func (f *inputFlags) documents() (annotate.Documents, error) {
	var docs annotate.Documents

	desc, err := textio.ReadFile(f.description)
	if err != nil {
		return docs, err
	}
	docs.Description = desc.Text
	logger.Debug("read description", "path", desc.Path, "encoding", desc.Encoding, "blake3", desc.Digest)

	if f.addrmap != "" {
		amap, err := textio.ReadFile(f.addrmap)
		if err != nil {
			return docs, err
		}
		docs.AddressMap = amap.Text
		logger.Debug("read address map", "path", amap.Path, "encoding", amap.Encoding, "blake3", amap.Digest)
	}
	return docs, nil
}
