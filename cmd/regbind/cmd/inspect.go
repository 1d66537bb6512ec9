package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/regbind/pkg/annotate"
	"github.com/OpenTraceLab/regbind/pkg/rdl"
)

var (
	// Flags for inspect command
	inspectInputs inputFlags
	inspectJSON   bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show the register dictionary and address map classification",
	Long: `Extract the register dictionary and classify the address map for one block
without reading or changing any UVM source.

Examples:
  regbind inspect -b rxdma --rdl rxdma.rdl
  regbind inspect -b rxdma --rdl regs.rdl --addrmap map.rdl --json`,
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectInputs.reset()
	inspectInputs.register(inspectCmd)

	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false,
		"output in JSON format")
}

// InspectInfo is the JSON form of an inspection.
type InspectInfo struct {
	Block        string         `json:"block"`
	Format       string         `json:"format"`
	AddressMap   string         `json:"addrmap,omitempty"`
	Registers    []RegisterInfo `json:"registers"`
	Entries      []EntryInfo    `json:"entries"`
	Disqualified []EntryInfo    `json:"disqualified,omitempty"`
	Ignored      []IgnoredInfo  `json:"ignored,omitempty"`
}

// RegisterInfo is one dictionary register.
type RegisterInfo struct {
	Name   string   `json:"name"`
	Root   string   `json:"root"`
	Line   int      `json:"line"`
	Fields []string `json:"fields"`
}

// EntryInfo is one classified address map entry.
type EntryInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Category string `json:"category"`
	Count    int    `json:"count,omitempty"`
	Offset   string `json:"offset,omitempty"`
	Line     int    `json:"line"`
}

// IgnoredInfo is an address map statement that was skipped.
type IgnoredInfo struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := inspectInputs.config()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	docs, err := inspectInputs.documents()
	if err != nil {
		return err
	}

	engine, err := annotate.New(cfg)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	dict, cls, err := engine.Analyze(docs)
	if err != nil {
		return err
	}

	info := buildInspectInfo(cfg, dict, cls)
	if inspectJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(info)
	}
	printInspect(info)
	return nil
}

func buildInspectInfo(cfg *annotate.Config, dict *rdl.Dictionary, cls *rdl.Classification) *InspectInfo {
	info := &InspectInfo{
		Block:      cfg.Block,
		Format:     cfg.Format.String(),
		AddressMap: cls.Map,
	}
	for _, reg := range dict.Registers() {
		ri := RegisterInfo{Name: reg.Name, Root: reg.Root, Line: reg.Line}
		for _, f := range reg.Fields {
			ri.Fields = append(ri.Fields, f.Raw)
		}
		info.Registers = append(info.Registers, ri)
	}
	for _, cat := range []rdl.Category{rdl.Scalar, rdl.Array, rdl.ExternalScalar, rdl.ExternalArray} {
		for _, e := range cls.Entries(cat) {
			info.Entries = append(info.Entries, entryInfo(e))
		}
	}
	for _, e := range cls.Disqualified {
		info.Disqualified = append(info.Disqualified, entryInfo(e))
	}
	for _, ig := range cls.Ignored {
		info.Ignored = append(info.Ignored, IgnoredInfo{Line: ig.Line, Reason: ig.Reason})
	}
	return info
}

func entryInfo(e rdl.Entry) EntryInfo {
	return EntryInfo{
		Name:     e.Name,
		Type:     e.Type,
		Category: e.Category.String(),
		Count:    e.Count,
		Offset:   e.Offset,
		Line:     e.Line,
	}
}

func printInspect(info *InspectInfo) {
	fmt.Printf("Block: %s (%s)\n", info.Block, info.Format)
	if info.AddressMap != "" {
		fmt.Printf("Address map: %s\n", info.AddressMap)
	}
	fmt.Println()

	fmt.Printf("Registers: %d described\n", len(info.Registers))
	for _, reg := range info.Registers {
		fmt.Printf("  %-32s line %-5d %s\n", reg.Root, reg.Line, strings.Join(reg.Fields, ", "))
	}
	fmt.Println()

	fmt.Printf("Address map entries: %d classified\n", len(info.Entries))
	for _, e := range info.Entries {
		name := e.Name
		if e.Count > 0 {
			name = fmt.Sprintf("%s[%d]", e.Name, e.Count)
		}
		fmt.Printf("  %-14s %-32s line %d\n", e.Category, name, e.Line)
	}

	if len(info.Disqualified) > 0 {
		fmt.Printf("\nDisqualified: %d\n", len(info.Disqualified))
		for _, e := range info.Disqualified {
			fmt.Printf("  %s\n", e.Name)
		}
	}
	if verbose && len(info.Ignored) > 0 {
		fmt.Printf("\nIgnored statements: %d\n", len(info.Ignored))
		for _, ig := range info.Ignored {
			fmt.Printf("  line %-5d %s\n", ig.Line, ig.Reason)
		}
	}
}
