package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	rerrors "github.com/OpenTraceLab/regbind/internal/errors"
	"github.com/OpenTraceLab/regbind/internal/textio"
	"github.com/OpenTraceLab/regbind/pkg/annotate"
)

var (
	// Flags for annotate command
	annotateInputs  inputFlags
	annotateSource  string
	annotateOutput  string
	annotateInPlace bool
	annotateBackup  bool
	annotateDryRun  bool
	annotateIndent  string
)

var annotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Insert backdoor path bindings into a UVM register model",
	Long: `Read the register description and address map for one block, locate every
scalar register class and register array loop in the UVM source, and insert one
add_hdl_path_slice statement per field before the block's closing line.

External registers and names containing reserved, rsvd, spare or dbug are left
alone. Statements that are already present are not inserted again, so running
the command twice produces the same file.

Examples:
  # Write rxdma_reg_model_OUTPUT.sv next to the source
  regbind annotate -b rxdma --rdl rxdma.rdl --source rxdma_reg_model.sv

  # Separate address map, overwrite the source, keep an xz backup
  regbind annotate -b rxdma --rdl regs.rdl --addrmap map.rdl \
    --source rxdma_reg_model.sv --in-place --backup

  # Legacy BLK description, report only
  regbind annotate -b rxdma --input-blkfile rxdma.blk --input-svfile model.sv --dry-run`,
	RunE: runAnnotate,
}

func init() {
	rootCmd.AddCommand(annotateCmd)

	annotateInputs.reset()
	annotateInputs.register(annotateCmd)

	annotateCmd.Flags().StringVarP(&annotateSource, "source", "s", "",
		"UVM register model to annotate")
	annotateCmd.Flags().StringVarP(&annotateOutput, "output", "o", "",
		"output file (default: <source>_OUTPUT.sv)")
	annotateCmd.Flags().BoolVar(&annotateInPlace, "in-place", false,
		"overwrite the source file")
	annotateCmd.Flags().BoolVar(&annotateBackup, "backup", false,
		"with --in-place, keep the previous source as <source>.orig.xz")
	annotateCmd.Flags().BoolVarP(&annotateDryRun, "dry-run", "n", false,
		"report notes without writing any file")
	annotateCmd.Flags().StringVar(&annotateIndent, "indent", "    ",
		"indentation added to the closing line's indentation")

	annotateCmd.MarkFlagRequired("source")
	annotateCmd.MarkFlagsMutuallyExclusive("in-place", "output")
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	if annotateBackup && !annotateInPlace {
		return rerrors.NewValidation("backup", "", "--backup requires --in-place")
	}

	cfg, err := annotateInputs.config()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.IndentUnit = annotateIndent

	docs, err := annotateInputs.documents()
	if err != nil {
		return err
	}
	src, err := textio.ReadFile(annotateSource)
	if err != nil {
		return err
	}
	docs.Source = src.Text

	if verbose {
		fmt.Printf("Block %s, %s description: %s\n", cfg.Block, cfg.Format, annotateInputs.description)
		fmt.Printf("Source: %s (%s)\n\n", src.Path, src.Encoding)
	}

	engine, err := annotate.New(cfg)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	result, err := engine.Run(docs)
	if err != nil {
		return err
	}

	for _, note := range result.Notes {
		if verbose || note.Kind != annotate.FieldSkipped {
			fmt.Println(note)
		}
	}
	fmt.Println()

	out, err := textio.Encode(result.Output, src.Encoding)
	if err != nil {
		return rerrors.NewIO("encode", annotateSource, err)
	}

	written := ""
	switch {
	case annotateDryRun:
	case annotateInPlace && !result.Changed():
	case annotateInPlace:
		if annotateBackup {
			backup, err := textio.WriteBackup(src.Path, src.Raw)
			if err != nil {
				return err
			}
			fmt.Printf("Backup: %s\n", backup)
		}
		if _, err := textio.WriteFile(src.Path, result.Output, src.Encoding); err != nil {
			return err
		}
		written = src.Path
	default:
		written = annotateOutput
		if written == "" {
			written = textio.OutputPath(src.Path)
		}
		if _, err := textio.WriteFile(written, result.Output, src.Encoding); err != nil {
			return err
		}
	}

	printSummary(cfg.Block, result, src.Digest, textio.Digest(out), written)
	logger.Info("annotate finished", "block", cfg.Block, "inserted", result.Inserted,
		"failures", len(result.Failures()), "output", written)
	return nil
}

// summaryKinds is the order note counts are printed in.
var summaryKinds = []annotate.NoteKind{
	annotate.Annotated, annotate.AlreadyAnnotated, annotate.NoFields,
	annotate.External, annotate.Disqualified, annotate.FieldSkipped,
	annotate.StaleField, annotate.DuplicateBlock,
	annotate.MissingFields, annotate.BlockNotFound, annotate.AmbiguousMatch,
}

func printSummary(block string, result *annotate.Result, inDigest, outDigest, written string) {
	fmt.Printf("Summary for block %s (run %s)\n", block, runID)
	fmt.Printf("  Registers:  %d listed, %d described\n", result.Classification.Len(), result.Dictionary.Len())
	fmt.Printf("  Inserted:   %d statement(s)\n", result.Inserted)
	for _, kind := range summaryKinds {
		if n := result.Count(kind); n > 0 {
			fmt.Printf("  %-17s %d\n", kind.String()+":", n)
		}
	}
	fmt.Printf("  Input:      blake3:%s\n", inDigest)
	fmt.Printf("  Output:     blake3:%s\n", outDigest)
	if result.Changed() {
		fmt.Println("  Changed:    yes")
	} else {
		fmt.Println("  Changed:    no")
	}
	if written != "" {
		fmt.Printf("  Written:    %s\n", written)
	}
	if failures := len(result.Failures()); failures > 0 {
		fmt.Printf("  %d register(s) could not be annotated\n", failures)
	}
}
