package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/regbind/internal/logging"
)

var (
	// Global flags
	verbose   bool
	logFormat string

	logger *slog.Logger
	runID  string
)

var rootCmd = &cobra.Command{
	Use:   "regbind",
	Short: "UVM register backdoor path annotator",
	Long: `Cross-reference register descriptions with a generated UVM register model
and insert add_hdl_path_slice backdoor bindings for every register field.

Examples:
  regbind annotate -b rxdma --rdl rxdma.rdl --source rxdma_reg_model.sv
  regbind annotate -b rxdma --rdl rxdma.blk --source rxdma_reg_model.sv --in-place --backup
  regbind inspect -b rxdma --rdl rxdma.rdl --json`,
	Version:       "0.3.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logging.LevelInfo
		if verbose {
			level = logging.LevelDebug
		}
		logger, runID = logging.WithRun(logging.InitLogger(level, logging.ParseFormat(logFormat), cmd.ErrOrStderr()))
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
}
