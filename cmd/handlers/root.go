package handlers

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/citegap/citegap/internal/config"
	"github.com/citegap/citegap/internal/logger"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "citegap",
		Short: "Close AI visibility gaps with generated reference memos",
		Long: `CiteGap - AI visibility gap pipeline

Tracks where AI assistants cite competitors instead of your brand and closes
the gap with generated, cross-linked reference memos.

Core workflows:
  • Pipeline: analyze recent scan results, discover queries and competitors,
    generate memos for every gap
  • Generate: produce one memo for a specific competitor or topic
  • Backlink: refresh cross-links between a brand's published memos
  • Digest: roll up the last 24h of activity per brand

Examples:
  # Full pipeline pass for every brand
  citegap pipeline

  # One comparison memo
  citegap generate --brand b1 --type comparison --competitor c1

  # Long-running daemon with scheduled digest and backlink jobs
  citegap run`,
		Version: "1.0.0",
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .citegap.yaml)")

	rootCmd.AddCommand(NewRunCmd())
	rootCmd.AddCommand(NewPipelineCmd())
	rootCmd.AddCommand(NewGenerateCmd())
	rootCmd.AddCommand(NewBacklinkCmd())
	rootCmd.AddCommand(NewDigestCmd())
	rootCmd.AddCommand(NewEnrichCmd())

	cobra.OnInitialize(initConfig)

	return rootCmd
}

func initConfig() {
	logger.Init()
	if _, err := config.Load(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		// Keep going; environment variables may be enough.
	}
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
