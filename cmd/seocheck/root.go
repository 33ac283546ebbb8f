package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/seocheck/internal/config"
)

// NewRootCmd creates the root command for seocheck.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seocheck",
		Short: "SEO and security crawler for websites",
		Long: `seocheck crawls a website, analyzes every page it finds and reports
SEO problems such as missing titles, duplicate titles and mixed content.

Every report also covers the site's sitemap.xml, robots.txt and TLS setup.
Reports are stored in a local history database so later scans can be
compared with earlier ones.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-format", "text", "Log format: text or json")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .seocheck.yaml in current or home directory)")
	cmd.PersistentFlags().String("db-dir", config.XDGDataDir(),
		"Directory of the report history database")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewAnalyzeCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
