package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/seocheck/internal/config"
)

//go:embed templates/seocheck.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new seocheck configuration file",
		Long: `Initialize creates a new .seocheck.yaml configuration file in the current directory.

The generated file includes:
- Default settings for crawl depth and page limits
- Commented examples for site-specific configurations
- Documentation for all available options

Examples:
  # Create .seocheck.yaml in current directory
  seocheck init

  # Create config file at a specific path
  seocheck init -o myconfig.yaml

  # Create the config file in the XDG config directory
  seocheck init --xdg

  # Write only the current defaults, without comments
  seocheck init --minimal

  # Force overwrite existing file
  seocheck init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().Bool("xdg", false,
		"Write config.yaml to the XDG config directory instead of --output")
	cmd.Flags().Bool("minimal", false,
		"Write the default settings without comments")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	outputPath, err := flags.GetString("output")
	if err != nil {
		return err
	}
	useXDG, err := flags.GetBool("xdg")
	if err != nil {
		return err
	}
	minimal, err := flags.GetBool("minimal")
	if err != nil {
		return err
	}
	force, err := flags.GetBool("force")
	if err != nil {
		return err
	}

	if useXDG {
		outputPath = filepath.Join(config.XDGConfigDir(), "config.yaml")
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	if minimal {
		err = config.WriteConfigFile(outputPath, defaultConfigFile())
	} else {
		err = writeTemplate(outputPath)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure site-specific settings such as:")
	fmt.Fprintln(out, "  - Extra request headers (cookies, authorization)")
	fmt.Fprintln(out, "  - Crawl depth and page limit per site")
	fmt.Fprintln(out, "  - User-Agent and robots.txt handling")

	return nil
}

// defaultConfigFile returns a configuration file holding the built-in defaults.
func defaultConfigFile() *config.File {
	respectRobots := config.DefaultRespectRobotsTxt
	return &config.File{
		Defaults: config.SiteConfig{
			UserAgent:        config.DefaultUserAgent,
			Depth:            config.DefaultMaxDepth,
			MaxPages:         config.DefaultMaxPages,
			RespectRobotsTxt: &respectRobots,
		},
		Sites: map[string]config.SiteConfig{},
	}
}

// writeTemplate writes the commented configuration template to path.
func writeTemplate(path string) error {
	content, err := configTemplate.ReadFile("templates/seocheck.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, content, 0o600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return nil
}
