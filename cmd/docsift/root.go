package main

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	version = "dev" // Set via build flags
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "docsift",
	Short: "Batch OCR documents and reconstruct their layout",
	Long: `docsift runs a directory of scanned documents through a vision
model, reconstructs each page's spatial layout, and writes structured
JSON results.

Features:
  - PDF and image inputs (PNG, JPEG, TIFF, GIF, BMP, WebP)
  - Ollama, OpenAI, Anthropic, and Gemini recognition backends
  - Rate-limited, retrying recognition calls with large-PDF splitting
  - Column, reading-order, and table reconstruction per page
  - Content-addressed result cache to skip unchanged documents
  - Bounded concurrency with a per-run batch report`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.docsift.yaml)")
}
