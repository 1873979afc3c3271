//go:build cgo

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/ragmemory/internal/config"
	"github.com/fyrsmithlabs/ragmemory/internal/embeddings"
)

var forceDownload bool

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&forceDownload, "force", "f", false, "Force re-download even if ONNX runtime exists")
}

// initCmd prepares local embeddings
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize ragmemory dependencies",
	Long: `Create the config directory and download the ONNX runtime library
required for local embeddings with FastEmbed. The library is installed to:
  ~/.config/ragmemory/lib/

If ONNX_PATH environment variable is set, that path takes precedence.

Examples:
  # Download ONNX runtime
  ragmemory init

  # Force re-download even if already installed
  ragmemory init --force`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, _ []string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if !forceDownload {
		if path := embeddings.GetONNXLibraryPath(); path != "" {
			cmd.Printf("ONNX runtime already installed at: %s\n", path)
			cmd.Println("Use --force to re-download.")
			return nil
		}
	} else if err := os.RemoveAll(embeddings.ONNXInstallDir()); err != nil {
		return fmt.Errorf("removing previous ONNX runtime: %w", err)
	}

	cmd.Printf("Downloading ONNX runtime v%s...\n", embeddings.DefaultONNXRuntimeVersion)
	path, err := embeddings.EnsureONNXRuntime(cmd.Context(), nil)
	if err != nil {
		return fmt.Errorf("failed to download ONNX runtime: %w", err)
	}

	cmd.Printf("Successfully installed ONNX runtime to: %s\n", path)
	return nil
}
