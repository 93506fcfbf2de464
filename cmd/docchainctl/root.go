package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"docchain/internal/modules/aadhaar/domain"
)

// version is set at build time via -ldflags.
var version = "dev"

// 抽出失敗の種類ごとの終了コード
const (
	exitError           = 1
	exitOCRFailure      = 2
	exitNoValidIdentity = 3
)

var rootCmd = &cobra.Command{
	Use:   "docchainctl",
	Short: "Extract Aadhaar numbers from document images",
	Long:  "docchainctl runs the DocChain extraction pipeline locally:\nOCR with Tesseract, candidate discovery and validation.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

var rootFlags struct {
	configPath string
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.configPath, "config", defaultConfigPath(), "path to config.yaml")
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(candidatesCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(ownersCmd)
	rootCmd.Version = version
}

func defaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".docchain", "config.yaml")
}

// exitCode 抽出エラーを終了コードに対応付ける
func exitCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrOCRFailure):
		return exitOCRFailure
	case errors.Is(err, domain.ErrNoValidIdentifier):
		return exitNoValidIdentity
	default:
		return exitError
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
