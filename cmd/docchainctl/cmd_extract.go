package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"docchain/internal/config"
	"docchain/internal/modules/aadhaar/domain"
	"docchain/internal/modules/aadhaar/usecase"
	"docchain/internal/modules/shared/infrastructure/ocr"
)

var extractFlags struct {
	languages []string
	timeout   time.Duration
	showText  bool
}

// newEngine テストで差し替え可能なOCRエンジンの生成
var newEngine = func(cfg *config.OCRConfig) domain.OCREngine {
	return ocr.NewTesseractEngine(cfg)
}

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Print the Aadhaar number found in an image or PDF",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

func init() {
	f := extractCmd.Flags()
	f.StringSliceVar(&extractFlags.languages, "lang", nil, "tesseract languages (default from config)")
	f.DurationVar(&extractFlags.timeout, "timeout", 0, "recognition timeout (default from config)")
	f.BoolVar(&extractFlags.showText, "text", false, "also print the raw transcription")
}

func runExtract(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("input: %w", err)
	}

	cfg := loadConfig(rootFlags.configPath)
	if len(extractFlags.languages) > 0 {
		cfg.OCR.Languages = extractFlags.languages
	}
	if extractFlags.timeout > 0 {
		cfg.OCR.Timeout = extractFlags.timeout
	}

	uc := usecase.NewExtractionUseCase(newEngine(&cfg.OCR), cfg.OCR.Timeout)
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if !extractFlags.showText {
		number, err := uc.Extract(ctx, path)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, number)
		return nil
	}

	text, err := uc.ExtractText(ctx, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "--- transcription (confidence %.1f) ---\n%s\n---\n", text.Confidence, text.Text)

	number, err := domain.IdentifierFromText(text.Text)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, number)
	return nil
}

// loadConfig 設定ファイルがなければデフォルト
func loadConfig(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		slog.Debug("using default config", "path", path, "error", err)
		return config.DefaultConfig()
	}
	return cfg
}
