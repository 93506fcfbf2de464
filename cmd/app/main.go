package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"docchain/internal/config"
	"docchain/internal/presentation/di"
	"docchain/internal/presentation/http/router"
)

// AppConfig アプリケーション設定
type AppConfig struct {
	ConfigPath string
	Port       string
}

// ServerInterface サーバーインターフェース（Seam化）
type ServerInterface interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// App アプリケーション構造体（Seamパターン）
type App struct {
	config     *AppConfig
	container  *di.Container
	server     *http.Server
	serverSeam ServerInterface // テスト用のSeam
}

// NewApp 新しいAppを作成
func NewApp(ctx context.Context, appCfg *AppConfig) (*App, error) {
	// 設定の読み込み
	cfg, err := config.Load(appCfg.ConfigPath)
	if err != nil {
		log.Printf("Failed to load config: %v. Using defaults.", err)
		cfg = config.DefaultConfig()
	}

	// DIコンテナの初期化
	container, err := di.NewContainer(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize DI container: %w", err)
	}

	return newAppWithContainer(appCfg, container), nil
}

// newAppWithContainer 初期化済みのコンテナからAppを作成
func newAppWithContainer(appCfg *AppConfig, container *di.Container) *App {
	// ポートのデフォルト値設定
	if appCfg.Port == "" {
		appCfg.Port = "8080"
	}

	// サーバーの設定（OCRと採掘待ちがあるため書き込みは長め）
	server := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      router.NewRouter(container),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	app := &App{
		config:    appCfg,
		container: container,
		server:    server,
	}
	// デフォルトでは実際のサーバーを使用
	app.serverSeam = server

	return app
}

// Start サーバーを起動
func (a *App) Start() error {
	// 起動メッセージ
	a.printStartupMessage()

	// サーバー起動（Seamを使用）
	return a.serverSeam.ListenAndServe()
}

// printStartupMessage 起動メッセージを出力
func (a *App) printStartupMessage() {
	fmt.Println("=== DocChain Verification Server ===")
	fmt.Printf("OCR Engine: %s\n", a.container.ExtractionUseCase().EngineName())
	fmt.Printf("Server listening on http://0.0.0.0:%s\n", a.config.Port)
	fmt.Println()
	fmt.Println("Endpoints:")
	fmt.Println("  GET  /health                         - Health check")
	fmt.Println("  POST /api/verify-aadhar              - Aadhaar verification and registration")
	fmt.Println("  POST /api/share-document             - Share a registered document")
	fmt.Println("  GET  /api/shared-documents?address=  - Documents shared with an address")
	fmt.Println("  GET  /api/documents/{hash}           - Download a document from IPFS")
	fmt.Println()
}

// Shutdown サーバーをシャットダウン
func (a *App) Shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")

	// サーバーのシャットダウン（Seamを使用）
	if err := a.serverSeam.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// コンテナのクローズ
	if err := a.container.Close(); err != nil {
		return fmt.Errorf("container close failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Run アプリケーションを実行（グレースフルシャットダウン付き）
func (a *App) Run() error {
	// サーバー起動（goroutine）
	serverErr := make(chan error, 1)
	go func() {
		if err := a.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// シグナルの待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serverErr:
		_ = a.container.Close()
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
		// グレースフルシャットダウン
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		return a.Shutdown(ctx)
	}
}

// defaultConfigPath ~/.docchain/config.yaml
func defaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Printf("Failed to get home directory: %v. Using current directory.", err)
		homeDir = "."
	}
	return filepath.Join(homeDir, ".docchain", "config.yaml")
}

// realMain 実際のmain処理（テスト可能にするため分離）
func realMain() error {
	// アプリケーション設定
	appCfg := &AppConfig{
		ConfigPath: defaultConfigPath(),
		Port:       os.Getenv("PORT"),
	}

	// アプリケーションの作成
	app, err := NewApp(context.Background(), appCfg)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	// アプリケーションの実行
	return app.Run()
}

func main() {
	if err := realMain(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}
