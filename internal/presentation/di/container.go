package di

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"docchain/internal/config"
	aadhaarDomain "docchain/internal/modules/aadhaar/domain"
	aadhaarHandler "docchain/internal/modules/aadhaar/presentation/handler"
	aadhaarUsecase "docchain/internal/modules/aadhaar/usecase"
	documentDomain "docchain/internal/modules/document/domain"
	documentHandler "docchain/internal/modules/document/presentation/handler"
	documentUsecase "docchain/internal/modules/document/usecase"
	sharedCache "docchain/internal/modules/shared/infrastructure/cache"
	sharedDB "docchain/internal/modules/shared/infrastructure/database"
	sharedIPFS "docchain/internal/modules/shared/infrastructure/ipfs"
	sharedLedger "docchain/internal/modules/shared/infrastructure/ledger"
	sharedOCR "docchain/internal/modules/shared/infrastructure/ocr"
	"docchain/internal/presentation/http/handler"
)

// Dependencies コンテナに注入する外部依存
//
// Cache は nil でもよい。Closers はコンテナのCloseで逆順に閉じられる。
type Dependencies struct {
	OCREngine aadhaarDomain.OCREngine
	Cache     aadhaarDomain.IdentifierCache
	Owners    aadhaarDomain.OwnerRepository
	Pinning   documentDomain.PinningRepository
	Ledger    documentDomain.LedgerRepository
	Closers   []io.Closer
}

// Container DIコンテナ
type Container struct {
	closers []io.Closer

	// Aadhaar Module
	extractionUseCase   *aadhaarUsecase.ExtractionUseCase
	verificationUseCase *aadhaarUsecase.VerificationUseCase
	verifyHandler       *aadhaarHandler.VerifyHandler

	// Document Module
	documentUseCase *documentUsecase.DocumentUseCase
	documentHandler *documentHandler.DocumentHandler

	healthHandler *handler.HealthHandler
}

// NewContainer 設定から実際のインフラを初期化してContainerを作成
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	deps := Dependencies{
		OCREngine: sharedOCR.NewTesseractEngine(&cfg.OCR),
		Pinning:   sharedIPFS.NewPinataRepository(&cfg.Pinata),
	}
	fail := func(err error) (*Container, error) {
		_ = closeAll(deps.Closers)
		return nil, err
	}

	// Shared Infrastructure: Identifier Cache（接続できなければキャッシュなしで続行）
	cacheRepo, err := sharedCache.NewRedisIdentifierCache(&cfg.Redis, cfg.Cache.TTL)
	if err != nil {
		slog.Warn("identifier cache disabled", "error", err)
	} else {
		deps.Cache = cacheRepo
		deps.Closers = append(deps.Closers, cacheRepo)
	}

	// Shared Infrastructure: Aadhaar Repository
	ownerRepo, err := sharedDB.NewBunAadhaarRepository(&cfg.MySQL)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize aadhaar repository: %w", err))
	}
	deps.Owners = ownerRepo
	deps.Closers = append(deps.Closers, ownerRepo)

	// Shared Infrastructure: Ledger Repository
	ledgerRepo, err := sharedLedger.NewEthereumRepository(ctx, &cfg.Ethereum)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize ledger repository: %w", err))
	}
	deps.Ledger = ledgerRepo
	deps.Closers = append(deps.Closers, ledgerRepo)

	return NewContainerWithDependencies(cfg, deps), nil
}

// NewContainerWithDependencies 依存を注入してContainerを作成
func NewContainerWithDependencies(cfg *config.Config, deps Dependencies) *Container {
	container := &Container{closers: deps.Closers}

	// Aadhaar Module: UseCase
	container.extractionUseCase = aadhaarUsecase.NewExtractionUseCase(deps.OCREngine, cfg.OCR.Timeout)
	container.verificationUseCase = aadhaarUsecase.NewVerificationUseCase(
		container.extractionUseCase,
		deps.Cache,
		deps.Owners,
		deps.Pinning,
		deps.Ledger,
	)

	// Aadhaar Module: Handler
	container.verifyHandler = aadhaarHandler.NewVerifyHandler(container.verificationUseCase, &cfg.Server)

	// Document Module
	container.documentUseCase = documentUsecase.NewDocumentUseCase(deps.Ledger, deps.Pinning)
	container.documentHandler = documentHandler.NewDocumentHandler(container.documentUseCase)

	container.healthHandler = handler.NewHealthHandler(container.extractionUseCase.EngineName())

	return container
}

// ExtractionUseCase 抽出ユースケースを取得
func (c *Container) ExtractionUseCase() *aadhaarUsecase.ExtractionUseCase {
	return c.extractionUseCase
}

// VerifyHandler Aadhaar検証ハンドラーを取得
func (c *Container) VerifyHandler() *aadhaarHandler.VerifyHandler {
	return c.verifyHandler
}

// DocumentHandler ドキュメントハンドラーを取得
func (c *Container) DocumentHandler() *documentHandler.DocumentHandler {
	return c.documentHandler
}

// HealthHandler ヘルスチェックハンドラーを取得
func (c *Container) HealthHandler() *handler.HealthHandler {
	return c.healthHandler
}

// Close リソースをクローズ（複数回呼んでもよい）
func (c *Container) Close() error {
	closers := c.closers
	c.closers = nil
	return closeAll(closers)
}

// closeAll 作成と逆順に閉じる
func closeAll(closers []io.Closer) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to close resources: %w", errors.Join(errs...))
	}
	return nil
}
