package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"docchain/internal/modules/aadhaar/domain"
	documentDomain "docchain/internal/modules/document/domain"
)

// ErrDocumentRegistration IPFSへのピン留めまたはコントラクト登録に失敗
var ErrDocumentRegistration = errors.New("document registration failed")

// ErrInvalidWallet ウォレットアドレスが不正
var ErrInvalidWallet = errors.New("invalid wallet address")

// Extractor 画像から番号を抽出するインターフェース
type Extractor interface {
	Extract(ctx context.Context, imagePath string) (string, error)
}

// VerifyInput 検証リクエスト
type VerifyInput struct {
	WalletAddress string
	ImagePath     string
	FileName      string
}

// VerifyResult 検証結果
type VerifyResult struct {
	AadhaarNumber string
	Owner         *domain.Owner
	IPFSHash      string
	CacheHit      bool
}

// VerificationUseCase Aadhaar画像の検証と登録のユースケース
type VerificationUseCase struct {
	extractor Extractor
	cache     domain.IdentifierCache
	owners    domain.OwnerRepository
	pinning   documentDomain.PinningRepository
	ledger    documentDomain.LedgerRepository
}

// NewVerificationUseCase 新しいVerificationUseCaseを作成
//
// cache は nil でもよい。
func NewVerificationUseCase(
	extractor Extractor,
	cache domain.IdentifierCache,
	owners domain.OwnerRepository,
	pinning documentDomain.PinningRepository,
	ledger documentDomain.LedgerRepository,
) *VerificationUseCase {
	return &VerificationUseCase{
		extractor: extractor,
		cache:     cache,
		owners:    owners,
		pinning:   pinning,
		ledger:    ledger,
	}
}

// Verify 画像から番号を抽出し、所有者を確認してIPFSとコントラクトに登録
func (uc *VerificationUseCase) Verify(ctx context.Context, in VerifyInput) (*VerifyResult, error) {
	if !documentDomain.IsWalletAddress(in.WalletAddress) {
		return nil, ErrInvalidWallet
	}

	digest, err := fileDigest(in.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to hash image: %w", err)
	}

	number, cacheHit, err := uc.extract(ctx, digest, in.ImagePath)
	if err != nil {
		return nil, err
	}

	owner, err := uc.owners.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}

	hash, err := uc.register(ctx, in)
	if err != nil {
		return nil, err
	}

	slog.Info("aadhaar verified and registered",
		"wallet", in.WalletAddress,
		"ipfs_hash", hash,
		"cache_hit", cacheHit,
	)

	return &VerifyResult{
		AadhaarNumber: number,
		Owner:         owner,
		IPFSHash:      hash,
		CacheHit:      cacheHit,
	}, nil
}

// extract キャッシュを確認してから抽出パイプラインを実行
func (uc *VerificationUseCase) extract(ctx context.Context, digest, imagePath string) (string, bool, error) {
	if uc.cache != nil {
		number, ok, err := uc.cache.Lookup(ctx, digest)
		if err != nil {
			slog.Warn("identifier cache lookup failed", "error", err)
		} else if ok && domain.IsValidAadhaarNumber(number) {
			return number, true, nil
		}
	}

	number, err := uc.extractor.Extract(ctx, imagePath)
	if err != nil {
		return "", false, err
	}

	if uc.cache != nil {
		if err := uc.cache.Store(ctx, digest, number); err != nil {
			slog.Warn("identifier cache store failed", "error", err)
		}
	}
	return number, false, nil
}

// register 画像をピン留めしてハッシュをコントラクトに登録
func (uc *VerificationUseCase) register(ctx context.Context, in VerifyInput) (string, error) {
	f, err := os.Open(in.ImagePath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDocumentRegistration, err)
	}
	defer func() {
		_ = f.Close()
	}()

	hash, err := uc.pinning.Pin(ctx, in.FileName, f)
	if err != nil {
		return "", fmt.Errorf("%w: pin: %v", ErrDocumentRegistration, err)
	}

	if err := uc.ledger.RegisterDocument(ctx, in.WalletAddress, hash); err != nil {
		return "", fmt.Errorf("%w: register: %v", ErrDocumentRegistration, err)
	}
	return hash, nil
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
