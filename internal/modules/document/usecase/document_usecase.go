package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"docchain/internal/modules/document/domain"
)

var (
	// ErrMissingFields 必須項目が不足
	ErrMissingFields = errors.New("ipfs hash, sender address, and recipient address are required")

	// ErrInvalidAddress アドレスが不正
	ErrInvalidAddress = errors.New("invalid sender or recipient address")

	// ErrInvalidHash IPFSハッシュが不正
	ErrInvalidHash = errors.New("invalid ipfs hash")
)

// senderLookupLimit documentSenders を同時に呼び出す上限
const senderLookupLimit = 8

var ipfsHashPattern = regexp.MustCompile(`^[A-Za-z0-9]{10,128}$`)

// ShareInput 共有リクエスト
type ShareInput struct {
	IPFSHash         string
	SenderAddress    string
	RecipientAddress string
}

// DocumentUseCase ドキュメント共有と取得のユースケース
type DocumentUseCase struct {
	ledger  domain.LedgerRepository
	pinning domain.PinningRepository
}

// NewDocumentUseCase 新しいDocumentUseCaseを作成
func NewDocumentUseCase(ledger domain.LedgerRepository, pinning domain.PinningRepository) *DocumentUseCase {
	return &DocumentUseCase{
		ledger:  ledger,
		pinning: pinning,
	}
}

// Share 検証済みドキュメントのハッシュを別のアドレスと共有
func (uc *DocumentUseCase) Share(ctx context.Context, in ShareInput) error {
	hash := strings.TrimSpace(in.IPFSHash)
	if hash == "" || in.SenderAddress == "" || in.RecipientAddress == "" {
		return ErrMissingFields
	}
	if !domain.IsWalletAddress(in.SenderAddress) || !domain.IsWalletAddress(in.RecipientAddress) {
		return ErrInvalidAddress
	}

	if err := uc.ledger.ShareDocument(ctx, in.SenderAddress, hash, in.RecipientAddress); err != nil {
		return fmt.Errorf("share document: %w", err)
	}
	return nil
}

// SharedDocuments 指定アドレスに共有されたドキュメントと送信者を取得
//
// 結果はコントラクトが返した順序を保つ。
func (uc *DocumentUseCase) SharedDocuments(ctx context.Context, address string) ([]domain.SharedDocument, error) {
	if !domain.IsWalletAddress(address) {
		return nil, ErrInvalidAddress
	}

	hashes, err := uc.ledger.UserDocuments(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("list user documents: %w", err)
	}

	docs := make([]domain.SharedDocument, len(hashes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(senderLookupLimit)
	for i, hash := range hashes {
		g.Go(func() error {
			sender, err := uc.ledger.DocumentSender(gctx, address, hash)
			if err != nil {
				return fmt.Errorf("resolve sender of %s: %w", hash, err)
			}
			docs[i] = domain.SharedDocument{Hash: hash, Sender: sender}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

// Retrieve IPFSからドキュメントを取得
func (uc *DocumentUseCase) Retrieve(ctx context.Context, hash string) (*domain.Content, error) {
	if !ipfsHashPattern.MatchString(hash) {
		return nil, ErrInvalidHash
	}

	content, err := uc.pinning.Fetch(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("retrieve document: %w", err)
	}
	return content, nil
}
