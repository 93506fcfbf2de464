package domain

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrGasEstimation トランザクションのガス見積もりに失敗
	ErrGasEstimation = errors.New("gas estimation failed")

	// ErrTransactionFailed トランザクションの送信または実行に失敗
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrDocumentNotFound IPFSゲートウェイにドキュメントが存在しない
	ErrDocumentNotFound = errors.New("document not found")

	// ErrDocumentTooLarge ドキュメントが取得サイズの上限を超えた
	ErrDocumentTooLarge = errors.New("document too large")
)

// SharedDocument 共有されたドキュメント
type SharedDocument struct {
	Hash   string `json:"hash"`
	Sender string `json:"sender"`
}

// Content IPFSから取得したドキュメント本体
//
// Body は呼び出し側が必ず閉じること。上限を超えると Read が ErrDocumentTooLarge を返す。
type Content struct {
	Body        io.ReadCloser
	Size        int64 // 不明な場合は -1
	ContentType string
	Extension   string // ".pdf" など。判定できない場合は空
}

// PinningRepository IPFSへのピン留めと取得
type PinningRepository interface {
	// Pin 内容をピン留めしてCIDを返す
	Pin(ctx context.Context, name string, body io.Reader) (string, error)

	// Fetch CIDから内容を取得
	Fetch(ctx context.Context, hash string) (*Content, error)
}

// LedgerRepository DocumentRegistryコントラクトの操作
type LedgerRepository interface {
	RegisterDocument(ctx context.Context, owner, ipfsHash string) error
	ShareDocument(ctx context.Context, sender, ipfsHash, recipient string) error
	UserDocuments(ctx context.Context, user string) ([]string, error)
	DocumentSender(ctx context.Context, user, ipfsHash string) (string, error)
}

// IsWalletAddress ウォレットアドレスとして有効かどうかを判定
//
// 大文字小文字が混在する場合は EIP-55 チェックサムも検証する。
func IsWalletAddress(address string) bool {
	if !common.IsHexAddress(address) {
		return false
	}
	hexPart := strings.TrimPrefix(strings.TrimPrefix(address, "0x"), "0X")
	if hexPart == strings.ToLower(hexPart) || hexPart == strings.ToUpper(hexPart) {
		return true
	}
	return common.HexToAddress(address).Hex()[2:] == hexPart
}
