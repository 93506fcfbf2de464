package domain

import (
	"context"
	"errors"
	"time"
)

// ErrAadhaarNotFound 番号がデータベースに存在しない
var ErrAadhaarNotFound = errors.New("aadhaar not found")

// Owner Aadhaar番号の所有者情報
type Owner struct {
	AadhaarNumber string
	Name          string
	DateOfBirth   time.Time
}

// OwnerRepository 所有者情報のリポジトリインターフェース
type OwnerRepository interface {
	// FindByNumber 見つからない場合は ErrAadhaarNotFound を返す
	FindByNumber(ctx context.Context, number string) (*Owner, error)
}

// IdentifierCache 画像ダイジェストから抽出済み番号を引くキャッシュ
type IdentifierCache interface {
	Lookup(ctx context.Context, digest string) (string, bool, error)
	Store(ctx context.Context, digest, number string) error
}
