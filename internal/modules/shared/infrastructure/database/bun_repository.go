package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"

	_ "github.com/go-sql-driver/mysql"

	"docchain/internal/config"
	"docchain/internal/modules/aadhaar/domain"
)

// AadhaarRecord BUNモデル（既存の aadhaar テーブル）
type AadhaarRecord struct {
	bun.BaseModel `bun:"table:aadhaar"`

	AadhaarNo string    `bun:"Aadhar_No,pk,type:varchar(12)"`
	Name      string    `bun:"name,notnull,type:varchar(255)"`
	DOB       time.Time `bun:"dob,type:date"`
}

// BunAadhaarRepository BUN実装
type BunAadhaarRepository struct {
	db *bun.DB
}

// NewBunAadhaarRepository 新しいBunAadhaarRepositoryを作成
func NewBunAadhaarRepository(cfg *config.MySQLConfig) (*BunAadhaarRepository, error) {
	sqldb, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sqldb.SetMaxOpenConns(10)

	db := bun.NewDB(sqldb, mysqldialect.New())

	// 接続確認
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &BunAadhaarRepository{db: db}, nil
}

// CreateSchema aadhaar テーブルを作成（存在する場合は何もしない）
//
// サーバーは既存のテーブルを参照するだけ。docchainctl owners init から使う。
func (r *BunAadhaarRepository) CreateSchema(ctx context.Context) error {
	if _, err := r.db.NewCreateTable().Model((*AadhaarRecord)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create aadhaar table: %w", err)
	}
	return nil
}

// FindByNumber 番号で所有者を検索
func (r *BunAadhaarRepository) FindByNumber(ctx context.Context, number string) (*domain.Owner, error) {
	model := &AadhaarRecord{}
	err := r.db.NewSelect().
		Model(model).
		Where("? = ?", bun.Ident("Aadhar_No"), number).
		Limit(1).
		Scan(ctx)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrAadhaarNotFound, domain.MaskNumber(number))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find aadhaar: %w", err)
	}

	return r.toEntity(model), nil
}

// Save 所有者情報を登録（既存の番号は更新）。docchainctl owners add から使う
func (r *BunAadhaarRepository) Save(ctx context.Context, owner *domain.Owner) error {
	_, err := r.db.NewInsert().
		Model(r.toModel(owner)).
		On("DUPLICATE KEY UPDATE").
		Set("name = VALUES(name)").
		Set("dob = VALUES(dob)").
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to save aadhaar: %w", err)
	}
	return nil
}

// Close データベース接続を閉じる
func (r *BunAadhaarRepository) Close() error {
	return r.db.Close()
}

// toModel エンティティをモデルに変換
func (r *BunAadhaarRepository) toModel(owner *domain.Owner) *AadhaarRecord {
	return &AadhaarRecord{
		AadhaarNo: owner.AadhaarNumber,
		Name:      owner.Name,
		DOB:       owner.DateOfBirth,
	}
}

// toEntity モデルをエンティティに変換
func (r *BunAadhaarRepository) toEntity(model *AadhaarRecord) *domain.Owner {
	return &domain.Owner{
		AadhaarNumber: model.AadhaarNo,
		Name:          model.Name,
		DateOfBirth:   model.DOB,
	}
}
