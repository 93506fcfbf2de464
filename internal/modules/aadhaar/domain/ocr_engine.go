package domain

import "context"

// OCREngine OCRセッションを生成するエンジン
type OCREngine interface {
	// NewSession 呼び出しごとに独立したセッションを生成
	NewSession(ctx context.Context) (OCRSession, error)

	// Name エンジン名を返す
	Name() string
}

// OCRSession 1回の抽出呼び出しに閉じたOCRセッション
//
// Close は必ず呼び出すこと。セッションは並行利用できない。
type OCRSession interface {
	Recognize(ctx context.Context, imagePath string) (*RecognizedText, error)
	Close() error
}
