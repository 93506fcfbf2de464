package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"docchain/internal/modules/aadhaar/domain"
)

// ExtractionUseCase 画像からAadhaar番号を抽出するユースケース
type ExtractionUseCase struct {
	engine  domain.OCREngine
	timeout time.Duration
}

// NewExtractionUseCase 新しいExtractionUseCaseを作成
//
// timeout が0以下の場合、認識処理は呼び出し元のコンテキストのみで打ち切られる。
func NewExtractionUseCase(engine domain.OCREngine, timeout time.Duration) *ExtractionUseCase {
	return &ExtractionUseCase{
		engine:  engine,
		timeout: timeout,
	}
}

// Extract 画像ファイルから12桁の番号を抽出
//
// 失敗時は *domain.OCRFailureError か domain.ErrNoValidIdentifier を返す。
func (uc *ExtractionUseCase) Extract(ctx context.Context, imagePath string) (string, error) {
	text, err := uc.recognize(ctx, imagePath)
	if err != nil {
		return "", err
	}

	candidates := domain.ExtractCandidates(text.Text)
	slog.Debug("aadhaar candidates extracted",
		"path", imagePath,
		"confidence", text.Confidence,
		"candidates", len(candidates),
	)

	number, err := domain.SelectIdentifier(candidates)
	if rejected := rejectedCandidates(candidates, number); len(rejected) > 0 {
		slog.Debug("aadhaar candidates rejected", "path", imagePath, "rejected", rejected)
	}
	if err != nil {
		return "", err
	}
	return number, nil
}

// rejectedCandidates 採用されなかった候補を伏せ字で返す
func rejectedCandidates(candidates []string, selected string) []string {
	var rejected []string
	for _, c := range candidates {
		if c != selected {
			rejected = append(rejected, domain.MaskNumber(c))
		}
	}
	return rejected
}

// ExtractText OCRテキストのみを取得（CLI用）
func (uc *ExtractionUseCase) ExtractText(ctx context.Context, imagePath string) (*domain.RecognizedText, error) {
	return uc.recognize(ctx, imagePath)
}

// EngineName OCRエンジン名を取得
func (uc *ExtractionUseCase) EngineName() string {
	return uc.engine.Name()
}

type recognition struct {
	text *domain.RecognizedText
	err  error
}

// recognize セッションを取得して認識し、必ず解放する
//
// 認識処理自体は中断できないため、タイムアウト時はバックグラウンドで
// 完了を待ってからセッションを解放する。
func (uc *ExtractionUseCase) recognize(ctx context.Context, imagePath string) (*domain.RecognizedText, error) {
	if uc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.timeout)
		defer cancel()
	}

	session, err := uc.engine.NewSession(ctx)
	if err != nil {
		return nil, &domain.OCRFailureError{Err: fmt.Errorf("failed to start ocr session: %w", err)}
	}

	done := make(chan recognition, 1)
	go func() {
		var r recognition
		defer func() {
			if p := recover(); p != nil {
				r = recognition{err: fmt.Errorf("ocr engine panicked: %v", p)}
			}
			if closeErr := session.Close(); closeErr != nil {
				slog.Warn("failed to release ocr session", "error", closeErr)
			}
			done <- r
		}()
		text, err := session.Recognize(ctx, imagePath)
		r = recognition{text: text, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, &domain.OCRFailureError{Err: r.err}
		}
		if r.text == nil {
			return nil, &domain.OCRFailureError{Err: errors.New("ocr engine returned no text")}
		}
		return r.text, nil
	case <-ctx.Done():
		return nil, &domain.OCRFailureError{Err: fmt.Errorf("recognition aborted: %w", ctx.Err())}
	}
}
