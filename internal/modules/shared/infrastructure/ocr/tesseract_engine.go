package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"docchain/internal/config"
	"docchain/internal/modules/aadhaar/domain"
)

// TesseractEngine gosseractによるOCRエンジン
type TesseractEngine struct {
	languages     []string
	clientFactory func() *gosseract.Client
	pdfImages     func(path string) ([][]byte, error)
}

// NewTesseractEngine 新しいTesseractEngineを作成
func NewTesseractEngine(cfg *config.OCRConfig) *TesseractEngine {
	return &TesseractEngine{
		languages:     append([]string(nil), cfg.Languages...),
		clientFactory: gosseract.NewClient,
		pdfImages:     ExtractPDFImages,
	}
}

// Name エンジン名を返す
func (e *TesseractEngine) Name() string {
	return "tesseract"
}

// NewSession 呼び出し専用のクライアントを生成
func (e *TesseractEngine) NewSession(ctx context.Context) (domain.OCRSession, error) {
	client := e.clientFactory()
	if len(e.languages) > 0 {
		if err := client.SetLanguage(e.languages...); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("set languages: %w", err)
		}
	}
	return &tesseractSession{client: client, pdfImages: e.pdfImages}, nil
}

type tesseractSession struct {
	client    *gosseract.Client
	pdfImages func(path string) ([][]byte, error)
}

// Recognize 画像全体を認識する。PDFは埋め込み画像を順に認識して連結する
func (s *tesseractSession) Recognize(ctx context.Context, imagePath string) (*domain.RecognizedText, error) {
	pdf, err := IsPDF(imagePath)
	if err != nil {
		return nil, err
	}
	if !pdf {
		if err := s.client.SetImage(imagePath); err != nil {
			return nil, fmt.Errorf("set image: %w", err)
		}
		return s.text()
	}

	images, err := s.pdfImages(imagePath)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, errors.New("pdf contains no recognizable images")
	}

	var (
		texts      []string
		confidence float64
	)
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.client.SetImageFromBytes(img); err != nil {
			return nil, fmt.Errorf("set pdf image %d: %w", i, err)
		}
		rt, err := s.text()
		if err != nil {
			return nil, fmt.Errorf("recognize pdf image %d: %w", i, err)
		}
		texts = append(texts, rt.Text)
		confidence += rt.Confidence
	}

	return &domain.RecognizedText{
		Text:       strings.Join(texts, "\n"),
		Confidence: confidence / float64(len(images)),
	}, nil
}

func (s *tesseractSession) text() (*domain.RecognizedText, error) {
	text, err := s.client.Text()
	if err != nil {
		return nil, fmt.Errorf("recognize text: %w", err)
	}
	return &domain.RecognizedText{
		Text:       text,
		Confidence: s.confidence(),
	}, nil
}

// confidence 単語ごとの信頼度の平均（0-100）
func (s *tesseractSession) confidence() float64 {
	boxes, err := s.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return 0
	}
	scores := make([]float64, len(boxes))
	for i, b := range boxes {
		scores[i] = b.Confidence
	}
	return averageConfidence(scores)
}

// Close クライアントを解放
func (s *tesseractSession) Close() error {
	return s.client.Close()
}

func averageConfidence(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}
