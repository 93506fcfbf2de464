package domain

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	// ErrEmptyUpload アップロードされたファイルが空
	ErrEmptyUpload = errors.New("uploaded file is empty")

	// ErrUnsupportedUpload 画像とPDF以外のファイル
	ErrUnsupportedUpload = errors.New("images and pdfs only")
)

// 拡張子ごとに許可する内容のMIMEタイプ
var allowedUploads = map[string]string{
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
	".png":  "image/png",
	".pdf":  "application/pdf",
}

// ValidateUpload ファイル名の拡張子と先頭バイトの両方で画像/PDFかを検証
//
// 戻り値は保存時に使う小文字の拡張子。
func ValidateUpload(filename string, head []byte) (string, error) {
	if len(head) == 0 {
		return "", ErrEmptyUpload
	}

	ext := strings.ToLower(filepath.Ext(filename))
	want, ok := allowedUploads[ext]
	if !ok {
		return "", ErrUnsupportedUpload
	}

	if !mimetype.Detect(head).Is(want) {
		return "", ErrUnsupportedUpload
	}
	return ext, nil
}
