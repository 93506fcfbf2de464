package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// AadhaarNumberLength Aadhaar番号の桁数
const AadhaarNumberLength = 12

var (
	// ErrOCRFailure OCRエンジンがテキストを生成できなかった
	ErrOCRFailure = errors.New("ocr failure")

	// ErrNoValidIdentifier テキストは得られたが12桁の番号が見つからなかった
	ErrNoValidIdentifier = errors.New("no valid aadhaar number found in image")
)

// OCRFailureError OCRエンジンのエラーをラップする
type OCRFailureError struct {
	Err error
}

func (e *OCRFailureError) Error() string {
	return fmt.Sprintf("ocr failure: %v", e.Err)
}

func (e *OCRFailureError) Unwrap() error {
	return e.Err
}

// Is errors.Is(err, ErrOCRFailure) を成立させる
func (e *OCRFailureError) Is(target error) bool {
	return target == ErrOCRFailure
}

// RecognizedText 1枚の画像に対するOCR結果
type RecognizedText struct {
	Text       string
	Confidence float64
}

// whitespaceClass 空白文字のクラス
//
// RE2の \s はASCIIの空白のみなので、OCRが出力しやすいノーブレークスペース等の
// Unicode空白と垂直タブを加える。
const whitespaceClass = `\s\v\x{00A0}\x{1680}\x{2000}-\x{200A}\x{2028}\x{2029}\x{202F}\x{205F}\x{3000}\x{FEFF}`

// candidatePatterns の適用順序は結果に影響する（先に見つかった候補が優先）
var candidatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{4}[` + whitespaceClass + `]?\d{4}[` + whitespaceClass + `]?\d{4}\b`), // 4-4-4（空白区切り/区切りなし）
	regexp.MustCompile(`\b\d{12}\b`),        // 連続12桁
	regexp.MustCompile(`\d{4}-\d{4}-\d{4}`), // 4-4-4（ハイフン区切り）
}

var (
	separatorPattern = regexp.MustCompile(`[` + whitespaceClass + `-]`)
	digitRunPattern  = regexp.MustCompile(`\d+`)
	aadhaarPattern   = regexp.MustCompile(`^\d{12}$`)
)

// ExtractCandidates OCRテキストから番号候補を抽出する
//
// 3つのパターンのマッチを区切り文字を除去して正規化し、続いて
// ちょうど12桁の数字列をすべて追加する。重複は最初の出現位置を残して除去する。
func ExtractCandidates(text string) []string {
	var matches []string
	for _, pattern := range candidatePatterns {
		for _, m := range pattern.FindAllString(text, -1) {
			matches = append(matches, separatorPattern.ReplaceAllString(m, ""))
		}
	}

	for _, run := range digitRunPattern.FindAllString(text, -1) {
		if len(run) == AadhaarNumberLength {
			matches = append(matches, run)
		}
	}

	seen := make(map[string]struct{}, len(matches))
	candidates := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		candidates = append(candidates, m)
	}
	return candidates
}

// IsValidAadhaarNumber 正規化済みの12桁の数字列かどうかを判定
//
// チェックサム（Verhoeff）は検証しない。
func IsValidAadhaarNumber(number string) bool {
	return aadhaarPattern.MatchString(number)
}

// SelectIdentifier 候補の中から最初に検証を通過したものを返す
func SelectIdentifier(candidates []string) (string, error) {
	for _, c := range candidates {
		if IsValidAadhaarNumber(c) {
			return c, nil
		}
	}
	return "", ErrNoValidIdentifier
}

// IdentifierFromText テキストから番号を決定する
func IdentifierFromText(text string) (string, error) {
	return SelectIdentifier(ExtractCandidates(text))
}

// MaskNumber ログやエラー用に末尾4桁以外を伏せる
func MaskNumber(number string) string {
	if len(number) <= 4 {
		return number
	}
	return strings.Repeat("X", len(number)-4) + number[len(number)-4:]
}
