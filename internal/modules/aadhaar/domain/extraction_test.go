package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtractCandidates(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "空白区切り",
			text: "Aadhaar: 1234 5678 9012",
			want: []string{"123456789012"},
		},
		{
			name: "連続12桁",
			text: "No 123456789012 end",
			want: []string{"123456789012"},
		},
		{
			name: "ハイフン区切り",
			text: "ID 1234-5678-9012",
			want: []string{"123456789012"},
		},
		{
			name: "改行区切りも空白として扱う",
			text: "1234\n5678\n9012",
			want: []string{"123456789012"},
		},
		{
			name: "ノーブレークスペース区切り",
			text: "1234\u00a05678\u00a09012",
			want: []string{"123456789012"},
		},
		{
			name: "全角スペースと垂直タブ区切り",
			text: "1234\u30005678\v9012",
			want: []string{"123456789012"},
		},
		{
			name: "ルール間の重複は最初の位置に1回だけ",
			text: "1234 5678 9012 and 123456789012 and 1234-5678-9012",
			want: []string{"123456789012"},
		},
		{
			name: "ルールの適用順で並ぶ",
			text: "first 1111-2222-3333 then 4444 5555 6666 then 777788889999",
			want: []string{"444455556666", "777788889999", "111122223333"},
		},
		{
			name: "11桁は候補にならない",
			text: "12345678901",
			want: []string{},
		},
		{
			name: "13桁は候補にならない",
			text: "1234567890123",
			want: []string{},
		},
		{
			name: "日付は候補にならない",
			text: "DOB: 01-01-1990",
			want: []string{},
		},
		{
			name: "空文字列",
			text: "",
			want: []string{},
		},
		{
			name: "ハイフン区切りは語境界を要求しない",
			text: "1234-5678-90123",
			want: []string{"123456789012"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractCandidates(tt.text)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ExtractCandidates() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractCandidates_AlwaysNormalized(t *testing.T) {
	texts := []string{
		"1234 5678 9012",
		"1234-5678-9012",
		"x 9999 8888 7777 y 1111-2222-3333 z 444455556666",
	}

	for _, text := range texts {
		for _, c := range ExtractCandidates(text) {
			if !IsValidAadhaarNumber(c) {
				t.Errorf("candidate %q from %q is not a normalized 12-digit string", c, text)
			}
		}
	}
}

func TestIsValidAadhaarNumber(t *testing.T) {
	tests := []struct {
		number string
		want   bool
	}{
		{"123456789012", true},
		{"12345678901", false},
		{"1234567890123", false},
		{"1234-5678-9012", false},
		{"1234 5678 9012", false},
		{"12345678901a", false},
		{"", false},
		{"123456789012\n", false},
		{"١٢٣٤٥٦٧٨٩٠١٢", false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.number), func(t *testing.T) {
			if got := IsValidAadhaarNumber(tt.number); got != tt.want {
				t.Errorf("IsValidAadhaarNumber(%q) = %v, want %v", tt.number, got, tt.want)
			}
		})
	}
}

func TestSelectIdentifier(t *testing.T) {
	tests := []struct {
		name       string
		candidates []string
		want       string
		wantErr    error
	}{
		{
			name:       "最初の有効な候補",
			candidates: []string{"111122223333", "444455556666"},
			want:       "111122223333",
		},
		{
			name:       "無効な候補をスキップ",
			candidates: []string{"1234", "444455556666"},
			want:       "444455556666",
		},
		{
			name:       "候補なし",
			candidates: nil,
			wantErr:    ErrNoValidIdentifier,
		},
		{
			name:       "すべて無効",
			candidates: []string{"1234-5678-9012", "12345678901"},
			wantErr:    ErrNoValidIdentifier,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectIdentifier(tt.candidates)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("SelectIdentifier() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("SelectIdentifier() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIdentifierFromText(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		wantErr error
	}{
		{
			name: "カード全文",
			text: "Name: Jane Doe  Aadhaar: 1234 5678 9012  DOB: 01-01-1990",
			want: "123456789012",
		},
		{
			name:    "11桁のみ",
			text:    "Aadhaar: 12345678901",
			wantErr: ErrNoValidIdentifier,
		},
		{
			name:    "13桁のみ",
			text:    "Aadhaar: 1234567890123",
			wantErr: ErrNoValidIdentifier,
		},
		{
			name:    "数字なし",
			text:    "GOVERNMENT OF INDIA",
			wantErr: ErrNoValidIdentifier,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IdentifierFromText(tt.text)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("IdentifierFromText() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("IdentifierFromText() = %q, want %q", got, tt.want)
			}

			// 同じテキストなら同じ結果
			again, againErr := IdentifierFromText(tt.text)
			if again != got || !errors.Is(againErr, tt.wantErr) {
				t.Errorf("second call = (%q, %v), want (%q, %v)", again, againErr, got, err)
			}
		})
	}
}

func TestOCRFailureError(t *testing.T) {
	cause := errors.New("decode failed")
	err := error(&OCRFailureError{Err: cause})

	if !errors.Is(err, ErrOCRFailure) {
		t.Error("Expected errors.Is(err, ErrOCRFailure)")
	}
	if !errors.Is(err, cause) {
		t.Error("Expected the engine cause to be unwrapped")
	}
	if errors.Is(err, ErrNoValidIdentifier) {
		t.Error("OCR failure must not match ErrNoValidIdentifier")
	}
	if err.Error() != "ocr failure: decode failed" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestMaskNumber(t *testing.T) {
	tests := []struct {
		number string
		want   string
	}{
		{"123456789012", "XXXXXXXX9012"},
		{"1234", "1234"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := MaskNumber(tt.number); got != tt.want {
			t.Errorf("MaskNumber(%q) = %q, want %q", tt.number, got, tt.want)
		}
	}
}
