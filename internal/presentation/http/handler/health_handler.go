package handler

import (
	"encoding/json"
	"net/http"
)

// Version APIのバージョン
const Version = "1.0.0"

// HealthHandler ヘルスチェックのハンドラー
type HealthHandler struct {
	ocrEngine string
}

// NewHealthHandler 新しいHealthHandlerを作成
func NewHealthHandler(ocrEngine string) *HealthHandler {
	return &HealthHandler{ocrEngine: ocrEngine}
}

// HealthResponse ヘルスチェックのレスポンス
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	OCREngine string `json:"ocr_engine"`
}

// ServeHTTP ヘルスチェックを処理
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:    "ok",
		Version:   Version,
		OCREngine: h.ocrEngine,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}
