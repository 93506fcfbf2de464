package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"docchain/internal/modules/document/domain"
	"docchain/internal/modules/document/usecase"
)

// DocumentUseCaseInterface ドキュメントユースケースのインターフェース
type DocumentUseCaseInterface interface {
	Share(ctx context.Context, in usecase.ShareInput) error
	SharedDocuments(ctx context.Context, address string) ([]domain.SharedDocument, error)
	Retrieve(ctx context.Context, hash string) (*domain.Content, error)
}

// DocumentHandler ドキュメント共有・取得のハンドラー
type DocumentHandler struct {
	documentUseCase DocumentUseCaseInterface
}

// NewDocumentHandler 新しいDocumentHandlerを作成
func NewDocumentHandler(documentUseCase DocumentUseCaseInterface) *DocumentHandler {
	return &DocumentHandler{documentUseCase: documentUseCase}
}

// ShareRequest 共有リクエスト
type ShareRequest struct {
	IPFSHash         string `json:"ipfsHash"`
	RecipientAddress string `json:"recipientAddress"`
	SenderAddress    string `json:"senderAddress"`
}

// ShareResponse 共有成功時のレスポンス
type ShareResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SharedDocumentsResponse 共有ドキュメント一覧のレスポンス
type SharedDocumentsResponse struct {
	Success   bool                    `json:"success"`
	Documents []domain.SharedDocument `json:"documents"`
}

// ErrorResponse エラーレスポンス
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleShare ドキュメントを別のアドレスと共有
func (h *DocumentHandler) HandleShare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	err := h.documentUseCase.Share(r.Context(), usecase.ShareInput{
		IPFSHash:         req.IPFSHash,
		SenderAddress:    req.SenderAddress,
		RecipientAddress: req.RecipientAddress,
	})
	if err != nil {
		message, status := shareErrorStatus(err)
		if status >= http.StatusInternalServerError {
			slog.Error("document sharing failed", "error", err)
		}
		h.sendError(w, message, status)
		return
	}

	slog.Info("document shared",
		"ipfs_hash", req.IPFSHash,
		"sender", req.SenderAddress,
		"recipient", req.RecipientAddress,
	)
	h.sendJSON(w, ShareResponse{Success: true, Message: "Document shared successfully."})
}

// HandleSharedDocuments アドレスに共有されたドキュメント一覧
func (h *DocumentHandler) HandleSharedDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	address := r.URL.Query().Get("address")
	docs, err := h.documentUseCase.SharedDocuments(r.Context(), address)
	if errors.Is(err, usecase.ErrInvalidAddress) {
		h.sendError(w, "Valid wallet address is required.", http.StatusBadRequest)
		return
	}
	if err != nil {
		slog.Error("failed to list shared documents", "address", address, "error", err)
		h.sendError(w, "Failed to fetch shared documents.", http.StatusInternalServerError)
		return
	}

	h.sendJSON(w, SharedDocumentsResponse{Success: true, Documents: docs})
}

// HandleRetrieve IPFSのドキュメントを添付ファイルとして返す
//
// パスは /api/documents/{hash}。
func (h *DocumentHandler) HandleRetrieve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	hash := strings.TrimPrefix(r.URL.Path, "/api/documents/")
	content, err := h.documentUseCase.Retrieve(r.Context(), hash)
	switch {
	case errors.Is(err, usecase.ErrInvalidHash):
		h.sendError(w, "Invalid IPFS hash.", http.StatusBadRequest)
		return
	case errors.Is(err, domain.ErrDocumentNotFound):
		h.sendError(w, "Document not found.", http.StatusNotFound)
		return
	case errors.Is(err, domain.ErrDocumentTooLarge):
		h.sendError(w, "Document too large.", http.StatusRequestEntityTooLarge)
		return
	case err != nil:
		slog.Error("failed to retrieve document", "ipfs_hash", hash, "error", err)
		h.sendError(w, "Failed to retrieve document from IPFS.", http.StatusBadGateway)
		return
	}
	defer func() {
		_ = content.Body.Close()
	}()

	w.Header().Set("Content-Type", content.ContentType)
	if content.Size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(content.Size, 10))
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, downloadName(hash, content.Extension)))
	w.WriteHeader(http.StatusOK)

	if n, err := io.Copy(w, content.Body); err != nil {
		// ヘッダー送信後なので接続を切ってクライアントに不完全な応答を知らせる
		slog.Warn("document stream aborted", "ipfs_hash", hash, "written", n, "error", err)
		panic(http.ErrAbortHandler)
	}
}

// downloadName document-<先頭8文字><拡張子>
func downloadName(hash, ext string) string {
	prefix := hash
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	if ext == "" {
		ext = ".bin"
	}
	return "document-" + prefix + ext
}

// shareErrorStatus ユースケースのエラーをメッセージとステータスに変換
func shareErrorStatus(err error) (string, int) {
	switch {
	case errors.Is(err, usecase.ErrMissingFields):
		return "IPFS hash, sender address, and recipient address are required.", http.StatusBadRequest
	case errors.Is(err, usecase.ErrInvalidAddress):
		return "Invalid sender or recipient address.", http.StatusBadRequest
	case errors.Is(err, domain.ErrGasEstimation):
		return "Gas estimation failed. Please try again.", http.StatusInternalServerError
	case errors.Is(err, domain.ErrTransactionFailed):
		return "Document sharing failed. Transaction failed on the blockchain.", http.StatusInternalServerError
	default:
		return "Document sharing failed due to an unexpected error.", http.StatusInternalServerError
	}
}

// sendJSON JSONレスポンスを送信
func (h *DocumentHandler) sendJSON(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(body)
}

// sendError エラーレスポンスを送信
func (h *DocumentHandler) sendError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
