package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"docchain/internal/config"
	"docchain/internal/modules/aadhaar/domain"
	"docchain/internal/modules/aadhaar/usecase"
	documentDomain "docchain/internal/modules/document/domain"
)

const (
	// multipartOverhead ファイル以外のフィールドとバウンダリの余裕
	multipartOverhead = 1 << 20
	sniffLen          = 512
)

// Verifier 検証ユースケースのインターフェース
type Verifier interface {
	Verify(ctx context.Context, in usecase.VerifyInput) (*usecase.VerifyResult, error)
}

// VerifyHandler Aadhaar検証のハンドラー
type VerifyHandler struct {
	verifier       Verifier
	uploadDir      string
	maxUploadBytes int64
}

// NewVerifyHandler 新しいVerifyHandlerを作成
func NewVerifyHandler(verifier Verifier, cfg *config.ServerConfig) *VerifyHandler {
	return &VerifyHandler{
		verifier:       verifier,
		uploadDir:      cfg.UploadDir,
		maxUploadBytes: cfg.MaxUploadBytes,
	}
}

// VerifyResponse 検証成功時のレスポンス
type VerifyResponse struct {
	Success  bool         `json:"success"`
	Verified bool         `json:"verified"`
	IPFSHash string       `json:"ipfsHash"`
	Data     *AadhaarData `json:"data"`
}

// AadhaarData 所有者情報
type AadhaarData struct {
	AadhaarNumber string `json:"aadharNumber"`
	Name          string `json:"name"`
	DOB           string `json:"dob"`
}

// ErrorResponse エラーレスポンス
type ErrorResponse struct {
	Error string `json:"error"`
}

// ServeHTTP アップロードされた画像を検証して登録
func (h *VerifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.sendError(w, h.tooLargeMessage(), http.StatusBadRequest)
			return
		}
		// multipart以外の本文でもウォレットの検証を先に行う
		if !documentDomain.IsWalletAddress(r.Form.Get("walletAddress")) {
			h.sendError(w, "Valid wallet address is required.", http.StatusBadRequest)
			return
		}
		h.sendError(w, "No file uploaded.", http.StatusBadRequest)
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	wallet := r.FormValue("walletAddress")
	if !documentDomain.IsWalletAddress(wallet) {
		h.sendError(w, "Valid wallet address is required.", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("aadharImage")
	if err != nil {
		h.sendError(w, "No file uploaded.", http.StatusBadRequest)
		return
	}
	defer func() {
		_ = file.Close()
	}()

	if header.Size > h.maxUploadBytes {
		h.sendError(w, h.tooLargeMessage(), http.StatusBadRequest)
		return
	}

	path, err := h.store(file, header.Filename)
	switch {
	case errors.Is(err, domain.ErrEmptyUpload):
		h.sendError(w, "No file uploaded.", http.StatusBadRequest)
		return
	case errors.Is(err, domain.ErrUnsupportedUpload):
		h.sendError(w, "Images and PDFs Only!", http.StatusBadRequest)
		return
	case err != nil:
		slog.Error("failed to store upload", "error", err)
		h.sendError(w, "Internal server error.", http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to remove upload", "path", path, "error", err)
		}
	}()

	result, err := h.verifier.Verify(r.Context(), usecase.VerifyInput{
		WalletAddress: wallet,
		ImagePath:     path,
		FileName:      filepath.Base(path),
	})
	if err != nil {
		message, status := verifyErrorStatus(err)
		if status >= http.StatusInternalServerError {
			slog.Error("aadhaar verification failed", "error", err)
		} else {
			slog.Info("aadhaar verification rejected", "status", status, "error", err)
		}
		h.sendError(w, message, status)
		return
	}

	cacheStatus := "MISS"
	if result.CacheHit {
		cacheStatus = "HIT"
	}

	response := VerifyResponse{
		Success:  true,
		Verified: true,
		IPFSHash: result.IPFSHash,
		Data: &AadhaarData{
			AadhaarNumber: result.AadhaarNumber,
			Name:          result.Owner.Name,
			DOB:           result.Owner.DateOfBirth.Format("2006-01-02"),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", cacheStatus)
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// store 種類を検証してから aadhaar-<uuid><ext> として保存
func (h *VerifyHandler) store(file io.Reader, filename string) (string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	ext, err := domain.ValidateUpload(filename, head)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(h.uploadDir, 0o750); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	path := filepath.Join(h.uploadDir, "aadhaar-"+uuid.NewString()+ext)
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}

	_, copyErr := io.Copy(dst, io.MultiReader(bytes.NewReader(head), file))
	closeErr := dst.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write upload: %w", errors.Join(copyErr, closeErr))
	}
	return path, nil
}

func (h *VerifyHandler) tooLargeMessage() string {
	return fmt.Sprintf("File too large. Maximum size is %dMB.", h.maxUploadBytes/1_000_000)
}

// verifyErrorStatus ユースケースのエラーをメッセージとステータスに変換
func verifyErrorStatus(err error) (string, int) {
	switch {
	case errors.Is(err, usecase.ErrInvalidWallet):
		return "Valid wallet address is required.", http.StatusBadRequest
	case errors.Is(err, domain.ErrOCRFailure):
		return "Could not extract valid Aadhar number from image.", http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNoValidIdentifier):
		return "Invalid Aadhar number format.", http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrAadhaarNotFound):
		return "Aadhar not found in database.", http.StatusNotFound
	case errors.Is(err, usecase.ErrDocumentRegistration):
		return "Error uploading file or registering document.", http.StatusInternalServerError
	default:
		return "Internal server error.", http.StatusInternalServerError
	}
}

// sendError エラーレスポンスを送信
func (h *VerifyHandler) sendError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
