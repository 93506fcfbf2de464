package router

import (
	"net/http"

	"docchain/internal/presentation/di"
	"docchain/internal/presentation/http/middleware"
)

// NewRouter 新しいルーターを作成
func NewRouter(container *di.Container) http.Handler {
	mux := http.NewServeMux()

	// Aadhaar 検証
	mux.Handle("/api/verify-aadhar", container.VerifyHandler())

	// ドキュメント共有・取得
	documentHandler := container.DocumentHandler()
	mux.HandleFunc("/api/share-document", documentHandler.HandleShare)
	mux.HandleFunc("/api/shared-documents", documentHandler.HandleSharedDocuments)
	mux.HandleFunc("/api/documents/", documentHandler.HandleRetrieve)

	// Health check
	mux.Handle("/health", container.HealthHandler())

	// ミドルウェアの適用
	var h http.Handler = mux
	h = middleware.Recovery(h)
	h = middleware.LoggerWithHealthCheck(h)
	h = middleware.CORS(h)

	return h
}
