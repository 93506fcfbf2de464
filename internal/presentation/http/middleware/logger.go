package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader リクエストIDのヘッダー名
const RequestIDHeader = "X-Request-ID"

// responseWriter ステータスコードをキャプチャするためのラッパー
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// requestID クライアント指定のIDがなければ採番してレスポンスに付与
func requestID(w http.ResponseWriter, r *http.Request) string {
	id := r.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, id)
	return id
}

// serveLogged 次のハンドラーを実行してアクセスログを出力
func serveLogged(next http.Handler, w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := requestID(w, r)

	// レスポンスライターのラップ
	rw := &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}

	// 次のハンドラーを実行
	next.ServeHTTP(rw, r)

	// ログ出力
	duration := time.Since(start)
	slog.Info("HTTP request",
		"request_id", id,
		"method", r.Method,
		"path", r.URL.Path,
		"status", rw.statusCode,
		"bytes", rw.written,
		"duration", duration,
	)
}

// Logger ロギングミドルウェア
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serveLogged(next, w, r)
	})
}

// LoggerWithHealthCheck ヘルスチェックを除外するロギングミドルウェア
func LoggerWithHealthCheck(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// ヘルスチェックは正常時ログ出力しない
		if r.URL.Path == "/health" {
			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}
			next.ServeHTTP(rw, r)

			// 異常時のみログ出力
			if rw.statusCode != http.StatusOK {
				slog.Error("Health check failed",
					"status", rw.statusCode,
				)
			}
			return
		}

		serveLogged(next, w, r)
	})
}
