package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// ErrorResponse エラーレスポンス（APIハンドラーと同じ形）
type ErrorResponse struct {
	Error string `json:"error"`
}

// Recovery パニックリカバリーミドルウェア
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				// 応答途中の中断はnet/httpに任せる
				if err == http.ErrAbortHandler {
					panic(err)
				}
				slog.Error("Panic recovered",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "Internal server error."})
			}
		}()

		next.ServeHTTP(w, r)
	})
}
