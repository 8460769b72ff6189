package middleware

import "net/http"

// NewMetricsMiddleware はレスポンスのステータスコードをrecordに通知する
// ミドルウェアを返す。recordにはメトリクスコレクタの記録関数を渡す。
func NewMetricsMiddleware(record func(statusCode int)) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rec, r)

			record(rec.statusCode)
		})
	}
}
