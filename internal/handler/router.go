package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/tunebox/internal/metrics"
	"github.com/hitoshi/tunebox/internal/middleware"
)

// HealthChecker はヘルスチェックに必要なインターフェース。
// *sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	UserFinder        middleware.UserFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ユーザー
	UserService UserServiceInterface

	// ファイル
	FileService FileServiceInterface
	FileConfig  FileHandlerConfig

	// 運用
	HealthChecker HealthChecker
	Gatherer      prometheus.Gatherer
	Collector     metrics.MetricsCollector
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Auth → RateLimit(General)
//
// 認証ルート（/api/auth/*）と運用ルート（/health、/metrics）は
// 認証ミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	if deps.Collector != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Collector.RecordHTTPStatus))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig, deps.Collector)
	userHandler := NewUserHandler(deps.UserService)
	fileHandler := NewFileHandler(deps.FileService, deps.FileConfig, deps.Collector)

	// --- 認証不要のルート ---

	// OAuthフローとトークンリフレッシュ
	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/login", authHandler.Login)
		r.Get("/callback", authHandler.Callback)
		r.Post("/refresh", authHandler.Refresh)
	})

	// ヘルスチェック
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(req.Context()); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy"})
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	// Prometheusメトリクス
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier, deps.UserFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// ユーザー管理
		r.Route("/api/users", func(r chi.Router) {
			r.Get("/my-info", userHandler.MyInfo)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", userHandler.Get)
				r.Patch("/", userHandler.Update)
				r.Delete("/", userHandler.Delete)
			})
		})

		// ファイル管理
		r.Route("/api/files", func(r chi.Router) {
			// POST /api/files/upload - アップロード（専用レート制限を追加）
			r.With(deps.RateLimiter.UploadMiddleware()).Post("/upload", fileHandler.Upload)

			r.Get("/my-files", fileHandler.MyFiles)
			r.Get("/{user_id}", fileHandler.UserFiles)
		})
	})

	return r
}
