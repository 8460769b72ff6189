package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/tunebox/internal/middleware"
	"github.com/hitoshi/tunebox/internal/model"
)

// writeAPIErrorResponse は統一エラーフォーマットでレスポンスを書き込む。
// フォーマットの実体はミドルウェア層と共有する（レスポンス形状を一箇所に集約）。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// handleServiceError はサービス層のエラーをHTTPレスポンスに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidCredentials, model.ErrCodeInvalidRefreshToken:
		// トークンの不備はすべて認証失敗として扱う
		return http.StatusUnauthorized
	case model.ErrCodeIdentityVerifyFailed:
		return http.StatusBadRequest
	case model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeFileTypeNotAllowed, model.ErrCodeFileTooLarge:
		return http.StatusBadRequest
	case model.ErrCodeUploadFailed:
		return http.StatusInternalServerError
	case model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeUnauthorized は認証コンテキストが欠落している場合の401レスポンスを書き込む。
func writeUnauthorized(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewInvalidCredentialsError())
}
