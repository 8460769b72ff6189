package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/tunebox/internal/metrics"
	"github.com/hitoshi/tunebox/internal/middleware"
	"github.com/hitoshi/tunebox/internal/model"
)

// maxFileNameLength はファイル表示名の最大文字数。
const maxFileNameLength = 100

// multipartMemoryLimit はマルチパート解析時にメモリへ保持する最大バイト数。
// これを超えた分は一時ファイルに書き出される。
const multipartMemoryLimit = 32 << 20 // 32MB

// multipartOverhead はファイル本体以外（バウンダリ・nameフィールド・ヘッダー）に
// 許容する追加バイト数。リクエストボディ全体の上限はファイルサイズ上限+この値。
const multipartOverhead = 1 << 20 // 1MB

// FileServiceInterface はファイルハンドラーが必要とするサービスインターフェース。
type FileServiceInterface interface {
	// Upload は操作主体自身のファイルとしてアップロードする。
	Upload(ctx context.Context, actor *model.User, name, originalFilename string, size int64, r io.Reader) (*model.File, error)
	// List は指定ユーザーの所有ファイル一覧を返す。targetIDが空の場合は操作主体自身。
	List(ctx context.Context, actor *model.User, targetID string) ([]*model.File, error)
}

// FileHandlerConfig はファイルハンドラーの設定。
type FileHandlerConfig struct {
	// MaxUploadSize はファイルサイズ上限（バイト）。0以下の場合はボディの事前制限を行わない。
	MaxUploadSize int64
}

// FileHandler はファイル管理のHTTPハンドラー。
type FileHandler struct {
	service   FileServiceInterface
	config    FileHandlerConfig
	collector metrics.MetricsCollector
}

// NewFileHandler はFileHandlerを生成する。
func NewFileHandler(service FileServiceInterface, config FileHandlerConfig, collector metrics.MetricsCollector) *FileHandler {
	return &FileHandler{
		service:   service,
		config:    config,
		collector: collector,
	}
}

// fileResponse はファイル情報のAPIレスポンス。
type fileResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toFileResponse(file *model.File) fileResponse {
	return fileResponse{
		ID:        file.ID,
		UserID:    file.UserID,
		Name:      file.Name,
		Path:      file.Path,
		CreatedAt: file.CreatedAt,
		UpdatedAt: file.UpdatedAt,
	}
}

func toFileListResponse(files []*model.File) []fileResponse {
	res := make([]fileResponse, 0, len(files))
	for _, f := range files {
		res = append(res, toFileResponse(f))
	}
	return res
}

// Upload はマルチパートフォームからファイルをアップロードする。
// フォームフィールド: file（ファイル本体）、name（表示名、100文字以内）
// POST /api/files/upload
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	// 上限を大きく超えるボディは一時ファイルへ書き出す前に打ち切る
	if h.config.MaxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadSize+multipartOverhead)
	}

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("マルチパートフォームの解析に失敗しました"))
		return
	}

	name := r.FormValue("name")
	if name == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("nameが空です"))
		return
	}
	if len([]rune(name)) > maxFileNameLength {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("nameは100文字以内で指定してください"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("fileフィールドがありません"))
		return
	}
	defer file.Close()

	uploaded, err := h.service.Upload(r.Context(), actor, name, header.Filename, header.Size, file)
	if err != nil {
		h.collector.RecordUploadFailure(uploadFailureReason(err))
		handleServiceError(w, err)
		return
	}

	h.collector.RecordUpload()
	h.collector.RecordUploadBytes(header.Size)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toFileResponse(uploaded))
}

// MyFiles は現在のログインユーザー自身の所有ファイル一覧を返す。
// GET /api/files/my-files
func (h *FileHandler) MyFiles(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	files, err := h.service.List(r.Context(), actor, "")
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toFileListResponse(files))
}

// UserFiles は指定ユーザーの所有ファイル一覧を返す。
// 本人または管理者のみ許可する。
// GET /api/files/{user_id}
func (h *FileHandler) UserFiles(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	targetID := chi.URLParam(r, "user_id")

	files, err := h.service.List(r.Context(), actor, targetID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toFileListResponse(files))
}

// uploadFailureReason はメトリクスのラベルに使用する失敗理由を返す。
func uploadFailureReason(err error) string {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		return "internal_error"
	}

	switch apiErr.Code {
	case model.ErrCodeFileTypeNotAllowed:
		return "type_not_allowed"
	case model.ErrCodeFileTooLarge:
		return "too_large"
	case model.ErrCodeUploadFailed:
		return "write_failed"
	default:
		return "internal_error"
	}
}
