package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/tunebox/internal/middleware"
	"github.com/hitoshi/tunebox/internal/model"
)

// maxUsernameLength はusernameおよび氏名フィールドの最大文字数。
const maxUsernameLength = 100

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// Get は指定IDのユーザーを取得する。
	Get(ctx context.Context, actor *model.User, targetID string) (*model.User, error)
	// Update はユーザー情報を部分更新する。
	Update(ctx context.Context, actor *model.User, targetID string, update model.UserUpdate) (*model.User, error)
	// Delete はユーザーと所有ファイルを削除する。
	Delete(ctx context.Context, actor *model.User, targetID string) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID        string    `json:"id"`
	YandexID  string    `json:"yandex_id"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// updateUserRequest はユーザー更新リクエストのボディ。
// 指定されたフィールドのみ更新する。
type updateUserRequest struct {
	Username  *string `json:"username"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

func toUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:        user.ID,
		YandexID:  user.YandexID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		IsAdmin:   user.IsAdmin,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// MyInfo は現在のログインユーザー自身の情報を返す。
// GET /api/users/my-info
func (h *UserHandler) MyInfo(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(actor))
}

// Get は指定IDのユーザー情報を返す。
// GET /api/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	targetID := chi.URLParam(r, "id")

	user, err := h.service.Get(r.Context(), actor, targetID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(user))
}

// Update はユーザー情報を部分更新する。
// PATCH /api/users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	targetID := chi.URLParam(r, "id")

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	update := model.UserUpdate{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}

	if update.IsEmpty() {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("更新するフィールドが指定されていません"))
		return
	}

	if reason, ok := validateUpdate(update); !ok {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError(reason))
		return
	}

	user, err := h.service.Update(r.Context(), actor, targetID, update)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(user))
}

// Delete はユーザーと所有ファイルを削除する。
// DELETE /api/users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	targetID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), actor, targetID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// validateUpdate は更新フィールドの値を検証する。
func validateUpdate(update model.UserUpdate) (string, bool) {
	fields := map[string]*string{
		"username":   update.Username,
		"first_name": update.FirstName,
		"last_name":  update.LastName,
	}

	for name, value := range fields {
		if value == nil {
			continue
		}
		if len([]rune(*value)) > maxUsernameLength {
			return name + "は100文字以内で指定してください", false
		}
	}

	return "", true
}
