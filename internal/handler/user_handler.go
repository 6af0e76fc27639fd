package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/nestfeed/internal/middleware"
	"github.com/hitoshi/nestfeed/internal/model"
	"github.com/hitoshi/nestfeed/internal/view"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// Update はユーザー名とパスワードを更新する。nilのフィールドは変更しない。
	Update(ctx context.Context, userID string, username, password *string) (*model.User, error)
	// Withdraw はユーザーの退会処理を実行する。
	// freets、nests、times、フレンドリスト、セッション、ユーザーの順に削除する。
	Withdraw(ctx context.Context, userID string) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
	config  AuthHandlerConfig
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, config AuthHandlerConfig) *UserHandler {
	return &UserHandler{
		service: service,
		config:  config,
	}
}

// Update はログイン中のユーザーのプロフィールを更新する。
// PUT /api/users
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := currentUserFrom(r.Context())

	var username, password *string
	if v, ok := middleware.BodyString(r.Context(), "username"); ok {
		username = &v
	}
	if v, ok := middleware.BodyString(r.Context(), "password"); ok {
		password = &v
	}

	updated, err := h.service.Update(r.Context(), user.ID, username, password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "プロフィールを更新しました。",
		"user":    view.User(updated),
	})
}

// Withdraw はユーザーの退会処理を実行する。
// DELETE /api/users
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	user := currentUserFrom(r.Context())

	if err := h.service.Withdraw(r.Context(), user.ID); err != nil {
		handleServiceError(w, err)
		return
	}

	http.SetCookie(w, sessionCookie(h.config, "", -1))
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "アカウントを削除しました。",
	})
}
