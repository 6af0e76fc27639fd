// Package handler はHTTPハンドラーとルーティングを提供する。
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/nestfeed/internal/middleware"
	"github.com/hitoshi/nestfeed/internal/model"
	"github.com/hitoshi/nestfeed/internal/view"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, username, password string) (*model.User, *model.Session, error)
	Login(ctx context.Context, username, password string) (*model.User, *model.Session, error)
	Logout(ctx context.Context, sessionID string) error
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はアカウント登録とセッション管理のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// Register はユーザーを作成し、そのままログイン状態にする。
// POST /api/users
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.BodyString(r.Context(), "username")
	password, _ := middleware.BodyString(r.Context(), "password")

	user, session, err := h.service.Register(r.Context(), username, password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.setSessionCookie(w, session.ID, h.config.SessionMaxAge)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "アカウントを作成しました。ログイン中: " + user.Username,
		"user":    view.User(user),
	})
}

// Login は資格情報を検証し、セッションCookieを発行する。
// POST /api/users/session
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.BodyString(r.Context(), "username")
	password, _ := middleware.BodyString(r.Context(), "password")
	if username == "" || password == "" {
		writeAPIError(w, model.NewInvalidCredentialsError())
		return
	}

	user, session, err := h.service.Login(r.Context(), username, password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.setSessionCookie(w, session.ID, h.config.SessionMaxAge)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "ログインしました。",
		"user":    view.User(user),
	})
}

// Logout はセッションを破棄する。
// DELETE /api/users/session
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionID := middleware.SessionIDFromContext(r.Context()); sessionID != "" {
		if err := h.service.Logout(r.Context(), sessionID); err != nil {
			// ログアウト失敗してもCookieはクリアする
			slog.Error("failed to logout", slog.String("error", err.Error()))
		}
	}

	h.setSessionCookie(w, "", -1)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "ログアウトしました。",
	})
}

// Session は現在のログインユーザーを返す。未ログインの場合userはnull。
// GET /api/users/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	var user *model.User
	if sessionID := middleware.SessionIDFromContext(r.Context()); sessionID != "" {
		u, err := h.service.GetCurrentUser(r.Context(), sessionID)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		user = u
	}

	body := map[string]any{
		"message": "セッションを確認しました。",
		"user":    nil,
	}
	if user != nil {
		body["user"] = view.User(user)
	}
	writeJSON(w, http.StatusOK, body)
}

// setSessionCookie はHTTP OnlyのセッションCookieを設定する。maxAgeが負の場合は削除する。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, sessionCookie(h.config, value, maxAge))
}

func sessionCookie(config AuthHandlerConfig, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
