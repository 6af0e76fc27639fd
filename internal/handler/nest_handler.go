package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/nestfeed/internal/middleware"
	"github.com/hitoshi/nestfeed/internal/model"
	"github.com/hitoshi/nestfeed/internal/view"
)

// NestServiceInterface はNestハンドラーが必要とするサービスインターフェース。
type NestServiceInterface interface {
	AddOne(ctx context.Context, creatorID, name string) (*model.PopulatedNest, error)
	FindOne(ctx context.Context, id string) (*model.PopulatedNest, error)
	FindAll(ctx context.Context) ([]*model.PopulatedNest, error)
	FindAllByUsername(ctx context.Context, username string) ([]*model.PopulatedNest, error)
	Members(ctx context.Context, n *model.Nest) ([]*model.User, error)
	Posts(ctx context.Context, n *model.Nest) ([]*model.PopulatedFreet, error)
	UpdateMembers(ctx context.Context, nestID, memberID string, op model.Operation) (*model.PopulatedNest, error)
	UpdatePosts(ctx context.Context, nestID, freetID string, op model.Operation) (*model.PopulatedNest, error)
	DeleteOne(ctx context.Context, id string) error
}

// NestHandler はNest管理のHTTPハンドラー。
type NestHandler struct {
	service NestServiceInterface
}

// NewNestHandler はNestHandlerを生成する。
func NewNestHandler(service NestServiceInterface) *NestHandler {
	return &NestHandler{service: service}
}

// List は全Nestを名前順に返す。
// GET /api/nests
func (h *NestHandler) List(w http.ResponseWriter, r *http.Request) {
	nests, err := h.service.FindAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view.Nests(nests))
}

// ListByCreator は作成者のNestを返す。
// GET /api/nests?creator=username
func (h *NestHandler) ListByCreator(w http.ResponseWriter, r *http.Request) {
	nests, err := h.service.FindAllByUsername(r.Context(), queryUserFrom(r.Context()).Username)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view.Nests(nests))
}

// Members はNestのメンバーを返す。
// GET /api/nests/{nestId}/members
func (h *NestHandler) Members(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.Members(r.Context(), &nestFrom(r.Context()).Nest)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view.Users(users))
}

// Posts はNestの投稿を返す。
// GET /api/nests/{nestId}/posts
func (h *NestHandler) Posts(w http.ResponseWriter, r *http.Request) {
	freets, err := h.service.Posts(r.Context(), &nestFrom(r.Context()).Nest)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view.Freets(freets))
}

// Create はNestを作成する。終日表示のTimeが同時に作成される。
// POST /api/nests
func (h *NestHandler) Create(w http.ResponseWriter, r *http.Request) {
	name, _ := middleware.BodyString(r.Context(), "name")

	n, err := h.service.AddOne(r.Context(), currentUserFrom(r.Context()).ID, name)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Nestを作成しました。",
		"nest":    view.Nest(n),
	})
}

// Delete はNestと紐づくTimeを削除する。
// DELETE /api/nests/{nestId}
func (h *NestHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteOne(r.Context(), nestFrom(r.Context()).ID); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Nestを削除しました。",
	})
}

// UpdatePosts はNestに投稿を追加または削除する。
// PUT /api/nests/{nestId}/posts
func (h *NestHandler) UpdatePosts(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.UpdatePosts(r.Context(), nestFrom(r.Context()).ID, freetFrom(r.Context()).ID, operationFrom(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Nestを更新しました。",
		"nest":    view.Nest(n),
	})
}

// UpdateMembers はNestにメンバーを追加または削除する。
// PUT /api/nests/{nestId}/members
func (h *NestHandler) UpdateMembers(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.UpdateMembers(r.Context(), nestFrom(r.Context()).ID, memberFrom(r.Context()).ID, operationFrom(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Nestを更新しました。",
		"nest":    view.Nest(n),
	})
}
