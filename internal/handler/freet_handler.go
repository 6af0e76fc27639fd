package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/nestfeed/internal/middleware"
	"github.com/hitoshi/nestfeed/internal/model"
	"github.com/hitoshi/nestfeed/internal/view"
)

// FreetServiceInterface はFreetハンドラーが必要とするサービスインターフェース。
type FreetServiceInterface interface {
	PrepareContent(raw string) (string, error)
	AddOne(ctx context.Context, authorID, raw string) (*model.PopulatedFreet, error)
	FindOne(ctx context.Context, id string) (*model.PopulatedFreet, error)
	FindAll(ctx context.Context) ([]*model.PopulatedFreet, error)
	FindAllByUsername(ctx context.Context, username string) ([]*model.PopulatedFreet, error)
	UpdateOne(ctx context.Context, id, raw string) (*model.PopulatedFreet, error)
	DeleteOne(ctx context.Context, id string) error
}

// FreetHandler はFreetのHTTPハンドラー。
type FreetHandler struct {
	service FreetServiceInterface
}

// NewFreetHandler はFreetHandlerを生成する。
func NewFreetHandler(service FreetServiceInterface) *FreetHandler {
	return &FreetHandler{service: service}
}

// List は全Freetを新しい順に返す。
// GET /api/freets
func (h *FreetHandler) List(w http.ResponseWriter, r *http.Request) {
	freets, err := h.service.FindAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view.Freets(freets))
}

// ListByAuthor は投稿者のFreetを返す。
// GET /api/freets?author=username
func (h *FreetHandler) ListByAuthor(w http.ResponseWriter, r *http.Request) {
	freets, err := h.service.FindAllByUsername(r.Context(), queryUserFrom(r.Context()).Username)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view.Freets(freets))
}

// Create はFreetを投稿する。
// POST /api/freets
func (h *FreetHandler) Create(w http.ResponseWriter, r *http.Request) {
	content, _ := middleware.BodyString(r.Context(), "content")

	f, err := h.service.AddOne(r.Context(), currentUserFrom(r.Context()).ID, content)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Freetを投稿しました。",
		"freet":   view.Freet(f),
	})
}

// Update はFreetの本文を更新する。
// PUT /api/freets/{freetId}
func (h *FreetHandler) Update(w http.ResponseWriter, r *http.Request) {
	content, _ := middleware.BodyString(r.Context(), "content")

	f, err := h.service.UpdateOne(r.Context(), freetFrom(r.Context()).ID, content)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Freetを更新しました。",
		"freet":   view.Freet(f),
	})
}

// Delete はFreetを削除する。
// DELETE /api/freets/{freetId}
func (h *FreetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteOne(r.Context(), freetFrom(r.Context()).ID); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Freetを削除しました。",
	})
}
