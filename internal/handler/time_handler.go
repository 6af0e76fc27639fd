package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/nestfeed/internal/middleware"
	"github.com/hitoshi/nestfeed/internal/model"
	"github.com/hitoshi/nestfeed/internal/view"
)

// TimeServiceInterface はTimeハンドラーが必要とするサービスインターフェース。
type TimeServiceInterface interface {
	AddOne(ctx context.Context, creatorID, groupID, start, end string) (*model.PopulatedTime, error)
	FindOne(ctx context.Context, id string) (*model.PopulatedTime, error)
	FindAll(ctx context.Context) ([]*model.PopulatedTime, error)
	FindAllByUsername(ctx context.Context, username string) ([]*model.PopulatedTime, error)
	FindAllByGroup(ctx context.Context, groupID string) ([]*model.PopulatedTime, error)
	UpdateOne(ctx context.Context, id string, start, end *string) (*model.PopulatedTime, error)
	DeleteOne(ctx context.Context, id string) error
}

// TimeHandler はTime（Nestの表示時間帯）のHTTPハンドラー。
type TimeHandler struct {
	service TimeServiceInterface
}

// NewTimeHandler はTimeHandlerを生成する。
func NewTimeHandler(service TimeServiceInterface) *TimeHandler {
	return &TimeHandler{service: service}
}

// List は全Timeを返す。
// GET /api/times
func (h *TimeHandler) List(w http.ResponseWriter, r *http.Request) {
	h.respondList(w, r, h.service.FindAll)
}

// ListByCreator は作成者のTimeを返す。
// GET /api/times?creator=username
func (h *TimeHandler) ListByCreator(w http.ResponseWriter, r *http.Request) {
	h.respondList(w, r, func(ctx context.Context) ([]*model.PopulatedTime, error) {
		return h.service.FindAllByUsername(ctx, queryUserFrom(ctx).Username)
	})
}

// ListByGroup はNestに紐づくTimeを返す。
// GET /api/times?group=nestId
func (h *TimeHandler) ListByGroup(w http.ResponseWriter, r *http.Request) {
	h.respondList(w, r, func(ctx context.Context) ([]*model.PopulatedTime, error) {
		return h.service.FindAllByGroup(ctx, groupFrom(ctx).ID)
	})
}

func (h *TimeHandler) respondList(w http.ResponseWriter, r *http.Request, find func(context.Context) ([]*model.PopulatedTime, error)) {
	list, err := find(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view.Times(list))
}

// Create はNestにTimeを追加する。
// POST /api/times
func (h *TimeHandler) Create(w http.ResponseWriter, r *http.Request) {
	start, _ := middleware.BodyString(r.Context(), "startTime")
	end, _ := middleware.BodyString(r.Context(), "endTime")

	t, err := h.service.AddOne(r.Context(), currentUserFrom(r.Context()).ID, groupFrom(r.Context()).ID, start, end)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Timeを作成しました。",
		"time":    view.Time(t),
	})
}

// Delete はTimeを削除する。
// DELETE /api/times/{timeId}
func (h *TimeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteOne(r.Context(), timeFrom(r.Context()).ID); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Timeを削除しました。",
	})
}

// UpdateStart は開始時刻を更新する。
// PUT /api/times/{timeId}/startTime
func (h *TimeHandler) UpdateStart(w http.ResponseWriter, r *http.Request) {
	start, _ := middleware.BodyString(r.Context(), "startTime")
	h.update(w, r, &start, nil)
}

// UpdateEnd は終了時刻を更新する。
// PUT /api/times/{timeId}/endTime
func (h *TimeHandler) UpdateEnd(w http.ResponseWriter, r *http.Request) {
	end, _ := middleware.BodyString(r.Context(), "endTime")
	h.update(w, r, nil, &end)
}

func (h *TimeHandler) update(w http.ResponseWriter, r *http.Request, start, end *string) {
	t, err := h.service.UpdateOne(r.Context(), timeFrom(r.Context()).ID, start, end)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Timeを更新しました。",
		"time":    view.Time(t),
	})
}
