package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/nestfeed/internal/model"
	"github.com/hitoshi/nestfeed/internal/view"
)

// FriendServiceInterface はフレンドハンドラーが必要とするサービスインターフェース。
type FriendServiceInterface interface {
	FindAll(ctx context.Context) ([]*model.PopulatedFriend, error)
	FriendsOf(ctx context.Context, username string) ([]*model.User, error)
	FindMutualFriends(ctx context.Context, userID, username string) ([]*model.User, error)
	FindSuggestedFriends(ctx context.Context, userID, username string) ([]*model.User, error)
	AreFriends(ctx context.Context, userID, username string) (bool, error)
	UpdateOne(ctx context.Context, requesterID, recipientUsername string, op model.Operation) (*model.PopulatedFriend, error)
}

// FriendHandler はフレンド関係のHTTPハンドラー。
type FriendHandler struct {
	service FriendServiceInterface
}

// NewFriendHandler はFriendHandlerを生成する。
func NewFriendHandler(service FriendServiceInterface) *FriendHandler {
	return &FriendHandler{service: service}
}

// List は全ユーザーのフレンドリストを返す。
// GET /api/friends
func (h *FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	friends, err := h.service.FindAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view.Friends(friends))
}

// ListByUser は指定ユーザーのフレンドを返す。
// GET /api/friends?user=username
func (h *FriendHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.FriendsOf(r.Context(), queryUserFrom(r.Context()).Username)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view.Users(users))
}

// Mutual はログイン中のユーザーと指定ユーザーの共通のフレンドを返す。
// GET /api/friends/mutual?user=username
func (h *FriendHandler) Mutual(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.FindMutualFriends(r.Context(), currentUserFrom(r.Context()).ID, queryUserFrom(r.Context()).Username)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view.Users(users))
}

// Suggested は指定ユーザーのフレンドのうち、ログイン中のユーザーがまだフレンドでない人を返す。
// GET /api/friends/suggested?user=username
func (h *FriendHandler) Suggested(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.FindSuggestedFriends(r.Context(), currentUserFrom(r.Context()).ID, queryUserFrom(r.Context()).Username)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view.Users(users))
}

// Add はrecipientとフレンドになる。
// POST /api/friends
func (h *FriendHandler) Add(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, model.OperationAdd, "フレンドになりました。")
}

// Remove はrecipientとのフレンド関係を解消する。
// DELETE /api/friends
func (h *FriendHandler) Remove(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, model.OperationRemove, "フレンドを解除しました。")
}

func (h *FriendHandler) update(w http.ResponseWriter, r *http.Request, op model.Operation, message string) {
	friend, err := h.service.UpdateOne(r.Context(), currentUserFrom(r.Context()).ID, recipientFrom(r.Context()).Username, op)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": message,
		"friend":  view.Friend(friend),
	})
}
