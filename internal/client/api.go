package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/hitoshi/nestfeed/internal/view"
)

// 操作名
const (
	OpAdd    = "add"
	OpRemove = "remove"
)

type userEnvelope struct {
	User *view.UserView `json:"user"`
}

func param(key, value string) url.Values {
	if value == "" {
		return nil
	}
	return url.Values{key: {value}}
}

// --- ユーザーとセッション ---

// Register はアカウントを作成し、ログイン状態にする。
func (c *Client) Register(ctx context.Context, username, password string) (*view.UserView, error) {
	var out userEnvelope
	in := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/users", nil, in, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// Login はセッションを開始する。
func (c *Client) Login(ctx context.Context, username, password string) (*view.UserView, error) {
	var out userEnvelope
	in := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/users/session", nil, in, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// Logout はセッションを終了する。
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/users/session", nil, nil, nil)
}

// Session は現在のログインユーザーを返す。未ログインの場合はnil。
func (c *Client) Session(ctx context.Context) (*view.UserView, error) {
	var out userEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/users/session", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// UpdateUser はユーザー名とパスワードを更新する。nilのフィールドは送らない。
func (c *Client) UpdateUser(ctx context.Context, username, password *string) (*view.UserView, error) {
	in := map[string]string{}
	if username != nil {
		in["username"] = *username
	}
	if password != nil {
		in["password"] = *password
	}
	var out userEnvelope
	if err := c.do(ctx, http.MethodPut, "/api/users", nil, in, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// DeleteUser は退会する。
func (c *Client) DeleteUser(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/users", nil, nil, nil)
}

// --- Freet ---

// Freets はFreet一覧を返す。authorが空でなければその投稿者に絞り込む。
func (c *Client) Freets(ctx context.Context, author string) ([]view.FreetView, error) {
	var out []view.FreetView
	err := c.do(ctx, http.MethodGet, "/api/freets", param("author", author), nil, &out)
	return out, err
}

// PostFreet はFreetを投稿する。
func (c *Client) PostFreet(ctx context.Context, content string) (*view.FreetView, error) {
	var out struct {
		Freet view.FreetView `json:"freet"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/freets", nil, map[string]string{"content": content}, &out); err != nil {
		return nil, err
	}
	return &out.Freet, nil
}

// EditFreet はFreetの本文を更新する。
func (c *Client) EditFreet(ctx context.Context, id, content string) (*view.FreetView, error) {
	var out struct {
		Freet view.FreetView `json:"freet"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/freets/"+url.PathEscape(id), nil, map[string]string{"content": content}, &out); err != nil {
		return nil, err
	}
	return &out.Freet, nil
}

// DeleteFreet はFreetを削除する。
func (c *Client) DeleteFreet(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/freets/"+url.PathEscape(id), nil, nil, nil)
}

// --- Nest ---

type nestEnvelope struct {
	Nest view.NestView `json:"nest"`
}

// Nests はNest一覧を返す。creatorを指定した場合は自分のNestのみ取得できる。
func (c *Client) Nests(ctx context.Context, creator string) ([]view.NestView, error) {
	var out []view.NestView
	err := c.do(ctx, http.MethodGet, "/api/nests", param("creator", creator), nil, &out)
	return out, err
}

// CreateNest はNestを作成する。サーバーは同時に終日のTimeを作成する。
func (c *Client) CreateNest(ctx context.Context, name string) (*view.NestView, error) {
	var out nestEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/nests", nil, map[string]string{"name": name}, &out); err != nil {
		return nil, err
	}
	return &out.Nest, nil
}

// DeleteNest はNestと紐づくTimeを削除する。
func (c *Client) DeleteNest(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/nests/"+url.PathEscape(id), nil, nil, nil)
}

// NestMembers はNestのメンバーを返す。
func (c *Client) NestMembers(ctx context.Context, nestID string) ([]view.UserView, error) {
	var out []view.UserView
	err := c.do(ctx, http.MethodGet, "/api/nests/"+url.PathEscape(nestID)+"/members", nil, nil, &out)
	return out, err
}

// NestPosts はNestに投稿されたFreetを返す。
func (c *Client) NestPosts(ctx context.Context, nestID string) ([]view.FreetView, error) {
	var out []view.FreetView
	err := c.do(ctx, http.MethodGet, "/api/nests/"+url.PathEscape(nestID)+"/posts", nil, nil, &out)
	return out, err
}

// UpdateNestMembers はメンバーを追加・削除する。memberはユーザー名。
func (c *Client) UpdateNestMembers(ctx context.Context, nestID, member, operation string) (*view.NestView, error) {
	var out nestEnvelope
	in := map[string]string{"memberId": member, "operation": operation}
	if err := c.do(ctx, http.MethodPut, "/api/nests/"+url.PathEscape(nestID)+"/members", nil, in, &out); err != nil {
		return nil, err
	}
	return &out.Nest, nil
}

// UpdateNestPosts はNestへのFreetの投稿を追加・削除する。
func (c *Client) UpdateNestPosts(ctx context.Context, nestID, freetID, operation string) (*view.NestView, error) {
	var out nestEnvelope
	in := map[string]string{"freetId": freetID, "operation": operation}
	if err := c.do(ctx, http.MethodPut, "/api/nests/"+url.PathEscape(nestID)+"/posts", nil, in, &out); err != nil {
		return nil, err
	}
	return &out.Nest, nil
}

// --- Time ---

type timeEnvelope struct {
	Time view.TimeView `json:"time"`
}

// Times はcreatorのTime一覧を返す。creatorが空の場合は全件。
func (c *Client) Times(ctx context.Context, creator string) ([]view.TimeView, error) {
	var out []view.TimeView
	err := c.do(ctx, http.MethodGet, "/api/times", param("creator", creator), nil, &out)
	return out, err
}

// GroupTimes はNestに紐づくTime一覧を返す。
func (c *Client) GroupTimes(ctx context.Context, nestID string) ([]view.TimeView, error) {
	var out []view.TimeView
	err := c.do(ctx, http.MethodGet, "/api/times", param("group", nestID), nil, &out)
	return out, err
}

// CreateTime はNestにTimeを追加する。start/endは"HH:MM"。
func (c *Client) CreateTime(ctx context.Context, nestID, start, end string) (*view.TimeView, error) {
	var out timeEnvelope
	in := map[string]string{"groupId": nestID, "startTime": start, "endTime": end}
	if err := c.do(ctx, http.MethodPost, "/api/times", nil, in, &out); err != nil {
		return nil, err
	}
	return &out.Time, nil
}

// SetStartTime はTimeの開始時刻を更新する。
func (c *Client) SetStartTime(ctx context.Context, id, value string) (*view.TimeView, error) {
	return c.setClock(ctx, id, "startTime", value)
}

// SetEndTime はTimeの終了時刻を更新する。
func (c *Client) SetEndTime(ctx context.Context, id, value string) (*view.TimeView, error) {
	return c.setClock(ctx, id, "endTime", value)
}

func (c *Client) setClock(ctx context.Context, id, field, value string) (*view.TimeView, error) {
	var out timeEnvelope
	if err := c.do(ctx, http.MethodPut, "/api/times/"+url.PathEscape(id)+"/"+field, nil, map[string]string{field: value}, &out); err != nil {
		return nil, err
	}
	return &out.Time, nil
}

// DeleteTime はTimeを削除する。
func (c *Client) DeleteTime(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/times/"+url.PathEscape(id), nil, nil, nil)
}

// --- フレンド ---

// AllFriends は全ユーザーのフレンドリストを返す。
func (c *Client) AllFriends(ctx context.Context) ([]view.FriendView, error) {
	var out []view.FriendView
	err := c.do(ctx, http.MethodGet, "/api/friends", nil, nil, &out)
	return out, err
}

// FriendsOf はusernameのフレンドを返す。
func (c *Client) FriendsOf(ctx context.Context, username string) ([]view.UserView, error) {
	var out []view.UserView
	err := c.do(ctx, http.MethodGet, "/api/friends", param("user", username), nil, &out)
	return out, err
}

// Mutual は自分とusernameの共通のフレンドを返す。
func (c *Client) Mutual(ctx context.Context, username string) ([]view.UserView, error) {
	var out []view.UserView
	err := c.do(ctx, http.MethodGet, "/api/friends/mutual", param("user", username), nil, &out)
	return out, err
}

// Suggested はusernameのフレンドのうち自分のフレンドでないユーザーを返す。
func (c *Client) Suggested(ctx context.Context, username string) ([]view.UserView, error) {
	var out []view.UserView
	err := c.do(ctx, http.MethodGet, "/api/friends/suggested", param("user", username), nil, &out)
	return out, err
}

// AddFriend はrecipientとフレンドになる。
func (c *Client) AddFriend(ctx context.Context, recipient string) (*view.FriendView, error) {
	return c.updateFriend(ctx, http.MethodPost, recipient)
}

// RemoveFriend はrecipientとのフレンド関係を解除する。
func (c *Client) RemoveFriend(ctx context.Context, recipient string) (*view.FriendView, error) {
	return c.updateFriend(ctx, http.MethodDelete, recipient)
}

func (c *Client) updateFriend(ctx context.Context, method, recipient string) (*view.FriendView, error) {
	var out struct {
		Friend view.FriendView `json:"friend"`
	}
	if err := c.do(ctx, method, "/api/friends", nil, map[string]string{"recipient": recipient}, &out); err != nil {
		return nil, err
	}
	return &out.Friend, nil
}
