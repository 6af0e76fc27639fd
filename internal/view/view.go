// Package view は永続化モデルをクライアント向けのレスポンス形式に整形する。
//
// 整形は参照解決済み（Populated）の型だけを受け取る。
// 内部のバージョン情報は出力せず、参照は表示名（ユーザー名、Nest名）に置き換える。
// 参照先が存在しない場合は空文字列になる。
package view

import (
	"time"

	"github.com/hitoshi/nestfeed/internal/model"
)

// UserView はユーザーのレスポンス形式。
type UserView struct {
	ID         string `json:"_id"`
	Username   string `json:"username"`
	DateJoined string `json:"dateJoined"`
}

// FriendView はフレンドリストのレスポンス形式。friendsはユーザーIDのまま返す。
type FriendView struct {
	ID      string   `json:"_id"`
	User    string   `json:"user"`
	Friends []string `json:"friends"`
}

// NestView はNestのレスポンス形式。creatorIdは作成者のユーザー名。
type NestView struct {
	ID        string   `json:"_id"`
	Name      string   `json:"name"`
	CreatorID string   `json:"creatorId"`
	Members   []string `json:"members"`
	Posts     []string `json:"posts"`
}

// TimeView はTimeのレスポンス形式。groupIdはNest名で、Nestが削除済みなら空文字列。
type TimeView struct {
	ID        string `json:"_id"`
	CreatorID string `json:"creatorId"`
	GroupID   string `json:"groupId"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// FreetView はFreetのレスポンス形式。
type FreetView struct {
	ID           string `json:"_id"`
	Author       string `json:"author"`
	DateCreated  string `json:"dateCreated"`
	DateModified string `json:"dateModified"`
	Content      string `json:"content"`
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func usernameOf(u *model.User) string {
	if u == nil {
		return ""
	}
	return u.Username
}

func ids(list []string) []string {
	return append([]string{}, list...)
}

// User はユーザーを整形する。
func User(u *model.User) UserView {
	return UserView{
		ID:         u.ID,
		Username:   u.Username,
		DateJoined: formatDate(u.DateJoined),
	}
}

// Users はユーザーの一覧を整形する。nilは空配列になる。
func Users(list []*model.User) []UserView {
	out := make([]UserView, 0, len(list))
	for _, u := range list {
		out = append(out, User(u))
	}
	return out
}

// Friend はフレンドリストを整形する。
func Friend(f *model.PopulatedFriend) FriendView {
	return FriendView{
		ID:      f.ID,
		User:    usernameOf(f.User),
		Friends: ids(f.Friends),
	}
}

// Friends はフレンドリストの一覧を整形する。
func Friends(list []*model.PopulatedFriend) []FriendView {
	out := make([]FriendView, 0, len(list))
	for _, f := range list {
		out = append(out, Friend(f))
	}
	return out
}

// Nest はNestを整形する。
func Nest(n *model.PopulatedNest) NestView {
	return NestView{
		ID:        n.ID,
		Name:      n.Name,
		CreatorID: usernameOf(n.Creator),
		Members:   ids(n.Members),
		Posts:     ids(n.Posts),
	}
}

// Nests はNestの一覧を整形する。
func Nests(list []*model.PopulatedNest) []NestView {
	out := make([]NestView, 0, len(list))
	for _, n := range list {
		out = append(out, Nest(n))
	}
	return out
}

// Time はTimeを整形する。
func Time(t *model.PopulatedTime) TimeView {
	group := ""
	if t.Group != nil {
		group = t.Group.Name
	}
	return TimeView{
		ID:        t.ID,
		CreatorID: usernameOf(t.Creator),
		GroupID:   group,
		StartTime: t.StartTime,
		EndTime:   t.EndTime,
	}
}

// Times はTimeの一覧を整形する。
func Times(list []*model.PopulatedTime) []TimeView {
	out := make([]TimeView, 0, len(list))
	for _, t := range list {
		out = append(out, Time(t))
	}
	return out
}

// Freet はFreetを整形する。
func Freet(f *model.PopulatedFreet) FreetView {
	return FreetView{
		ID:           f.ID,
		Author:       usernameOf(f.Author),
		DateCreated:  formatDate(f.DateCreated),
		DateModified: formatDate(f.DateModified),
		Content:      f.Content,
	}
}

// Freets はFreetの一覧を整形する。
func Freets(list []*model.PopulatedFreet) []FreetView {
	out := make([]FreetView, 0, len(list))
	for _, f := range list {
		out = append(out, Freet(f))
	}
	return out
}
