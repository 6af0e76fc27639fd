package view

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/nestfeed/internal/model"
)

var joined = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func alice() *model.User {
	return &model.User{ID: "u-1", Username: "alice", PasswordHash: "secret", Version: 3, DateJoined: joined}
}

// TestUser_OmitsInternalFields はパスワードハッシュとバージョンが出力されないことを検証する。
func TestUser_OmitsInternalFields(t *testing.T) {
	b, err := json.Marshal(User(alice()))
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	s := string(b)
	for _, forbidden := range []string{"secret", "passwordHash", "__v", "Version"} {
		if strings.Contains(s, forbidden) {
			t.Errorf("json %s should not contain %q", s, forbidden)
		}
	}
	if !strings.Contains(s, `"dateJoined":"2026-01-02T03:04:05Z"`) {
		t.Errorf("json %s should contain RFC3339 dateJoined", s)
	}
}

// TestNest_ReplacesCreatorWithUsername はcreatorIdが作成者のユーザー名になることを検証する。
func TestNest_ReplacesCreatorWithUsername(t *testing.T) {
	n := &model.PopulatedNest{
		Nest:    model.Nest{ID: "n-1", Name: "Work", CreatorID: "u-1", Members: []string{"u-2"}, Posts: nil, Version: 7},
		Creator: alice(),
	}

	got := Nest(n)

	if got.CreatorID != "alice" {
		t.Errorf("creatorId = %q, want alice", got.CreatorID)
	}
	if got.Posts == nil || len(got.Posts) != 0 {
		t.Errorf("posts = %v, want empty non-nil", got.Posts)
	}
	if len(got.Members) != 1 || got.Members[0] != "u-2" {
		t.Errorf("members = %v, want [u-2]", got.Members)
	}
}

// TestNest_DoesNotAliasStoredSlices は整形結果の変更が元のモデルに影響しないことを検証する。
func TestNest_DoesNotAliasStoredSlices(t *testing.T) {
	n := &model.PopulatedNest{Nest: model.Nest{Members: []string{"u-2"}}, Creator: alice()}

	got := Nest(n)
	got.Members[0] = "changed"

	if n.Members[0] != "u-2" {
		t.Errorf("stored members mutated: %v", n.Members)
	}
}

// TestTime_NilGroupBecomesEmptyString は削除済みNestのgroupIdが空文字列になることを検証する。
func TestTime_NilGroupBecomesEmptyString(t *testing.T) {
	tm := &model.PopulatedTime{
		Time:    model.Time{ID: "t-1", StartTime: "09:00", EndTime: "17:00"},
		Creator: alice(),
	}

	got := Time(tm)

	if got.GroupID != "" || got.CreatorID != "alice" {
		t.Errorf("time view = %+v, want empty group and alice", got)
	}

	tm.Group = &model.Nest{Name: "Work"}
	if got := Time(tm); got.GroupID != "Work" {
		t.Errorf("groupId = %q, want Work", got.GroupID)
	}
}

// TestFriend_NilUserBecomesEmptyString は参照先ユーザーがない場合に空文字列になることを検証する。
func TestFriend_NilUserBecomesEmptyString(t *testing.T) {
	got := Friend(&model.PopulatedFriend{Friend: model.Friend{ID: "f-1", Friends: []string{"u-2"}}})

	if got.User != "" {
		t.Errorf("user = %q, want empty", got.User)
	}
}

// TestFreet_FormatsDates はFreetの日時がRFC3339で出力されることを検証する。
func TestFreet_FormatsDates(t *testing.T) {
	f := &model.PopulatedFreet{
		Freet:  model.Freet{ID: "fr-1", Content: "hi", DateCreated: joined, DateModified: joined.Add(time.Hour)},
		Author: alice(),
	}

	got := Freet(f)

	if got.Author != "alice" || got.DateModified != "2026-01-02T04:04:05Z" {
		t.Errorf("freet view = %+v", got)
	}
}

// TestLists_NilBecomesEmptyArray は一覧の整形がnilでも空配列を返すことを検証する。
func TestLists_NilBecomesEmptyArray(t *testing.T) {
	b, _ := json.Marshal(Times(nil))
	if string(b) != "[]" {
		t.Errorf("Times(nil) = %s, want []", b)
	}
	b, _ = json.Marshal(Users(nil))
	if string(b) != "[]" {
		t.Errorf("Users(nil) = %s, want []", b)
	}
}
