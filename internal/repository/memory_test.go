package repository

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/nestfeed/internal/model"
)

func newUser(name string) *model.User {
	now := time.Now()
	return &model.User{ID: uuid.NewString(), Username: name, PasswordHash: "hash", DateJoined: now, UpdatedAt: now}
}

// ユーザー名の重複作成がErrDuplicateになることを検証
func TestMemoryUserRepo_CreateDuplicate(t *testing.T) {
	repos := NewMemoryRepositories()
	ctx := context.Background()

	if err := repos.Users.Create(ctx, newUser("alice")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repos.Users.Create(ctx, newUser("alice")); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("Create duplicate = %v, want ErrDuplicate", err)
	}
}

// Updateが他ユーザーと同じユーザー名への変更を拒否し、Versionを増やすことを検証
func TestMemoryUserRepo_Update(t *testing.T) {
	repos := NewMemoryRepositories()
	ctx := context.Background()
	alice, bob := newUser("alice"), newUser("bob")
	_ = repos.Users.Create(ctx, alice)
	_ = repos.Users.Create(ctx, bob)

	bob.Username = "alice"
	if err := repos.Users.Update(ctx, bob); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("Update = %v, want ErrDuplicate", err)
	}

	bob.Username = "robert"
	if err := repos.Users.Update(ctx, bob); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := repos.Users.FindByUsername(ctx, "robert")
	if got == nil || got.Version != 1 {
		t.Fatalf("FindByUsername = %+v, want version 1", got)
	}
}

// 返却値を変更しても保存済みデータに影響しないことを検証
func TestMemoryNestRepo_ReturnsCopies(t *testing.T) {
	repos := NewMemoryRepositories()
	ctx := context.Background()
	n := &model.Nest{ID: uuid.NewString(), Name: "Work", CreatorID: uuid.NewString(), Members: []string{}, Posts: []string{}}
	_ = repos.Nests.Create(ctx, n)

	got, _ := repos.Nests.FindByID(ctx, n.ID)
	got.Members = append(got.Members, "intruder")

	again, _ := repos.Nests.FindByID(ctx, n.ID)
	if len(again.Members) != 0 {
		t.Errorf("stored members = %v, want empty", again.Members)
	}
}

// Nest一覧が名前の昇順で返ることを検証
func TestMemoryNestRepo_FindByCreatorID_SortedByName(t *testing.T) {
	repos := NewMemoryRepositories()
	ctx := context.Background()
	creator := uuid.NewString()
	for _, name := range []string{"Work", "Family", "Hobby"} {
		_ = repos.Nests.Create(ctx, &model.Nest{ID: uuid.NewString(), Name: name, CreatorID: creator})
	}
	_ = repos.Nests.Create(ctx, &model.Nest{ID: uuid.NewString(), Name: "Other", CreatorID: uuid.NewString()})

	nests, err := repos.Nests.FindByCreatorID(ctx, creator)
	if err != nil {
		t.Fatalf("FindByCreatorID: %v", err)
	}
	var names []string
	for _, n := range nests {
		names = append(names, n.Name)
	}
	if !reflect.DeepEqual(names, []string{"Family", "Hobby", "Work"}) {
		t.Errorf("names = %v", names)
	}
}

// PullFriendが全員のリストから対象IDを取り除くことを検証
func TestMemoryFriendRepo_PullFriend(t *testing.T) {
	repos := NewMemoryRepositories()
	ctx := context.Background()
	a, b, c := uuid.NewString(), uuid.NewString(), uuid.NewString()
	_ = repos.Friends.Create(ctx, &model.Friend{ID: uuid.NewString(), UserID: a, Friends: []string{b, c}})
	_ = repos.Friends.Create(ctx, &model.Friend{ID: uuid.NewString(), UserID: b, Friends: []string{a}})

	if err := repos.Friends.PullFriend(ctx, a); err != nil {
		t.Fatalf("PullFriend: %v", err)
	}
	fb, _ := repos.Friends.FindByUserID(ctx, b)
	if len(fb.Friends) != 0 || fb.Version != 1 {
		t.Errorf("b friends = %v (v%d), want empty v1", fb.Friends, fb.Version)
	}
	fa, _ := repos.Friends.FindByUserID(ctx, a)
	if !reflect.DeepEqual(fa.Friends, []string{b, c}) || fa.Version != 0 {
		t.Errorf("a friends = %v (v%d), want unchanged", fa.Friends, fa.Version)
	}
}

// 参照先Nestが無いTimeのみ削除されることを検証
func TestMemoryTimeRepo_DeleteOrphans(t *testing.T) {
	repos := NewMemoryRepositories()
	ctx := context.Background()
	nest := &model.Nest{ID: uuid.NewString(), Name: "Work", CreatorID: uuid.NewString()}
	_ = repos.Nests.Create(ctx, nest)

	keep := &model.Time{ID: uuid.NewString(), GroupID: nest.ID, StartTime: "00:00", EndTime: "23:59"}
	orphan := &model.Time{ID: uuid.NewString(), GroupID: uuid.NewString(), StartTime: "09:00", EndTime: "17:00"}
	_ = repos.Times.Create(ctx, keep)
	_ = repos.Times.Create(ctx, orphan)

	n, err := repos.Times.DeleteOrphans(ctx)
	if err != nil || n != 1 {
		t.Fatalf("DeleteOrphans = (%d, %v), want (1, nil)", n, err)
	}
	if got, _ := repos.Times.FindByID(ctx, orphan.ID); got != nil {
		t.Error("orphan time should be deleted")
	}
	if got, _ := repos.Times.FindByID(ctx, keep.ID); got == nil {
		t.Error("time of existing nest should be kept")
	}

	// 2回目は何も削除しない
	n, _ = repos.Times.DeleteOrphans(ctx)
	if n != 0 {
		t.Errorf("second DeleteOrphans = %d, want 0", n)
	}
}

// 期限切れのセッションが取得できず、DeleteExpiredで削除されることを検証
func TestMemorySessionRepo_Expiry(t *testing.T) {
	repos := NewMemoryRepositories()
	ctx := context.Background()
	now := time.Now()
	live := &model.Session{ID: "live", UserID: "u", ExpiresAt: now.Add(time.Hour), CreatedAt: now}
	expired := &model.Session{ID: "expired", UserID: "u", ExpiresAt: now.Add(-time.Minute), CreatedAt: now}
	_ = repos.Sessions.Create(ctx, live)
	_ = repos.Sessions.Create(ctx, expired)

	if s, _ := repos.Sessions.FindByID(ctx, "expired"); s != nil {
		t.Error("expired session should not be returned")
	}
	n, err := repos.Sessions.DeleteExpired(ctx)
	if err != nil || n != 1 {
		t.Fatalf("DeleteExpired = (%d, %v), want (1, nil)", n, err)
	}
	if s, _ := repos.Sessions.FindByID(ctx, "live"); s == nil {
		t.Error("live session should remain")
	}
}

// Freet一覧が作成日時の降順で返ることを検証
func TestMemoryFreetRepo_FindAll_NewestFirst(t *testing.T) {
	repos := NewMemoryRepositories()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	old := &model.Freet{ID: uuid.NewString(), AuthorID: "a", Content: "old", DateCreated: base}
	mid := &model.Freet{ID: uuid.NewString(), AuthorID: "b", Content: "mid", DateCreated: base.Add(time.Minute)}
	recent := &model.Freet{ID: uuid.NewString(), AuthorID: "a", Content: "new", DateCreated: base.Add(time.Hour)}
	for _, f := range []*model.Freet{old, recent, mid} {
		_ = repos.Freets.Create(ctx, f)
	}

	all, _ := repos.Freets.FindAll(ctx)
	if len(all) != 3 || all[0].ID != recent.ID || all[2].ID != old.ID {
		t.Fatalf("FindAll order unexpected: %v", all)
	}
	byA, _ := repos.Freets.FindByAuthorID(ctx, "a")
	if len(byA) != 2 || byA[0].ID != recent.ID {
		t.Fatalf("FindByAuthorID unexpected: %v", byA)
	}
}

// 存在しないIDの削除が成功扱いになることを検証
func TestMemoryRepos_DeleteMissingSucceeds(t *testing.T) {
	repos := NewMemoryRepositories()
	ctx := context.Background()
	id := uuid.NewString()
	if err := repos.Nests.DeleteByID(ctx, id); err != nil {
		t.Errorf("Nests.DeleteByID: %v", err)
	}
	if err := repos.Times.DeleteByID(ctx, id); err != nil {
		t.Errorf("Times.DeleteByID: %v", err)
	}
	if err := repos.Freets.DeleteByID(ctx, id); err != nil {
		t.Errorf("Freets.DeleteByID: %v", err)
	}
	if err := repos.Users.DeleteByID(ctx, id); err != nil {
		t.Errorf("Users.DeleteByID: %v", err)
	}
}
