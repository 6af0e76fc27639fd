package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/nestfeed/internal/database"
	"github.com/hitoshi/nestfeed/internal/model"
)

// Mongo実装が各インターフェースを満たすことを検証
func TestMongoRepos_ImplementInterfaces(t *testing.T) {
	var _ UserRepository = (*MongoUserRepo)(nil)
	var _ SessionRepository = (*MongoSessionRepo)(nil)
	var _ FriendRepository = (*MongoFriendRepo)(nil)
	var _ NestRepository = (*MongoNestRepo)(nil)
	var _ TimeRepository = (*MongoTimeRepo)(nil)
	var _ FreetRepository = (*MongoFreetRepo)(nil)
}

// 実MongoDBでユーザー重複・Nest一覧・孤立Time削除が動作することを検証
func TestMongoRepos_Integration(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI が未設定のためスキップ")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, db, err := database.OpenMongo(ctx, uri, "nestfeed_test_"+uuid.NewString()[:8])
	if err != nil {
		t.Skipf("テスト用MongoDBに接続できません（スキップ）: %v", err)
	}
	defer func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	}()

	repos := NewMongoRepositories(db)
	now := time.Now().UTC().Truncate(time.Millisecond)

	alice := &model.User{ID: uuid.NewString(), Username: "alice", PasswordHash: "h", DateJoined: now, UpdatedAt: now}
	if err := repos.Users.Create(ctx, alice); err != nil {
		t.Fatalf("Create: %v", err)
	}
	dup := &model.User{ID: uuid.NewString(), Username: "alice", PasswordHash: "h", DateJoined: now, UpdatedAt: now}
	if err := repos.Users.Create(ctx, dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("Create duplicate = %v, want ErrDuplicate", err)
	}

	for _, name := range []string{"Work", "Home"} {
		n := &model.Nest{ID: uuid.NewString(), Name: name, CreatorID: alice.ID, CreatedAt: now}
		if err := repos.Nests.Create(ctx, n); err != nil {
			t.Fatalf("Create nest: %v", err)
		}
	}
	nests, err := repos.Nests.FindByCreatorID(ctx, alice.ID)
	if err != nil || len(nests) != 2 || nests[0].Name != "Home" {
		t.Fatalf("FindByCreatorID = (%v, %v)", nests, err)
	}
	if nests[0].Members == nil {
		t.Error("Members should be an empty slice, not nil")
	}

	keep := &model.Time{ID: uuid.NewString(), CreatorID: alice.ID, GroupID: nests[0].ID, StartTime: "00:00", EndTime: "23:59"}
	orphan := &model.Time{ID: uuid.NewString(), CreatorID: alice.ID, GroupID: uuid.NewString(), StartTime: "00:00", EndTime: "23:59"}
	for _, tm := range []*model.Time{keep, orphan} {
		if err := repos.Times.Create(ctx, tm); err != nil {
			t.Fatalf("Create time: %v", err)
		}
	}
	deleted, err := repos.Times.DeleteOrphans(ctx)
	if err != nil || deleted != 1 {
		t.Fatalf("DeleteOrphans = (%d, %v), want (1, nil)", deleted, err)
	}
	got, err := repos.Times.FindByID(ctx, keep.ID)
	if err != nil || got == nil {
		t.Fatalf("FindByID = (%v, %v), want kept time", got, err)
	}
}
