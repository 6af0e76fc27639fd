package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hitoshi/nestfeed/internal/model"
)

// MongoUserRepo はMongoDBを使用したユーザーリポジトリ。
type MongoUserRepo struct {
	coll *mongo.Collection
}

// NewMongoUserRepo はMongoUserRepoを生成する。
func NewMongoUserRepo(db *mongo.Database) *MongoUserRepo {
	return &MongoUserRepo{coll: db.Collection(CollectionUsers)}
}

// FindByID は指定IDのユーザーを取得する。
func (r *MongoUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if !validID(id) {
		return nil, nil
	}
	return mongoFindOne[model.User](ctx, r.coll, bson.M{"_id": id})
}

// FindByIDs は指定IDのユーザーをまとめて取得する。
func (r *MongoUserRepo) FindByIDs(ctx context.Context, ids []string) ([]*model.User, error) {
	ids = validIDs(ids)
	if len(ids) == 0 {
		return []*model.User{}, nil
	}
	return mongoFind[model.User](ctx, r.coll, bson.M{"_id": bson.M{"$in": ids}}, nil)
}

// FindByUsername はユーザー名でユーザーを取得する。
func (r *MongoUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return mongoFindOne[model.User](ctx, r.coll, bson.M{"username": username})
}

// Create はユーザーを作成する。
func (r *MongoUserRepo) Create(ctx context.Context, user *model.User) error {
	return mongoInsert(ctx, r.coll, user)
}

// Update はユーザー名とパスワードハッシュを更新する。
func (r *MongoUserRepo) Update(ctx context.Context, user *model.User) error {
	if err := mongoSet(ctx, r.coll, user.ID, bson.M{
		"username":     user.Username,
		"passwordHash": user.PasswordHash,
		"updatedAt":    user.UpdatedAt,
	}); err != nil {
		return err
	}
	user.Version++
	return nil
}

// DeleteByID は指定IDのユーザーを削除する。
func (r *MongoUserRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := mongoDeleteMany(ctx, r.coll, bson.M{"_id": id})
	return err
}

// MongoSessionRepo はMongoDBを使用したセッションリポジトリ。
type MongoSessionRepo struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewMongoSessionRepo はMongoSessionRepoを生成する。
func NewMongoSessionRepo(db *mongo.Database) *MongoSessionRepo {
	return &MongoSessionRepo{coll: db.Collection(CollectionSessions), now: time.Now}
}

// Create はセッションを作成する。
func (r *MongoSessionRepo) Create(ctx context.Context, session *model.Session) error {
	return mongoInsert(ctx, r.coll, session)
}

// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
func (r *MongoSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return mongoFindOne[model.Session](ctx, r.coll, bson.M{
		"_id":       id,
		"expiresAt": bson.M{"$gt": r.now()},
	})
}

// DeleteByID は指定IDのセッションを削除する。
func (r *MongoSessionRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := mongoDeleteMany(ctx, r.coll, bson.M{"_id": id})
	return err
}

// DeleteByUserID は指定ユーザーの全セッションを削除する。
func (r *MongoSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := mongoDeleteMany(ctx, r.coll, bson.M{"userId": userID})
	return err
}

// DeleteExpired は期限切れのセッションを削除する。
func (r *MongoSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	return mongoDeleteMany(ctx, r.coll, bson.M{"expiresAt": bson.M{"$lte": r.now()}})
}

// compile-time interface check
var (
	_ UserRepository    = (*MongoUserRepo)(nil)
	_ SessionRepository = (*MongoSessionRepo)(nil)
)
