package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hitoshi/nestfeed/internal/model"
)

// MongoFriendRepo はMongoDBを使用したフレンドリストリポジトリ。
type MongoFriendRepo struct {
	coll *mongo.Collection
}

// NewMongoFriendRepo はMongoFriendRepoを生成する。
func NewMongoFriendRepo(db *mongo.Database) *MongoFriendRepo {
	return &MongoFriendRepo{coll: db.Collection(CollectionFriends)}
}

// FindByUserID はユーザーのフレンドリストを取得する。
func (r *MongoFriendRepo) FindByUserID(ctx context.Context, userID string) (*model.Friend, error) {
	if !validID(userID) {
		return nil, nil
	}
	f, err := mongoFindOne[model.Friend](ctx, r.coll, bson.M{"user": userID})
	if f != nil {
		f.Friends = nonNil(f.Friends)
	}
	return f, err
}

// FindAll は全ユーザーのフレンドリストを取得する。
func (r *MongoFriendRepo) FindAll(ctx context.Context) ([]*model.Friend, error) {
	friends, err := mongoFind[model.Friend](ctx, r.coll, bson.M{}, bson.D{{Key: "_id", Value: 1}})
	for _, f := range friends {
		f.Friends = nonNil(f.Friends)
	}
	return friends, err
}

// Create はフレンドリストを作成する。
func (r *MongoFriendRepo) Create(ctx context.Context, f *model.Friend) error {
	f.Friends = nonNil(f.Friends)
	return mongoInsert(ctx, r.coll, f)
}

// Update はフレンドリストを上書き更新する。
func (r *MongoFriendRepo) Update(ctx context.Context, f *model.Friend) error {
	if err := mongoSet(ctx, r.coll, f.ID, bson.M{"friends": nonNil(f.Friends)}); err != nil {
		return err
	}
	f.Version++
	return nil
}

// DeleteByUserID はユーザーのフレンドリストを削除する。
func (r *MongoFriendRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := mongoDeleteMany(ctx, r.coll, bson.M{"user": userID})
	return err
}

// PullFriend は全ユーザーのフレンドリストからfriendIDを取り除く。
func (r *MongoFriendRepo) PullFriend(ctx context.Context, friendID string) error {
	_, err := r.coll.UpdateMany(ctx,
		bson.M{"friends": friendID},
		bson.M{"$pull": bson.M{"friends": friendID}, "$inc": bson.M{"__v": 1}},
	)
	if err != nil {
		return fmt.Errorf("failed to pull friend: %w", err)
	}
	return nil
}

// compile-time interface check
var _ FriendRepository = (*MongoFriendRepo)(nil)
