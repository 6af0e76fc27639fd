package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hitoshi/nestfeed/internal/model"
)

var freetSort = bson.D{{Key: "dateCreated", Value: -1}, {Key: "_id", Value: 1}}

// MongoFreetRepo はMongoDBを使用したFreetリポジトリ。
type MongoFreetRepo struct {
	coll *mongo.Collection
}

// NewMongoFreetRepo はMongoFreetRepoを生成する。
func NewMongoFreetRepo(db *mongo.Database) *MongoFreetRepo {
	return &MongoFreetRepo{coll: db.Collection(CollectionFreets)}
}

// FindByID は指定IDのFreetを取得する。
func (r *MongoFreetRepo) FindByID(ctx context.Context, id string) (*model.Freet, error) {
	if !validID(id) {
		return nil, nil
	}
	return mongoFindOne[model.Freet](ctx, r.coll, bson.M{"_id": id})
}

// FindByIDs は指定IDのFreetをまとめて取得する。
func (r *MongoFreetRepo) FindByIDs(ctx context.Context, ids []string) ([]*model.Freet, error) {
	ids = validIDs(ids)
	if len(ids) == 0 {
		return []*model.Freet{}, nil
	}
	return mongoFind[model.Freet](ctx, r.coll, bson.M{"_id": bson.M{"$in": ids}}, freetSort)
}

// FindAll は全Freetを作成日時の降順で取得する。
func (r *MongoFreetRepo) FindAll(ctx context.Context) ([]*model.Freet, error) {
	return mongoFind[model.Freet](ctx, r.coll, bson.M{}, freetSort)
}

// FindByAuthorID は投稿者のFreetを作成日時の降順で取得する。
func (r *MongoFreetRepo) FindByAuthorID(ctx context.Context, authorID string) ([]*model.Freet, error) {
	return mongoFind[model.Freet](ctx, r.coll, bson.M{"authorId": authorID}, freetSort)
}

// Create はFreetを作成する。
func (r *MongoFreetRepo) Create(ctx context.Context, f *model.Freet) error {
	return mongoInsert(ctx, r.coll, f)
}

// Update はFreetの本文と更新日時を更新する。
func (r *MongoFreetRepo) Update(ctx context.Context, f *model.Freet) error {
	if err := mongoSet(ctx, r.coll, f.ID, bson.M{
		"content":      f.Content,
		"dateModified": f.DateModified,
	}); err != nil {
		return err
	}
	f.Version++
	return nil
}

// DeleteByID は指定IDのFreetを削除する。
func (r *MongoFreetRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := mongoDeleteMany(ctx, r.coll, bson.M{"_id": id})
	return err
}

// DeleteByAuthorID は投稿者の全Freetを削除する。
func (r *MongoFreetRepo) DeleteByAuthorID(ctx context.Context, authorID string) error {
	_, err := mongoDeleteMany(ctx, r.coll, bson.M{"authorId": authorID})
	return err
}

// compile-time interface check
var _ FreetRepository = (*MongoFreetRepo)(nil)
