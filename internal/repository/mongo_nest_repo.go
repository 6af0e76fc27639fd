package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hitoshi/nestfeed/internal/model"
)

var nestSort = bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}

// MongoNestRepo はMongoDBを使用したNestリポジトリ。
type MongoNestRepo struct {
	coll *mongo.Collection
}

// NewMongoNestRepo はMongoNestRepoを生成する。
func NewMongoNestRepo(db *mongo.Database) *MongoNestRepo {
	return &MongoNestRepo{coll: db.Collection(CollectionNests)}
}

func normalizeNest(n *model.Nest) {
	n.Members = nonNil(n.Members)
	n.Posts = nonNil(n.Posts)
}

// FindByID は指定IDのNestを取得する。
func (r *MongoNestRepo) FindByID(ctx context.Context, id string) (*model.Nest, error) {
	if !validID(id) {
		return nil, nil
	}
	n, err := mongoFindOne[model.Nest](ctx, r.coll, bson.M{"_id": id})
	if n != nil {
		normalizeNest(n)
	}
	return n, err
}

// FindAll は全Nestを名前の昇順で取得する。
func (r *MongoNestRepo) FindAll(ctx context.Context) ([]*model.Nest, error) {
	nests, err := mongoFind[model.Nest](ctx, r.coll, bson.M{}, nestSort)
	for _, n := range nests {
		normalizeNest(n)
	}
	return nests, err
}

// FindByCreatorID は作成者のNestを名前の昇順で取得する。
func (r *MongoNestRepo) FindByCreatorID(ctx context.Context, creatorID string) ([]*model.Nest, error) {
	nests, err := mongoFind[model.Nest](ctx, r.coll, bson.M{"creatorId": creatorID}, nestSort)
	for _, n := range nests {
		normalizeNest(n)
	}
	return nests, err
}

// Create はNestを作成する。
func (r *MongoNestRepo) Create(ctx context.Context, n *model.Nest) error {
	normalizeNest(n)
	return mongoInsert(ctx, r.coll, n)
}

// Update はNestの名前・メンバー・投稿を更新する。
func (r *MongoNestRepo) Update(ctx context.Context, n *model.Nest) error {
	if err := mongoSet(ctx, r.coll, n.ID, bson.M{
		"name":    n.Name,
		"members": nonNil(n.Members),
		"posts":   nonNil(n.Posts),
	}); err != nil {
		return err
	}
	n.Version++
	return nil
}

// DeleteByID は指定IDのNestを削除する。
func (r *MongoNestRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := mongoDeleteMany(ctx, r.coll, bson.M{"_id": id})
	return err
}

// DeleteByCreatorID は作成者の全Nestを削除する。
func (r *MongoNestRepo) DeleteByCreatorID(ctx context.Context, creatorID string) error {
	_, err := mongoDeleteMany(ctx, r.coll, bson.M{"creatorId": creatorID})
	return err
}

// compile-time interface check
var _ NestRepository = (*MongoNestRepo)(nil)
