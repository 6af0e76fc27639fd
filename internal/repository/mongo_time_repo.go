package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hitoshi/nestfeed/internal/model"
)

var timeSort = bson.D{{Key: "startTime", Value: 1}, {Key: "_id", Value: 1}}

// MongoTimeRepo はMongoDBを使用したTimeリポジトリ。
// 孤立したTimeの判定にnestsコレクションを参照する。
type MongoTimeRepo struct {
	coll  *mongo.Collection
	nests *mongo.Collection
}

// NewMongoTimeRepo はMongoTimeRepoを生成する。
func NewMongoTimeRepo(db *mongo.Database) *MongoTimeRepo {
	return &MongoTimeRepo{
		coll:  db.Collection(CollectionTimes),
		nests: db.Collection(CollectionNests),
	}
}

// FindByID は指定IDのTimeを取得する。
func (r *MongoTimeRepo) FindByID(ctx context.Context, id string) (*model.Time, error) {
	if !validID(id) {
		return nil, nil
	}
	return mongoFindOne[model.Time](ctx, r.coll, bson.M{"_id": id})
}

// FindAll は全Timeを取得する。
func (r *MongoTimeRepo) FindAll(ctx context.Context) ([]*model.Time, error) {
	return mongoFind[model.Time](ctx, r.coll, bson.M{}, timeSort)
}

// FindByCreatorID は作成者のTimeを取得する。
func (r *MongoTimeRepo) FindByCreatorID(ctx context.Context, creatorID string) ([]*model.Time, error) {
	return mongoFind[model.Time](ctx, r.coll, bson.M{"creatorId": creatorID}, timeSort)
}

// FindByGroupID はNestに紐づくTimeを取得する。
func (r *MongoTimeRepo) FindByGroupID(ctx context.Context, groupID string) ([]*model.Time, error) {
	return mongoFind[model.Time](ctx, r.coll, bson.M{"groupId": groupID}, timeSort)
}

// Create はTimeを作成する。
func (r *MongoTimeRepo) Create(ctx context.Context, t *model.Time) error {
	return mongoInsert(ctx, r.coll, t)
}

// Update はTimeの開始・終了時刻を更新する。
func (r *MongoTimeRepo) Update(ctx context.Context, t *model.Time) error {
	if err := mongoSet(ctx, r.coll, t.ID, bson.M{
		"startTime": t.StartTime,
		"endTime":   t.EndTime,
	}); err != nil {
		return err
	}
	t.Version++
	return nil
}

// DeleteByID は指定IDのTimeを削除する。
func (r *MongoTimeRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := mongoDeleteMany(ctx, r.coll, bson.M{"_id": id})
	return err
}

// DeleteByCreatorID は作成者の全Timeを削除する。
func (r *MongoTimeRepo) DeleteByCreatorID(ctx context.Context, creatorID string) error {
	_, err := mongoDeleteMany(ctx, r.coll, bson.M{"creatorId": creatorID})
	return err
}

// DeleteOrphans は参照先のNestが存在しないTimeを削除する。
func (r *MongoTimeRepo) DeleteOrphans(ctx context.Context) (int64, error) {
	nestIDs, err := r.nests.Distinct(ctx, "_id", bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to list nest ids: %w", err)
	}
	return mongoDeleteMany(ctx, r.coll, bson.M{"groupId": bson.M{"$nin": nestIDs}})
}

// compile-time interface check
var _ TimeRepository = (*MongoTimeRepo)(nil)
