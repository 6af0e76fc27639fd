package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDBのコレクション名
const (
	CollectionUsers    = "users"
	CollectionSessions = "sessions"
	CollectionFriends  = "friends"
	CollectionNests    = "nests"
	CollectionTimes    = "times"
	CollectionFreets   = "freets"
)

// NewMongoRepositories はMongoDB実装のリポジトリ一式を生成する。
func NewMongoRepositories(db *mongo.Database) *Repositories {
	return &Repositories{
		Users:    NewMongoUserRepo(db),
		Sessions: NewMongoSessionRepo(db),
		Friends:  NewMongoFriendRepo(db),
		Nests:    NewMongoNestRepo(db),
		Times:    NewMongoTimeRepo(db),
		Freets:   NewMongoFreetRepo(db),
	}
}

// mongoFindOne はfilterに一致する1件をデコードする。見つからない場合はnilを返す。
func mongoFindOne[T any](ctx context.Context, coll *mongo.Collection, filter any) (*T, error) {
	var doc T
	err := coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find %s document: %w", coll.Name(), err)
	}
	return &doc, nil
}

// mongoFind はfilterに一致する全件をsortの順にデコードする。
func mongoFind[T any](ctx context.Context, coll *mongo.Collection, filter any, sort bson.D) ([]*T, error) {
	opts := options.Find()
	if sort != nil {
		opts.SetSort(sort)
	}
	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s documents: %w", coll.Name(), err)
	}
	defer cur.Close(ctx)

	docs := []*T{}
	for cur.Next(ctx) {
		var doc T
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode %s document: %w", coll.Name(), err)
		}
		docs = append(docs, &doc)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s documents: %w", coll.Name(), err)
	}
	return docs, nil
}

// mongoDeleteMany はfilterに一致する全件を削除し、削除件数を返す。
func mongoDeleteMany(ctx context.Context, coll *mongo.Collection, filter any) (int64, error) {
	result, err := coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete %s documents: %w", coll.Name(), err)
	}
	return result.DeletedCount, nil
}

// mongoInsert はdocを挿入する。一意制約違反はErrDuplicateに変換する。
func mongoInsert(ctx context.Context, coll *mongo.Collection, doc any) error {
	_, err := coll.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert %s document: %w", coll.Name(), err)
	}
	return nil
}

// mongoSet はidのドキュメントにfieldsを設定し、__vを1増やす。
func mongoSet(ctx context.Context, coll *mongo.Collection, id string, fields bson.M) error {
	_, err := coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": fields, "$inc": bson.M{"__v": 1}},
	)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to update %s document: %w", coll.Name(), err)
	}
	return nil
}
