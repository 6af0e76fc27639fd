package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// mongoIndexes はコレクションごとに作成するインデックス。
var mongoIndexes = map[string][]mongo.IndexModel{
	"users": {
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	"sessions": {
		{Keys: bson.D{{Key: "userId", Value: 1}}},
		{Keys: bson.D{{Key: "expiresAt", Value: 1}}},
	},
	"friends": {
		{Keys: bson.D{{Key: "user", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "friends", Value: 1}}},
	},
	"nests": {
		{Keys: bson.D{{Key: "creatorId", Value: 1}, {Key: "name", Value: 1}}},
	},
	"times": {
		{Keys: bson.D{{Key: "groupId", Value: 1}}},
		{Keys: bson.D{{Key: "creatorId", Value: 1}}},
	},
	"freets": {
		{Keys: bson.D{{Key: "authorId", Value: 1}, {Key: "dateCreated", Value: -1}}},
	},
}

// OpenMongo はMongoDBに接続し、疎通確認とインデックス作成を行ってからデータベースを返す。
// 呼び出し側は不要になったらclient.Disconnectを呼ぶこと。
func OpenMongo(ctx context.Context, uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(dbName)
	if err := EnsureMongoIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}

	return client, db, nil
}

// EnsureMongoIndexes は全コレクションのインデックスを作成する。既に存在する場合は何もしない。
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	for coll, models := range mongoIndexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll, err)
		}
	}
	return nil
}
