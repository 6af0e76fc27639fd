// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// 他のすべてのエンティティから不透明なIDで参照される。
type User struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	PasswordHash string    `bson:"passwordHash"`
	Version      int       `bson:"__v"`
	DateJoined   time.Time `bson:"dateJoined"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"userId"`
	ExpiresAt time.Time `bson:"expiresAt"`
	CreatedAt time.Time `bson:"createdAt"`
}
