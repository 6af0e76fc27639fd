package model

import "time"

// NestNameMaxLength はNest名の最大文字数。
const NestNameMaxLength = 30

// Nest は作成者が所有する名前付きグループ。
// メンバーIDの集合と投稿（Freet）IDの集合を保持する。
type Nest struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	CreatorID string    `bson:"creatorId"`
	Members   []string  `bson:"members"`
	Posts     []string  `bson:"posts"`
	Version   int       `bson:"__v"`
	CreatedAt time.Time `bson:"createdAt"`
}

// HasMember は指定ユーザーがメンバーかどうかを返す。
func (n *Nest) HasMember(userID string) bool {
	for _, m := range n.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// PopulatedNest はcreatorId参照を解決済みのNest。
type PopulatedNest struct {
	Nest
	Creator *User
}
