package model

// Friend はユーザー1人につき1件作成され、そのユーザーのフレンドID集合を保持する。
// 関係は対称だが、双方のリストを独立に保持する（書き込みは常に両側に行う）。
type Friend struct {
	ID      string   `bson:"_id"`
	UserID  string   `bson:"user"`
	Friends []string `bson:"friends"`
	Version int      `bson:"__v"`
}

// PopulatedFriend はuser参照を解決済みのFriend。
// レスポンス整形にのみ使用し、永続化される形は常にFriendのまま。
type PopulatedFriend struct {
	Friend
	User *User
}
