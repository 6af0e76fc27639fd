package model

// DefaultStartTime / DefaultEndTime はNest作成時に自動生成されるTimeの範囲。
const (
	DefaultStartTime = "00:00"
	DefaultEndTime   = "23:59"
)

// Time はNestの表示可否を決める名前付きの時間帯（"HH:MM"）。
// 1つのNest（GroupID）に複数のTimeが紐づくことがあり、いずれかが一致すればNestは表示される。
// StartTime < EndTime は強制しない。
type Time struct {
	ID        string `bson:"_id"`
	CreatorID string `bson:"creatorId"`
	GroupID   string `bson:"groupId"`
	StartTime string `bson:"startTime"`
	EndTime   string `bson:"endTime"`
	Version   int    `bson:"__v"`
}

// PopulatedTime はcreatorIdとgroupIdを解決済みのTime。
// Groupは参照先のNestが削除済みの場合nilになる。
type PopulatedTime struct {
	Time
	Creator *User
	Group   *Nest
}
