// Package repository はデータ永続化のインターフェースと、
// PostgreSQL / MongoDB / インメモリの各実装を提供する。
//
// 読み取り系メソッドは対象が存在しない場合にエラーではなくnil（または空スライス）を返す。
// 削除系メソッドは対象が存在しなくても成功を返す。
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/hitoshi/nestfeed/internal/model"
)

// ErrDuplicate は一意制約に違反した場合に返される。
var ErrDuplicate = errors.New("duplicate key")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)
	// FindByIDs は指定IDのユーザーをまとめて取得する。存在しないIDは無視し、順序は保証しない。
	FindByIDs(ctx context.Context, ids []string) ([]*model.User, error)
	// FindByUsername はユーザー名でユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	// Create はユーザーを作成する。ユーザー名が重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error
	// Update はユーザーを上書き更新し、Versionを1増やす。
	Update(ctx context.Context, user *model.User) error
	// DeleteByID は指定IDのユーザーを削除する。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れのセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// FriendRepository はフレンドリストの永続化インターフェース。
type FriendRepository interface {
	// FindByUserID はユーザーのフレンドリストを取得する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.Friend, error)
	// FindAll は全ユーザーのフレンドリストを取得する。
	FindAll(ctx context.Context) ([]*model.Friend, error)
	// Create はフレンドリストを作成する。
	Create(ctx context.Context, friend *model.Friend) error
	// Update はフレンドリストを上書き更新し、Versionを1増やす。
	Update(ctx context.Context, friend *model.Friend) error
	// DeleteByUserID はユーザーのフレンドリストを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// PullFriend は全ユーザーのフレンドリストからfriendIDを取り除く。
	PullFriend(ctx context.Context, friendID string) error
}

// NestRepository はNestの永続化インターフェース。
// 一覧系は名前の昇順で返す。
type NestRepository interface {
	// FindByID は指定IDのNestを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Nest, error)
	// FindAll は全Nestを取得する。
	FindAll(ctx context.Context) ([]*model.Nest, error)
	// FindByCreatorID は作成者のNestを取得する。
	FindByCreatorID(ctx context.Context, creatorID string) ([]*model.Nest, error)
	// Create はNestを作成する。
	Create(ctx context.Context, nest *model.Nest) error
	// Update はNestを上書き更新し、Versionを1増やす。
	Update(ctx context.Context, nest *model.Nest) error
	// DeleteByID は指定IDのNestを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByCreatorID は作成者の全Nestを削除する。
	DeleteByCreatorID(ctx context.Context, creatorID string) error
}

// TimeRepository はTime（表示時間帯）の永続化インターフェース。
// 一覧系は開始時刻の昇順で返す。
type TimeRepository interface {
	// FindByID は指定IDのTimeを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Time, error)
	// FindAll は全Timeを取得する。
	FindAll(ctx context.Context) ([]*model.Time, error)
	// FindByCreatorID は作成者のTimeを取得する。
	FindByCreatorID(ctx context.Context, creatorID string) ([]*model.Time, error)
	// FindByGroupID はNestに紐づくTimeを取得する。
	FindByGroupID(ctx context.Context, groupID string) ([]*model.Time, error)
	// Create はTimeを作成する。
	Create(ctx context.Context, t *model.Time) error
	// Update はTimeを上書き更新し、Versionを1増やす。
	Update(ctx context.Context, t *model.Time) error
	// DeleteByID は指定IDのTimeを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByCreatorID は作成者の全Timeを削除する。
	DeleteByCreatorID(ctx context.Context, creatorID string) error
	// DeleteOrphans は参照先のNestが存在しないTimeを削除し、削除件数を返す。
	DeleteOrphans(ctx context.Context) (int64, error)
}

// FreetRepository はFreetの永続化インターフェース。
// 一覧系は作成日時の降順で返す。
type FreetRepository interface {
	// FindByID は指定IDのFreetを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Freet, error)
	// FindByIDs は指定IDのFreetをまとめて取得する。存在しないIDは無視し、順序は保証しない。
	FindByIDs(ctx context.Context, ids []string) ([]*model.Freet, error)
	// FindAll は全Freetを取得する。
	FindAll(ctx context.Context) ([]*model.Freet, error)
	// FindByAuthorID は投稿者のFreetを取得する。
	FindByAuthorID(ctx context.Context, authorID string) ([]*model.Freet, error)
	// Create はFreetを作成する。
	Create(ctx context.Context, freet *model.Freet) error
	// Update はFreetを上書き更新し、Versionを1増やす。
	Update(ctx context.Context, freet *model.Freet) error
	// DeleteByID は指定IDのFreetを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByAuthorID は投稿者の全Freetを削除する。
	DeleteByAuthorID(ctx context.Context, authorID string) error
}

// Repositories はストレージドライバごとのリポジトリ一式。
type Repositories struct {
	Users    UserRepository
	Sessions SessionRepository
	Friends  FriendRepository
	Nests    NestRepository
	Times    TimeRepository
	Freets   FreetRepository
}

// validID はidがUUIDとして解釈できるかを返す。
// UUIDでないIDはどのストレージでも一致しない。
func validID(id string) bool {
	return uuid.Validate(id) == nil
}

// validIDs はids のうちUUIDとして解釈できるものだけを返す。
func validIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			out = append(out, id)
		}
	}
	return out
}

// nonNil はnilスライスを空スライスに変換する。
func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
