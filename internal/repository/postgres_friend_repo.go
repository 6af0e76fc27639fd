package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/nestfeed/internal/model"
)

// PostgresFriendRepo はPostgreSQLを使用したフレンドリストリポジトリ。
// friendsはTEXT[]列に格納する。
type PostgresFriendRepo struct {
	db *sql.DB
}

// NewPostgresFriendRepo はPostgresFriendRepoを生成する。
func NewPostgresFriendRepo(db *sql.DB) *PostgresFriendRepo {
	return &PostgresFriendRepo{db: db}
}

func scanFriend(row interface{ Scan(...any) error }) (*model.Friend, error) {
	f := &model.Friend{}
	if err := row.Scan(&f.ID, &f.UserID, pq.Array(&f.Friends), &f.Version); err != nil {
		return nil, err
	}
	f.Friends = nonNil(f.Friends)
	return f, nil
}

// FindByUserID はユーザーのフレンドリストを取得する。見つからない場合はnilを返す。
func (r *PostgresFriendRepo) FindByUserID(ctx context.Context, userID string) (*model.Friend, error) {
	if !validID(userID) {
		return nil, nil
	}
	f, err := scanFriend(r.db.QueryRowContext(ctx,
		`SELECT id, user_id, friends, version FROM friends WHERE user_id = $1`, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find friend list: %w", err)
	}
	return f, nil
}

// FindAll は全ユーザーのフレンドリストを取得する。
func (r *PostgresFriendRepo) FindAll(ctx context.Context) ([]*model.Friend, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, friends, version FROM friends ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list friend lists: %w", err)
	}
	defer rows.Close()

	friends := []*model.Friend{}
	for rows.Next() {
		f, err := scanFriend(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan friend list: %w", err)
		}
		friends = append(friends, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate friend lists: %w", err)
	}
	return friends, nil
}

// Create はフレンドリストを作成する。
func (r *PostgresFriendRepo) Create(ctx context.Context, f *model.Friend) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO friends (id, user_id, friends, version) VALUES ($1, $2, $3, $4)`,
		f.ID, f.UserID, pq.Array(nonNil(f.Friends)), f.Version,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert friend list: %w", err)
	}
	return nil
}

// Update はフレンドリストを上書き更新する。
func (r *PostgresFriendRepo) Update(ctx context.Context, f *model.Friend) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE friends SET friends = $2, version = version + 1 WHERE id = $1`,
		f.ID, pq.Array(nonNil(f.Friends)),
	)
	if err != nil {
		return fmt.Errorf("failed to update friend list: %w", err)
	}
	f.Version++
	return nil
}

// DeleteByUserID はユーザーのフレンドリストを削除する。
func (r *PostgresFriendRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if !validID(userID) {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM friends WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete friend list: %w", err)
	}
	return nil
}

// PullFriend は全ユーザーのフレンドリストからfriendIDを取り除く。
func (r *PostgresFriendRepo) PullFriend(ctx context.Context, friendID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE friends SET friends = array_remove(friends, $1), version = version + 1
		 WHERE $1 = ANY(friends)`,
		friendID,
	)
	if err != nil {
		return fmt.Errorf("failed to pull friend: %w", err)
	}
	return nil
}

// compile-time interface check
var _ FriendRepository = (*PostgresFriendRepo)(nil)
