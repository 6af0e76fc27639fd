package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/nestfeed/internal/model"
)

// PostgresTimeRepo はPostgreSQLを使用したTimeリポジトリ。
type PostgresTimeRepo struct {
	db *sql.DB
}

// NewPostgresTimeRepo はPostgresTimeRepoを生成する。
func NewPostgresTimeRepo(db *sql.DB) *PostgresTimeRepo {
	return &PostgresTimeRepo{db: db}
}

const timeColumns = `id, creator_id, group_id, start_time, end_time, version`

func scanTime(row interface{ Scan(...any) error }) (*model.Time, error) {
	t := &model.Time{}
	if err := row.Scan(&t.ID, &t.CreatorID, &t.GroupID, &t.StartTime, &t.EndTime, &t.Version); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *PostgresTimeRepo) list(ctx context.Context, query string, args ...any) ([]*model.Time, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list times: %w", err)
	}
	defer rows.Close()

	times := []*model.Time{}
	for rows.Next() {
		t, err := scanTime(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan time: %w", err)
		}
		times = append(times, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate times: %w", err)
	}
	return times, nil
}

// FindByID は指定IDのTimeを取得する。見つからない場合はnilを返す。
func (r *PostgresTimeRepo) FindByID(ctx context.Context, id string) (*model.Time, error) {
	if !validID(id) {
		return nil, nil
	}
	t, err := scanTime(r.db.QueryRowContext(ctx,
		`SELECT `+timeColumns+` FROM times WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find time by ID: %w", err)
	}
	return t, nil
}

// FindAll は全Timeを取得する。
func (r *PostgresTimeRepo) FindAll(ctx context.Context) ([]*model.Time, error) {
	return r.list(ctx, `SELECT `+timeColumns+` FROM times ORDER BY start_time, id`)
}

// FindByCreatorID は作成者のTimeを取得する。
func (r *PostgresTimeRepo) FindByCreatorID(ctx context.Context, creatorID string) ([]*model.Time, error) {
	if !validID(creatorID) {
		return []*model.Time{}, nil
	}
	return r.list(ctx,
		`SELECT `+timeColumns+` FROM times WHERE creator_id = $1 ORDER BY start_time, id`, creatorID)
}

// FindByGroupID はNestに紐づくTimeを取得する。
func (r *PostgresTimeRepo) FindByGroupID(ctx context.Context, groupID string) ([]*model.Time, error) {
	if !validID(groupID) {
		return []*model.Time{}, nil
	}
	return r.list(ctx,
		`SELECT `+timeColumns+` FROM times WHERE group_id = $1 ORDER BY start_time, id`, groupID)
}

// Create はTimeを作成する。
func (r *PostgresTimeRepo) Create(ctx context.Context, t *model.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO times (`+timeColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.CreatorID, t.GroupID, t.StartTime, t.EndTime, t.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to insert time: %w", err)
	}
	return nil
}

// Update はTimeを上書き更新する。
func (r *PostgresTimeRepo) Update(ctx context.Context, t *model.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE times SET start_time = $2, end_time = $3, version = version + 1 WHERE id = $1`,
		t.ID, t.StartTime, t.EndTime,
	)
	if err != nil {
		return fmt.Errorf("failed to update time: %w", err)
	}
	t.Version++
	return nil
}

// DeleteByID は指定IDのTimeを削除する。
func (r *PostgresTimeRepo) DeleteByID(ctx context.Context, id string) error {
	if !validID(id) {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM times WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete time: %w", err)
	}
	return nil
}

// DeleteByCreatorID は作成者の全Timeを削除する。
func (r *PostgresTimeRepo) DeleteByCreatorID(ctx context.Context, creatorID string) error {
	if !validID(creatorID) {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM times WHERE creator_id = $1`, creatorID); err != nil {
		return fmt.Errorf("failed to delete times by creator: %w", err)
	}
	return nil
}

// DeleteOrphans は参照先のNestが存在しないTimeを削除する。
func (r *PostgresTimeRepo) DeleteOrphans(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM times t WHERE NOT EXISTS (SELECT 1 FROM nests n WHERE n.id = t.group_id)`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphaned times: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// compile-time interface check
var _ TimeRepository = (*PostgresTimeRepo)(nil)
