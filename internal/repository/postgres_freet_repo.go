package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/nestfeed/internal/model"
)

// PostgresFreetRepo はPostgreSQLを使用したFreetリポジトリ。
type PostgresFreetRepo struct {
	db *sql.DB
}

// NewPostgresFreetRepo はPostgresFreetRepoを生成する。
func NewPostgresFreetRepo(db *sql.DB) *PostgresFreetRepo {
	return &PostgresFreetRepo{db: db}
}

const freetColumns = `id, author_id, content, date_created, date_modified, version`

func scanFreet(row interface{ Scan(...any) error }) (*model.Freet, error) {
	f := &model.Freet{}
	if err := row.Scan(&f.ID, &f.AuthorID, &f.Content, &f.DateCreated, &f.DateModified, &f.Version); err != nil {
		return nil, err
	}
	return f, nil
}

func (r *PostgresFreetRepo) list(ctx context.Context, query string, args ...any) ([]*model.Freet, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list freets: %w", err)
	}
	defer rows.Close()

	freets := []*model.Freet{}
	for rows.Next() {
		f, err := scanFreet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan freet: %w", err)
		}
		freets = append(freets, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate freets: %w", err)
	}
	return freets, nil
}

// FindByID は指定IDのFreetを取得する。見つからない場合はnilを返す。
func (r *PostgresFreetRepo) FindByID(ctx context.Context, id string) (*model.Freet, error) {
	if !validID(id) {
		return nil, nil
	}
	f, err := scanFreet(r.db.QueryRowContext(ctx,
		`SELECT `+freetColumns+` FROM freets WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find freet by ID: %w", err)
	}
	return f, nil
}

// FindByIDs は指定IDのFreetをまとめて取得する。
func (r *PostgresFreetRepo) FindByIDs(ctx context.Context, ids []string) ([]*model.Freet, error) {
	ids = validIDs(ids)
	if len(ids) == 0 {
		return []*model.Freet{}, nil
	}
	return r.list(ctx,
		`SELECT `+freetColumns+` FROM freets WHERE id = ANY($1::uuid[]) ORDER BY date_created DESC, id`,
		pq.Array(ids))
}

// FindAll は全Freetを作成日時の降順で取得する。
func (r *PostgresFreetRepo) FindAll(ctx context.Context) ([]*model.Freet, error) {
	return r.list(ctx, `SELECT `+freetColumns+` FROM freets ORDER BY date_created DESC, id`)
}

// FindByAuthorID は投稿者のFreetを作成日時の降順で取得する。
func (r *PostgresFreetRepo) FindByAuthorID(ctx context.Context, authorID string) ([]*model.Freet, error) {
	if !validID(authorID) {
		return []*model.Freet{}, nil
	}
	return r.list(ctx,
		`SELECT `+freetColumns+` FROM freets WHERE author_id = $1 ORDER BY date_created DESC, id`, authorID)
}

// Create はFreetを作成する。
func (r *PostgresFreetRepo) Create(ctx context.Context, f *model.Freet) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO freets (`+freetColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		f.ID, f.AuthorID, f.Content, f.DateCreated, f.DateModified, f.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to insert freet: %w", err)
	}
	return nil
}

// Update はFreetを上書き更新する。
func (r *PostgresFreetRepo) Update(ctx context.Context, f *model.Freet) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE freets SET content = $2, date_modified = $3, version = version + 1 WHERE id = $1`,
		f.ID, f.Content, f.DateModified,
	)
	if err != nil {
		return fmt.Errorf("failed to update freet: %w", err)
	}
	f.Version++
	return nil
}

// DeleteByID は指定IDのFreetを削除する。
func (r *PostgresFreetRepo) DeleteByID(ctx context.Context, id string) error {
	if !validID(id) {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM freets WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete freet: %w", err)
	}
	return nil
}

// DeleteByAuthorID は投稿者の全Freetを削除する。
func (r *PostgresFreetRepo) DeleteByAuthorID(ctx context.Context, authorID string) error {
	if !validID(authorID) {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM freets WHERE author_id = $1`, authorID); err != nil {
		return fmt.Errorf("failed to delete freets by author: %w", err)
	}
	return nil
}

// compile-time interface check
var _ FreetRepository = (*PostgresFreetRepo)(nil)
