package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/nestfeed/internal/model"
)

// PostgresNestRepo はPostgreSQLを使用したNestリポジトリ。
// members / postsはTEXT[]列に格納する。
type PostgresNestRepo struct {
	db *sql.DB
}

// NewPostgresNestRepo はPostgresNestRepoを生成する。
func NewPostgresNestRepo(db *sql.DB) *PostgresNestRepo {
	return &PostgresNestRepo{db: db}
}

const nestColumns = `id, name, creator_id, members, posts, version, created_at`

func scanNest(row interface{ Scan(...any) error }) (*model.Nest, error) {
	n := &model.Nest{}
	err := row.Scan(&n.ID, &n.Name, &n.CreatorID, pq.Array(&n.Members), pq.Array(&n.Posts), &n.Version, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	n.Members = nonNil(n.Members)
	n.Posts = nonNil(n.Posts)
	return n, nil
}

func (r *PostgresNestRepo) list(ctx context.Context, query string, args ...any) ([]*model.Nest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list nests: %w", err)
	}
	defer rows.Close()

	nests := []*model.Nest{}
	for rows.Next() {
		n, err := scanNest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan nest: %w", err)
		}
		nests = append(nests, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate nests: %w", err)
	}
	return nests, nil
}

// FindByID は指定IDのNestを取得する。見つからない場合はnilを返す。
func (r *PostgresNestRepo) FindByID(ctx context.Context, id string) (*model.Nest, error) {
	if !validID(id) {
		return nil, nil
	}
	n, err := scanNest(r.db.QueryRowContext(ctx,
		`SELECT `+nestColumns+` FROM nests WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find nest by ID: %w", err)
	}
	return n, nil
}

// FindAll は全Nestを名前の昇順で取得する。
func (r *PostgresNestRepo) FindAll(ctx context.Context) ([]*model.Nest, error) {
	return r.list(ctx, `SELECT `+nestColumns+` FROM nests ORDER BY name, id`)
}

// FindByCreatorID は作成者のNestを名前の昇順で取得する。
func (r *PostgresNestRepo) FindByCreatorID(ctx context.Context, creatorID string) ([]*model.Nest, error) {
	if !validID(creatorID) {
		return []*model.Nest{}, nil
	}
	return r.list(ctx,
		`SELECT `+nestColumns+` FROM nests WHERE creator_id = $1 ORDER BY name, id`, creatorID)
}

// Create はNestを作成する。
func (r *PostgresNestRepo) Create(ctx context.Context, n *model.Nest) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO nests (`+nestColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.Name, n.CreatorID, pq.Array(nonNil(n.Members)), pq.Array(nonNil(n.Posts)), n.Version, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert nest: %w", err)
	}
	return nil
}

// Update はNestを上書き更新する。
func (r *PostgresNestRepo) Update(ctx context.Context, n *model.Nest) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE nests SET name = $2, members = $3, posts = $4, version = version + 1 WHERE id = $1`,
		n.ID, n.Name, pq.Array(nonNil(n.Members)), pq.Array(nonNil(n.Posts)),
	)
	if err != nil {
		return fmt.Errorf("failed to update nest: %w", err)
	}
	n.Version++
	return nil
}

// DeleteByID は指定IDのNestを削除する。
func (r *PostgresNestRepo) DeleteByID(ctx context.Context, id string) error {
	if !validID(id) {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM nests WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete nest: %w", err)
	}
	return nil
}

// DeleteByCreatorID は作成者の全Nestを削除する。
func (r *PostgresNestRepo) DeleteByCreatorID(ctx context.Context, creatorID string) error {
	if !validID(creatorID) {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM nests WHERE creator_id = $1`, creatorID); err != nil {
		return fmt.Errorf("failed to delete nests by creator: %w", err)
	}
	return nil
}

// compile-time interface check
var _ NestRepository = (*PostgresNestRepo)(nil)
