package repository

import "database/sql"

// NewPostgresRepositories はPostgreSQL実装のリポジトリ一式を生成する。
func NewPostgresRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Users:    NewPostgresUserRepo(db),
		Sessions: NewPostgresSessionRepo(db),
		Friends:  NewPostgresFriendRepo(db),
		Nests:    NewPostgresNestRepo(db),
		Times:    NewPostgresTimeRepo(db),
		Freets:   NewPostgresFreetRepo(db),
	}
}
