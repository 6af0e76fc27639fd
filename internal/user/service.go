// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/nestfeed/internal/auth"
	"github.com/hitoshi/nestfeed/internal/model"
	"github.com/hitoshi/nestfeed/internal/repository"
)

// OwnedDeleter はユーザーが所有するレコードの一括削除インターフェース。
// freet / nest / times / friend の各サービスのDeleteManyが満たす。
type OwnedDeleter interface {
	DeleteMany(ctx context.Context, userID string) error
}

// PasswordHasher はパスワードのハッシュ化インターフェース。
type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

// Deleters は退会時に呼び出す削除処理。未設定のものはスキップする。
type Deleters struct {
	Freets  OwnedDeleter
	Nests   OwnedDeleter
	Times   OwnedDeleter
	Friends OwnedDeleter
}

// Service はユーザー管理のサービス層。
// プロフィール更新と退会処理のビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	hasher      PasswordHasher
	deleters    Deleters
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	hasher PasswordHasher,
	deleters Deleters,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		hasher:      hasher,
		deleters:    deleters,
	}
}

// Update はユーザー名とパスワードを更新する。nilのフィールドは変更しない。
func (s *Service) Update(ctx context.Context, userID string, username, password *string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(userID)
	}

	if username != nil && *username != user.Username {
		if err := auth.ValidateUsername(*username); err != nil {
			return nil, err
		}
		existing, err := s.userRepo.FindByUsername(ctx, *username)
		if err != nil {
			return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
		}
		if existing != nil {
			return nil, model.NewUsernameTakenError(*username)
		}
		user.Username = *username
	}

	if password != nil {
		if err := auth.ValidatePassword(*password); err != nil {
			return nil, err
		}
		hash, err := s.hasher.HashPassword(*password)
		if err != nil {
			return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
		}
		user.PasswordHash = hash
	}

	user.UpdatedAt = time.Now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewUsernameTakenError(user.Username)
		}
		return nil, fmt.Errorf("ユーザーの更新に失敗しました: %w", err)
	}

	slog.Info("ユーザー情報を更新しました",
		slog.String("user_id", userID),
	)
	return user, nil
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: freets → nests（+紐づくtimes） → 残りのtimes → friends（+他ユーザーのリスト） → sessions → user
// 外部キー制約に頼らず、各コレクションのDeleteManyを明示的に呼び出す。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	// ユーザー存在確認
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError(userID)
	}

	slog.Info("退会処理を開始します",
		slog.String("user_id", userID),
	)

	steps := []struct {
		deleter OwnedDeleter
		label   string
	}{
		{s.deleters.Freets, "Freet"},
		{s.deleters.Nests, "Nest"},
		{s.deleters.Times, "Time"},
		{s.deleters.Friends, "フレンドリスト"},
	}
	for _, step := range steps {
		if step.deleter == nil {
			continue
		}
		if err := step.deleter.DeleteMany(ctx, userID); err != nil {
			return fmt.Errorf("%sの削除に失敗しました: %w", step.label, err)
		}
	}

	// セッションを削除
	if s.sessionRepo != nil {
		if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("セッションの削除に失敗しました: %w", err)
		}
	}

	// ユーザーを削除
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
	)

	return nil
}
