// Package freet はFreet（短文投稿）のドメインロジックを提供する。
package freet

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/nestfeed/internal/model"
	"github.com/hitoshi/nestfeed/internal/repository"
)

// DefaultMaxLength は本文の最大文字数の既定値。
const DefaultMaxLength = 140

// Sanitizer は本文のサニタイズインターフェース。
type Sanitizer interface {
	Sanitize(raw string) string
}

// Recorder はFreet投稿のメトリクス記録インターフェース。
type Recorder interface {
	RecordFreetCreated()
}

// Service はFreetのサービス層。
type Service struct {
	userRepo  repository.UserRepository
	freetRepo repository.FreetRepository
	sanitizer Sanitizer
	maxLength int
	recorder  Recorder
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// maxLengthが0以下の場合はDefaultMaxLengthを使う。recorderはnilでもよい。
func NewService(
	userRepo repository.UserRepository,
	freetRepo repository.FreetRepository,
	sanitizer Sanitizer,
	maxLength int,
	recorder Recorder,
) *Service {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Service{
		userRepo:  userRepo,
		freetRepo: freetRepo,
		sanitizer: sanitizer,
		maxLength: maxLength,
		recorder:  recorder,
		now:       time.Now,
	}
}

// PrepareContent は本文をサニタイズし、空でないことと長さを検証する。
func (s *Service) PrepareContent(raw string) (string, error) {
	content := s.sanitizer.Sanitize(raw)
	if content == "" {
		return "", model.NewInvalidFreetContentError()
	}
	if utf8.RuneCountInString(content) > s.maxLength {
		return "", model.NewFreetTooLongError(s.maxLength)
	}
	return content, nil
}

// AddOne はFreetを作成する。
func (s *Service) AddOne(ctx context.Context, authorID, raw string) (*model.PopulatedFreet, error) {
	content, err := s.PrepareContent(raw)
	if err != nil {
		return nil, err
	}

	author, err := s.userRepo.FindByID(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("投稿者の取得に失敗しました: %w", err)
	}
	if author == nil {
		return nil, model.NewUserNotFoundError(authorID)
	}

	now := s.now()
	f := &model.Freet{
		ID:           uuid.New().String(),
		AuthorID:     authorID,
		Content:      content,
		DateCreated:  now,
		DateModified: now,
	}
	if err := s.freetRepo.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("Freetの作成に失敗しました: %w", err)
	}
	if s.recorder != nil {
		s.recorder.RecordFreetCreated()
	}
	return &model.PopulatedFreet{Freet: *f, Author: author}, nil
}

// FindOne は指定IDのFreetを返す。見つからない場合はnilを返す。
func (s *Service) FindOne(ctx context.Context, id string) (*model.PopulatedFreet, error) {
	f, err := s.freetRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Freetの取得に失敗しました: %w", err)
	}
	if f == nil {
		return nil, nil
	}
	list, err := s.populate(ctx, []*model.Freet{f})
	if err != nil {
		return nil, err
	}
	return list[0], nil
}

// FindAll は全Freetを新しい順に返す。
func (s *Service) FindAll(ctx context.Context) ([]*model.PopulatedFreet, error) {
	list, err := s.freetRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("Freet一覧の取得に失敗しました: %w", err)
	}
	return s.populate(ctx, list)
}

// FindAllByUsername は指定ユーザーのFreetを新しい順に返す。
func (s *Service) FindAllByUsername(ctx context.Context, username string) ([]*model.PopulatedFreet, error) {
	author, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if author == nil {
		return []*model.PopulatedFreet{}, nil
	}
	list, err := s.freetRepo.FindByAuthorID(ctx, author.ID)
	if err != nil {
		return nil, fmt.Errorf("投稿者のFreet取得に失敗しました: %w", err)
	}
	return s.populate(ctx, list)
}

// UpdateOne は本文を更新し、更新日時を進める。
func (s *Service) UpdateOne(ctx context.Context, id, raw string) (*model.PopulatedFreet, error) {
	content, err := s.PrepareContent(raw)
	if err != nil {
		return nil, err
	}

	f, err := s.freetRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Freetの取得に失敗しました: %w", err)
	}
	if f == nil {
		return nil, model.NewFreetNotFoundError(id)
	}

	f.Content = content
	f.DateModified = s.now()
	if err := s.freetRepo.Update(ctx, f); err != nil {
		return nil, fmt.Errorf("Freetの更新に失敗しました: %w", err)
	}
	list, err := s.populate(ctx, []*model.Freet{f})
	if err != nil {
		return nil, err
	}
	return list[0], nil
}

// DeleteOne は指定IDのFreetを削除する。存在しなくても成功を返す。
func (s *Service) DeleteOne(ctx context.Context, id string) error {
	if err := s.freetRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("Freetの削除に失敗しました: %w", err)
	}
	return nil
}

// DeleteMany は投稿者の全Freetを削除する。
func (s *Service) DeleteMany(ctx context.Context, authorID string) error {
	if err := s.freetRepo.DeleteByAuthorID(ctx, authorID); err != nil {
		return fmt.Errorf("投稿者のFreet削除に失敗しました: %w", err)
	}
	return nil
}

func (s *Service) populate(ctx context.Context, list []*model.Freet) ([]*model.PopulatedFreet, error) {
	ids := make([]string, 0, len(list))
	for _, f := range list {
		ids = append(ids, f.AuthorID)
	}
	authors := make(map[string]*model.User, len(ids))
	if len(ids) > 0 {
		users, err := s.userRepo.FindByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("投稿者の一括取得に失敗しました: %w", err)
		}
		for _, u := range users {
			authors[u.ID] = u
		}
	}
	out := make([]*model.PopulatedFreet, 0, len(list))
	for _, f := range list {
		out = append(out, &model.PopulatedFreet{Freet: *f, Author: authors[f.AuthorID]})
	}
	return out, nil
}
