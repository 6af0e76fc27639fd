// Package nest はNest（メンバーと投稿をまとめるグループ）のドメインロジックを提供する。
//
// Nestの作成時にはデフォルトの表示時間帯（00:00-23:59）を同時に作成し、
// 削除時には紐づくTimeを先に削除してからNestを削除する。
package nest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/nestfeed/internal/model"
	"github.com/hitoshi/nestfeed/internal/repository"
)

// TimeCollection はNestに紐づくTimeの作成・削除インターフェース。
type TimeCollection interface {
	AddOne(ctx context.Context, creatorID, groupID, start, end string) (*model.PopulatedTime, error)
	DeleteByGroup(ctx context.Context, groupID string) (int, error)
}

// Recorder はNest作成・削除のメトリクス記録インターフェース。
type Recorder interface {
	RecordNestCreated()
	RecordNestDeleted()
}

// Service はNestのサービス層。
type Service struct {
	userRepo  repository.UserRepository
	nestRepo  repository.NestRepository
	freetRepo repository.FreetRepository
	times     TimeCollection
	recorder  Recorder
}

// NewService はServiceの新しいインスタンスを生成する。recorderはnilでもよい。
func NewService(
	userRepo repository.UserRepository,
	nestRepo repository.NestRepository,
	freetRepo repository.FreetRepository,
	times TimeCollection,
	recorder Recorder,
) *Service {
	return &Service{
		userRepo:  userRepo,
		nestRepo:  nestRepo,
		freetRepo: freetRepo,
		times:     times,
		recorder:  recorder,
	}
}

// ValidateName はNest名を検証する。空白のみは不正、30文字を超える名前は長すぎる。
// 保存時に名前をトリムすることはない。
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return model.NewInvalidNestNameError()
	}
	if utf8.RuneCountInString(name) > model.NestNameMaxLength {
		return model.NewNestNameTooLongError()
	}
	return nil
}

// AddOne はメンバー・投稿が空のNestを作成し、続けてデフォルトのTimeを作成する。
func (s *Service) AddOne(ctx context.Context, creatorID, name string) (*model.PopulatedNest, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	creator, err := s.userRepo.FindByID(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("作成者の取得に失敗しました: %w", err)
	}
	if creator == nil {
		return nil, model.NewUserNotFoundError(creatorID)
	}

	n := &model.Nest{
		ID:        uuid.New().String(),
		Name:      name,
		CreatorID: creatorID,
		Members:   []string{},
		Posts:     []string{},
		CreatedAt: time.Now(),
	}
	if err := s.nestRepo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("Nestの作成に失敗しました: %w", err)
	}
	if s.recorder != nil {
		s.recorder.RecordNestCreated()
	}

	if _, err := s.times.AddOne(ctx, creatorID, n.ID, model.DefaultStartTime, model.DefaultEndTime); err != nil {
		return nil, fmt.Errorf("デフォルトTimeの作成に失敗しました: %w", err)
	}

	return &model.PopulatedNest{Nest: *n, Creator: creator}, nil
}

// FindOne は指定IDのNestを返す。見つからない場合はnilを返す。
func (s *Service) FindOne(ctx context.Context, id string) (*model.PopulatedNest, error) {
	n, err := s.nestRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Nestの取得に失敗しました: %w", err)
	}
	if n == nil {
		return nil, nil
	}
	list, err := s.populate(ctx, []*model.Nest{n})
	if err != nil {
		return nil, err
	}
	return list[0], nil
}

// FindAll は全Nestを名前順に返す。
func (s *Service) FindAll(ctx context.Context) ([]*model.PopulatedNest, error) {
	list, err := s.nestRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("Nest一覧の取得に失敗しました: %w", err)
	}
	return s.populate(ctx, list)
}

// FindAllByUsername は指定ユーザーが作成したNestを名前順に返す。
func (s *Service) FindAllByUsername(ctx context.Context, username string) ([]*model.PopulatedNest, error) {
	creator, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if creator == nil {
		return []*model.PopulatedNest{}, nil
	}
	list, err := s.nestRepo.FindByCreatorID(ctx, creator.ID)
	if err != nil {
		return nil, fmt.Errorf("作成者のNest取得に失敗しました: %w", err)
	}
	return s.populate(ctx, list)
}

// Members はNestのメンバーをリストの順序で返す。
func (s *Service) Members(ctx context.Context, n *model.Nest) ([]*model.User, error) {
	byID, err := s.usersByID(ctx, n.Members)
	if err != nil {
		return nil, err
	}
	out := make([]*model.User, 0, len(n.Members))
	for _, id := range n.Members {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// Posts はNestの投稿をリストの順序で返す。削除済みのFreetは読み飛ばす。
func (s *Service) Posts(ctx context.Context, n *model.Nest) ([]*model.PopulatedFreet, error) {
	freets, err := s.freetRepo.FindByIDs(ctx, n.Posts)
	if err != nil {
		return nil, fmt.Errorf("投稿の一括取得に失敗しました: %w", err)
	}
	byID := make(map[string]*model.Freet, len(freets))
	authorIDs := make([]string, 0, len(freets))
	for _, f := range freets {
		byID[f.ID] = f
		authorIDs = append(authorIDs, f.AuthorID)
	}
	authors, err := s.usersByID(ctx, authorIDs)
	if err != nil {
		return nil, err
	}

	out := make([]*model.PopulatedFreet, 0, len(n.Posts))
	for _, id := range n.Posts {
		f, ok := byID[id]
		if !ok {
			continue
		}
		out = append(out, &model.PopulatedFreet{Freet: *f, Author: authors[f.AuthorID]})
	}
	return out, nil
}

// UpdateMembers はメンバーリストに操作を適用する。
// 存在しないメンバーの削除は何も変更せずに成功を返す。
func (s *Service) UpdateMembers(ctx context.Context, nestID, memberID string, op model.Operation) (*model.PopulatedNest, error) {
	member, err := s.userRepo.FindByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("メンバーの取得に失敗しました: %w", err)
	}
	if member == nil {
		return nil, model.NewUserNotFoundError(memberID)
	}
	return s.update(ctx, nestID, func(n *model.Nest) bool {
		var changed bool
		n.Members, changed = op.Apply(n.Members, member.ID)
		return changed
	})
}

// UpdatePosts は投稿リストに操作を適用する。
func (s *Service) UpdatePosts(ctx context.Context, nestID, freetID string, op model.Operation) (*model.PopulatedNest, error) {
	freet, err := s.freetRepo.FindByID(ctx, freetID)
	if err != nil {
		return nil, fmt.Errorf("Freetの取得に失敗しました: %w", err)
	}
	if freet == nil {
		return nil, model.NewFreetNotFoundError(freetID)
	}
	return s.update(ctx, nestID, func(n *model.Nest) bool {
		var changed bool
		n.Posts, changed = op.Apply(n.Posts, freet.ID)
		return changed
	})
}

// DeleteOne はNestに紐づくTimeを削除してからNestを削除する。
// 対象が存在しなくても成功を返す。Timeの削除途中で失敗した場合、Nestは削除しない。
func (s *Service) DeleteOne(ctx context.Context, id string) error {
	deleted, err := s.times.DeleteByGroup(ctx, id)
	if err != nil {
		slog.Error("NestのTime削除が途中で失敗しました",
			slog.String("nest_id", id),
			slog.Int("deleted_times", deleted),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("NestのTime削除に失敗しました: %w", err)
	}

	if err := s.nestRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("Nestの削除に失敗しました: %w", err)
	}
	if s.recorder != nil {
		s.recorder.RecordNestDeleted()
	}

	slog.Info("Nestを削除しました",
		slog.String("nest_id", id),
		slog.Int("deleted_times", deleted),
	)
	return nil
}

// DeleteMany は作成者の全Nestと、それらに紐づくTimeを削除する。
func (s *Service) DeleteMany(ctx context.Context, creatorID string) error {
	list, err := s.nestRepo.FindByCreatorID(ctx, creatorID)
	if err != nil {
		return fmt.Errorf("作成者のNest取得に失敗しました: %w", err)
	}
	for _, n := range list {
		if _, err := s.times.DeleteByGroup(ctx, n.ID); err != nil {
			return fmt.Errorf("NestのTime削除に失敗しました: %w", err)
		}
	}
	if err := s.nestRepo.DeleteByCreatorID(ctx, creatorID); err != nil {
		return fmt.Errorf("作成者のNest削除に失敗しました: %w", err)
	}
	if s.recorder != nil {
		for range list {
			s.recorder.RecordNestDeleted()
		}
	}
	return nil
}

// update はNestを読み込み、mutateで変更があった場合のみ保存する。
func (s *Service) update(ctx context.Context, nestID string, mutate func(*model.Nest) bool) (*model.PopulatedNest, error) {
	n, err := s.nestRepo.FindByID(ctx, nestID)
	if err != nil {
		return nil, fmt.Errorf("Nestの取得に失敗しました: %w", err)
	}
	if n == nil {
		return nil, model.NewNestNotFoundError(nestID)
	}

	if mutate(n) {
		if err := s.nestRepo.Update(ctx, n); err != nil {
			return nil, fmt.Errorf("Nestの更新に失敗しました: %w", err)
		}
	}

	list, err := s.populate(ctx, []*model.Nest{n})
	if err != nil {
		return nil, err
	}
	return list[0], nil
}

func (s *Service) populate(ctx context.Context, list []*model.Nest) ([]*model.PopulatedNest, error) {
	ids := make([]string, 0, len(list))
	for _, n := range list {
		ids = append(ids, n.CreatorID)
	}
	creators, err := s.usersByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*model.PopulatedNest, 0, len(list))
	for _, n := range list {
		out = append(out, &model.PopulatedNest{Nest: *n, Creator: creators[n.CreatorID]})
	}
	return out, nil
}

func (s *Service) usersByID(ctx context.Context, ids []string) (map[string]*model.User, error) {
	out := make(map[string]*model.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	users, err := s.userRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの一括取得に失敗しました: %w", err)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}
