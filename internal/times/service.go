// Package times はNestの表示時間帯（Time）のドメインロジックを提供する。
package times

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hitoshi/nestfeed/internal/model"
	"github.com/hitoshi/nestfeed/internal/repository"
)

// Recorder はTime作成のメトリクス記録インターフェース。
type Recorder interface {
	RecordTimeCreated()
}

// Service はTimeのサービス層。
type Service struct {
	userRepo repository.UserRepository
	nestRepo repository.NestRepository
	timeRepo repository.TimeRepository
	recorder Recorder
}

// NewService はServiceの新しいインスタンスを生成する。recorderはnilでもよい。
func NewService(
	userRepo repository.UserRepository,
	nestRepo repository.NestRepository,
	timeRepo repository.TimeRepository,
	recorder Recorder,
) *Service {
	return &Service{
		userRepo: userRepo,
		nestRepo: nestRepo,
		timeRepo: timeRepo,
		recorder: recorder,
	}
}

// AddOne はgroupIDのNestに紐づくTimeを作成する。
// start/endは"HH:MM"形式でなければならないが、start < end は要求しない。
func (s *Service) AddOne(ctx context.Context, creatorID, groupID, start, end string) (*model.PopulatedTime, error) {
	if err := ValidateClock("startTime", start); err != nil {
		return nil, err
	}
	if err := ValidateClock("endTime", end); err != nil {
		return nil, err
	}

	t := &model.Time{
		ID:        uuid.New().String(),
		CreatorID: creatorID,
		GroupID:   groupID,
		StartTime: start,
		EndTime:   end,
	}
	if err := s.timeRepo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("Timeの作成に失敗しました: %w", err)
	}
	if s.recorder != nil {
		s.recorder.RecordTimeCreated()
	}
	return s.populateOne(ctx, t)
}

// FindOne は指定IDのTimeを返す。見つからない場合はnilを返す。
func (s *Service) FindOne(ctx context.Context, id string) (*model.PopulatedTime, error) {
	t, err := s.timeRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Timeの取得に失敗しました: %w", err)
	}
	if t == nil {
		return nil, nil
	}
	return s.populateOne(ctx, t)
}

// FindAll は全Timeを開始時刻順に返す。
func (s *Service) FindAll(ctx context.Context) ([]*model.PopulatedTime, error) {
	list, err := s.timeRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("Time一覧の取得に失敗しました: %w", err)
	}
	return s.populate(ctx, list)
}

// FindAllByUsername は指定ユーザーが作成したTimeを返す。
func (s *Service) FindAllByUsername(ctx context.Context, username string) ([]*model.PopulatedTime, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return []*model.PopulatedTime{}, nil
	}
	list, err := s.timeRepo.FindByCreatorID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("作成者のTime取得に失敗しました: %w", err)
	}
	return s.populate(ctx, list)
}

// FindAllByGroup はNestに紐づくTimeを返す。Nestが存在しない場合は空を返す。
func (s *Service) FindAllByGroup(ctx context.Context, groupID string) ([]*model.PopulatedTime, error) {
	nest, err := s.nestRepo.FindByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("Nestの取得に失敗しました: %w", err)
	}
	if nest == nil {
		return []*model.PopulatedTime{}, nil
	}
	list, err := s.timeRepo.FindByGroupID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("NestのTime取得に失敗しました: %w", err)
	}
	return s.populate(ctx, list)
}

// UpdateOne は開始・終了時刻を更新する。nilのフィールドは変更しない。
func (s *Service) UpdateOne(ctx context.Context, id string, start, end *string) (*model.PopulatedTime, error) {
	t, err := s.timeRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Timeの取得に失敗しました: %w", err)
	}
	if t == nil {
		return nil, model.NewTimeNotFoundError(id)
	}

	if start != nil {
		if err := ValidateClock("startTime", *start); err != nil {
			return nil, err
		}
		t.StartTime = *start
	}
	if end != nil {
		if err := ValidateClock("endTime", *end); err != nil {
			return nil, err
		}
		t.EndTime = *end
	}

	if err := s.timeRepo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("Timeの更新に失敗しました: %w", err)
	}
	return s.populateOne(ctx, t)
}

// DeleteOne は指定IDのTimeを削除する。存在しなくても成功を返す。
func (s *Service) DeleteOne(ctx context.Context, id string) error {
	if err := s.timeRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("Timeの削除に失敗しました: %w", err)
	}
	return nil
}

// DeleteByGroup はNestに紐づくTimeを1件ずつ削除し、削除件数を返す。
// 途中で失敗した場合、それまでに削除した件数とエラーを返す。
func (s *Service) DeleteByGroup(ctx context.Context, groupID string) (int, error) {
	list, err := s.timeRepo.FindByGroupID(ctx, groupID)
	if err != nil {
		return 0, fmt.Errorf("NestのTime取得に失敗しました: %w", err)
	}
	deleted := 0
	for _, t := range list {
		if err := s.timeRepo.DeleteByID(ctx, t.ID); err != nil {
			return deleted, fmt.Errorf("Timeの削除に失敗しました: %w", err)
		}
		deleted++
	}
	return deleted, nil
}

// DeleteMany は作成者の全Timeを削除する。
func (s *Service) DeleteMany(ctx context.Context, creatorID string) error {
	if err := s.timeRepo.DeleteByCreatorID(ctx, creatorID); err != nil {
		return fmt.Errorf("作成者のTime削除に失敗しました: %w", err)
	}
	return nil
}

// ValidateClock はvalueが"HH:MM"形式の時刻であることを検証する。fieldはエラーのキーになる。
func ValidateClock(field, value string) error {
	if _, err := model.ParseClock(value); err != nil {
		return model.NewInvalidClockError(field, value)
	}
	return nil
}

func (s *Service) populateOne(ctx context.Context, t *model.Time) (*model.PopulatedTime, error) {
	list, err := s.populate(ctx, []*model.Time{t})
	if err != nil {
		return nil, err
	}
	return list[0], nil
}

// populate はcreatorIdとgroupIdを解決する。削除済みのNestを参照するTimeはGroupがnilになる。
func (s *Service) populate(ctx context.Context, list []*model.Time) ([]*model.PopulatedTime, error) {
	creatorIDs := make([]string, 0, len(list))
	for _, t := range list {
		creatorIDs = append(creatorIDs, t.CreatorID)
	}
	creators := make(map[string]*model.User, len(list))
	if len(creatorIDs) > 0 {
		users, err := s.userRepo.FindByIDs(ctx, creatorIDs)
		if err != nil {
			return nil, fmt.Errorf("作成者の一括取得に失敗しました: %w", err)
		}
		for _, u := range users {
			creators[u.ID] = u
		}
	}

	groups := make(map[string]*model.Nest)
	out := make([]*model.PopulatedTime, 0, len(list))
	for _, t := range list {
		group, ok := groups[t.GroupID]
		if !ok {
			n, err := s.nestRepo.FindByID(ctx, t.GroupID)
			if err != nil {
				return nil, fmt.Errorf("Nestの取得に失敗しました: %w", err)
			}
			group = n
			groups[t.GroupID] = n
		}
		out = append(out, &model.PopulatedTime{Time: *t, Creator: creators[t.CreatorID], Group: group})
	}
	return out, nil
}
