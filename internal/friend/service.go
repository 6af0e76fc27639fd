// Package friend はフレンド関係のドメインロジックを提供する。
//
// フレンド関係は対称だが、ユーザーごとのFriendドキュメントに独立して保持する。
// 追加・削除は常に要求者側、受信者側の順に書き込む。2つの書き込みはアトミックではない。
package friend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hitoshi/nestfeed/internal/model"
	"github.com/hitoshi/nestfeed/internal/repository"
)

// Recorder はフレンド操作のメトリクス記録インターフェース。
type Recorder interface {
	RecordFriendship(operation string)
}

// Service はフレンド関係のサービス層。
type Service struct {
	userRepo   repository.UserRepository
	friendRepo repository.FriendRepository
	recorder   Recorder
}

// NewService はServiceの新しいインスタンスを生成する。recorderはnilでもよい。
func NewService(userRepo repository.UserRepository, friendRepo repository.FriendRepository, recorder Recorder) *Service {
	return &Service{
		userRepo:   userRepo,
		friendRepo: friendRepo,
		recorder:   recorder,
	}
}

// AddOne はユーザー登録時に空のフレンドリストを作成する。
func (s *Service) AddOne(ctx context.Context, userID string) (*model.Friend, error) {
	friend := &model.Friend{
		ID:      uuid.New().String(),
		UserID:  userID,
		Friends: []string{},
	}
	if err := s.friendRepo.Create(ctx, friend); err != nil {
		return nil, fmt.Errorf("フレンドリストの作成に失敗しました: %w", err)
	}
	return friend, nil
}

// FindAll は全ユーザーのフレンドリストをuser解決済みで返す。
func (s *Service) FindAll(ctx context.Context) ([]*model.PopulatedFriend, error) {
	friends, err := s.friendRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("フレンドリスト一覧の取得に失敗しました: %w", err)
	}
	return s.populate(ctx, friends)
}

// FindAllByUsername は指定ユーザーのフレンドリスト（0件または1件）を返す。
func (s *Service) FindAllByUsername(ctx context.Context, username string) ([]*model.PopulatedFriend, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return []*model.PopulatedFriend{}, nil
	}

	friend, err := s.friendRepo.FindByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("フレンドリストの取得に失敗しました: %w", err)
	}
	if friend == nil {
		return []*model.PopulatedFriend{}, nil
	}
	return []*model.PopulatedFriend{{Friend: *friend, User: user}}, nil
}

// FriendsOf は指定ユーザーのフレンドをリストの順序で返す。
func (s *Service) FriendsOf(ctx context.Context, username string) ([]*model.User, error) {
	docs, err := s.FindAllByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return []*model.User{}, nil
	}
	return s.resolveUsers(ctx, docs[0].Friends)
}

// FindMutualFriends はuserIDとusernameの双方のフレンドであるユーザーを返す。
// 順序はuserID側のリスト順で、重複は含まない。
func (s *Service) FindMutualFriends(ctx context.Context, userID, username string) ([]*model.User, error) {
	a, b, err := s.pair(ctx, userID, username)
	if err != nil {
		return nil, err
	}
	inB := toSet(b)
	return s.resolveUsers(ctx, filter(a, func(id string) bool { return inB[id] }))
}

// FindSuggestedFriends はusernameのフレンドのうち、userIDのフレンドでないユーザーを返す。
// userID自身は除外しない。
func (s *Service) FindSuggestedFriends(ctx context.Context, userID, username string) ([]*model.User, error) {
	a, b, err := s.pair(ctx, userID, username)
	if err != nil {
		return nil, err
	}
	inA := toSet(a)
	return s.resolveUsers(ctx, filter(b, func(id string) bool { return !inA[id] }))
}

// AreFriends はuserIDがusernameのフレンドリストに含まれるかを返す。
func (s *Service) AreFriends(ctx context.Context, userID, username string) (bool, error) {
	docs, err := s.FindAllByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	if len(docs) == 0 {
		return false, nil
	}
	for _, id := range docs[0].Friends {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

// UpdateOne は要求者と受信者の双方のリストに操作を適用し、要求者側のリストを返す。
func (s *Service) UpdateOne(ctx context.Context, requesterID, recipientUsername string, op model.Operation) (*model.PopulatedFriend, error) {
	requester, err := s.userRepo.FindByID(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("要求者の取得に失敗しました: %w", err)
	}
	if requester == nil {
		return nil, model.NewUserNotFoundError(requesterID)
	}
	recipient, err := s.userRepo.FindByUsername(ctx, recipientUsername)
	if err != nil {
		return nil, fmt.Errorf("受信者の取得に失敗しました: %w", err)
	}
	if recipient == nil {
		return nil, model.NewUserNotFoundError(recipientUsername)
	}

	friendA, err := s.findOrCreate(ctx, requester.ID)
	if err != nil {
		return nil, err
	}
	friendB, err := s.findOrCreate(ctx, recipient.ID)
	if err != nil {
		return nil, err
	}

	friendA.Friends, _ = op.Apply(friendA.Friends, recipient.ID)
	friendB.Friends, _ = op.Apply(friendB.Friends, requester.ID)

	if err := s.friendRepo.Update(ctx, friendA); err != nil {
		return nil, fmt.Errorf("要求者のフレンドリストの更新に失敗しました: %w", err)
	}
	if err := s.friendRepo.Update(ctx, friendB); err != nil {
		slog.Warn("フレンド関係が片側のみ更新されました",
			slog.String("requester_id", requester.ID),
			slog.String("recipient_id", recipient.ID),
			slog.String("operation", string(op)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("受信者のフレンドリストの更新に失敗しました: %w", err)
	}

	if s.recorder != nil {
		s.recorder.RecordFriendship(string(op))
	}

	return &model.PopulatedFriend{Friend: *friendA, User: requester}, nil
}

// DeleteMany はユーザーのフレンドリストを削除し、他ユーザーのリストからも取り除く。
func (s *Service) DeleteMany(ctx context.Context, userID string) error {
	if err := s.friendRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("フレンドリストの削除に失敗しました: %w", err)
	}
	if err := s.friendRepo.PullFriend(ctx, userID); err != nil {
		return fmt.Errorf("他ユーザーのフレンドリストからの削除に失敗しました: %w", err)
	}
	return nil
}

// pair はuserIDとusernameのフレンドIDリストを返す。
func (s *Service) pair(ctx context.Context, userID, username string) ([]string, []string, error) {
	friendA, err := s.friendRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("フレンドリストの取得に失敗しました: %w", err)
	}
	docs, err := s.FindAllByUsername(ctx, username)
	if err != nil {
		return nil, nil, err
	}

	var a, b []string
	if friendA != nil {
		a = friendA.Friends
	}
	if len(docs) > 0 {
		b = docs[0].Friends
	}
	return a, b, nil
}

// findOrCreate は登録前から存在するユーザーのリスト欠損を補う。
func (s *Service) findOrCreate(ctx context.Context, userID string) (*model.Friend, error) {
	friend, err := s.friendRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("フレンドリストの取得に失敗しました: %w", err)
	}
	if friend != nil {
		return friend, nil
	}
	return s.AddOne(ctx, userID)
}

func (s *Service) populate(ctx context.Context, friends []*model.Friend) ([]*model.PopulatedFriend, error) {
	ids := make([]string, 0, len(friends))
	for _, f := range friends {
		ids = append(ids, f.UserID)
	}
	users, err := s.usersByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*model.PopulatedFriend, 0, len(friends))
	for _, f := range friends {
		out = append(out, &model.PopulatedFriend{Friend: *f, User: users[f.UserID]})
	}
	return out, nil
}

// resolveUsers はidsの順序を保ったままユーザーを解決する。存在しないIDは読み飛ばす。
func (s *Service) resolveUsers(ctx context.Context, ids []string) ([]*model.User, error) {
	users, err := s.usersByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*model.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := users[id]; ok {
			out = append(out, u)
		}
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

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// filter はkeepを満たすIDを重複なしで返す。
func filter(ids []string, keep func(string) bool) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] || !keep(id) {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
