package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/nestfeed/internal/view"
)

// ErrNoUsername はログイン中のユーザー名が必要なRefreshをログアウト状態で呼んだ場合のエラー。
var ErrNoUsername = errors.New("ユーザー名が設定されていません")

// begin はslの取得開始を記録し、取得開始時点の世代番号を返す。
func (s *Store) begin(sl slice) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation[sl]++
	return s.generation[sl]
}

// commit は取得開始後にslが更新されていなければapplyを反映する。
// 反映した場合はtrueを返す。
func (s *Store) commit(sl slice, gen uint64, apply func(*State)) bool {
	s.mu.Lock()
	if s.generation[sl] != gen {
		s.mu.Unlock()
		s.logger.Debug("古い取得結果を破棄しました", slog.String("slice", sl.String()))
		return false
	}
	apply(&s.state)
	p := s.publishLocked()
	s.mu.Unlock()

	s.publish(p)
	return true
}

// read はロック下で現在の状態から値を取り出す。
func read[T any](s *Store, fn func(*State) T) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.state)
}

func (s *Store) username() (string, error) {
	name := read(s, func(st *State) string { return st.Username })
	if name == "" {
		return "", ErrNoUsername
	}
	return name, nil
}

// refresh はfetchの結果でslを置き換える。
func refresh[T any](ctx context.Context, s *Store, sl slice, fetch func(context.Context) (T, error), apply func(*State, T)) error {
	gen := s.begin(sl)
	v, err := fetch(ctx)
	if err != nil {
		return fmt.Errorf("%sの取得に失敗しました: %w", sl, err)
	}
	s.commit(sl, gen, func(st *State) { apply(st, v) })
	return nil
}

// RefreshFreets はFreet一覧を取得し直す。Filterが設定されていればその作成者のFreetに絞る。
func (s *Store) RefreshFreets(ctx context.Context) error {
	filter := read(s, func(st *State) string { return st.Filter })
	return refresh(ctx, s, sliceFreets,
		func(ctx context.Context) ([]view.FreetView, error) { return s.api.Freets(ctx, filter) },
		func(st *State, v []view.FreetView) { st.Freets = v },
	)
}

// RefreshNests はログイン中のユーザーが作成したNest一覧を取得し直す。
func (s *Store) RefreshNests(ctx context.Context) error {
	name, err := s.username()
	if err != nil {
		return err
	}
	return refresh(ctx, s, sliceNests,
		func(ctx context.Context) ([]view.NestView, error) { return s.api.Nests(ctx, name) },
		func(st *State, v []view.NestView) { st.Nests = v },
	)
}

// RefreshFriends はログイン中のユーザーのフレンド一覧を取得し直す。
func (s *Store) RefreshFriends(ctx context.Context) error {
	name, err := s.username()
	if err != nil {
		return err
	}
	return refresh(ctx, s, sliceFriends,
		func(ctx context.Context) ([]view.UserView, error) { return s.api.FriendsOf(ctx, name) },
		func(st *State, v []view.UserView) { st.Friends = v },
	)
}

// RefreshTimes はログイン中のユーザーが作成したTime一覧を取得し直す。
func (s *Store) RefreshTimes(ctx context.Context) error {
	name, err := s.username()
	if err != nil {
		return err
	}
	return refresh(ctx, s, sliceTimes,
		func(ctx context.Context) ([]view.TimeView, error) { return s.api.Times(ctx, name) },
		func(st *State, v []view.TimeView) { st.Times = v },
	)
}

// nestIDs は現在保持しているNestのID一覧を返す。
func (s *Store) nestIDs() []string {
	return read(s, func(st *State) []string {
		ids := make([]string, 0, len(st.Nests))
		for _, n := range st.Nests {
			ids = append(ids, n.ID)
		}
		return ids
	})
}

// perNest は保持している全Nestについてfetchを呼び、NestIDごとの結果を返す。
// 1件でも失敗した場合は何も返さない。
func perNest[T any](ctx context.Context, ids []string, fetch func(context.Context, string) ([]T, error)) (map[string][]T, error) {
	out := make(map[string][]T, len(ids))
	for _, id := range ids {
		v, err := fetch(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("nest %s: %w", id, err)
		}
		out[id] = v
	}
	return out, nil
}

// RefreshNestMembers は保持している各Nestのメンバー一覧を取得し直す。
func (s *Store) RefreshNestMembers(ctx context.Context) error {
	ids := s.nestIDs()
	return refresh(ctx, s, sliceNestMembers,
		func(ctx context.Context) (map[string][]view.UserView, error) {
			return perNest(ctx, ids, s.api.NestMembers)
		},
		func(st *State, v map[string][]view.UserView) { st.NestToMembers = v },
	)
}

// RefreshNestPosts は保持している各Nestの投稿一覧を取得し直す。
func (s *Store) RefreshNestPosts(ctx context.Context) error {
	ids := s.nestIDs()
	return refresh(ctx, s, sliceNestPosts,
		func(ctx context.Context) (map[string][]view.FreetView, error) {
			return perNest(ctx, ids, s.api.NestPosts)
		},
		func(st *State, v map[string][]view.FreetView) { st.NestToPosts = v },
	)
}

// RefreshNestTimes はTime一覧を取得し直し、Nest名ごとの時間帯の対応を作り直す。
// Time一覧は取得開始後にTimesが更新されていない場合だけ置き換える。
func (s *Store) RefreshNestTimes(ctx context.Context) error {
	name, err := s.username()
	if err != nil {
		return err
	}
	timesGen := s.begin(sliceTimes)
	gen := s.begin(sliceNestTimes)

	times, err := s.api.Times(ctx, name)
	if err != nil {
		return fmt.Errorf("%sの取得に失敗しました: %w", sliceNestTimes, err)
	}
	byNest := make(map[string][]view.TimeView)
	for _, t := range times {
		byNest[t.GroupID] = append(byNest[t.GroupID], t)
	}

	s.commit(sliceNestTimes, gen, func(st *State) {
		st.NestToTimes = byNest
		if s.generation[sliceTimes] == timesGen {
			st.Times = times
		}
	})
	return nil
}

// RefreshMutual はログイン中のユーザーとusernameの共通のフレンドを取得し直す。
func (s *Store) RefreshMutual(ctx context.Context, username string) error {
	return refresh(ctx, s, sliceMutual,
		func(ctx context.Context) ([]view.UserView, error) { return s.api.Mutual(ctx, username) },
		func(st *State, v []view.UserView) { st.Mutual = v },
	)
}

// RefreshSuggested はusernameのフレンドのうち自分のフレンドでないユーザーを取得し直す。
func (s *Store) RefreshSuggested(ctx context.Context, username string) error {
	return refresh(ctx, s, sliceSuggested,
		func(ctx context.Context) ([]view.UserView, error) { return s.api.Suggested(ctx, username) },
		func(st *State, v []view.UserView) { st.Suggested = v },
	)
}
