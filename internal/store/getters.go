package store

import (
	"slices"
	"time"

	"github.com/hitoshi/nestfeed/internal/model"
	"github.com/hitoshi/nestfeed/internal/view"
)

// UserFreets はログイン中のユーザーが作成したFreetを返す。
func (s *Store) UserFreets() []view.FreetView {
	return read(s, func(st *State) []view.FreetView {
		var out []view.FreetView
		for _, f := range st.Freets {
			if f.Author == st.Username {
				out = append(out, f)
			}
		}
		return out
	})
}

// IsOnFeed はauthorをメンバーに含むいずれかのNestに、nowを含む時間帯があるかを返す。
// 時刻として解析できない時間帯は無視する。
func (s *Store) IsOnFeed(author string, now time.Time) bool {
	return read(s, func(st *State) bool {
		for _, nest := range nestsWhere(st, func(id string) bool { return hasMember(st.NestToMembers[id], author) }) {
			for _, t := range st.NestToTimes[nest.Name] {
				w, err := model.ParseClockWindow(t.StartTime, t.EndTime)
				if err != nil {
					continue
				}
				contains := w.Contains
				if s.legacy {
					contains = w.ContainsLegacy
				}
				if contains(now) {
					return true
				}
			}
		}
		return false
	})
}

// NestOptions は保持している全Nestの名前を返す。
func (s *Store) NestOptions() []string {
	return read(s, func(st *State) []string {
		names := make([]string, 0, len(st.Nests))
		for _, n := range st.Nests {
			names = append(names, n.Name)
		}
		return names
	})
}

// NestMembers はNestのメンバー一覧を返す。
func (s *Store) NestMembers(nestID string) []view.UserView {
	return read(s, func(st *State) []view.UserView {
		return slices.Clone(st.NestToMembers[nestID])
	})
}

// InNest はusernameがNestのメンバーかを返す。
func (s *Store) InNest(nestID, username string) bool {
	return read(s, func(st *State) bool {
		return hasMember(st.NestToMembers[nestID], username)
	})
}

// AreFriends はusernameがログイン中のユーザーのフレンドかを返す。
func (s *Store) AreFriends(username string) bool {
	return read(s, func(st *State) bool {
		return hasMember(st.Friends, username)
	})
}

// ProfileNests はusernameをメンバーに含むNestを返す。
func (s *Store) ProfileNests(username string) []view.NestView {
	return read(s, func(st *State) []view.NestView {
		return nestsWhere(st, func(id string) bool { return hasMember(st.NestToMembers[id], username) })
	})
}

// PostNests はFreetが投稿されているNestを返す。
func (s *Store) PostNests(freetID string) []view.NestView {
	return read(s, func(st *State) []view.NestView {
		return nestsWhere(st, func(id string) bool { return hasPost(st.NestToPosts[id], freetID) })
	})
}

// PossiblePostNests はFreetをまだ投稿していないNestを返す。投稿が1件もないNestも含む。
func (s *Store) PossiblePostNests(freetID string) []view.NestView {
	return read(s, func(st *State) []view.NestView {
		return nestsWhere(st, func(id string) bool { return !hasPost(st.NestToPosts[id], freetID) })
	})
}

// nestsWhere は保持している順にmatchを満たすNestを返す。
func nestsWhere(st *State, match func(nestID string) bool) []view.NestView {
	var out []view.NestView
	for _, n := range st.Nests {
		if match(n.ID) {
			n.Members = slices.Clone(n.Members)
			n.Posts = slices.Clone(n.Posts)
			out = append(out, n)
		}
	}
	return out
}

func hasMember(users []view.UserView, username string) bool {
	return slices.ContainsFunc(users, func(u view.UserView) bool { return u.Username == username })
}

func hasPost(freets []view.FreetView, freetID string) bool {
	return slices.ContainsFunc(freets, func(f view.FreetView) bool { return f.ID == freetID })
}
