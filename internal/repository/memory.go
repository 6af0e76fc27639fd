package repository

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/nestfeed/internal/model"
)

// memoryDB はインメモリ実装が共有するデータ。
// Nestの削除とTimeの孤立判定のように、エンティティをまたぐ参照があるため1つのロックで保護する。
type memoryDB struct {
	mu       sync.RWMutex
	users    map[string]model.User
	sessions map[string]model.Session
	friends  map[string]model.Friend
	nests    map[string]model.Nest
	times    map[string]model.Time
	freets   map[string]model.Freet
	now      func() time.Time
}

// NewMemoryRepositories はインメモリ実装のリポジトリ一式を生成する。
// ローカル開発とテスト用で、プロセス終了時にデータは失われる。
func NewMemoryRepositories() *Repositories {
	db := &memoryDB{
		users:    make(map[string]model.User),
		sessions: make(map[string]model.Session),
		friends:  make(map[string]model.Friend),
		nests:    make(map[string]model.Nest),
		times:    make(map[string]model.Time),
		freets:   make(map[string]model.Freet),
		now:      time.Now,
	}
	return &Repositories{
		Users:    &MemoryUserRepo{db: db},
		Sessions: &MemorySessionRepo{db: db},
		Friends:  &MemoryFriendRepo{db: db},
		Nests:    &MemoryNestRepo{db: db},
		Times:    &MemoryTimeRepo{db: db},
		Freets:   &MemoryFreetRepo{db: db},
	}
}

func copyIDs(ids []string) []string {
	return append([]string{}, ids...)
}

// MemoryUserRepo はインメモリのユーザーリポジトリ。
type MemoryUserRepo struct{ db *memoryDB }

// FindByID は指定IDのユーザーを取得する。
func (r *MemoryUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// FindByIDs は指定IDのユーザーをまとめて取得する。
func (r *MemoryUserRepo) FindByIDs(_ context.Context, ids []string) ([]*model.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	users := []*model.User{}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		u, ok := r.db.users[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		users = append(users, &u)
	}
	return users, nil
}

// FindByUsername はユーザー名でユーザーを取得する。
func (r *MemoryUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, u := range r.db.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, nil
}

// Create はユーザーを作成する。
func (r *MemoryUserRepo) Create(_ context.Context, user *model.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[user.ID]; ok {
		return ErrDuplicate
	}
	for _, u := range r.db.users {
		if u.Username == user.Username {
			return ErrDuplicate
		}
	}
	r.db.users[user.ID] = *user
	return nil
}

// Update はユーザーを上書き更新する。
func (r *MemoryUserRepo) Update(_ context.Context, user *model.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	current, ok := r.db.users[user.ID]
	if !ok {
		return nil
	}
	for id, u := range r.db.users {
		if id != user.ID && u.Username == user.Username {
			return ErrDuplicate
		}
	}
	user.Version = current.Version + 1
	r.db.users[user.ID] = *user
	return nil
}

// DeleteByID は指定IDのユーザーを削除する。
func (r *MemoryUserRepo) DeleteByID(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.users, id)
	return nil
}

// MemorySessionRepo はインメモリのセッションリポジトリ。
type MemorySessionRepo struct{ db *memoryDB }

// Create はセッションを作成する。
func (r *MemorySessionRepo) Create(_ context.Context, session *model.Session) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.sessions[session.ID] = *session
	return nil
}

// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
func (r *MemorySessionRepo) FindByID(_ context.Context, id string) (*model.Session, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	s, ok := r.db.sessions[id]
	if !ok || !s.ExpiresAt.After(r.db.now()) {
		return nil, nil
	}
	return &s, nil
}

// DeleteByID は指定IDのセッションを削除する。
func (r *MemorySessionRepo) DeleteByID(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.sessions, id)
	return nil
}

// DeleteByUserID は指定ユーザーの全セッションを削除する。
func (r *MemorySessionRepo) DeleteByUserID(_ context.Context, userID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, s := range r.db.sessions {
		if s.UserID == userID {
			delete(r.db.sessions, id)
		}
	}
	return nil
}

// DeleteExpired は期限切れのセッションを削除する。
func (r *MemorySessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := r.db.now()
	var n int64
	for id, s := range r.db.sessions {
		if !s.ExpiresAt.After(now) {
			delete(r.db.sessions, id)
			n++
		}
	}
	return n, nil
}

// MemoryFriendRepo はインメモリのフレンドリストリポジトリ。
// friendsマップのキーはユーザーID。
type MemoryFriendRepo struct{ db *memoryDB }

func (r *MemoryFriendRepo) clone(f model.Friend) *model.Friend {
	f.Friends = copyIDs(f.Friends)
	return &f
}

// FindByUserID はユーザーのフレンドリストを取得する。
func (r *MemoryFriendRepo) FindByUserID(_ context.Context, userID string) (*model.Friend, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	f, ok := r.db.friends[userID]
	if !ok {
		return nil, nil
	}
	return r.clone(f), nil
}

// FindAll は全ユーザーのフレンドリストを取得する。
func (r *MemoryFriendRepo) FindAll(_ context.Context) ([]*model.Friend, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	friends := make([]*model.Friend, 0, len(r.db.friends))
	for _, f := range r.db.friends {
		friends = append(friends, r.clone(f))
	}
	sort.Slice(friends, func(i, j int) bool { return friends[i].ID < friends[j].ID })
	return friends, nil
}

// Create はフレンドリストを作成する。
func (r *MemoryFriendRepo) Create(_ context.Context, f *model.Friend) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.friends[f.UserID]; ok {
		return ErrDuplicate
	}
	stored := *r.clone(*f)
	r.db.friends[f.UserID] = stored
	return nil
}

// Update はフレンドリストを上書き更新する。
func (r *MemoryFriendRepo) Update(_ context.Context, f *model.Friend) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	current, ok := r.db.friends[f.UserID]
	if !ok {
		return nil
	}
	f.Version = current.Version + 1
	r.db.friends[f.UserID] = *r.clone(*f)
	return nil
}

// DeleteByUserID はユーザーのフレンドリストを削除する。
func (r *MemoryFriendRepo) DeleteByUserID(_ context.Context, userID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.friends, userID)
	return nil
}

// PullFriend は全ユーザーのフレンドリストからfriendIDを取り除く。
func (r *MemoryFriendRepo) PullFriend(_ context.Context, friendID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for userID, f := range r.db.friends {
		if !slices.Contains(f.Friends, friendID) {
			continue
		}
		f.Friends = slices.DeleteFunc(copyIDs(f.Friends), func(id string) bool { return id == friendID })
		f.Version++
		r.db.friends[userID] = f
	}
	return nil
}

// MemoryNestRepo はインメモリのNestリポジトリ。
type MemoryNestRepo struct{ db *memoryDB }

func cloneNest(n model.Nest) *model.Nest {
	n.Members = copyIDs(n.Members)
	n.Posts = copyIDs(n.Posts)
	return &n
}

func (r *MemoryNestRepo) filter(match func(model.Nest) bool) []*model.Nest {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	nests := []*model.Nest{}
	for _, n := range r.db.nests {
		if match(n) {
			nests = append(nests, cloneNest(n))
		}
	}
	sort.Slice(nests, func(i, j int) bool {
		if c := strings.Compare(nests[i].Name, nests[j].Name); c != 0 {
			return c < 0
		}
		return nests[i].ID < nests[j].ID
	})
	return nests
}

// FindByID は指定IDのNestを取得する。
func (r *MemoryNestRepo) FindByID(_ context.Context, id string) (*model.Nest, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	n, ok := r.db.nests[id]
	if !ok {
		return nil, nil
	}
	return cloneNest(n), nil
}

// FindAll は全Nestを名前の昇順で取得する。
func (r *MemoryNestRepo) FindAll(_ context.Context) ([]*model.Nest, error) {
	return r.filter(func(model.Nest) bool { return true }), nil
}

// FindByCreatorID は作成者のNestを名前の昇順で取得する。
func (r *MemoryNestRepo) FindByCreatorID(_ context.Context, creatorID string) ([]*model.Nest, error) {
	return r.filter(func(n model.Nest) bool { return n.CreatorID == creatorID }), nil
}

// Create はNestを作成する。
func (r *MemoryNestRepo) Create(_ context.Context, n *model.Nest) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.nests[n.ID]; ok {
		return ErrDuplicate
	}
	r.db.nests[n.ID] = *cloneNest(*n)
	return nil
}

// Update はNestを上書き更新する。
func (r *MemoryNestRepo) Update(_ context.Context, n *model.Nest) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	current, ok := r.db.nests[n.ID]
	if !ok {
		return nil
	}
	n.Version = current.Version + 1
	r.db.nests[n.ID] = *cloneNest(*n)
	return nil
}

// DeleteByID は指定IDのNestを削除する。
func (r *MemoryNestRepo) DeleteByID(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.nests, id)
	return nil
}

// DeleteByCreatorID は作成者の全Nestを削除する。
func (r *MemoryNestRepo) DeleteByCreatorID(_ context.Context, creatorID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, n := range r.db.nests {
		if n.CreatorID == creatorID {
			delete(r.db.nests, id)
		}
	}
	return nil
}

// MemoryTimeRepo はインメモリのTimeリポジトリ。
type MemoryTimeRepo struct{ db *memoryDB }

func (r *MemoryTimeRepo) filter(match func(model.Time) bool) []*model.Time {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	times := []*model.Time{}
	for _, t := range r.db.times {
		if match(t) {
			t := t
			times = append(times, &t)
		}
	}
	sort.Slice(times, func(i, j int) bool {
		if times[i].StartTime != times[j].StartTime {
			return times[i].StartTime < times[j].StartTime
		}
		return times[i].ID < times[j].ID
	})
	return times
}

// FindByID は指定IDのTimeを取得する。
func (r *MemoryTimeRepo) FindByID(_ context.Context, id string) (*model.Time, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	t, ok := r.db.times[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// FindAll は全Timeを取得する。
func (r *MemoryTimeRepo) FindAll(_ context.Context) ([]*model.Time, error) {
	return r.filter(func(model.Time) bool { return true }), nil
}

// FindByCreatorID は作成者のTimeを取得する。
func (r *MemoryTimeRepo) FindByCreatorID(_ context.Context, creatorID string) ([]*model.Time, error) {
	return r.filter(func(t model.Time) bool { return t.CreatorID == creatorID }), nil
}

// FindByGroupID はNestに紐づくTimeを取得する。
func (r *MemoryTimeRepo) FindByGroupID(_ context.Context, groupID string) ([]*model.Time, error) {
	return r.filter(func(t model.Time) bool { return t.GroupID == groupID }), nil
}

// Create はTimeを作成する。
func (r *MemoryTimeRepo) Create(_ context.Context, t *model.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.times[t.ID]; ok {
		return ErrDuplicate
	}
	r.db.times[t.ID] = *t
	return nil
}

// Update はTimeを上書き更新する。
func (r *MemoryTimeRepo) Update(_ context.Context, t *model.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	current, ok := r.db.times[t.ID]
	if !ok {
		return nil
	}
	t.Version = current.Version + 1
	r.db.times[t.ID] = *t
	return nil
}

// DeleteByID は指定IDのTimeを削除する。
func (r *MemoryTimeRepo) DeleteByID(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.times, id)
	return nil
}

// DeleteByCreatorID は作成者の全Timeを削除する。
func (r *MemoryTimeRepo) DeleteByCreatorID(_ context.Context, creatorID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, t := range r.db.times {
		if t.CreatorID == creatorID {
			delete(r.db.times, id)
		}
	}
	return nil
}

// DeleteOrphans は参照先のNestが存在しないTimeを削除する。
func (r *MemoryTimeRepo) DeleteOrphans(_ context.Context) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for id, t := range r.db.times {
		if _, ok := r.db.nests[t.GroupID]; !ok {
			delete(r.db.times, id)
			n++
		}
	}
	return n, nil
}

// MemoryFreetRepo はインメモリのFreetリポジトリ。
type MemoryFreetRepo struct{ db *memoryDB }

func (r *MemoryFreetRepo) filter(match func(model.Freet) bool) []*model.Freet {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	freets := []*model.Freet{}
	for _, f := range r.db.freets {
		if match(f) {
			f := f
			freets = append(freets, &f)
		}
	}
	sort.Slice(freets, func(i, j int) bool {
		if !freets[i].DateCreated.Equal(freets[j].DateCreated) {
			return freets[i].DateCreated.After(freets[j].DateCreated)
		}
		return freets[i].ID < freets[j].ID
	})
	return freets
}

// FindByID は指定IDのFreetを取得する。
func (r *MemoryFreetRepo) FindByID(_ context.Context, id string) (*model.Freet, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	f, ok := r.db.freets[id]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

// FindByIDs は指定IDのFreetをまとめて取得する。
func (r *MemoryFreetRepo) FindByIDs(_ context.Context, ids []string) ([]*model.Freet, error) {
	return r.filter(func(f model.Freet) bool { return slices.Contains(ids, f.ID) }), nil
}

// FindAll は全Freetを作成日時の降順で取得する。
func (r *MemoryFreetRepo) FindAll(_ context.Context) ([]*model.Freet, error) {
	return r.filter(func(model.Freet) bool { return true }), nil
}

// FindByAuthorID は投稿者のFreetを作成日時の降順で取得する。
func (r *MemoryFreetRepo) FindByAuthorID(_ context.Context, authorID string) ([]*model.Freet, error) {
	return r.filter(func(f model.Freet) bool { return f.AuthorID == authorID }), nil
}

// Create はFreetを作成する。
func (r *MemoryFreetRepo) Create(_ context.Context, f *model.Freet) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.freets[f.ID]; ok {
		return ErrDuplicate
	}
	r.db.freets[f.ID] = *f
	return nil
}

// Update はFreetを上書き更新する。
func (r *MemoryFreetRepo) Update(_ context.Context, f *model.Freet) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	current, ok := r.db.freets[f.ID]
	if !ok {
		return nil
	}
	f.Version = current.Version + 1
	r.db.freets[f.ID] = *f
	return nil
}

// DeleteByID は指定IDのFreetを削除する。
func (r *MemoryFreetRepo) DeleteByID(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.freets, id)
	return nil
}

// DeleteByAuthorID は投稿者の全Freetを削除する。
func (r *MemoryFreetRepo) DeleteByAuthorID(_ context.Context, authorID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, f := range r.db.freets {
		if f.AuthorID == authorID {
			delete(r.db.freets, id)
		}
	}
	return nil
}

// compile-time interface check
var (
	_ UserRepository    = (*MemoryUserRepo)(nil)
	_ SessionRepository = (*MemorySessionRepo)(nil)
	_ FriendRepository  = (*MemoryFriendRepo)(nil)
	_ NestRepository    = (*MemoryNestRepo)(nil)
	_ TimeRepository    = (*MemoryTimeRepo)(nil)
	_ FreetRepository   = (*MemoryFreetRepo)(nil)
)
