package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/nestfeed/internal/view"
)

// DefaultAlertTTL はアラートが表示され続ける時間のデフォルト値。
const DefaultAlertTTL = 3 * time.Second

// API はストアがRefresh時に呼び出すサーバーAPI。
// *client.Client がこれを満たす。
type API interface {
	Freets(ctx context.Context, author string) ([]view.FreetView, error)
	Nests(ctx context.Context, creator string) ([]view.NestView, error)
	FriendsOf(ctx context.Context, username string) ([]view.UserView, error)
	Times(ctx context.Context, creator string) ([]view.TimeView, error)
	NestMembers(ctx context.Context, nestID string) ([]view.UserView, error)
	NestPosts(ctx context.Context, nestID string) ([]view.FreetView, error)
	Mutual(ctx context.Context, username string) ([]view.UserView, error)
	Suggested(ctx context.Context, username string) ([]view.UserView, error)
}

// Persister は状態のスナップショットを保存する。
type Persister interface {
	Save(State) error
}

// Config はストアの設定。
type Config struct {
	// Persister はミューテーションのたびに呼ばれる。nilなら保存しない。
	Persister Persister
	Logger    *slog.Logger
	// AlertTTL が0以下ならDefaultAlertTTLを使う。
	AlertTTL time.Duration
	// LegacyClock がtrueならIsOnFeedは時と分を独立に比較する。
	LegacyClock bool
}

// slice は世代管理の単位となる状態の区分。
type slice int

const (
	sliceFreets slice = iota
	sliceNests
	sliceFriends
	sliceTimes
	sliceNestMembers
	sliceNestPosts
	sliceNestTimes
	sliceMutual
	sliceSuggested
	sliceCount
)

var sliceNames = [sliceCount]string{
	"freets", "nests", "friends", "times", "nestToMembers", "nestToPosts", "nestToTimes", "mutual", "suggested",
}

func (s slice) String() string { return sliceNames[s] }

// Store はクライアント状態のコンテナ。
//
// 各区分は世代番号を持ち、Refreshの結果は取得開始後に同じ区分が
// 更新されていない場合にだけ反映される。
type Store struct {
	api       API
	persister Persister
	logger    *slog.Logger
	alertTTL  time.Duration
	legacy    bool

	mu          sync.Mutex
	state       State
	generation  [sliceCount]uint64
	alertSeq    map[string]uint64
	subscribers map[uint64]func(State)
	nextSubID   uint64
	version     uint64

	// publishMu は保存と通知を直列化する。published より古い版は捨てる。
	publishMu sync.Mutex
	published uint64
}

// New は初期状態initialからストアを生成する。
func New(api API, initial State, cfg Config) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.AlertTTL
	if ttl <= 0 {
		ttl = DefaultAlertTTL
	}
	st := initial.Clone()
	if st.Alerts == nil {
		st.Alerts = map[string]string{}
	}
	s := &Store{
		api:         api,
		persister:   cfg.Persister,
		logger:      logger,
		alertTTL:    ttl,
		legacy:      cfg.LegacyClock,
		state:       st,
		alertSeq:    map[string]uint64{},
		subscribers: map[uint64]func(State){},
	}
	// 復元したアラートも通常どおり期限切れにする
	for message := range st.Alerts {
		s.alertSeq[message] = 1
		time.AfterFunc(ttl, func() { s.expireAlert(message, 1) })
	}
	return s
}

// Snapshot は現在の状態のコピーを返す。
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Subscribe は状態が更新されるたびにfnを呼び出すよう登録する。
// 戻り値の関数を呼ぶと登録が解除される。
// fnの中からミューテーションを同期的に呼んではならない。
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// mutate はロック下でfnを適用し、購読者への通知と保存を行う。
// touchedの各区分の世代を進めるため、実行中のRefreshの結果は破棄される。
func (s *Store) mutate(fn func(*State), touched ...slice) {
	s.mu.Lock()
	for _, sl := range touched {
		s.generation[sl]++
	}
	fn(&s.state)
	p := s.publishLocked()
	s.mu.Unlock()

	s.publish(p)
}

type publication struct {
	version uint64
	state   State
	subs    []func(State)
}

func (s *Store) publishLocked() publication {
	s.version++
	subs := make([]func(State), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	return publication{version: s.version, state: s.state.Clone(), subs: subs}
}

func (s *Store) publish(p publication) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	if p.version <= s.published {
		return
	}
	s.published = p.version

	snap := p.state
	if s.persister != nil {
		if err := s.persister.Save(snap); err != nil {
			s.logger.Warn("状態の保存に失敗しました", slog.String("error", err.Error()))
		}
	}
	for _, fn := range p.subs {
		fn(snap)
	}
}

// SetUsername はログイン中のユーザー名を設定する。空文字列はログアウト状態。
func (s *Store) SetUsername(username string) {
	s.mutate(func(st *State) { st.Username = username })
}

// UpdateFilter はフィードを絞り込むユーザー名を設定する。
func (s *Store) UpdateFilter(filter string) {
	s.mutate(func(st *State) { st.Filter = filter })
}

// UpdateNestFilter は表示対象のNestを設定する。
func (s *Store) UpdateNestFilter(nestID string) {
	s.mutate(func(st *State) { st.NestFilter = nestID })
}

// AddNest はNestを末尾に追加する。
func (s *Store) AddNest(nest view.NestView) {
	s.mutate(func(st *State) { st.Nests = append(st.Nests, nest) }, sliceNests)
}

// UpdateFreets はFreet一覧を置き換える。
func (s *Store) UpdateFreets(freets []view.FreetView) {
	s.mutate(func(st *State) { st.Freets = freets }, sliceFreets)
}

// UpdateNests はNest一覧を置き換える。
func (s *Store) UpdateNests(nests []view.NestView) {
	s.mutate(func(st *State) { st.Nests = nests }, sliceNests)
}

// UpdateFriends はフレンド一覧を置き換える。
func (s *Store) UpdateFriends(friends []view.UserView) {
	s.mutate(func(st *State) { st.Friends = friends }, sliceFriends)
}

// UpdateTimes はTime一覧を置き換える。
func (s *Store) UpdateTimes(times []view.TimeView) {
	s.mutate(func(st *State) { st.Times = times }, sliceTimes)
}

// Alert はメッセージを表示し、AlertTTL経過後に取り除く。
// 同じメッセージを再度通知した場合は表示期間がその時点から数え直される。
func (s *Store) Alert(message, status string) {
	var seq uint64
	s.mutate(func(st *State) {
		s.alertSeq[message]++
		seq = s.alertSeq[message]
		st.Alerts[message] = status
	})

	time.AfterFunc(s.alertTTL, func() { s.expireAlert(message, seq) })
}

func (s *Store) expireAlert(message string, seq uint64) {
	s.mu.Lock()
	if s.alertSeq[message] != seq {
		s.mu.Unlock()
		return
	}
	delete(s.state.Alerts, message)
	p := s.publishLocked()
	s.mu.Unlock()

	s.publish(p)
}

// DismissAlert はアラートを期限前に取り除く。
func (s *Store) DismissAlert(message string) {
	s.mutate(func(st *State) {
		s.alertSeq[message]++
		delete(st.Alerts, message)
	})
}
