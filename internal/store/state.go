// Package store はクライアント側の状態を保持する。
//
// サーバーから取得した各コレクションの写しと、それらを横断する参照系（getter）を提供する。
// 状態の更新はミューテーションメソッドとRefresh系メソッドからのみ行う。
package store

import (
	"maps"
	"slices"

	"github.com/hitoshi/nestfeed/internal/view"
)

// State はストアが保持する状態のスナップショット。
// JSONにしたものがそのまま永続化される。
type State struct {
	// Filter はフィードを絞り込むユーザー名。空文字列なら全件。
	Filter        string                      `json:"filter"`
	Freets        []view.FreetView            `json:"freets"`
	Friends       []view.UserView             `json:"friends"`
	Mutual        []view.UserView             `json:"mutual"`
	Suggested     []view.UserView             `json:"suggested"`
	Times         []view.TimeView             `json:"times"`
	Nests         []view.NestView             `json:"nests"`
	NestToMembers map[string][]view.UserView  `json:"nestToMembers"`
	NestToPosts   map[string][]view.FreetView `json:"nestToPosts"`
	NestFilter    string                      `json:"nestFilter"`
	// NestToTimes はNest名からそのNestの全時間帯への対応。
	NestToTimes map[string][]view.TimeView `json:"nestToTimes"`
	Username    string                     `json:"username"`
	// Alerts はメッセージから状態（"success", "error"など）への対応。
	Alerts map[string]string `json:"alerts"`
}

// Clone はスライスとマップを複製した深いコピーを返す。
func (s State) Clone() State {
	c := s
	c.Freets = slices.Clone(s.Freets)
	c.Friends = slices.Clone(s.Friends)
	c.Mutual = slices.Clone(s.Mutual)
	c.Suggested = slices.Clone(s.Suggested)
	c.Times = slices.Clone(s.Times)
	c.Nests = cloneNests(s.Nests)
	c.NestToMembers = cloneMap(s.NestToMembers)
	c.NestToPosts = cloneMap(s.NestToPosts)
	c.NestToTimes = cloneMap(s.NestToTimes)
	c.Alerts = maps.Clone(s.Alerts)
	return c
}

func cloneNests(nests []view.NestView) []view.NestView {
	if nests == nil {
		return nil
	}
	out := make([]view.NestView, len(nests))
	for i, n := range nests {
		n.Members = slices.Clone(n.Members)
		n.Posts = slices.Clone(n.Posts)
		out[i] = n
	}
	return out
}

func cloneMap[V any](m map[string][]V) map[string][]V {
	if m == nil {
		return nil
	}
	out := make(map[string][]V, len(m))
	for k, v := range m {
		out[k] = slices.Clone(v)
	}
	return out
}
