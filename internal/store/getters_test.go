package store

import (
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/hitoshi/nestfeed/internal/view"
)

func fixtureState() State {
	return State{
		Username: "alice",
		Freets: []view.FreetView{
			{ID: "f1", Author: "alice"},
			{ID: "f2", Author: "bob"},
			{ID: "f3", Author: "alice"},
		},
		Friends: users("bob", "carol"),
		Nests: []view.NestView{
			{ID: "n1", Name: "family"},
			{ID: "n2", Name: "work"},
			{ID: "n3", Name: "empty"},
		},
		NestToMembers: map[string][]view.UserView{
			"n1": users("bob", "carol"),
			"n2": users("bob", "dave"),
			"n3": {},
		},
		NestToPosts: map[string][]view.FreetView{
			"n1": {{ID: "f2"}},
			"n2": {{ID: "f2"}, {ID: "f5"}},
		},
		NestToTimes: map[string][]view.TimeView{
			"family": {
				{GroupID: "family", StartTime: "06:00", EndTime: "08:00"},
				{GroupID: "family", StartTime: "20:00", EndTime: "22:00"},
			},
			"work": {{GroupID: "work", StartTime: "09:30", EndTime: "10:15"}},
		},
	}
}

func nestIDsOf(nests []view.NestView) []string {
	ids := []string{}
	for _, n := range nests {
		ids = append(ids, n.ID)
	}
	return ids
}

func at(hour, minute int) time.Time {
	return time.Date(2024, 5, 1, hour, minute, 0, 0, time.Local)
}

func TestStore_UserFreets(t *testing.T) {
	s := New(&fakeAPI{}, fixtureState(), Config{})

	got := s.UserFreets()

	assert.Equal(t, len(got), 2)
	assert.Equal(t, got[0].ID, "f1")
	assert.Equal(t, got[1].ID, "f3")
}

func TestStore_IsOnFeed(t *testing.T) {
	tests := []struct {
		name   string
		author string
		now    time.Time
		want   bool
	}{
		{name: "2つ目の時間帯に含まれる", author: "carol", now: at(21, 0), want: true},
		{name: "どの時間帯にも含まれない", author: "carol", now: at(12, 0), want: false},
		{name: "境界は含む", author: "carol", now: at(8, 0), want: true},
		{name: "時をまたぐ時間帯", author: "dave", now: at(9, 45), want: true},
		{name: "複数Nestのいずれか", author: "bob", now: at(10, 0), want: true},
		{name: "どのNestにも属さない", author: "zed", now: at(21, 0), want: false},
	}

	s := New(&fakeAPI{}, fixtureState(), Config{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, s.IsOnFeed(tt.author, tt.now), tt.want)
		})
	}
}

func TestStore_IsOnFeedLegacyClock(t *testing.T) {
	s := New(&fakeAPI{}, fixtureState(), Config{LegacyClock: true})

	// 09:30-10:15 の時間帯で 09:45 は分の比較 (45 > 15) で外れる
	assert.Equal(t, s.IsOnFeed("dave", at(9, 45)), false)
	assert.Equal(t, s.IsOnFeed("dave", at(10, 0)), false)
	assert.Equal(t, s.IsOnFeed("carol", at(21, 0)), true)
}

func TestStore_IsOnFeedSkipsInvalidWindows(t *testing.T) {
	st := fixtureState()
	st.NestToTimes["family"] = []view.TimeView{{StartTime: "broken", EndTime: "23:59"}}
	s := New(&fakeAPI{}, st, Config{})

	assert.Equal(t, s.IsOnFeed("carol", at(12, 0)), false)
}

func TestStore_NestOptions(t *testing.T) {
	s := New(&fakeAPI{}, fixtureState(), Config{})

	assert.Equal(t, s.NestOptions(), []string{"family", "work", "empty"})
}

func TestStore_Membership(t *testing.T) {
	s := New(&fakeAPI{}, fixtureState(), Config{})

	assert.Equal(t, s.NestMembers("n2"), users("bob", "dave"))
	assert.Equal(t, len(s.NestMembers("missing")), 0)
	assert.Equal(t, s.InNest("n1", "carol"), true)
	assert.Equal(t, s.InNest("n1", "dave"), false)
	assert.Equal(t, s.InNest("missing", "bob"), false)
	assert.Equal(t, s.AreFriends("bob"), true)
	assert.Equal(t, s.AreFriends("dave"), false)
}

func TestStore_ProfileNests(t *testing.T) {
	s := New(&fakeAPI{}, fixtureState(), Config{})

	assert.Equal(t, nestIDsOf(s.ProfileNests("bob")), []string{"n1", "n2"})
	assert.Equal(t, nestIDsOf(s.ProfileNests("dave")), []string{"n2"})
	assert.Equal(t, nestIDsOf(s.ProfileNests("zed")), []string{})
}

func TestStore_PostNests(t *testing.T) {
	s := New(&fakeAPI{}, fixtureState(), Config{})

	assert.Equal(t, nestIDsOf(s.PostNests("f2")), []string{"n1", "n2"})
	assert.Equal(t, nestIDsOf(s.PostNests("f5")), []string{"n2"})
	assert.Equal(t, nestIDsOf(s.PostNests("f9")), []string{})
}

func TestStore_PossiblePostNests(t *testing.T) {
	s := New(&fakeAPI{}, fixtureState(), Config{})

	assert.Equal(t, nestIDsOf(s.PossiblePostNests("f2")), []string{"n3"})
	assert.Equal(t, nestIDsOf(s.PossiblePostNests("f5")), []string{"n1", "n3"})
	assert.Equal(t, nestIDsOf(s.PossiblePostNests("f9")), []string{"n1", "n2", "n3"})
}
