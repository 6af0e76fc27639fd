package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/hitoshi/nestfeed/internal/view"
)

func TestFilePersister_LoadMissingFile(t *testing.T) {
	p := NewFilePersister(filepath.Join(t.TempDir(), "state.json"))

	st, err := p.Load()

	assert.Equal(t, err, nil)
	assert.Equal(t, st.Username, "")
	assert.Equal(t, len(st.Nests), 0)
}

func TestFilePersister_SaveAndLoad(t *testing.T) {
	p := NewFilePersister(filepath.Join(t.TempDir(), "nested", "state.json"))
	want := fixtureState()
	want.Alerts = map[string]string{"保存しました": "success"}

	assert.Equal(t, p.Save(want), nil)
	got, err := p.Load()

	assert.Equal(t, err, nil)
	assert.Equal(t, got, want)
}

func TestFilePersister_JSONKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	p := NewFilePersister(path)

	err := p.Save(State{
		Username:    "alice",
		NestToTimes: map[string][]view.TimeView{"family": {{ID: "t1"}}},
	})
	assert.Equal(t, err, nil)

	data, err := os.ReadFile(path)
	assert.Equal(t, err, nil)
	for _, key := range []string{`"username"`, `"nestToTimes"`, `"nestToMembers"`, `"alerts"`, `"filter"`} {
		assert.MatchRegex(t, string(data), key)
	}
}

func TestFilePersister_LoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	assert.Equal(t, os.WriteFile(path, []byte("{not json"), 0o600), nil)

	_, err := NewFilePersister(path).Load()

	assert.NotEqual(t, err, nil)
}

func TestFilePersister_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	p := NewFilePersister(filepath.Join(dir, "state.json"))

	assert.Equal(t, p.Save(State{Username: "alice"}), nil)
	assert.Equal(t, p.Save(State{Username: "bob"}), nil)

	entries, err := os.ReadDir(dir)
	assert.Equal(t, err, nil)
	assert.Equal(t, len(entries), 1)
}

func TestStore_WithFilePersister(t *testing.T) {
	p := NewFilePersister(filepath.Join(t.TempDir(), "state.json"))
	s := New(&fakeAPI{}, State{}, Config{Persister: p})

	s.SetUsername("alice")
	s.AddNest(view.NestView{ID: "n1", Name: "family"})

	st, err := p.Load()
	assert.Equal(t, err, nil)
	assert.Equal(t, st.Username, "alice")
	assert.Equal(t, st.Nests[0].Name, "family")
}
