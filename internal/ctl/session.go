package ctl

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/hitoshi/nestfeed/internal/client"
	"github.com/hitoshi/nestfeed/internal/store"
)

// savedCookie はCookieファイルに保存するCookie。
type savedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// cookiePathFor は状態ファイルの隣に置くCookieファイルのパスを返す。
func cookiePathFor(statePath string) string {
	ext := filepath.Ext(statePath)
	return strings.TrimSuffix(statePath, ext) + ".cookies.json"
}

func openSession(apiURL, statePath string, legacy bool, logger *slog.Logger) (*session, error) {
	api, err := client.New(apiURL, nil, logger)
	if err != nil {
		return nil, err
	}

	persister := store.NewFilePersister(statePath)
	initial, err := persister.Load()
	if err != nil {
		return nil, err
	}

	s := &session{
		api:        api,
		store:      store.New(api, initial, store.Config{Persister: persister, Logger: logger, LegacyClock: legacy}),
		cookiePath: cookiePathFor(statePath),
	}
	if err := s.loadCookies(); err != nil {
		return nil, err
	}
	// 前回の実行で表示済みのアラートは持ち越さない
	for message := range initial.Alerts {
		s.store.DismissAlert(message)
	}
	return s, nil
}

func (s *session) loadCookies() error {
	data, err := os.ReadFile(s.cookiePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("Cookieファイルの読み込みに失敗しました: %w", err)
	}

	var saved []savedCookie
	if err := json.Unmarshal(data, &saved); err != nil {
		return fmt.Errorf("Cookieファイルの解析に失敗しました: %w", err)
	}
	cookies := make([]*http.Cookie, 0, len(saved))
	for _, c := range saved {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	s.api.SetCookies(cookies)
	return nil
}

// saveCookies は現在のCookieを保存する。Cookieがなければファイルを削除する。
func (s *session) saveCookies() error {
	cookies := s.api.Cookies()
	if len(cookies) == 0 {
		if err := os.Remove(s.cookiePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("Cookieファイルの削除に失敗しました: %w", err)
		}
		return nil
	}

	saved := make([]savedCookie, 0, len(cookies))
	for _, c := range cookies {
		saved = append(saved, savedCookie{Name: c.Name, Value: c.Value})
	}
	data, err := json.Marshal(saved)
	if err != nil {
		return fmt.Errorf("Cookieのエンコードに失敗しました: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.cookiePath), 0o700); err != nil {
		return fmt.Errorf("Cookieディレクトリの作成に失敗しました: %w", err)
	}
	if err := os.WriteFile(s.cookiePath, data, 0o600); err != nil {
		return fmt.Errorf("Cookieファイルの書き込みに失敗しました: %w", err)
	}
	return nil
}
