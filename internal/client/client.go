// Package client はnestfeed REST APIのHTTPクライアントを提供する。
// セッションCookieとCSRFトークンCookieはCookieJarで保持し、
// 状態変更リクエストではCSRFトークンをX-CSRF-Tokenヘッダーに複写する。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/nestfeed/internal/middleware"
)

const defaultTimeout = 10 * time.Second

// Client はnestfeed APIのクライアント。
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	logger     *slog.Logger
}

// New はbaseURLに対するClientを生成する。
// httpClientがnilの場合はCookieJar付きのクライアントを生成する。
// httpClientを渡す場合はJarが設定されていなければならない。
func New(baseURL string, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("ベースURLのパースに失敗しました: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("ベースURLが不正です: %q", baseURL)
	}

	if httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("CookieJarの作成に失敗しました: %w", err)
		}
		httpClient = &http.Client{Jar: jar, Timeout: defaultTimeout}
	}
	if httpClient.Jar == nil {
		return nil, fmt.Errorf("httpClientにCookieJarが設定されていません")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{httpClient: httpClient, baseURL: u, logger: logger}, nil
}

// Cookies はAPIに対して保持しているCookieを返す。
func (c *Client) Cookies() []*http.Cookie {
	return c.httpClient.Jar.Cookies(c.baseURL)
}

// SetCookies は保存しておいたCookieを復元する。
func (c *Client) SetCookies(cookies []*http.Cookie) {
	c.httpClient.Jar.SetCookies(c.baseURL, cookies)
}

func (c *Client) cookie(name string) string {
	for _, ck := range c.Cookies() {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

// csrfToken はCSRFトークンを返す。Cookieがなければ取得エンドポイントから発行を受ける。
func (c *Client) csrfToken(ctx context.Context) (string, error) {
	if token := c.cookie(middleware.CSRFCookieName); token != "" {
		return token, nil
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := c.send(ctx, http.MethodGet, "/api/csrf-token", nil, nil, &body); err != nil {
		return "", fmt.Errorf("CSRFトークンの取得に失敗しました: %w", err)
	}
	return body.Token, nil
}

// do はAPIリクエストを実行し、成功時はレスポンスをoutにデコードする。
// 状態変更メソッドではCSRFトークンを付与する。
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	if method == http.MethodGet {
		return c.send(ctx, method, path, query, nil, out)
	}

	token, err := c.csrfToken(ctx)
	if err != nil {
		return err
	}
	return c.send(ctx, method, path, query, in, out, http.Header{middleware.CSRFHeaderName: {token}})
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, in, out any, header ...http.Header) error {
	u := c.baseURL.JoinPath(path)
	u.RawQuery = query.Encode()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("リクエストのエンコードに失敗しました: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for _, h := range header {
		for k, v := range h {
			req.Header[k] = v
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("APIの呼び出しに失敗しました",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeError(resp.StatusCode, data)
		c.logger.Debug("APIがエラーを返しました",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
			slog.String("code", apiErr.Code),
		)
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	return nil
}
