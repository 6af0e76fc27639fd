package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/nestfeed/internal/model"
)

func newTestCSRFHandler(called *bool) http.Handler {
	return NewCSRFMiddleware(CSRFConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	}))
}

// TestCSRFMiddleware_SafeMethods_PassThroughWithoutToken は安全なメソッドがトークンなしで通過することを検証する。
func TestCSRFMiddleware_SafeMethods_PassThroughWithoutToken(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		t.Run(method, func(t *testing.T) {
			called := false
			handler := newTestCSRFHandler(&called)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(method, "/api/nests", nil))

			if !called {
				t.Fatalf("handler should have been called for %s", method)
			}
		})
	}
}

// TestCSRFMiddleware_StateChangingMethods_RequireToken は状態変更メソッドでトークンが必須であることを検証する。
func TestCSRFMiddleware_StateChangingMethods_RequireToken(t *testing.T) {
	tests := []struct {
		name   string
		cookie string
		header string
	}{
		{"no cookie", "", "token-abc"},
		{"no header", "token-abc", ""},
		{"mismatch", "token-abc", "wrong-token"},
	}

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		for _, tt := range tests {
			t.Run(method+" "+tt.name, func(t *testing.T) {
				called := false
				handler := newTestCSRFHandler(&called)

				req := httptest.NewRequest(method, "/api/nests", nil)
				if tt.cookie != "" {
					req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: tt.cookie})
				}
				if tt.header != "" {
					req.Header.Set(CSRFHeaderName, tt.header)
				}
				w := httptest.NewRecorder()
				handler.ServeHTTP(w, req)

				if called {
					t.Fatal("handler should not be called")
				}
				if w.Code != http.StatusForbidden {
					t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
				}
				var body ErrorResponseBody
				if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
					t.Fatalf("failed to decode: %v", err)
				}
				if body.Code != model.ErrCodeForbidden {
					t.Errorf("code = %q, want %q", body.Code, model.ErrCodeForbidden)
				}
			})
		}
	}
}

// TestCSRFMiddleware_ValidToken_PassesThrough はCookieとヘッダーが一致すれば通過することを検証する。
func TestCSRFMiddleware_ValidToken_PassesThrough(t *testing.T) {
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			called := false
			handler := newTestCSRFHandler(&called)

			req := httptest.NewRequest(method, "/api/nests", nil)
			req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "token-abc"})
			req.Header.Set(CSRFHeaderName, "token-abc")
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if !called {
				t.Fatal("handler should have been called with valid token")
			}
		})
	}
}

// TestCSRFMiddleware_GETRequest_SetsCSRFCookie はCookie未設定のGETでトークンCookieが発行されることを検証する。
func TestCSRFMiddleware_GETRequest_SetsCSRFCookie(t *testing.T) {
	called := false
	handler := newTestCSRFHandler(&called)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/nests", nil))

	var found *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == CSRFCookieName {
			found = c
		}
	}
	if found == nil {
		t.Fatal("expected CSRF cookie to be set")
	}
	if len(found.Value) != 64 {
		t.Errorf("token length = %d, want 64", len(found.Value))
	}
	if found.HttpOnly {
		t.Error("CSRF cookie must be readable by the client")
	}
}

// TestCSRFMiddleware_GETRequest_ExistingCookie_DoesNotReplace は既存のCookieを上書きしないことを検証する。
func TestCSRFMiddleware_GETRequest_ExistingCookie_DoesNotReplace(t *testing.T) {
	called := false
	handler := newTestCSRFHandler(&called)

	req := httptest.NewRequest(http.MethodGet, "/api/nests", nil)
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "existing"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.Name == CSRFCookieName {
			t.Errorf("CSRF cookie should not be reissued, got %q", c.Value)
		}
	}
}

// TestCSRFTokenHandler_SetsTokenCookieAndReturnsJSON はトークン取得エンドポイントがCookieとJSONを返すことを検証する。
func TestCSRFTokenHandler_SetsTokenCookieAndReturnsJSON(t *testing.T) {
	handler := NewCSRFTokenHandler(CSRFConfig{CookieSecure: true})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil))

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body["token"] == "" {
		t.Fatal("expected token in response")
	}

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == CSRFCookieName {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != body["token"] {
		t.Fatalf("cookie token should match response token")
	}
	if !cookie.Secure {
		t.Error("cookie should be Secure when configured")
	}
}

// TestCSRFTokenHandler_ExistingCookie_ReturnsSameToken は既存トークンがそのまま返ることを検証する。
func TestCSRFTokenHandler_ExistingCookie_ReturnsSameToken(t *testing.T) {
	handler := NewCSRFTokenHandler(CSRFConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "existing-token"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body["token"] != "existing-token" {
		t.Errorf("token = %q, want %q", body["token"], "existing-token")
	}
}
