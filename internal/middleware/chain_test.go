package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/nestfeed/internal/model"
)

type mockHTTPMetrics struct {
	mu        sync.Mutex
	statuses  []int
	durations int
}

func (m *mockHTTPMetrics) RecordHTTPStatus(statusCode int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, statusCode)
}

func (m *mockHTTPMetrics) RecordRequestDuration(time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations++
}

// TestJSONBodyMiddleware_DecodesObject はJSONオブジェクトがコンテキストに格納されることを検証する。
func TestJSONBodyMiddleware_DecodesObject(t *testing.T) {
	var name string
	var ok bool
	handler := NewJSONBodyMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, ok = BodyString(r.Context(), "name")
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/nests", strings.NewReader(`{"name":"  study  "}`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !ok || name != "  study  " {
		t.Errorf("name = %q (ok=%v), want %q", name, ok, "  study  ")
	}
}

// TestJSONBodyMiddleware_EmptyBody_IsEmptyObject は空ボディが空オブジェクトとして扱われることを検証する。
func TestJSONBodyMiddleware_EmptyBody_IsEmptyObject(t *testing.T) {
	var body map[string]any
	handler := NewJSONBodyMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body = BodyFromContext(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/api/users/session", nil))

	if body == nil || len(body) != 0 {
		t.Errorf("body = %v, want empty map", body)
	}
}

// TestJSONBodyMiddleware_Malformed_Returns400 は不正なJSONやオブジェクト以外が400になることを検証する。
func TestJSONBodyMiddleware_Malformed_Returns400(t *testing.T) {
	for _, raw := range []string{`{"name":`, `["a"]`, `"text"`, `null`} {
		t.Run(raw, func(t *testing.T) {
			handler := NewJSONBodyMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called")
			}))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/nests", strings.NewReader(raw)))

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			var body ErrorResponseBody
			json.NewDecoder(w.Body).Decode(&body)
			if body.Code != model.ErrCodeInvalidRequest {
				t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInvalidRequest)
			}
		})
	}
}

// TestBodyString_NonString_ReturnsFalse は文字列以外の値を拒否することを検証する。
func TestBodyString_NonString_ReturnsFalse(t *testing.T) {
	var ok bool
	var trimmed string
	handler := NewJSONBodyMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok = BodyString(r.Context(), "name")
		trimmed = BodyTrimmedString(r.Context(), "recipient")
	}))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name": 3, "recipient": "  bob "}`))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if ok {
		t.Error("numeric field should not be returned as string")
	}
	if trimmed != "bob" {
		t.Errorf("trimmed = %q, want %q", trimmed, "bob")
	}
}

// TestWhenQueryAbsent_DispatchesByQuery はクエリの有無でハンドラーが切り替わることを検証する。
func TestWhenQueryAbsent_DispatchesByQuery(t *testing.T) {
	fallback := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("all"))
	})
	handler := WhenQueryAbsent("user", fallback)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("by-user"))
	}))

	tests := []struct {
		target string
		want   string
	}{
		{"/api/friends", "all"},
		{"/api/friends?creator=bob", "all"},
		{"/api/friends?user=bob", "by-user"},
		// 空の値でもクエリが存在すれば絞り込み側に渡す
		{"/api/friends?user=", "by-user"},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.target, nil))
		if got := w.Body.String(); got != tt.want {
			t.Errorf("%s: body = %q, want %q", tt.target, got, tt.want)
		}
	}
}

// TestMetricsMiddleware_RecordsStatusAndDuration はステータスコードと処理時間が記録されることを検証する。
func TestMetricsMiddleware_RecordsStatusAndDuration(t *testing.T) {
	rec := &mockHTTPMetrics{}
	handler := NewMetricsMiddleware(rec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/nests", nil))

	if len(rec.statuses) != 1 || rec.statuses[0] != http.StatusCreated {
		t.Errorf("statuses = %v, want [201]", rec.statuses)
	}
	if rec.durations != 1 {
		t.Errorf("durations = %d, want 1", rec.durations)
	}
}

// TestRecoveryMiddleware_Panic_Returns500 はpanicが統一フォーマットの500になることを検証する。
func TestRecoveryMiddleware_Panic_Returns500(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	handler := NewRecoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/nests", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.Code != "INTERNAL_ERROR" {
		t.Errorf("code = %q, want INTERNAL_ERROR", body.Code)
	}
	if !strings.Contains(logs.String(), `"path":"/api/nests"`) {
		t.Errorf("log = %s, want path", logs.String())
	}
}

// TestRecoveryMiddleware_PanicAfterWrite_KeepsStatus はレスポンス開始後のpanicでステータスを上書きしないことを検証する。
func TestRecoveryMiddleware_PanicAfterWrite_KeepsStatus(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	handler := NewRecoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		panic("late")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/freets", nil))

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if !strings.Contains(logs.String(), `"response_started":true`) {
		t.Errorf("log = %s, want response_started", logs.String())
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	handler := NewSecurityHeadersMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []struct {
		path      string
		wantCache string
	}{
		{path: "/api/freets", wantCache: "no-store"},
		{path: "/health", wantCache: ""},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

		h := w.Result().Header
		if got := h.Get("Cache-Control"); got != tt.wantCache {
			t.Errorf("%s Cache-Control = %q, want %q", tt.path, got, tt.wantCache)
		}
		if got := h.Get("X-Content-Type-Options"); got != "nosniff" {
			t.Errorf("%s X-Content-Type-Options = %q", tt.path, got)
		}
		if got := h.Get("Content-Security-Policy"); !strings.HasPrefix(got, "default-src 'none'") {
			t.Errorf("%s Content-Security-Policy = %q", tt.path, got)
		}
	}
}

// TestMiddlewareChain_Router はSession -> CSRF のチェーンがchi.Routerで動作することを検証する。
func TestMiddlewareChain_Router(t *testing.T) {
	csrfConfig := CSRFConfig{}

	r := chi.NewRouter()
	r.Use(NewSessionMiddleware(validSessionRepo()))
	r.Get("/api/csrf-token", NewCSRFTokenHandler(csrfConfig).ServeHTTP)
	r.Group(func(r chi.Router) {
		r.Use(NewCSRFMiddleware(csrfConfig))
		r.Post("/api/action", func(w http.ResponseWriter, r *http.Request) {
			userID, _ := UserIDFromContext(r.Context())
			json.NewEncoder(w).Encode(map[string]string{"user_id": userID})
		})
	})

	t.Run("csrf token endpoint", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil))
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("post with session and csrf", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/action", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "valid-session-id"})
		req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "t"})
		req.Header.Set(CSRFHeaderName, "t")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		var body map[string]string
		json.NewDecoder(w.Body).Decode(&body)
		if body["user_id"] != "user-123" {
			t.Errorf("user_id = %q, want %q", body["user_id"], "user-123")
		}
	})

	t.Run("anonymous post without csrf", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/action", nil))
		if w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
		}
	})
}
