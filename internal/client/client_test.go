package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/nestfeed/internal/auth"
	"github.com/hitoshi/nestfeed/internal/freet"
	"github.com/hitoshi/nestfeed/internal/friend"
	"github.com/hitoshi/nestfeed/internal/handler"
	"github.com/hitoshi/nestfeed/internal/middleware"
	"github.com/hitoshi/nestfeed/internal/nest"
	"github.com/hitoshi/nestfeed/internal/repository"
	"github.com/hitoshi/nestfeed/internal/security"
	"github.com/hitoshi/nestfeed/internal/times"
	"github.com/hitoshi/nestfeed/internal/user"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(baseURL, nil, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_InvalidBaseURL_ReturnsError(t *testing.T) {
	for _, base := range []string{"", "localhost:8080", "://bad"} {
		if _, err := New(base, nil, nil); err == nil {
			t.Errorf("New(%q) should return error", base)
		}
	}
}

func TestNew_ClientWithoutJar_ReturnsError(t *testing.T) {
	if _, err := New("http://localhost:8080", &http.Client{}, nil); err == nil {
		t.Error("New with a jar-less http.Client should return error")
	}
}

// 状態変更リクエストはCSRFトークンを取得し、Cookieの値をヘッダーに複写する
func TestClient_MirrorsCSRFCookieIntoHeader(t *testing.T) {
	tokenRequests := 0
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/csrf-token":
			tokenRequests++
			http.SetCookie(w, &http.Cookie{Name: middleware.CSRFCookieName, Value: "tok-1", Path: "/"})
			json.NewEncoder(w).Encode(map[string]string{"token": "tok-1"})
		case "/api/freets":
			gotHeader = r.Header.Get(middleware.CSRFHeaderName)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]any{"freet": map[string]string{"_id": "f1", "content": "hi"}})
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	for i := 0; i < 2; i++ {
		f, err := c.PostFreet(context.Background(), "hi")
		if err != nil {
			t.Fatalf("PostFreet: %v", err)
		}
		if f.ID != "f1" {
			t.Errorf("freet id = %q, want f1", f.ID)
		}
	}

	if gotHeader != "tok-1" {
		t.Errorf("%s = %q, want tok-1", middleware.CSRFHeaderName, gotHeader)
	}
	if tokenRequests != 1 {
		t.Errorf("csrf-token requests = %d, want 1 (cookie reused)", tokenRequests)
	}
}

func TestClient_Non2xx_DecodesError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"nestNotFound": "Nestが見つかりません。"},
			"code":  "NEST_NOT_FOUND",
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.NestMembers(context.Background(), "missing")

	apiErr, ok := AsError(err)
	if !ok {
		t.Fatalf("error = %v, want *client.Error", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", apiErr.StatusCode)
	}
	if apiErr.Code != "NEST_NOT_FOUND" {
		t.Errorf("Code = %q, want NEST_NOT_FOUND", apiErr.Code)
	}
	if !apiErr.Has("nestNotFound") {
		t.Errorf("Fields = %v, want nestNotFound", apiErr.Fields)
	}
}

func TestClient_NonJSONError_StillReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Freets(context.Background(), "")

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *client.Error", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want 502", apiErr.StatusCode)
	}
	if apiErr.Error() == "" {
		t.Error("Error() should not be empty")
	}
}

func TestError_Message_SortedByKey(t *testing.T) {
	e := &Error{StatusCode: 400, Fields: map[string]string{"password": "b", "username": "c", "body": "a"}}
	if got := e.Message(); got != "a b c" {
		t.Errorf("Message() = %q, want %q", got, "a b c")
	}
}

// newAPIServer はメモリリポジトリで動く実際のAPIサーバーを起動する。
func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()

	repos := repository.NewMemoryRepositories()
	friendService := friend.NewService(repos.Users, repos.Friends, nil)
	timeService := times.NewService(repos.Users, repos.Nests, repos.Times, nil)
	nestService := nest.NewService(repos.Users, repos.Nests, repos.Freets, timeService, nil)
	freetService := freet.NewService(repos.Users, repos.Freets, security.NewContentSanitizer(), 0, nil)
	authService := auth.NewService(repos.Users, repos.Sessions, friendService, auth.ServiceConfig{SessionMaxAge: 3600, BcryptCost: 4})
	userService := user.NewService(repos.Users, repos.Sessions, authService, user.Deleters{
		Freets: freetService, Nests: nestService, Times: timeService, Friends: friendService,
	})

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfigPerMinute(6000, 6000))
	t.Cleanup(limiter.Stop)

	srv := httptest.NewServer(handler.NewRouter(&handler.RouterDeps{
		Logger:        discardLogger(),
		SessionFinder: repos.Sessions,
		RateLimiter:   limiter,
		Users:         repos.Users,
		AuthService:   authService,
		AuthConfig:    handler.AuthHandlerConfig{SessionMaxAge: 3600},
		UserService:   userService,
		FriendService: friendService,
		NestService:   nestService,
		TimeService:   timeService,
		FreetService:  freetService,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_AgainstAPIServer(t *testing.T) {
	ctx := context.Background()
	srv := newAPIServer(t)

	alice := newTestClient(t, srv.URL)
	bob := newTestClient(t, srv.URL)

	if _, err := alice.Register(ctx, "alice", "pw"); err != nil {
		t.Fatalf("Register alice: %v", err)
	}
	if _, err := bob.Register(ctx, "bob", "pw"); err != nil {
		t.Fatalf("Register bob: %v", err)
	}

	me, err := alice.Session(ctx)
	if err != nil || me == nil || me.Username != "alice" {
		t.Fatalf("Session = %+v, %v; want alice", me, err)
	}

	n, err := alice.CreateNest(ctx, "study")
	if err != nil {
		t.Fatalf("CreateNest: %v", err)
	}
	if _, err := alice.UpdateNestMembers(ctx, n.ID, "bob", OpAdd); err != nil {
		t.Fatalf("UpdateNestMembers: %v", err)
	}
	members, err := alice.NestMembers(ctx, n.ID)
	if err != nil || len(members) != 1 || members[0].Username != "bob" {
		t.Errorf("NestMembers = %+v, %v; want [bob]", members, err)
	}

	groupTimes, err := alice.GroupTimes(ctx, n.ID)
	if err != nil || len(groupTimes) != 1 {
		t.Fatalf("GroupTimes = %+v, %v; want the default time", groupTimes, err)
	}
	updated, err := alice.SetStartTime(ctx, groupTimes[0].ID, "08:00")
	if err != nil || updated.StartTime != "08:00" {
		t.Errorf("SetStartTime = %+v, %v", updated, err)
	}

	if _, err := alice.AddFriend(ctx, "bob"); err != nil {
		t.Fatalf("AddFriend: %v", err)
	}
	_, err = alice.AddFriend(ctx, "bob")
	if apiErr, ok := AsError(err); !ok || apiErr.StatusCode != http.StatusConflict || !apiErr.Has("alreadyFriends") {
		t.Errorf("second AddFriend error = %v, want 409 alreadyFriends", err)
	}

	friends, err := bob.FriendsOf(ctx, "bob")
	if err != nil || len(friends) != 1 || friends[0].Username != "alice" {
		t.Errorf("FriendsOf(bob) = %+v, %v; want [alice]", friends, err)
	}

	f, err := bob.PostFreet(ctx, "hello")
	if err != nil {
		t.Fatalf("PostFreet: %v", err)
	}
	if _, err := alice.UpdateNestPosts(ctx, n.ID, f.ID, OpAdd); err != nil {
		t.Fatalf("UpdateNestPosts: %v", err)
	}
	posts, err := bob.NestPosts(ctx, n.ID)
	if err != nil || len(posts) != 1 {
		t.Errorf("NestPosts = %+v, %v; want 1 post", posts, err)
	}

	if err := alice.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if me, err := alice.Session(ctx); err != nil || me != nil {
		t.Errorf("Session after logout = %+v, %v; want nil", me, err)
	}
}

// 保存したCookieを別のクライアントに復元するとセッションを引き継げる
func TestClient_CookiesRoundTrip(t *testing.T) {
	ctx := context.Background()
	srv := newAPIServer(t)

	first := newTestClient(t, srv.URL)
	if _, err := first.Register(ctx, "alice", "pw"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	second := newTestClient(t, srv.URL)
	second.SetCookies(first.Cookies())

	me, err := second.Session(ctx)
	if err != nil || me == nil || me.Username != "alice" {
		t.Errorf("restored Session = %+v, %v; want alice", me, err)
	}
	if _, err := second.CreateNest(ctx, "restored"); err != nil {
		t.Errorf("CreateNest with restored cookies: %v", err)
	}
}
