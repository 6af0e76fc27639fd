package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/nestfeed/internal/auth"
	"github.com/hitoshi/nestfeed/internal/middleware"
	"github.com/hitoshi/nestfeed/internal/model"
	"github.com/hitoshi/nestfeed/internal/nest"
	"github.com/hitoshi/nestfeed/internal/times"
)

// UserLookup はガードがユーザーを解決するためのインターフェース。
// repository.UserRepositoryの部分集合として定義する。
type UserLookup interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

// guardContextKey はガードが解決したレコードをコンテキストに格納するためのキー。
type guardContextKey int

const (
	currentUserKey guardContextKey = iota
	queryUserKey
	recipientKey
	memberKey
	nestKey
	groupKey
	timeKey
	freetKey
	operationKey
)

// guards はルートごとに組み合わせる前提条件チェックの集合。
// 認証 → 存在 → 権限 → 入力形式 の順に並べて使う。
// ガードは解決したレコードをコンテキストに格納するだけで、永続化された状態は変更しない。
type guards struct {
	users   UserLookup
	friends FriendServiceInterface
	nests   NestServiceInterface
	times   TimeServiceInterface
	freets  FreetServiceInterface
}

type guard = func(next http.Handler) http.Handler

// check は検証関数からガードを組み立てる。
// 検証関数はコンテキストに値を追加して返すか、エラーを返す。
func check(fn func(r *http.Request) (context.Context, error)) guard {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, err := fn(r)
			if err != nil {
				handleServiceError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func with(r *http.Request, key guardContextKey, value any) context.Context {
	return context.WithValue(r.Context(), key, value)
}

// --- 認証 ---

// requireUser はログイン中のユーザーを要求する。
// セッションが有効でもユーザーが削除済みの場合は未ログインとして扱う。
func (g *guards) requireUser(next http.Handler) http.Handler {
	return check(func(r *http.Request) (context.Context, error) {
		userID, err := middleware.UserIDFromContext(r.Context())
		if err != nil {
			return nil, model.NewNotLoggedInError()
		}
		user, err := g.users.FindByID(r.Context(), userID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			slog.Warn("session refers to missing user", slog.String("user_id", userID))
			return nil, model.NewNotLoggedInError()
		}
		return with(r, currentUserKey, user), nil
	})(next)
}

// requireLoggedOut はログインしていないことを要求する。
func (g *guards) requireLoggedOut(next http.Handler) http.Handler {
	return check(func(r *http.Request) (context.Context, error) {
		if _, err := middleware.UserIDFromContext(r.Context()); err == nil {
			return nil, model.NewAlreadyLoggedInError()
		}
		return r.Context(), nil
	})(next)
}

// --- 存在 ---

// userQueryExists はクエリパラメータparamのユーザー名が存在することを要求する。
func (g *guards) userQueryExists(param string) guard {
	return check(func(r *http.Request) (context.Context, error) {
		username := strings.TrimSpace(r.URL.Query().Get(param))
		user, err := g.lookupUsername(r.Context(), param, username)
		if err != nil {
			return nil, err
		}
		return with(r, queryUserKey, user), nil
	})
}

// recipientExists はボディのrecipientのユーザー名が存在することを要求する。
func (g *guards) recipientExists(next http.Handler) http.Handler {
	return check(func(r *http.Request) (context.Context, error) {
		username := middleware.BodyTrimmedString(r.Context(), "recipient")
		if username == "" {
			return nil, model.NewEmptyRecipientError()
		}
		user, err := g.lookupUsername(r.Context(), "recipient", username)
		if err != nil {
			return nil, err
		}
		return with(r, recipientKey, user), nil
	})(next)
}

// memberExists はボディのmemberId（ユーザー名）が存在することを要求する。
func (g *guards) memberExists(next http.Handler) http.Handler {
	return check(func(r *http.Request) (context.Context, error) {
		username := middleware.BodyTrimmedString(r.Context(), "memberId")
		user, err := g.lookupUsername(r.Context(), "memberId", username)
		if err != nil {
			return nil, err
		}
		return with(r, memberKey, user), nil
	})(next)
}

func (g *guards) lookupUsername(ctx context.Context, field, username string) (*model.User, error) {
	if username == "" {
		return nil, model.NewMissingParameterError(field)
	}
	user, err := g.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(username)
	}
	return user, nil
}

// nestExists はURLパラメータnestIdのNestが存在することを要求する。
func (g *guards) nestExists(next http.Handler) http.Handler {
	return check(func(r *http.Request) (context.Context, error) {
		n, err := g.findNest(r.Context(), chi.URLParam(r, "nestId"))
		if err != nil {
			return nil, err
		}
		return with(r, nestKey, n), nil
	})(next)
}

// groupQueryExists はクエリパラメータgroupのNestが存在することを要求する。
func (g *guards) groupQueryExists(next http.Handler) http.Handler {
	return check(func(r *http.Request) (context.Context, error) {
		id := strings.TrimSpace(r.URL.Query().Get("group"))
		if id == "" {
			return nil, model.NewMissingParameterError("group")
		}
		n, err := g.findNest(r.Context(), id)
		if err != nil {
			return nil, err
		}
		return with(r, groupKey, n), nil
	})(next)
}

// groupBodyExists はボディのgroupIdのNestが存在することを要求する。
func (g *guards) groupBodyExists(next http.Handler) http.Handler {
	return check(func(r *http.Request) (context.Context, error) {
		id := middleware.BodyTrimmedString(r.Context(), "groupId")
		if id == "" {
			return nil, model.NewMissingParameterError("groupId")
		}
		n, err := g.findNest(r.Context(), id)
		if err != nil {
			return nil, err
		}
		return with(r, groupKey, n), nil
	})(next)
}

func (g *guards) findNest(ctx context.Context, id string) (*model.PopulatedNest, error) {
	n, err := g.nests.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, model.NewNestNotFoundError(id)
	}
	return n, nil
}

// timeExists はURLパラメータtimeIdのTimeが存在することを要求する。
func (g *guards) timeExists(next http.Handler) http.Handler {
	return check(func(r *http.Request) (context.Context, error) {
		id := chi.URLParam(r, "timeId")
		t, err := g.times.FindOne(r.Context(), id)
		if err != nil {
			return nil, err
		}
		if t == nil {
			return nil, model.NewTimeNotFoundError(id)
		}
		return with(r, timeKey, t), nil
	})(next)
}

// freetBodyExists はボディのfreetIdのFreetが存在することを要求する。
func (g *guards) freetBodyExists(next http.Handler) http.Handler {
	return check(func(r *http.Request) (context.Context, error) {
		return g.withFreet(r, middleware.BodyTrimmedString(r.Context(), "freetId"))
	})(next)
}

// freetParamExists はURLパラメータfreetIdのFreetが存在することを要求する。
func (g *guards) freetParamExists(next http.Handler) http.Handler {
	return check(func(r *http.Request) (context.Context, error) {
		return g.withFreet(r, chi.URLParam(r, "freetId"))
	})(next)
}

func (g *guards) withFreet(r *http.Request, id string) (context.Context, error) {
	f, err := g.freets.FindOne(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, model.NewFreetNotFoundError(id)
	}
	return with(r, freetKey, f), nil
}

// --- 権限 ---

// notSelf は自分自身をフレンドにしようとしていないことを要求する。
func (g *guards) notSelf(next http.Handler) http.Handler {
	return check(func(r *http.Request) (context.Context, error) {
		if recipientFrom(r.Context()).ID == currentUserFrom(r.Context()).ID {
			return nil, model.NewSelfFriendError()
		}
		return r.Context(), nil
	})(next)
}

// notAlreadyFriends は既にフレンドでないことを要求する。
func (g *guards) notAlreadyFriends(next http.Handler) http.Handler {
	return check(func(r *http.Request) (context.Context, error) {
		recipient := recipientFrom(r.Context())
		ok, err := g.friends.AreFriends(r.Context(), currentUserFrom(r.Context()).ID, recipient.Username)
		if err != nil {
			return nil, err
		}
		if ok {
			return nil, model.NewAlreadyFriendsError(recipient.Username)
		}
		return r.Context(), nil
	})(next)
}

// nestModifier はNestの作成者であることを要求する。
func (g *guards) nestModifier(next http.Handler) http.Handler {
	return g.nestCreatorOnly("他のユーザーのNestは変更できません。")(next)
}

// nestMemberViewer はNestのメンバー一覧が作成者にのみ見えることを保証する。
func (g *guards) nestMemberViewer(next http.Handler) http.Handler {
	return g.nestCreatorOnly("他のユーザーのNestのメンバーは閲覧できません。")(next)
}

func (g *guards) nestCreatorOnly(message string) guard {
	return check(func(r *http.Request) (context.Context, error) {
		if nestFrom(r.Context()).CreatorID != currentUserFrom(r.Context()).ID {
			return nil, model.NewForbiddenError(message)
		}
		return r.Context(), nil
	})
}

// nestPostViewer はNestの作成者またはメンバーであることを要求する。
func (g *guards) nestPostViewer(next http.Handler) http.Handler {
	return check(func(r *http.Request) (context.Context, error) {
		n := nestFrom(r.Context())
		userID := currentUserFrom(r.Context()).ID
		if n.CreatorID != userID && !n.HasMember(userID) {
			return nil, model.NewForbiddenError("作成者またはメンバー以外はNestの投稿を閲覧できません。")
		}
		return r.Context(), nil
	})(next)
}

// nestViewerByCreator はクエリcreatorが自分自身であることを要求する。未ログインの場合も拒否する。
func (g *guards) nestViewerByCreator(next http.Handler) http.Handler {
	return check(func(r *http.Request) (context.Context, error) {
		userID, _ := middleware.UserIDFromContext(r.Context())
		if queryUserFrom(r.Context()).ID != userID {
			return nil, model.NewForbiddenError("他のユーザーのNest一覧は閲覧できません。")
		}
		return r.Context(), nil
	})(next)
}

// groupOwner はTimeの対象Nestの作成者であることを要求する。
func (g *guards) groupOwner(next http.Handler) http.Handler {
	return check(func(r *http.Request) (context.Context, error) {
		if groupFrom(r.Context()).CreatorID != currentUserFrom(r.Context()).ID {
			return nil, model.NewForbiddenError("他のユーザーのNestにはTimeを作成できません。")
		}
		return r.Context(), nil
	})(next)
}

// timeModifier はTimeの作成者であることを要求する。
func (g *guards) timeModifier(next http.Handler) http.Handler {
	return check(func(r *http.Request) (context.Context, error) {
		if timeFrom(r.Context()).CreatorID != currentUserFrom(r.Context()).ID {
			return nil, model.NewForbiddenError("他のユーザーのTimeは変更できません。")
		}
		return r.Context(), nil
	})(next)
}

// freetModifier はFreetの投稿者であることを要求する。
func (g *guards) freetModifier(next http.Handler) http.Handler {
	return check(func(r *http.Request) (context.Context, error) {
		if freetFrom(r.Context()).AuthorID != currentUserFrom(r.Context()).ID {
			return nil, model.NewForbiddenError("他のユーザーのFreetは変更できません。")
		}
		return r.Context(), nil
	})(next)
}

// --- 入力形式 ---

// validNestName はボディのnameがNest名として有効であることを要求する。
func (g *guards) validNestName(next http.Handler) http.Handler {
	return check(func(r *http.Request) (context.Context, error) {
		name, _ := middleware.BodyString(r.Context(), "name")
		if err := nest.ValidateName(name); err != nil {
			return nil, err
		}
		return r.Context(), nil
	})(next)
}

// validClock はボディの各フィールドが"HH:MM"形式であることを要求する。
func (g *guards) validClock(fields ...string) guard {
	return check(func(r *http.Request) (context.Context, error) {
		for _, field := range fields {
			value, _ := middleware.BodyString(r.Context(), field)
			if err := times.ValidateClock(field, value); err != nil {
				return nil, err
			}
		}
		return r.Context(), nil
	})
}

// validFreetContent はボディのcontentがFreetの本文として有効であることを要求する。
func (g *guards) validFreetContent(next http.Handler) http.Handler {
	return check(func(r *http.Request) (context.Context, error) {
		content, _ := middleware.BodyString(r.Context(), "content")
		if _, err := g.freets.PrepareContent(content); err != nil {
			return nil, err
		}
		return r.Context(), nil
	})(next)
}

// validOperation はボディのoperationが add / remove であることを要求する。
func (g *guards) validOperation(next http.Handler) http.Handler {
	return check(func(r *http.Request) (context.Context, error) {
		raw, _ := middleware.BodyString(r.Context(), "operation")
		op, ok := model.ParseOperation(raw)
		if !ok {
			return nil, model.NewInvalidOperationError(raw)
		}
		return with(r, operationKey, op), nil
	})(next)
}

// validUserFields はボディのusername / passwordが指定されていれば有効であることを要求する。
// required がtrueの場合は両方を必須とする。
func (g *guards) validUserFields(required bool) guard {
	return check(func(r *http.Request) (context.Context, error) {
		body := middleware.BodyFromContext(r.Context())
		for _, field := range []string{"username", "password"} {
			if _, present := body[field]; !present {
				if required {
					return nil, model.NewMissingParameterError(field)
				}
				continue
			}
			value, _ := middleware.BodyString(r.Context(), field)
			validate := auth.ValidateUsername
			if field == "password" {
				validate = auth.ValidatePassword
			}
			if err := validate(value); err != nil {
				return nil, err
			}
		}
		return r.Context(), nil
	})
}

// --- コンテキストからの取り出し ---

func currentUserFrom(ctx context.Context) *model.User {
	u, _ := ctx.Value(currentUserKey).(*model.User)
	return u
}

func queryUserFrom(ctx context.Context) *model.User {
	u, _ := ctx.Value(queryUserKey).(*model.User)
	return u
}

func recipientFrom(ctx context.Context) *model.User {
	u, _ := ctx.Value(recipientKey).(*model.User)
	return u
}

func memberFrom(ctx context.Context) *model.User {
	u, _ := ctx.Value(memberKey).(*model.User)
	return u
}

func nestFrom(ctx context.Context) *model.PopulatedNest {
	n, _ := ctx.Value(nestKey).(*model.PopulatedNest)
	return n
}

func groupFrom(ctx context.Context) *model.PopulatedNest {
	n, _ := ctx.Value(groupKey).(*model.PopulatedNest)
	return n
}

func timeFrom(ctx context.Context) *model.PopulatedTime {
	t, _ := ctx.Value(timeKey).(*model.PopulatedTime)
	return t
}

func freetFrom(ctx context.Context) *model.PopulatedFreet {
	f, _ := ctx.Value(freetKey).(*model.PopulatedFreet)
	return f
}

func operationFrom(ctx context.Context) model.Operation {
	op, _ := ctx.Value(operationKey).(model.Operation)
	return op
}
