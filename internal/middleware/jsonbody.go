package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/hitoshi/nestfeed/internal/model"
)

// maxBodyBytes はJSONボディの最大サイズ。
const maxBodyBytes = 1 << 20

var bodyContextKey = contextKey("json_body")

// NewJSONBodyMiddleware はJSONリクエストボディを一度だけデコードし、コンテキストに格納する。
// ボディが空の場合は空のオブジェクトとして扱う。オブジェクト以外や不正なJSONは400を返す。
func NewJSONBodyMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			body := map[string]any{}
			dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
			dec.UseNumber()
			if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
				WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
				return
			}
			if body == nil {
				// "null" はオブジェクトとして扱わない
				WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
				return
			}

			ctx := context.WithValue(r.Context(), bodyContextKey, body)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BodyFromContext はデコード済みのJSONボディを返す。未設定の場合は空のマップを返す。
func BodyFromContext(ctx context.Context) map[string]any {
	if body, ok := ctx.Value(bodyContextKey).(map[string]any); ok {
		return body
	}
	return map[string]any{}
}

// BodyString はボディのフィールドを文字列として取り出す。
// 文字列以外の値や欠落したフィールドはokがfalseになる。
func BodyString(ctx context.Context, field string) (string, bool) {
	v, ok := BodyFromContext(ctx)[field]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// BodyTrimmedString はBodyStringの結果から前後の空白を取り除く。
func BodyTrimmedString(ctx context.Context, field string) string {
	s, _ := BodyString(ctx, field)
	return strings.TrimSpace(s)
}
