package middleware

import "net/http"

// WhenQueryAbsent はクエリパラメータparamが無い場合にfallbackへ処理を渡す。
// GET /api/friends と GET /api/friends?user= のように、同じパスで
// クエリの有無によってハンドラーを切り替えるために使う。
func WhenQueryAbsent(param string, fallback http.Handler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := r.URL.Query()[param]; !ok {
				fallback.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
