// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/kamitori/connect/internal/credential"
)

const requestIDHeader = "X-Request-ID"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// tokenContextKey はリクエストコンテキストにトークンCookieの値を格納するためのキー。
	tokenContextKey = contextKey("token")
	// requestIDContextKey はリクエストコンテキストにリクエストIDを格納するためのキー。
	requestIDContextKey = contextKey("request_id")
)

// NewTokenMiddleware はtoken Cookieの値をリクエストコンテキストに注入するミドルウェアを返す。
// Cookieがなくても拒否はしない。値の検証はAPIサーバーに委ねる。
func NewTokenMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(credential.CookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), tokenContextKey, cookie.Value)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TokenFromContext はリクエストコンテキストからトークンを取得する。
// トークンがない場合は空文字列を返す。
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey).(string)
	return token
}

// ContextWithToken はコンテキストにトークンを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey, token)
}

// NewRequestIDMiddleware はリクエストIDを採番してコンテキストとレスポンスヘッダーに設定する。
// クライアントがX-Request-IDを送ってきた場合はそれを引き継ぐ。
func NewRequestIDMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if id == "" || len(id) > 64 {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)
			ctx := context.WithValue(r.Context(), requestIDContextKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDFromContext はリクエストコンテキストからリクエストIDを取得する。
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}
