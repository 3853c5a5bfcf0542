package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// VisitorCookieName は訪問者IDを保持するCookieの名前。
const VisitorCookieName = "visitor_id"

const visitorCookieMaxAge = 365 * 24 * 60 * 60

// NewVisitorMiddleware は訪問者ID Cookieを読み取り、無ければ発行してコンテキストに注入するミドルウェアを返す。
// UUIDとして解釈できない値は新しいIDで置き換える。
func NewVisitorMiddleware(secure bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var visitorID string
			if cookie, err := r.Cookie(VisitorCookieName); err == nil {
				if id, err := uuid.Parse(cookie.Value); err == nil {
					visitorID = id.String()
				}
			}
			if visitorID == "" {
				visitorID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     VisitorCookieName,
					Value:    visitorID,
					Path:     "/",
					MaxAge:   visitorCookieMaxAge,
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(ContextWithVisitorID(r.Context(), visitorID)))
		})
	}
}

// VisitorIDFromContext はリクエストコンテキストから訪問者IDを取得する。
func VisitorIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(visitorContextKey).(string)
	return id
}

// ContextWithVisitorID はコンテキストに訪問者IDを注入する。
func ContextWithVisitorID(ctx context.Context, visitorID string) context.Context {
	return context.WithValue(ctx, visitorContextKey, visitorID)
}
