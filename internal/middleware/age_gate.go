package middleware

import (
	"net/http"
	"time"

	"github.com/hitoshi/portalx/internal/model"
)

const (
	// AgeCookieName は年齢確認済みを示すCookieの名前。
	AgeCookieName = "ageVerified"
	// AgeCookieTTL は年齢確認の有効期間。
	AgeCookieTTL = 24 * time.Hour
)

// NewAgeGateMiddleware は年齢確認Cookieが無いリクエストを403 AGE_NOT_VERIFIEDで拒否するミドルウェアを返す。
func NewAgeGateMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !AgeVerified(r) {
				WriteErrorResponse(w, http.StatusForbidden, model.NewAgeNotVerifiedError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AgeVerified はリクエストが年齢確認済みかを返す。
func AgeVerified(r *http.Request) bool {
	cookie, err := r.Cookie(AgeCookieName)
	return err == nil && cookie.Value == "true"
}

// SetAgeCookie は年齢確認Cookieを設定する。
func SetAgeCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     AgeCookieName,
		Value:    "true",
		Path:     "/",
		MaxAge:   int(AgeCookieTTL.Seconds()),
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearAgeCookie は年齢確認Cookieを削除する。
func ClearAgeCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     AgeCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}
