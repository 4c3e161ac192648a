package middleware

import "net/http"

// NewRouteGuard は保護ページ用のルートガードミドルウェアを返す。
// 有効なセッションCookieを持たないリクエストをログインページへ302リダイレクトする。
// 検証は読み取り専用で、Cookieの書き換えやセッションの更新は行わない。
func NewRouteGuard(verifier SessionVerifier, loginPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				http.Redirect(w, r, loginPath, http.StatusFound)
				return
			}

			session, err := verifier.VerifySession(cookie.Value)
			if err != nil || session == nil {
				http.Redirect(w, r, loginPath, http.StatusFound)
				return
			}

			ctx := ContextWithUserID(r.Context(), session.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
