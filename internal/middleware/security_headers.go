package middleware

import "net/http"

// prefersColorSchemeHeader はOSのカラースキーム設定を伝えるクライアントヒント。
const prefersColorSchemeHeader = "Sec-CH-Prefers-Color-Scheme"

// NewSecurityHeadersMiddleware はセキュリティ関連のHTTPレスポンスヘッダーを付与するミドルウェアを返す。
// テーマ解決に使用するカラースキームのクライアントヒントも要求する。
func NewSecurityHeadersMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			h.Set("Cache-Control", "no-store")
			h.Set("Accept-CH", prefersColorSchemeHeader)
			h.Add("Vary", prefersColorSchemeHeader)
			next.ServeHTTP(w, r)
		})
	}
}

// PrefersDarkScheme はリクエストのクライアントヒントがダークモードを示すかを返す。
func PrefersDarkScheme(r *http.Request) bool {
	return r.Header.Get(prefersColorSchemeHeader) == "dark"
}
