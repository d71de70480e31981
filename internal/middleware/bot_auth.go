// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"

	"github.com/hitoshi/salonbook/internal/model"
)

// BotTokenHeader はチャットボットがWebアプリのデータを転送する際に付与する認証ヘッダー。
const BotTokenHeader = "X-Bot-Token"

// NewBotTokenMiddleware はX-Bot-Tokenヘッダーが設定済みのボットトークンと一致するかを検証する
// ミドルウェアを返す。一致しない場合は401を返す。
// tokenが空の場合は全てのリクエストを拒否する。
func NewBotTokenMiddleware(token string) func(next http.Handler) http.Handler {
	expected := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get(BotTokenHeader))
			if len(expected) == 0 || subtle.ConstantTimeCompare(got, expected) != 1 {
				slog.Warn("bot token validation failed",
					slog.String("path", r.URL.Path),
					slog.String("client_ip", ClientIP(r)),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, &model.APIError{
					Code:     "UNAUTHORIZED",
					Message:  "認証に失敗しました。",
					Category: "auth",
					Action:   "ボットの設定を確認してください。",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP はリクエスト元のIPアドレスを返す。
// RemoteAddrがhost:port形式でない場合はそのまま返す。
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
