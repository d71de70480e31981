package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// NewCORSMiddleware は指定されたオリジンに対するCORSミドルウェアを返す。
// Webアプリは別オリジンから配信されるため、読み取りAPIとWebアプリデータの受信に必要な
// メソッドとヘッダーのみを許可する。"*" の場合は全オリジンを許可し、credentialsは送らせない。
// プリフライトリクエストには204で応答する。
func NewCORSMiddleware(allowedOrigin string) func(next http.Handler) http.Handler {
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}

	c := cors.New(cors.Options{
		AllowedOrigins:       []string{allowedOrigin},
		AllowedMethods:       []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:       []string{"Content-Type", BotTokenHeader},
		AllowCredentials:     allowedOrigin != "*",
		MaxAge:               86400,
		OptionsSuccessStatus: http.StatusNoContent,
	})
	return c.Handler
}
