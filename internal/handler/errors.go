// Package handler はHTTPハンドラーとルーティングを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/salonbook/internal/middleware"
	"github.com/hitoshi/salonbook/internal/model"
)

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// toAPIError はサービス層のエラーをAPIErrorとHTTPステータスに変換する。
// APIError以外のエラーは内部エラーとしてログに記録し、詳細は返さない。
func toAPIError(err error) (*model.APIError, int) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr, middleware.StatusForAPIError(apiErr)
	}

	slog.Error("internal server error", slog.String("error", err.Error()))
	return model.NewInternalError(), http.StatusInternalServerError
}

// handleServiceError はサービス層から返されたエラーを統一エラーフォーマットで書き込む。
func handleServiceError(w http.ResponseWriter, err error) {
	apiErr, _ := toAPIError(err)
	middleware.WriteAPIError(w, apiErr)
}
