package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/nestfeed/internal/middleware"
	"github.com/hitoshi/nestfeed/internal/model"
)

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// writeAPIError はAPIErrorをコードに対応するステータスで書き込む。
func writeAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
}

// handleServiceError はサービス層のエラーをHTTPレスポンスに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIError(w, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeNotLoggedIn, model.ErrCodeAlreadyLoggedIn, model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeInvalidRequest, model.ErrCodeMissingParameter,
		model.ErrCodeInvalidUsername, model.ErrCodeInvalidPassword,
		model.ErrCodeEmptyRecipient, model.ErrCodeSelfFriend,
		model.ErrCodeInvalidNestName, model.ErrCodeInvalidClock,
		model.ErrCodeInvalidFreetContent, model.ErrCodeInvalidOperation:
		return http.StatusBadRequest
	case model.ErrCodeUserNotFound, model.ErrCodeNestNotFound,
		model.ErrCodeTimeNotFound, model.ErrCodeFreetNotFound:
		return http.StatusNotFound
	case model.ErrCodeUsernameTaken, model.ErrCodeAlreadyFriends:
		return http.StatusConflict
	case model.ErrCodeNestNameTooLong, model.ErrCodeFreetTooLong:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}
