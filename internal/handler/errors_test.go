package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/nestfeed/internal/model"
)

func TestMapAPIErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *model.APIError
		want int
	}{
		{model.NewNotLoggedInError(), http.StatusForbidden},
		{model.NewAlreadyLoggedInError(), http.StatusForbidden},
		{model.NewForbiddenError("x"), http.StatusForbidden},
		{model.NewInvalidCredentialsError(), http.StatusUnauthorized},
		{model.NewMissingParameterError("user"), http.StatusBadRequest},
		{model.NewSelfFriendError(), http.StatusBadRequest},
		{model.NewInvalidClockError("startTime", "25:00"), http.StatusBadRequest},
		{model.NewInvalidOperationError("toggle"), http.StatusBadRequest},
		{model.NewUserNotFoundError("bob"), http.StatusNotFound},
		{model.NewNestNotFoundError("n1"), http.StatusNotFound},
		{model.NewTimeNotFoundError("t1"), http.StatusNotFound},
		{model.NewFreetNotFoundError("f1"), http.StatusNotFound},
		{model.NewUsernameTakenError("bob"), http.StatusConflict},
		{model.NewAlreadyFriendsError("bob"), http.StatusConflict},
		{model.NewNestNameTooLongError(), http.StatusRequestEntityTooLarge},
		{model.NewFreetTooLongError(140), http.StatusRequestEntityTooLarge},
		{&model.APIError{Code: "SOMETHING_ELSE"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			if got := mapAPIErrorToHTTPStatus(tt.err); got != tt.want {
				t.Errorf("mapAPIErrorToHTTPStatus(%s) = %d, want %d", tt.err.Code, got, tt.want)
			}
		})
	}
}

func TestHandleServiceError_WrappedAPIError_UsesItsStatus(t *testing.T) {
	w := httptest.NewRecorder()
	handleServiceError(w, errors.Join(errors.New("context"), model.NewNestNotFoundError("n1")))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestHandleServiceError_PlainError_Returns500(t *testing.T) {
	w := httptest.NewRecorder()
	handleServiceError(w, errors.New("db down"))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler_PingFails_Returns503(t *testing.T) {
	h := healthHandler(pingFunc(func(context.Context) error { return errors.New("unreachable") }))

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}
