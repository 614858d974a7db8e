package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/soundmesh/musiccast-hub-go/internal/apperrors"
	"github.com/soundmesh/musiccast-hub-go/internal/yxc"
)

// handler adapts handlers that return errors into http.Handler.
type handler func(w http.ResponseWriter, r *http.Request) error

func (h handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h(w, r); err != nil {
		writeError(w, err)
	}
}

type contextKey string

const requestIDKey contextKey = "requestID"

// requestIDMiddleware ensures every request carries a request id.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("x-request-id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("x-request-id", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// recovererMiddleware converts panics into 500 responses.
func recovererMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recovered := recover(); recovered != nil {
				logrus.WithField("panic", recovered).Error("panic recovered")
				writeJSON(w, http.StatusInternalServerError, errorBody("internal", "internal server error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(payload)
}

func errorBody(code, message string) map[string]any {
	return map[string]any{"error": map[string]any{"code": code, "message": message}}
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var argErr *apperrors.ArgumentError
	var upnpErr *apperrors.UpnpError
	var transportErr *apperrors.TransportError
	var invalidErr *apperrors.InvalidResponseError
	var yxcErr *yxc.Error

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not_found", err.Error()))
	case errors.Is(err, apperrors.ErrAlreadyRegistered):
		writeJSON(w, http.StatusConflict, errorBody("already_registered", err.Error()))
	case errors.As(err, &argErr):
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_argument", argErr.Error()))
	case errors.As(err, &yxcErr):
		writeJSON(w, http.StatusBadGateway, errorBody(string(yxcErr.Kind), yxcErr.Error()))
	case errors.As(err, &upnpErr):
		writeJSON(w, http.StatusBadGateway, errorBody("upnp_error", upnpErr.Error()))
	case errors.As(err, &transportErr):
		writeJSON(w, http.StatusBadGateway, errorBody("transport", transportErr.Error()))
	case errors.As(err, &invalidErr):
		writeJSON(w, http.StatusBadGateway, errorBody("invalid_response", invalidErr.Error()))
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody("internal", err.Error()))
	}
}
