package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ddfinv/portal/internal/clients/ddfinv"
	"github.com/ddfinv/portal/internal/entity"
)

const (
	errInternalText    = "Something went wrong. Please try again."
	errUnavailableText = "The service is temporarily unavailable. Please try again later."
	errLoginText       = "Login failed. Please check your credentials."
	errRegisterText    = "Registration failed. Please try again."
)

type ResponseError struct {
	Message string `json:"message"`
}

func sendErr(ctx context.Context, w http.ResponseWriter, code int, err error, msg string) {
	slog.ErrorContext(ctx, msg, "error", err.Error(), "http_code", code)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	err = json.NewEncoder(w).Encode(ResponseError{
		Message: msg,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode error response",
			"error", err.Error(),
			"http_code", http.StatusInternalServerError)
	}
}

func sendJSON(ctx context.Context, w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		sendErr(ctx, w, http.StatusInternalServerError, err, errInternalText)
		return
	}
}

// backendMessage surfaces the backend's own error text when it sent one.
// Only the auth flow shows raw backend messages to the user; everything
// else maps to a generic fallback.
func backendMessage(err error, fallback string) string {
	var apiErr *ddfinv.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}

	if errors.Is(err, entity.ErrBackendUnavailable) {
		return errUnavailableText
	}

	return fallback
}

func loginErrText(err error) string {
	if errors.Is(err, entity.ErrBadCredentials) {
		return "Invalid email or password"
	}

	if errors.Is(err, entity.ErrEmailInvalidFormat) || errors.Is(err, entity.ErrEmailInvalidLen) {
		return err.Error()
	}

	return backendMessage(err, errLoginText)
}

// validationErrText passes the policy errors through: they are written for
// the user. Anything else is not.
func validationErrText(err error) (string, bool) {
	for _, known := range []error{
		entity.ErrEmailInvalidFormat,
		entity.ErrEmailInvalidLen,
		entity.ErrNameInvalidFormat,
		entity.ErrNameInvalidLen,
		entity.ErrPasswordInvalidLen,
		entity.ErrPasswordNoUpperCase,
		entity.ErrPasswordNoDigit,
		entity.ErrPasswordNoSpecialChar,
	} {
		if errors.Is(err, known) {
			return err.Error(), true
		}
	}

	return "", false
}

func registerErrText(err error) string {
	if msg, ok := validationErrText(err); ok {
		return msg
	}

	return backendMessage(err, errRegisterText)
}

func proxyStatus(err error) int {
	switch {
	case errors.Is(err, entity.ErrUnauthorized), errors.Is(err, entity.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, entity.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrBackendUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
