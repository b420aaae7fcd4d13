package entity

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	ErrUnknownRole       = errors.New("unknown role")
	ErrUnknownPermission = errors.New("unknown permission")
)

var ErrNoSession = errors.New("no session")

var (
	ErrBadCredentials     = errors.New("invalid credentials")
	ErrBackendUnavailable = errors.New("backend unavailable")
)

var (
	ErrEmailInvalidLen    = errors.New("email length exceeds 255 characters")
	ErrEmailInvalidFormat = errors.New("incorrect email format")
)

var (
	ErrNameInvalidFormat = errors.New("name contains invalid characters")
	ErrNameInvalidLen    = errors.New("name must be between 2 and 50 characters")
)

var (
	ErrPasswordInvalidLen    = errors.New("password must be from 8 to 64 symbols")
	ErrPasswordNoUpperCase   = errors.New("password must contain minimum one upper-case letter")
	ErrPasswordNoDigit       = errors.New("password must contain minimum one digit")
	ErrPasswordNoSpecialChar = errors.New("password must contain minimum one special character")
)
