package service

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ddfinv/portal/internal/entity"
)

var (
	emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	nameRegexp  = regexp.MustCompile(`^[\p{L}]+([\s'-][\p{L}]+)*$`)
	spaceRegexp = regexp.MustCompile(`\s+`)
)

const (
	EmailMaxLen    = 255
	NameMinLen     = 2
	NameMaxLen     = 50
	PasswordMinLen = 8
	PasswordMaxLen = 64
)

func ValidateEmail(email string) error {
	if len(email) > EmailMaxLen {
		return entity.ErrEmailInvalidLen
	}

	if !emailRegexp.MatchString(email) {
		return entity.ErrEmailInvalidFormat
	}

	if strings.Contains(email, "..") {
		return entity.ErrEmailInvalidFormat
	}

	return nil
}

func ValidateName(name string) error {
	nameLen := utf8.RuneCountInString(name)
	if nameLen < NameMinLen || nameLen > NameMaxLen {
		return entity.ErrNameInvalidLen
	}

	if !nameRegexp.MatchString(name) {
		return entity.ErrNameInvalidFormat
	}

	return nil
}

// ValidatePassword mirrors the backend's registration policy so the user
// sees the rejection before the round trip.
func ValidatePassword(password string) error {
	passLen := utf8.RuneCountInString(password)
	if passLen < PasswordMinLen || passLen > PasswordMaxLen {
		return entity.ErrPasswordInvalidLen
	}

	var hasUpper, hasDigit, hasSpecial bool

	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if !hasUpper {
		return entity.ErrPasswordNoUpperCase
	}

	if !hasDigit {
		return entity.ErrPasswordNoDigit
	}

	if !hasSpecial {
		return entity.ErrPasswordNoSpecialChar
	}

	return nil
}

func NormalizeEmail(email string) (string, error) {
	normalized := strings.TrimSpace(email)

	normalized = strings.ToLower(normalized)

	for _, cut := range []string{"(", ")", "[", "]", "<", ">"} {
		normalized = strings.ReplaceAll(normalized, cut, "")
	}

	normalized = spaceRegexp.ReplaceAllString(normalized, "")

	err := ValidateEmail(normalized)
	if err != nil {
		return "", entity.ErrEmailInvalidFormat
	}

	return normalized, nil
}
