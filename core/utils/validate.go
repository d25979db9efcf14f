package utils

import (
	"errors"
	"regexp"
	"strings"
)

var (
	usernameRe = regexp.MustCompile(`^[a-z0-9._-]{3,50}$`)
	emailRe    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

func ValidateUsername(username string) error {
	if !usernameRe.MatchString(strings.ToLower(strings.TrimSpace(username))) {
		return errors.New("username must be 3-50 chars: letters, digits, '.', '_' or '-'")
	}
	return nil
}

func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if len(email) > 100 || !emailRe.MatchString(email) {
		return errors.New("invalid email address")
	}
	return nil
}

func ValidatePassword(password string) error {
	if password == "" {
		return errors.New("password required")
	}
	if len(password) > 72 {
		// bcrypt truncates beyond 72 bytes
		return errors.New("password too long")
	}
	return nil
}
