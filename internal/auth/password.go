// password.go handles bcrypt password hashing and registration-time validation of
// passwords and usernames.
package auth

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the cost factor used when the configured cost is zero
const DefaultBcryptCost = 10

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

// commonPasswords are rejected outright regardless of character classes
var commonPasswords = map[string]bool{
	"password":   true,
	"password1":  true,
	"password1!": true,
	"qwerty123":  true,
	"12345678":   true,
	"123456789":  true,
	"letmein123": true,
	"admin123":   true,
	"welcome1":   true,
	"iloveyou1":  true,
}

// HashPassword hashes a plaintext password with bcrypt
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a plaintext password against a stored bcrypt hash
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidateUsername checks that a username is 3-20 characters of letters,
// digits, and underscores.
func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return errors.New("username must be 3-20 characters and contain only letters, numbers, and underscores")
	}
	return nil
}

// ValidatePassword enforces the password policy: at least 8 characters with an
// uppercase letter, a lowercase letter, a digit, and a special character, and
// not on the common-password list.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters long")
	}

	if commonPasswords[strings.ToLower(password)] {
		return errors.New("password is too common")
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	switch {
	case !hasUpper:
		return errors.New("password must contain an uppercase letter")
	case !hasLower:
		return errors.New("password must contain a lowercase letter")
	case !hasDigit:
		return errors.New("password must contain a digit")
	case !hasSpecial:
		return errors.New("password must contain a special character")
	}

	return nil
}
