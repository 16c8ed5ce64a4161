package auth

import (
	"unicode"

	"github.com/go-faster/errors"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/apperror"
)

const minPasswordLength = 8

// ValidatePassword enforces length and mixed character classes.
func ValidatePassword(password string) error {
	var hasDigit, hasLower, hasUpper bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		}
	}

	var problems []string
	if len([]rune(password)) < minPasswordLength {
		problems = append(problems, "password must be at least 8 characters")
	}
	if !hasDigit {
		problems = append(problems, "password must contain a digit")
	}
	if !hasLower {
		problems = append(problems, "password must contain a lower-case letter")
	}
	if !hasUpper {
		problems = append(problems, "password must contain an upper-case letter")
	}
	if len(problems) > 0 {
		return apperror.Validation("password does not meet the policy").WithDetail("password", problems)
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
