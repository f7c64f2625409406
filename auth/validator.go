package auth

import (
	"fmt"
	"roomchat/errors"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type RegisterRequest struct {
	Username string `validate:"required,alphanum,min=3,max=32"`
	Password string `validate:"required,min=12,max=72"`
}

func ValidateRegister(req RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		return err
	}

	if !isPasswordComplex(req.Password) {
		return errors.ErrInvalidPassword
	}
	return nil
}

func isPasswordComplex(s string) bool {
	var (
		hasUpper   = false
		hasLower   = false
		hasNumber  = false
		hasSpecial = false
	)
	for _, char := range s {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}
	return hasUpper && hasLower && hasNumber && hasSpecial
}

// ValidateColor accepts #rgb, #rrggbb and their alpha variants.
func ValidateColor(color string) error {
	if err := validate.Var(color, "required,hexcolor"); err != nil {
		return fmt.Errorf("%w: color %q", errors.ErrInvalidContent, color)
	}
	return nil
}

// ValidateContentLength counts runes, not bytes.
func ValidateContentLength(content string, maxLength int) error {
	if err := validate.Var(content, fmt.Sprintf("max=%d", maxLength)); err != nil {
		return fmt.Errorf("%w: content longer than %d characters", errors.ErrInvalidContent, maxLength)
	}
	return nil
}
