package auth

import (
	"fmt"
	"strings"
	"unicode"

	"traceforge/errors"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// A username with whitespace could never be addressed with "@name".
	_ = v.RegisterValidation("nospace", func(fl validator.FieldLevel) bool {
		return !strings.ContainsFunc(fl.Field().String(), unicode.IsSpace)
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

type RegisterRequest struct {
	Username string `validate:"required,nospace"`
	Password string `validate:"notblank"`
}

// NewRegisterRequest trims the username. The password is kept verbatim and
// only has to contain something other than whitespace.
func NewRegisterRequest(username, password string) RegisterRequest {
	return RegisterRequest{
		Username: strings.TrimSpace(username),
		Password: password,
	}
}

func ValidateRegister(req RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidInput, err)
	}
	return nil
}
