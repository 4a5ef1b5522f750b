package password

import (
	"strings"
	"unicode"

	"github.com/ErlanBelekov/authgate/internal/domain"
	"github.com/go-playground/validator/v10"
)

// SpecialChars is the set of which at least one must appear in a password.
const SpecialChars = "@$!%*?&"

type requirements struct {
	Password string `validate:"min=8,password_classes"`
}

// Policy checks password strength before a password is hashed and stored.
// It reports a single coarse error; callers never learn which rule failed.
type Policy struct {
	v *validator.Validate
}

func NewPolicy() *Policy {
	v := validator.New()
	// Registration only fails on an empty tag or nil func, neither of which can happen here.
	_ = v.RegisterValidation("password_classes", hasRequiredClasses)
	return &Policy{v: v}
}

// Validate returns domain.ErrInvalidPassword if the password is shorter than
// 8 characters or misses a lowercase letter, uppercase letter, digit or one
// of SpecialChars.
func (p *Policy) Validate(password string) error {
	if err := p.v.Struct(requirements{Password: password}); err != nil {
		return domain.ErrInvalidPassword
	}
	return nil
}

func hasRequiredClasses(fl validator.FieldLevel) bool {
	var lower, upper, digit, special bool
	for _, r := range fl.Field().String() {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(SpecialChars, r):
			special = true
		}
	}
	return lower && upper && digit && special
}
