package handlers

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// usernamePattern is the charset accepted for account names. The login
// form binding and the user create path enforce the same rule.
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.@-]+$`)

func usernameAllowed(s string) bool {
	return usernamePattern.MatchString(s)
}

// RegisterValidations installs the custom tag validators on gin's
// binding engine. Re-registration overwrites, so repeated setup is
// harmless.
func RegisterValidations() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameAllowed(fl.Field().String())
	})
}
