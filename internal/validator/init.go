package validator

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

// messages maps "<json field>.<tag>" to the text shown to users.
var messages = map[string]string{
	"username.required":       "Username is required",
	"password.required":       "Password is required",
	"password.min":            "Password must be at least 6 characters",
	"password.maxbytes":       "Password must be at most 72 bytes",
	"confirmPassword.eqfield": "Passwords must match",
}

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	if err := validate.RegisterValidation("maxbytes", maxBytes); err != nil {
		panic(err)
	}
}

// maxBytes limits the encoded length of a string. bcrypt rejects
// passwords longer than 72 bytes, whatever their rune count.
func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

// Messages validates s and returns one user-facing message per failing
// field, in struct field order. A nil slice means s is valid.
func Messages(s any) ([]string, error) {
	err := validate.Struct(s)
	if err == nil {
		return nil, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, err
	}

	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, message(fe))
	}
	return out, nil
}

func message(fe validator.FieldError) string {
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	return fe.Field() + " is invalid"
}
