package store

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationMessage turns a validator error into one line the user can act on
func validationMessage(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		field := e.Field()
		switch e.Tag() {
		case "required":
			msgs = append(msgs, field+": field is required")
		case "email":
			msgs = append(msgs, field+": invalid email format")
		case "min":
			msgs = append(msgs, field+": must be at least "+e.Param()+" characters")
		case "max":
			msgs = append(msgs, field+": must be at most "+e.Param()+" characters")
		default:
			msgs = append(msgs, field+": validation failed on "+e.Tag())
		}
	}
	return strings.Join(msgs, "; ")
}
