package httpapi

import (
	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
)

// FieldErrors flattens validator errors into a json-field → message map. Other errors yield nil.
func FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = describe(fe)
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_with":
		return "required"
	case "email":
		return "invalid email"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "eqfield":
		return "does not match"
	case "nefield":
		return "must differ from the current value"
	case "numeric", "number":
		return "invalid number"
	default:
		return "invalid"
	}
}
