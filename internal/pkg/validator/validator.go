package validator

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"staybook/internal/pkg/apperr"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ErrInvalidRequest is the code every field error is reported under.
var ErrInvalidRequest = apperr.Validation("Request.Invalid", "request is invalid")

// Validate struct fields
func Validate(v interface{}) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

// Struct validates v and returns the failures as one joined apperr
// validation error, fields in name order.
func Struct(v any) error {
	fields := Validate(v)
	if len(fields) == 0 {
		return nil
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	errs := make([]error, 0, len(names))
	for _, name := range names {
		errs = append(errs, ErrInvalidRequest.WithMessage("%s failed %s", strings.ToLower(name), fields[name]))
	}
	return fmt.Errorf("validate: %w", apperr.Join(errs...))
}
