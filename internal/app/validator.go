package app

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NewValidator is the single validator construction shared by services and
// request decoding. Field errors are reported by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
