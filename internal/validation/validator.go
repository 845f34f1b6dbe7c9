// Package validation wraps go-playground/validator with the domain's custom tags.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"campus/internal/models"

	playgroundvalidator "github.com/go-playground/validator/v10"
)

// FieldErrors lists the wire names of fields that failed validation.
type FieldErrors []playgroundvalidator.FieldError

func (fe FieldErrors) Error() string {
	if len(fe) == 0 {
		return ""
	}
	fields := make([]string, 0, len(fe))
	for _, err := range fe {
		fields = append(fields, err.Field())
	}
	return fmt.Sprintf("validation failed on fields: %s", strings.Join(fields, ", "))
}

// Fields returns the failing wire field names in order.
func (fe FieldErrors) Fields() []string {
	out := make([]string, 0, len(fe))
	for _, err := range fe {
		out = append(out, err.Field())
	}
	return out
}

var (
	once     sync.Once
	instance *playgroundvalidator.Validate
)

func get() *playgroundvalidator.Validate {
	once.Do(func() {
		v := playgroundvalidator.New(playgroundvalidator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return fld.Name
		})
		mustRegister(v, "campus_role", func(fl playgroundvalidator.FieldLevel) bool {
			_, ok := models.ParseRole(fl.Field().String())
			return ok
		})
		mustRegister(v, "subscription_state", func(fl playgroundvalidator.FieldLevel) bool {
			_, ok := models.ParseSubscriptionState(fl.Field().String())
			return ok
		})
		mustRegister(v, "notblank", func(fl playgroundvalidator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		instance = v
	})
	return instance
}

func mustRegister(v *playgroundvalidator.Validate, tag string, fn playgroundvalidator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %s: %v", tag, err))
	}
}

// Struct validates s and returns FieldErrors when any rule fails.
func Struct(s any) error {
	if err := get().Struct(s); err != nil {
		var validationErrors playgroundvalidator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return FieldErrors(validationErrors)
		}
		return err
	}
	return nil
}

// Var validates a single value against a tag expression.
func Var(value any, tag string) error {
	return get().Var(value, tag)
}
