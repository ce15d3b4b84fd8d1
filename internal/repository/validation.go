package repository

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// enumValue is implemented by closed string enumerations such as model.AuditAction.
type enumValue interface {
	IsValid() bool
}

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
		if err := validate.RegisterValidation("enum", validateEnum); err != nil {
			panic(fmt.Sprintf("register enum validation: %v", err))
		}
	})
	return validate
}

func validateEnum(fl validator.FieldLevel) bool {
	v, ok := fl.Field().Interface().(enumValue)
	return ok && v.IsValid()
}

// validateEntity checks the declarative rules carried in the validate tags.
func validateEntity(entity any, name string) error {
	err := getValidator().Struct(entity)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%s: %w", name, err)
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			problems = append(problems, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			problems = append(problems, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%s: %w: %s", name, ErrConstraintViolation, strings.Join(problems, ", "))
}
