package backend

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	playgroundvalidator "github.com/go-playground/validator/v10"

	"github.com/chatpilot-hq/console/internal/rbac"
)

var validate = newValidator()

func newValidator() *playgroundvalidator.Validate {
	v := playgroundvalidator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("tenant_role", validateTenantRole)
	return v
}

func validateTenantRole(fl playgroundvalidator.FieldLevel) bool {
	_, ok := rbac.ParseRole(fl.Field().String())
	return ok
}

// validateRequest checks struct tags and reports the offending json field
// names wrapped in ErrInvalidRequest.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs playgroundvalidator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fe.Field())
	}
	return fmt.Errorf("%w: invalid fields: %s", ErrInvalidRequest, strings.Join(fields, ", "))
}
