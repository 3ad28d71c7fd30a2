package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/oksasatya/tutorhub-user-service/internal/domain/domainerr"
)

// Init configures the global validator used by Gin's binding.
// - Uses JSON tag names in errors.
// - Registers alias tags for the user domain enums.
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		v.RegisterAlias("role", "oneof=student tutor admin super_admin")
		v.RegisterAlias("skillcategory", "oneof=academic language technical arts other")
		v.RegisterAlias("skilllevel", "oneof=beginner intermediate advanced expert")
	}
}

// ToDetails converts binding and domain validation errors into a map[field]message
// suitable for API error details.
func ToDetails(err error) map[string]string {
	if err == nil {
		return nil
	}

	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	if errors.As(err, &se) || errors.As(err, &ute) {
		return map[string]string{"payload": "invalid json"}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			out[fieldPath(fe)] = formatFieldError(fe)
		}
		return out
	}

	var derrs domainerr.ValidationErrors
	if errors.As(err, &derrs) {
		return derrs.Details()
	}
	var derr *domainerr.ValidationError
	if errors.As(err, &derr) {
		return map[string]string{derr.Field: derr.Message}
	}

	return map[string]string{"payload": "invalid payload"}
}

// fieldPath drops the top-level struct name: "skills[0].name" instead of "req.skills[0].name".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func formatFieldError(fe validator.FieldError) string {
	tag := fe.Tag()
	param := fe.Param()

	switch tag {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "uuid":
		return "must be a valid UUID"
	case "bcp47_language_tag":
		return "must be a valid BCP 47 language tag"
	case "timezone":
		return "must be a valid timezone"
	case "min":
		if isNumberKind(fe.Kind()) {
			return "must be at least " + param
		}
		return "must be at least " + param + " characters long"
	case "max":
		if isNumberKind(fe.Kind()) {
			return "must be at most " + param
		}
		return "must be at most " + param + " characters long"
	case "gte":
		return "must be greater than or equal to " + param
	case "lte":
		return "must be less than or equal to " + param
	case "oneof", "role", "skillcategory", "skilllevel":
		return "must be one of: " + strings.Join(strings.Fields(oneOfParam(fe)), ", ")
	case "datetime":
		return "must match the format " + param
	}
	if param != "" {
		return fmt.Sprintf("validation failed for '%s' with parameter '%s'", tag, param)
	}
	return fmt.Sprintf("validation failed for '%s'", tag)
}

// oneOfParam resolves alias tags back to their oneof values.
func oneOfParam(fe validator.FieldError) string {
	switch fe.Tag() {
	case "role":
		return "student tutor admin super_admin"
	case "skillcategory":
		return "academic language technical arts other"
	case "skilllevel":
		return "beginner intermediate advanced expert"
	}
	return fe.Param()
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
