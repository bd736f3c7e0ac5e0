package delegation

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"gorm.io/gorm/schema"
)

// Validatable is implemented by records with rules that struct tags cannot
// express. Validate runs after the tag-based checks.
type Validatable interface {
	Validate(ctx context.Context, errs *Errors)
}

// recordValidator checks one record's own fields. Association fields are
// never descended into: each record is validated on its own.
type recordValidator struct {
	validate *validator.Validate
	namer    schema.Namer
}

func newRecordValidator(namer schema.Namer) *recordValidator {
	validate := validator.New()
	// notblank rejects whitespace-only strings, which required accepts.
	_ = validate.RegisterValidation("notblank", validators.NotBlank)
	return &recordValidator{validate: validate, namer: namer}
}

func (v *recordValidator) check(ctx context.Context, s *schema.Schema, ptr any, errs *Errors) {
	skip := make(map[string]bool, len(s.Relationships.Relations))
	for name := range s.Relationships.Relations {
		skip[name] = true
	}

	err := v.validate.StructFilteredCtx(ctx, ptr, func(ns []byte) bool {
		path := string(ns)
		if i := strings.IndexByte(path, '.'); i >= 0 {
			path = path[i+1:]
		}
		top, _, _ := strings.Cut(path, ".")
		return skip[top]
	})

	var fieldErrs validator.ValidationErrors
	switch {
	case errors.As(err, &fieldErrs):
		for _, fe := range fieldErrs {
			errs.Add(v.attributeName(s, fe), validationMessage(fe))
		}
	case err != nil:
		errs.Add(BaseAttribute, err.Error())
	}

	if custom, ok := ptr.(Validatable); ok {
		custom.Validate(ctx, errs)
	}
}

func (v *recordValidator) attributeName(s *schema.Schema, fe validator.FieldError) string {
	if f, ok := s.FieldsByName[fe.StructField()]; ok && f.DBName != "" {
		return f.DBName
	}
	return v.namer.ColumnName(s.Table, fe.StructField())
}

// validationMessage maps a validator tag to a human-readable message.
func validationMessage(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required", "notblank":
		return "can't be blank"
	case "min":
		if isString {
			return "is too short (minimum is " + fe.Param() + " characters)"
		}
		return "must be greater than or equal to " + fe.Param()
	case "max":
		if isString {
			return "is too long (maximum is " + fe.Param() + " characters)"
		}
		return "must be less than or equal to " + fe.Param()
	case "len":
		return "is the wrong length (should be " + fe.Param() + " characters)"
	case "oneof":
		return "is not included in the list"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "lt":
		return "must be less than " + fe.Param()
	case "numeric":
		return "is not a number"
	default:
		return "is invalid"
	}
}
