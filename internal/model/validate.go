package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		// Decimals validate as their float value so gte/gt tags apply.
		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				return d.InexactFloat64()
			}
			return nil
		}, decimal.Decimal{})
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		validate = v
	})
	return validate
}

// ValidationError reports the fields of a record that failed validation.
type ValidationError struct {
	Kind   string
	ID     string
	Fields []string
	Err    error
}

func (e *ValidationError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("invalid %s %q: %s", e.Kind, e.ID, strings.Join(e.Fields, ", "))
	}
	return fmt.Sprintf("invalid %s %q: %v", e.Kind, e.ID, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// checkStruct runs the struct tags of v and merges in extra field problems.
func checkStruct(kind, id string, v any, extra ...string) error {
	fields := append([]string(nil), extra...)
	err := validatorInstance().Struct(v)
	if err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &ValidationError{Kind: kind, ID: id, Err: err}
		}
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Kind: kind, ID: id, Fields: fields, Err: err}
}
