// Package form holds the portal's input forms: the create-request flow and
// the password forms. Client validation here is advisory; the payment API
// stays the authority and its answer is always shown.
package form

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// FieldError is one invalid input. Field is the HTML form name, e.g.
// "vendors[0][gl_entries][1][amount]".
type FieldError struct {
	Field   string
	Message string
}

// ValidationErrors aggregates every invalid input of a form
type ValidationErrors struct {
	Fields []FieldError
}

func (e *ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "; ")
}

// FirstField returns the form name of the first invalid input, for focusing
func (e *ValidationErrors) FirstField() string {
	if e == nil || len(e.Fields) == 0 {
		return ""
	}
	return e.Fields[0].Field
}

// Has returns true if field has an error
func (e *ValidationErrors) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

func (e *ValidationErrors) add(field, format string, args ...interface{}) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// sortBy orders the errors by the page position of their fields
func (e *ValidationErrors) sortBy(position func(field string) []int) {
	sort.SliceStable(e.Fields, func(i, j int) bool {
		return slices.Compare(position(e.Fields[i].Field), position(e.Fields[j].Field)) < 0
	})
}

func (e *ValidationErrors) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// AsValidationErrors unwraps err into *ValidationErrors
func AsValidationErrors(err error) (*ValidationErrors, bool) {
	var verrs *ValidationErrors
	if errors.As(err, &verrs) {
		return verrs, true
	}
	return nil, false
}

// collect runs the struct rules of s into errs
func collect(errs *ValidationErrors, s interface{}) {
	err := validate.Struct(s)
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.add("", "%s", err.Error())
		return
	}
	for _, fe := range verrs {
		field := formName(fe.Namespace())
		errs.Fields = append(errs.Fields, FieldError{Field: field, Message: message(fe)})
	}
}

// formName turns a validator namespace such as
// "CreateRequestForm.vendors[0].gl_entries[1].amount" into the HTML form
// name "vendors[0][gl_entries][1][amount]"
func formName(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	var b strings.Builder
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if idx := strings.Index(p, "["); idx >= 0 {
			b.WriteString("[" + p[:idx] + "]" + p[idx:])
		} else {
			b.WriteString("[" + p + "]")
		}
	}
	return b.String()
}

func message(fe validator.FieldError) string {
	label := humanize(fe.Field())
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "email":
		return label + " must be a valid email address"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s needs at least %s entries", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be %s characters", label, fe.Param())
	case "datetime":
		return label + " must be a date (YYYY-MM-DD)"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, fe.Param())
	case "eqfield":
		return label + " does not match"
	case "nefield":
		return label + " must differ from the current one"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", label, fe.Param())
	default:
		return label + " is invalid"
	}
}

var labels = map[string]string{
	"tin":                 "TIN",
	"gl_account":          "GL account",
	"gl_entries":          "GL entries",
	"swift_code":          "SWIFT code",
	"bank_account_number": "Bank account number",
}

// humanize turns "vendors[0]" or "payee_name" into "Vendors" or "Payee name"
func humanize(name string) string {
	if idx := strings.Index(name, "["); idx >= 0 {
		name = name[:idx]
	}
	if label, ok := labels[name]; ok {
		return label
	}
	name = strings.ReplaceAll(name, "_", " ")
	if name == "" {
		return "Field"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
