package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// FieldError describes one violated constraint
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every field of an entity that failed validation
type ValidationError struct {
	Entity string       `json:"entity"`
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Field == "" {
			parts = append(parts, f.Message)
			continue
		}
		parts = append(parts, f.Field+" "+f.Message)
	}
	return fmt.Sprintf("invalid %s: %s", e.Entity, strings.Join(parts, "; "))
}

// Has reports whether field is among the failures
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// IsValidationError reports whether err wraps a *ValidationError
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// taskPayload mirrors Task with every field optional so presence can be checked
type taskPayload struct {
	ID        *string  `json:"id" validate:"required,min=1"`
	UserID    *string  `json:"userId" validate:"required"`
	Title     *string  `json:"title" validate:"required,min=1,max=255"`
	Priority  *float64 `json:"priority" validate:"required,whole,min=1,max=5"`
	DueDate   *string  `json:"dueDate" validate:"required,timestamp"`
	Category  *string  `json:"category" validate:"required,category"`
	CreatedAt *string  `json:"createdAt" validate:"required,timestamp"`
	UpdatedAt *string  `json:"updatedAt" validate:"required,timestamp"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON field names instead of Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	mustRegister(v, "category", func(fl validator.FieldLevel) bool {
		return Category(fl.Field().String()).Valid()
	})
	mustRegister(v, "sortby", func(fl validator.FieldLevel) bool {
		return SortBy(fl.Field().String()).Valid()
	})
	mustRegister(v, "whole", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return f == math.Trunc(f)
	})
	mustRegister(v, "timestamp", func(fl validator.FieldLevel) bool {
		_, err := ParseTimestamp(fl.Field().String())
		return err == nil
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses ISO-8601 datetimes. Values without an offset are read as local time.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for i, layout := range timestampLayouts {
		var (
			t   time.Time
			err error
		)
		if i == 0 {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, time.Local)
		}
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid datetime %q", s)
}

// ValidateTask decodes and validates one task as received from the API.
// Nothing that fails here may be cached or shown.
func ValidateTask(raw []byte) (Task, error) {
	var p taskPayload
	verr := &ValidationError{Entity: "task"}

	if err := json.Unmarshal(raw, &p); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) || typeErr.Field == "" {
			verr.Fields = append(verr.Fields, FieldError{Message: "must be a JSON object"})
			return Task{}, verr
		}
		verr.Fields = append(verr.Fields, FieldError{
			Field:   typeErr.Field,
			Message: "must be a " + jsonTypeName(typeErr.Type),
		})
	}

	collect(verr, validate.Struct(p))
	if len(verr.Fields) > 0 {
		return Task{}, verr
	}

	// Parse errors are impossible past the timestamp rule
	dueDate, _ := ParseTimestamp(*p.DueDate)
	createdAt, _ := ParseTimestamp(*p.CreatedAt)
	updatedAt, _ := ParseTimestamp(*p.UpdatedAt)

	return Task{
		ID:        *p.ID,
		UserID:    *p.UserID,
		Title:     *p.Title,
		Priority:  int(*p.Priority),
		DueDate:   dueDate,
		Category:  Category(*p.Category),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// ValidateCreate checks a create request before it is sent
func ValidateCreate(req CreateTaskRequest) error {
	verr := &ValidationError{Entity: "task"}
	collect(verr, validate.Struct(req))
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// ValidateUpdate checks a partial update before it is sent
func ValidateUpdate(req UpdateTaskRequest) error {
	verr := &ValidationError{Entity: "task update"}
	collect(verr, validate.Struct(req))
	if req.DueDate != nil && req.DueDate.IsZero() {
		verr.Fields = append(verr.Fields, FieldError{Field: "dueDate", Message: "must be a valid datetime"})
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// ValidateQuery checks list query parameters
func ValidateQuery(params TaskQueryParams) error {
	verr := &ValidationError{Entity: "query"}
	collect(verr, validate.Struct(params))
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// collect appends validator failures, skipping fields already reported by the decoder
func collect(verr *ValidationError, err error) {
	if err == nil {
		return
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		verr.Fields = append(verr.Fields, FieldError{Message: err.Error()})
		return
	}
	for _, fe := range errs {
		if verr.Has(fe.Field()) {
			continue
		}
		verr.Fields = append(verr.Fields, FieldError{Field: fe.Field(), Message: describe(fe)})
	}
}

func describe(fe validator.FieldError) string {
	isText := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if isText {
			if fe.Param() == "1" {
				return "must not be empty"
			}
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "max":
		if isText {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "whole":
		return "must be an integer"
	case "category":
		return "must be one of " + joinValues(Categories)
	case "sortby":
		return "must be one of " + joinValues(SortOrders)
	case "timestamp":
		return "must be an ISO-8601 datetime"
	default:
		return "failed " + fe.Tag() + " check"
	}
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

func jsonTypeName(t reflect.Type) string {
	if t == nil {
		return "value of the right type"
	}
	switch t.Kind() {
	case reflect.Ptr:
		return jsonTypeName(t.Elem())
	case reflect.String:
		return "string"
	case reflect.Float32, reflect.Float64, reflect.Int, reflect.Int64:
		return "number"
	default:
		return t.Kind().String()
	}
}
