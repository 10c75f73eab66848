// Package inputval validates form input structs through struct tags and
// turns validator failures into messages fit for a notice on the page.
//
// Field labels come from a `label` tag; without one the Go field name is used.
//
//	type clientInput struct {
//		Name  string `validate:"required,max=120" label:"Client name"`
//		Email string `validate:"omitempty,email" label:"Email"`
//	}
package inputval

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/dalemusser/softmanager/internal/domain/models"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FieldError is one failed rule, already rendered as a sentence.
type FieldError struct {
	Field   string
	Tag     string
	Message string
}

// Result collects the failures of one Validate call.
type Result struct {
	Errors []FieldError
}

func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// First returns the first message, or "".
func (r *Result) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every message with "; ".
func (r *Result) All() string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

var (
	once sync.Once
	v    *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			if l := f.Tag.Get("label"); l != "" {
				return l
			}
			return f.Name
		})
		_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
			return IsValidObjectID(fl.Field().String())
		})
		_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
			return IsValidRole(fl.Field().String())
		})
	})
	return v
}

// Validate runs the struct's `validate` tags. Non-struct input is reported
// as a single error rather than a panic.
func Validate(input any) *Result {
	res := &Result{}
	err := instance().Struct(input)
	if err == nil {
		return res
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		res.Errors = append(res.Errors, FieldError{Message: "Invalid input."})
		return res
	}
	for _, fe := range verrs {
		res.Errors = append(res.Errors, FieldError{
			Field:   fe.StructField(),
			Tag:     fe.Tag(),
			Message: message(fe),
		})
	}
	return res
}

func message(fe validator.FieldError) string {
	label := fe.Field()
	switch fe.Tag() {
	case "required":
		return label + " is required."
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters.", label, fe.Param())
	case "email":
		return "A valid email address is required."
	case "objectid":
		return label + " is not a valid id."
	case "role":
		return label + " must be admin or collaborator."
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", label, fe.Param())
	}
	return label + " is invalid."
}

// IsValidEmail reports whether s is a bare address (no display name).
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	return instance().Var(s, "email") == nil
}

// IsValidObjectID reports whether s is a 24-character hex ObjectID.
func IsValidObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(s)
	return err == nil
}

// IsValidRole reports whether s names one of the application roles.
func IsValidRole(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case models.RoleAdmin, models.RoleCollaborator:
		return true
	}
	return false
}
