package utils

import (
	"reflect"
	"strings"

	"github.com/classgrade/grading-engine/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator wraps a configured validator.Validate instance.
type Validator struct {
	validate *validator.Validate
}

// NewValidator builds a validator with the custom rules registered.
func NewValidator() *Validator {
	v := validator.New()
	RegisterCustomValidators(v)
	return &Validator{validate: v}
}

// Struct validates a struct against its tags.
func (v *Validator) Struct(s interface{}) error {
	return v.validate.Struct(s)
}

// Custom validation functions

func ValidateQuestionType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	for _, validType := range models.AllQuestionTypes {
		if string(validType) == value {
			return true
		}
	}
	return false
}

func ValidateLetterGrade(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	for _, grade := range models.LetterGrades {
		if grade == value {
			return true
		}
	}
	return false
}

func ValidateStrictness(fl validator.FieldLevel) bool {
	value := fl.Field().Float()
	return value >= 0.0 && value <= 1.0
}

// RegisterCustomValidators registers all custom validators
func RegisterCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("question_type", ValidateQuestionType)
	validate.RegisterValidation("letter_grade", ValidateLetterGrade)
	validate.RegisterValidation("strictness", ValidateStrictness)

	// Register custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}
