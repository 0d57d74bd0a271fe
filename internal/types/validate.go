package types

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const (
	MaxNameLength     = 128
	MaxTitleLength    = 500
	MaxCategoryLength = 64
)

// ValidationError reports a single invalid field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// validName rejects control characters and surrounding whitespace.
func validName(name string) bool {
	if strings.TrimSpace(name) != name {
		return false
	}
	return strings.IndexFunc(name, unicode.IsControl) < 0
}

// instructionValidate is shared by every Validate method in this package.
var instructionValidate *validator.Validate

func init() {
	instructionValidate = validator.New()
	_ = instructionValidate.RegisterValidation("instname", func(fl validator.FieldLevel) bool {
		return validName(fl.Field().String())
	})
	_ = instructionValidate.RegisterValidation("versiontag", func(fl validator.FieldLevel) bool {
		return VersionTag(fl.Field().String()).IsValid()
	})
	_ = instructionValidate.RegisterValidation("verbosity", func(fl validator.FieldLevel) bool {
		return Verbosity(fl.Field().String()).IsValid()
	})
}

// Validate checks a live row before it is inserted.
func (inst *InstructionSet) Validate() error {
	return toValidationError(instructionValidate.Struct(inst))
}

// ValidateName checks an instruction name on its own.
func ValidateName(name string) error {
	return toValidationError(instructionValidate.Var(name, "required,max=128,instname"))
}

func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ValidationError{Field: jsonFieldName(fe.Field()), Reason: describeTag(fe)}
	}
	return err
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "gte":
		return "must be >= " + fe.Param()
	case "instname":
		return "must not contain control characters or surrounding whitespace"
	case "versiontag":
		return "must be draft, stable or deprecated"
	case "verbosity", "oneof":
		return "must be minimal, normal or verbose"
	}
	return "failed " + fe.Tag()
}

func jsonFieldName(goName string) string {
	switch goName {
	case "Name":
		return "name"
	case "Title":
		return FieldTitle
	case "Category":
		return FieldCategory
	case "Version":
		return "version"
	case "VersionTag":
		return FieldVersionTag
	case "Value", "Verbosity":
		return "verbosity"
	}
	return goName
}
