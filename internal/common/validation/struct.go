package validation

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	structOnce       sync.Once
	structValidator  *validator.Validate
	structTranslator ut.Translator
)

func initStructValidator() {
	structOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())

		// report json names, not Go field names
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})

		_ = en_translations.RegisterDefaultTranslations(v, trans)

		structValidator = v
		structTranslator = trans
	})
}

// ValidateStruct runs `validate:"..."` tags on v and returns every violation,
// keyed by json field name.
func ValidateStruct(v interface{}) *ValidationResult {
	initStructValidator()

	err := structValidator.Struct(v)
	if err == nil {
		return &ValidationResult{Valid: true}
	}

	result := &ValidationResult{Valid: false}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "",
			Message: err.Error(),
			Code:    "INVALID_INPUT",
		})
		return result
	}

	for _, fe := range verrs {
		result.Errors = append(result.Errors, ValidationError{
			Field:   fe.Field(),
			Message: fe.Translate(structTranslator),
			Code:    strings.ToUpper(fe.Tag()),
		})
	}
	return result
}
