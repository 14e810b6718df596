// Package validation provides the request body validator installed into gin's binding
// package. Struct tags use the "binding" key; failures are translated into short
// English messages suitable for API error responses.
package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// DefaultValidator implements binding.StructValidator with English translations.
type DefaultValidator struct {
	once       sync.Once
	validate   *validator.Validate
	translator ut.Translator
}

var _ binding.StructValidator = &DefaultValidator{}

// Install replaces gin's default validator. Call it once, before serving.
func Install() *DefaultValidator {
	v := &DefaultValidator{}
	binding.Validator = v
	return v
}

// ValidateStruct implements binding.StructValidator.
func (v *DefaultValidator) ValidateStruct(obj any) error {
	if kindOfData(obj) != reflect.Struct {
		return nil
	}
	v.lazyinit()
	return v.validate.Struct(obj)
}

// Engine implements binding.StructValidator.
func (v *DefaultValidator) Engine() any {
	v.lazyinit()
	return v.validate
}

// Translator returns the English translator.
func (v *DefaultValidator) Translator() ut.Translator {
	v.lazyinit()
	return v.translator
}

func (v *DefaultValidator) lazyinit() {
	v.once.Do(func() {
		v.validate = validator.New(validator.WithRequiredStructEnabled())
		v.validate.SetTagName("binding")
		v.validate.RegisterTagNameFunc(jsonFieldName)

		locale := en.New()
		uni := ut.New(locale, locale)
		v.translator, _ = uni.GetTranslator("en")

		_ = en_translations.RegisterDefaultTranslations(v.validate, v.translator)
		v.registerCustomTranslations()
	})
}

type translation struct {
	tag     string
	message string
	param   bool
}

var customTranslations = []translation{
	{"required", "{0} is required", false},
	{"max", "{0} must be at most {1}", true},
	{"min", "{0} must be at least {1}", true},
	{"oneof", "{0} must be one of [{1}]", true},
	{"url", "{0} must be a valid URL", false},
	{"uuid", "{0} must be a valid UUID", false},
}

func (v *DefaultValidator) registerCustomTranslations() {
	for _, tr := range customTranslations {
		_ = v.validate.RegisterTranslation(tr.tag, v.translator, func(t ut.Translator) error {
			return t.Add(tr.tag, tr.message, true)
		}, func(t ut.Translator, fe validator.FieldError) string {
			var msg string
			if tr.param {
				msg, _ = t.T(tr.tag, fe.Field(), fe.Param())
			} else {
				msg, _ = t.T(tr.tag, fe.Field())
			}
			return msg
		})
	}
}

// jsonFieldName reports fields by their JSON name so messages match the request body.
func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

// TranslateErrors returns one message per failed field. Errors that are not
// validation errors (malformed JSON, wrong types) yield their own message.
func TranslateErrors(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}

	v, ok := binding.Validator.(*DefaultValidator)
	if !ok {
		msgs := make([]string, 0, len(verrs))
		for _, e := range verrs {
			msgs = append(msgs, e.Error())
		}
		return msgs
	}

	trans := v.Translator()
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, e.Translate(trans))
	}
	return msgs
}

// TranslateError returns the first message of TranslateErrors.
func TranslateError(err error) string {
	return TranslateErrors(err)[0]
}

func kindOfData(data any) reflect.Kind {
	value := reflect.ValueOf(data)
	kind := value.Kind()
	if kind == reflect.Pointer {
		kind = value.Elem().Kind()
	}
	return kind
}
