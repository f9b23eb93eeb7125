package throttle

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// Config is the declarative form of a Throttle's construction parameters.
// Field tags let it be decoded straight from viper or JSON.
type Config struct {
	Period    time.Duration `json:"period" mapstructure:"period" validate:"gt=0"`
	Epsilon   time.Duration `json:"epsilon" mapstructure:"epsilon" validate:"gte=0"`
	Skippable bool          `json:"skippable" mapstructure:"skippable"`
}

var validate *validator.Validate
var translator ut.Translator

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	var ok bool
	translator, ok = ut.New(en.New(), en.New()).GetTranslator("en")
	if !ok {
		panic("throttle: failed to get 'en' translator")
	}

	if err := en_translations.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(err)
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})
}

// Validate checks val against its declared `validate` tags. Failures are
// returned as FieldErrors wrapped in ErrConfiguration.
func Validate(val any) error {
	if err := validate.Struct(val); err != nil {
		verrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("%w: %w", ErrConfiguration, err)
		}

		fields := make(FieldErrors, 0, len(verrors))
		for _, verror := range verrors {
			fields = append(fields, FieldError{
				Field: verror.Namespace(),
				Err:   verror.Translate(translator),
			})
		}

		return fmt.Errorf("%w: %w", ErrConfiguration, fields)
	}

	return nil
}

// FieldError is a single failed constraint.
type FieldError struct {
	Field string `json:"field"`
	Err   string `json:"error"`
}

// FieldErrors collects every failed constraint of one validation pass.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	parts := make([]string, len(fe))
	for i, f := range fe {
		parts[i] = f.Field + ": " + f.Err
	}
	return strings.Join(parts, "; ")
}

// Fields maps field namespace to message.
func (fe FieldErrors) Fields() map[string]string {
	m := make(map[string]string, len(fe))
	for _, f := range fe {
		m[f.Field] = f.Err
	}
	return m
}
