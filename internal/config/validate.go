package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gobwas/glob"
)

var (
	// ErrInvalidFormat indicates an unsupported output format.
	ErrInvalidFormat = errors.New("invalid output format")

	// ErrInvalidDuplicatePolicy indicates an unknown parse.duplicate_functions value.
	ErrInvalidDuplicatePolicy = errors.New("invalid duplicate function policy")

	// ErrInvalidPattern indicates an ignore_diagnostics entry that is not a
	// regular expression or an include entry that is not a glob.
	ErrInvalidPattern = errors.New("invalid diagnostic pattern")

	// ErrInvalidValue covers every other rejected setting.
	ErrInvalidValue = errors.New("invalid value")
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks cfg and returns every problem found, joined.
func Validate(cfg *Config) error {
	var errs []error

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = append(errs, fieldError(fe))
		}
	}

	if _, err := cfg.IgnorePatterns(); err != nil {
		errs = append(errs, err)
	}
	for _, p := range cfg.Include {
		if _, err := glob.Compile(p, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: include %q: %v", ErrInvalidPattern, p, err))
		}
	}

	return errors.Join(errs...)
}

func fieldError(fe validator.FieldError) error {
	sentinel := ErrInvalidValue
	switch fe.Field() {
	case "format":
		sentinel = ErrInvalidFormat
	case "duplicate_functions":
		sentinel = ErrInvalidDuplicatePolicy
	}
	key := strings.TrimPrefix(fe.Namespace(), "Config.")
	if fe.Param() != "" {
		return fmt.Errorf("%w: %s=%v fails %s=%s", sentinel, key, fe.Value(), fe.Tag(), fe.Param())
	}
	return fmt.Errorf("%w: %s=%v fails %s", sentinel, key, fe.Value(), fe.Tag())
}
