package validation

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// ErrInvalidField is matched by every FieldError.
var ErrInvalidField = errors.New("invalid field")

// FieldError reports one rule that a config section broke.
type FieldError struct {
	Section string
	Field   string
	Problem string
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return e.Section + ": " + e.Problem
	}
	return e.Section + "." + e.Field + ": " + e.Problem
}

// Is makes errors.Is(err, ErrInvalidField) hold.
func (e *FieldError) Is(target error) bool { return target == ErrInvalidField }

// ConfigValidator checks the rules that span several fields of a config section, which
// struct tags cannot express. Every broken rule is collected; calls chain.
type ConfigValidator struct {
	section string
	errs    []error
}

// NewConfigValidator starts a validator whose messages are prefixed with section.
func NewConfigValidator(section string) *ConfigValidator {
	return &ConfigValidator{section: section}
}

func (cv *ConfigValidator) fail(field, format string, args ...any) {
	cv.errs = append(cv.errs, &FieldError{Section: cv.section, Field: field, Problem: fmt.Sprintf(format, args...)})
}

func setFields(fields map[string]string) (names, set []string) {
	for name, value := range fields {
		names = append(names, name)
		if value != "" {
			set = append(set, name)
		}
	}
	slices.Sort(names)
	slices.Sort(set)
	return names, set
}

// ExactlyOne requires exactly one of the named fields to be non-empty, such as an inline
// model versus a model file.
func (cv *ConfigValidator) ExactlyOne(fields map[string]string) *ConfigValidator {
	names, set := setFields(fields)
	if len(set) != 1 {
		cv.fail("", "exactly one of %v must be set, got %v", names, set)
	}
	return cv
}

// AtMostOne allows at most one of the named fields to be non-empty.
func (cv *ConfigValidator) AtMostOne(fields map[string]string) *ConfigValidator {
	names, set := setFields(fields)
	if len(set) > 1 {
		cv.fail("", "at most one of %v may be set, got %v", names, set)
	}
	return cv
}

// RangeInt requires min <= value <= max.
func (cv *ConfigValidator) RangeInt(field string, value, min, max int) *ConfigValidator {
	if value < min || value > max {
		cv.fail(field, "value %d is outside range [%d, %d]", value, min, max)
	}
	return cv
}

// MinDuration requires value >= min.
func (cv *ConfigValidator) MinDuration(field string, value, min time.Duration) *ConfigValidator {
	if value < min {
		cv.fail(field, "duration %v is below minimum %v", value, min)
	}
	return cv
}

// Custom records the error returned by fn, if any.
func (cv *ConfigValidator) Custom(field string, fn func() error) *ConfigValidator {
	if err := fn(); err != nil {
		cv.fail(field, "%v", err)
	}
	return cv
}

// When applies rules only if condition holds.
func (cv *ConfigValidator) When(condition bool, rules func(*ConfigValidator)) *ConfigValidator {
	if condition {
		rules(cv)
	}
	return cv
}

// Validate returns nil, the single error, or all errors joined.
func (cv *ConfigValidator) Validate() error {
	switch len(cv.errs) {
	case 0:
		return nil
	case 1:
		return cv.errs[0]
	}
	return errors.Join(cv.errs...)
}

// DefaultOr returns value unless it is the zero value.
func DefaultOr[T comparable](value, fallback T) T {
	var zero T
	if value == zero {
		return fallback
	}
	return value
}
