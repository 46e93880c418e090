package validate

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"
)

type ErrField struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errs is the ValidationError: every field violation found in one pass.
type Errs []ErrField

func (e Errs) Error() string {
	var b strings.Builder
	b.WriteString("validation failed: ")
	for i, ef := range e {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(ef.Field + ": " + ef.Message)
	}
	return b.String()
}

// Add appends a violation; nil is ignored so helpers can be chained.
func (e *Errs) Add(ef *ErrField) {
	if ef != nil {
		*e = append(*e, *ef)
	}
}

func (e *Errs) AddMsg(field, msg string) { *e = append(*e, ErrField{Field: field, Message: msg}) }

// Err returns nil when no violation was recorded.
func (e Errs) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// As extracts the field list from err.
func As(err error) (Errs, bool) {
	var errs Errs
	if errors.As(err, &errs) {
		return errs, true
	}
	return nil, false
}

// Has reports whether err carries a violation for field.
func Has(err error, field string) bool {
	errs, ok := As(err)
	if !ok {
		return false
	}
	for _, ef := range errs {
		if ef.Field == field {
			return true
		}
	}
	return false
}

// Helpers
func Required(field, value string) *ErrField {
	if strings.TrimSpace(value) == "" {
		return &ErrField{Field: field, Message: field + " is required"}
	}
	return nil
}

// Length checks the rune count of value is within [min, max].
func Length(field, value string, min, max int) *ErrField {
	n := utf8.RuneCountInString(value)
	if n < min || n > max {
		if min <= 1 {
			return &ErrField{Field: field, Message: field + " must be at most " + strconv.Itoa(max) + " characters"}
		}
		return &ErrField{Field: field, Message: field + " must be between " + strconv.Itoa(min) + " and " + strconv.Itoa(max) + " characters"}
	}
	return nil
}

func MinInt(field string, v, min int64) *ErrField {
	if v < min {
		return &ErrField{Field: field, Message: field + " must be >= " + strconv.FormatInt(min, 10)}
	}
	return nil
}

func Range(field string, v, min, max int64) *ErrField {
	if v < min || v > max {
		return &ErrField{Field: field, Message: field + " must be between " + strconv.FormatInt(min, 10) + " and " + strconv.FormatInt(max, 10)}
	}
	return nil
}

// OneOf rejects values outside allowed.
func OneOf[T ~string](field string, v T, allowed []T) *ErrField {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	opts := make([]string, len(allowed))
	for i, a := range allowed {
		opts[i] = string(a)
	}
	return &ErrField{Field: field, Message: field + " must be one of: " + strings.Join(opts, ", ")}
}

func Email(field, value string) *ErrField {
	at := strings.LastIndex(value, "@")
	if at < 1 || at == len(value)-1 || !strings.Contains(value[at+1:], ".") || strings.ContainsAny(value, " \t\n") {
		return &ErrField{Field: field, Message: "please provide a valid email"}
	}
	return nil
}
