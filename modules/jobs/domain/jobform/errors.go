package jobform

import (
	"strings"

	"github.com/go-faster/errors"
)

var (
	ErrUnknownField  = errors.New("unknown field")
	ErrReadOnlyField = errors.New("field is read-only")
	ErrUnknownStaff  = errors.New("unknown staff member")
	ErrMissingRecord = errors.New("edit mode requires a record")
	ErrDialogClosed  = errors.New("dialog is closed")
	ErrDialogBusy    = errors.New("dialog is busy")
)

// ValidationError is returned before any network call when the draft cannot be submitted.
type ValidationError struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

type validationBuilder struct {
	missing []string
	emails  []string
	numbers []string
	fields  map[string]string
}

func (b *validationBuilder) add(kind string, name, label string) {
	if b.fields == nil {
		b.fields = make(map[string]string)
	}
	switch kind {
	case "required":
		b.missing = append(b.missing, label)
	case "invalid email":
		b.emails = append(b.emails, label)
	case "invalid number":
		b.numbers = append(b.numbers, label)
	}
	b.fields[name] = kind
}

func (b *validationBuilder) build() *ValidationError {
	if len(b.fields) == 0 {
		return nil
	}
	var parts []string
	if len(b.missing) > 0 {
		parts = append(parts, "Please fill in required fields: "+strings.Join(b.missing, ", "))
	}
	if len(b.emails) > 0 {
		parts = append(parts, "Please enter a valid email address for: "+strings.Join(b.emails, ", "))
	}
	if len(b.numbers) > 0 {
		parts = append(parts, "Please enter a valid number for: "+strings.Join(b.numbers, ", "))
	}
	return &ValidationError{Message: strings.Join(parts, ". "), Fields: b.fields}
}
