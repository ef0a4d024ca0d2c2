package jobform

import (
	"regexp"
	"strings"

	"github.com/fieldops/opsboard/modules/jobs/domain/jobtype"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func ValidEmail(s string) bool {
	return emailRe.MatchString(s)
}

// Validate checks required fields, email format and numeric input. A nil result means the draft can be submitted.
func Validate(state *FormState, cfg *jobtype.Config) *ValidationError {
	b := &validationBuilder{}
	for _, f := range cfg.PayloadFields() {
		if f.IsNotes() || !toggleOn(state, f) {
			continue
		}
		v := state.Values[f.Name]
		if isBlank(v) {
			if f.Required {
				b.add("required", f.Name, f.Label)
			}
			continue
		}
		switch f.Type {
		case jobtype.Email:
			if !ValidEmail(strings.TrimSpace(toString(v))) {
				b.add("invalid email", f.Name, f.Label)
			}
		case jobtype.Number:
			if _, ok := parseNumber(v); !ok {
				b.add("invalid number", f.Name, f.Label)
			}
		}
	}
	return b.build()
}

// toggleOn reports whether a toggled field is active. Untoggled fields are always active.
func toggleOn(state *FormState, f *jobtype.Field) bool {
	if f.Toggle == "" {
		return true
	}
	return toBool(state.Values[f.Toggle])
}
