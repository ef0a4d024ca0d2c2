package jobform

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fieldops/opsboard/modules/jobs/domain/jobtype"
)

// PreparePayload builds the create or update body. Only fields declared by cfg
// (plus id, client_id and staff id companions) are emitted.
//
// Empty values are omitted in create mode and sent as explicit null in edit mode,
// for every declared and auxiliary field alike. Checkboxes always travel as booleans.
// Notes carry only the new note text. A toggled multiplier travels only while its
// toggle is on and its value exceeds 1.
func PreparePayload(state *FormState, cfg *jobtype.Config) map[string]any {
	payload := make(map[string]any)
	edit := state.Mode == jobtype.ModeEdit

	setEmpty := func(key string) {
		if edit {
			payload[key] = nil
		}
	}

	for _, f := range cfg.PayloadFields() {
		v := state.Values[f.Name]
		switch {
		case f.IsNotes():
			if note := strings.TrimSpace(state.NewNote); note != "" {
				payload[f.Name] = note
			}
		case f.Toggle != "":
			if !toggleOn(state, f) {
				continue
			}
			if d, ok := parseNumber(v); ok && d.GreaterThan(decimal.NewFromInt(1)) {
				payload[f.Name] = numberValue(f, d)
			}
		case f.Type == jobtype.Checkbox:
			payload[f.Name] = toBool(v)
		case f.IsStaffPicker():
			if isBlank(v) {
				setEmpty(f.Name)
				setEmpty(f.IDField)
				continue
			}
			payload[f.Name] = strings.TrimSpace(toString(v))
			// Older records carry a name without an id; keep the stored id untouched.
			if id := state.Values[f.IDField]; !isBlank(id) {
				payload[f.IDField] = idValue(id)
			}
		case isBlank(v):
			setEmpty(f.Name)
		default:
			if coerced, ok := coerce(f, v); ok {
				payload[f.Name] = coerced
			} else {
				setEmpty(f.Name)
			}
		}
	}

	if state.ClientID != "" {
		payload["client_id"] = idValue(state.ClientID)
	}
	if edit && state.RecordID != "" {
		payload["id"] = idValue(state.RecordID)
	}
	return payload
}

func coerce(f *jobtype.Field, v any) (any, bool) {
	switch f.Type {
	case jobtype.Number:
		d, ok := parseNumber(v)
		if !ok {
			return nil, false
		}
		return numberValue(f, d), true
	case jobtype.Date:
		return dateOnly(v), true
	case jobtype.Time:
		return hourMinute(v), true
	case jobtype.Email:
		return strings.ToLower(strings.TrimSpace(toString(v))), true
	}
	if f.Phone {
		return NormalizePhone(toString(v)), true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s), true
	}
	return v, true
}

func numberValue(f *jobtype.Field, d decimal.Decimal) any {
	if f.Decimal {
		return d.InexactFloat64()
	}
	return d.Truncate(0).IntPart()
}

// AllowedKeys lists every key PreparePayload may emit for cfg.
func AllowedKeys(cfg *jobtype.Config) map[string]bool {
	keys := map[string]bool{"id": true, "client_id": true}
	for _, f := range cfg.PayloadFields() {
		keys[f.Name] = true
	}
	for _, id := range cfg.StaffIDFields() {
		keys[id] = true
	}
	return keys
}
