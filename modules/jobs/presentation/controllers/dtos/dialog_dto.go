package dtos

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/fieldops/opsboard/pkg/constants"
	"github.com/fieldops/opsboard/pkg/httpapi"
)

// RecordID accepts both JSON numbers and strings.
type RecordID string

func (id *RecordID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = RecordID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = RecordID(n.String())
	return nil
}

type OpenDialogDTO struct {
	Mode       string   `json:"mode" validate:"required,oneof=create edit"`
	ID         RecordID `json:"id" validate:"required_if=Mode edit"`
	ClientName string   `json:"client_name"`
	ClientID   RecordID `json:"client_id"`
}

func (d *OpenDialogDTO) Ok() (map[string]string, bool) {
	d.Mode = strings.ToLower(strings.TrimSpace(d.Mode))
	d.ClientName = strings.TrimSpace(d.ClientName)
	if err := constants.Validate.Struct(d); err != nil {
		return httpapi.FieldErrors(err), false
	}
	return nil, true
}

type SetFieldDTO struct {
	Field string `json:"field" validate:"required"`
	Value any    `json:"value"`
}

func (d *SetFieldDTO) Ok() (map[string]string, bool) {
	d.Field = strings.TrimSpace(d.Field)
	if err := constants.Validate.Struct(d); err != nil {
		return httpapi.FieldErrors(err), false
	}
	return nil, true
}
