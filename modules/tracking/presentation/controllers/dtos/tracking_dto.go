package dtos

import (
	"strings"

	"github.com/fieldops/opsboard/pkg/constants"
	"github.com/fieldops/opsboard/pkg/httpapi"
)

type TechniciansQuery struct {
	Query  string `form:"q" json:"q"`
	Status string `form:"status" json:"status" validate:"omitempty,oneof=all active idle"`
}

func (q *TechniciansQuery) Ok() (map[string]string, bool) {
	q.Status = strings.ToLower(strings.TrimSpace(q.Status))
	if err := constants.Validate.Struct(q); err != nil {
		return httpapi.FieldErrors(err), false
	}
	return nil, true
}

type TileStyleDTO struct {
	Style string `json:"style" validate:"required"`
}

func (d *TileStyleDTO) Ok() (map[string]string, bool) {
	d.Style = strings.TrimSpace(d.Style)
	if err := constants.Validate.Struct(d); err != nil {
		return httpapi.FieldErrors(err), false
	}
	return nil, true
}
