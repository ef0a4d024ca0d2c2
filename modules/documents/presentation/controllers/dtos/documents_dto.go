package dtos

import (
	"strings"

	"github.com/fieldops/opsboard/pkg/constants"
	"github.com/fieldops/opsboard/pkg/httpapi"
)

type TreeQuery struct {
	ClientID string `form:"client_id" json:"client_id" validate:"required"`
	Query    string `form:"q" json:"q"`
	JobType  string `form:"job_type" json:"job_type"`
	Category string `form:"category" json:"category"`
	Reload   bool   `form:"reload" json:"reload"`
}

func (q *TreeQuery) Ok() (map[string]string, bool) {
	q.ClientID = strings.TrimSpace(q.ClientID)
	if err := constants.Validate.Struct(q); err != nil {
		return httpapi.FieldErrors(err), false
	}
	return nil, true
}

type ExpandQuery struct {
	ClientID string `form:"client_id" json:"client_id"`
	Category string `form:"category" json:"category"`
}

type SignedURLQuery struct {
	ID      string `form:"id" json:"id" validate:"required"`
	Expires int    `form:"expires" json:"expires" validate:"omitempty,min=60,max=86400"`
}

func (q *SignedURLQuery) Ok() (map[string]string, bool) {
	q.ID = strings.TrimSpace(q.ID)
	if err := constants.Validate.Struct(q); err != nil {
		return httpapi.FieldErrors(err), false
	}
	return nil, true
}

type UploadDTO struct {
	FileName   string `form:"fileName" json:"fileName"`
	ClientID   string `form:"client_id" json:"client_id" validate:"required"`
	ClientName string `form:"client_name" json:"client_name"`
	JobType    string `form:"job_type" json:"job_type" validate:"required"`
	JobID      string `form:"job_id" json:"job_id" validate:"required"`
	Category   string `form:"category" json:"category"`
}

func (d *UploadDTO) Ok() (map[string]string, bool) {
	d.FileName = strings.TrimSpace(d.FileName)
	d.ClientName = strings.TrimSpace(d.ClientName)
	d.Category = strings.TrimSpace(d.Category)
	if err := constants.Validate.Struct(d); err != nil {
		return httpapi.FieldErrors(err), false
	}
	return nil, true
}
