package dtos

import (
	"strings"

	"github.com/fieldops/opsboard/modules/settings/services"
	"github.com/fieldops/opsboard/pkg/constants"
	"github.com/fieldops/opsboard/pkg/httpapi"
)

type SaveAccountDTO struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	Surname   string `json:"surname" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"omitempty,min=7,max=20"`
}

func (d *SaveAccountDTO) Ok() (map[string]string, bool) {
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.Surname = strings.TrimSpace(d.Surname)
	d.Email = strings.TrimSpace(d.Email)
	d.Phone = strings.TrimSpace(d.Phone)
	if err := constants.Validate.Struct(d); err != nil {
		return httpapi.FieldErrors(err), false
	}
	return nil, true
}

func (d *SaveAccountDTO) ToUpdate() services.AccountUpdate {
	return services.AccountUpdate{
		FirstName: d.FirstName,
		Surname:   d.Surname,
		Email:     d.Email,
		Phone:     d.Phone,
	}
}

type ChangePasswordDTO struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128,nefield=CurrentPassword"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

func (d *ChangePasswordDTO) Ok() (map[string]string, bool) {
	if err := constants.Validate.Struct(d); err != nil {
		return httpapi.FieldErrors(err), false
	}
	return nil, true
}

type ActiveTabDTO struct {
	Tab string `json:"tab" validate:"required,max=64"`
}

func (d *ActiveTabDTO) Ok() (map[string]string, bool) {
	d.Tab = strings.TrimSpace(d.Tab)
	if err := constants.Validate.Struct(d); err != nil {
		return httpapi.FieldErrors(err), false
	}
	return nil, true
}
