package services

import (
	"context"
	"strings"

	"github.com/go-faster/errors"

	"github.com/fieldops/opsboard/pkg/apiclient"
	"github.com/fieldops/opsboard/pkg/composables"
	"github.com/fieldops/opsboard/pkg/uistate"
)

var ErrInvalidTab = errors.New("tab name is invalid")

// Account is the signed-in operator's profile as stored by the remote API.
type Account struct {
	ID        any    `json:"id,omitempty"`
	FirstName string `json:"first_name"`
	Surname   string `json:"surname"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role,omitempty"`
}

type AccountUpdate struct {
	FirstName string `json:"first_name"`
	Surname   string `json:"surname"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
}

type SettingsService struct {
	api apiclient.API
	ui  uistate.Store
}

func NewSettingsService(api apiclient.API, ui uistate.Store) *SettingsService {
	return &SettingsService{api: api, ui: ui}
}

func (s *SettingsService) Account(ctx context.Context) (*Account, error) {
	resp, err := s.api.Get(ctx, "/auth/me")
	if err != nil {
		return nil, err
	}
	var account Account
	if err := resp.Decode(&account); err != nil {
		return nil, errors.Wrap(err, "decode account")
	}
	return &account, nil
}

// UpdateAccount saves the profile and returns the stored version. When the remote
// answers without a body the submitted values are echoed back.
func (s *SettingsService) UpdateAccount(ctx context.Context, update AccountUpdate) (*Account, error) {
	update.Email = strings.ToLower(update.Email)
	resp, err := s.api.Put(ctx, "/auth/me", update)
	if err != nil {
		return nil, err
	}
	var account Account
	if len(resp.Data) == 0 || resp.Decode(&account) != nil || account.Email == "" {
		account = Account{
			FirstName: update.FirstName,
			Surname:   update.Surname,
			Email:     update.Email,
			Phone:     update.Phone,
		}
	}
	composables.UseLogger(ctx).Info("account updated")
	return &account, nil
}

func (s *SettingsService) ChangePassword(ctx context.Context, current, next string) error {
	_, err := s.api.Post(ctx, "/auth/change-password", map[string]string{
		"current_password": current,
		"new_password":     next,
	})
	if err != nil {
		return err
	}
	composables.UseLogger(ctx).WithField("audit", "account.password.change").Info("password changed")
	return nil
}

// ActiveTab returns the remembered tab of a record page, or "" when none is stored.
func (s *SettingsService) ActiveTab(ctx context.Context, entity, id string) (string, error) {
	tab, _, err := s.ui.Get(ctx, uistate.TabKey(entity, id))
	if err != nil {
		return "", errors.Wrap(err, "load active tab")
	}
	return tab, nil
}

func (s *SettingsService) SetActiveTab(ctx context.Context, entity, id, tab string) error {
	if strings.TrimSpace(tab) == "" {
		return ErrInvalidTab
	}
	return errors.Wrap(s.ui.Set(ctx, uistate.TabKey(entity, id), tab), "save active tab")
}
