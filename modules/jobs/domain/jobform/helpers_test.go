package jobform

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fieldops/opsboard/modules/jobs/domain/jobtype"
)

var fixedNow = time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)

func mustConfig(t *testing.T, key string) *jobtype.Config {
	t.Helper()
	cfg, err := jobtype.MustDefault().Get(key)
	require.NoError(t, err)
	return cfg
}

func testStaff() map[string][]StaffRef {
	return map[string][]StaffRef{
		"technician": {
			{ID: "12", FirstName: "Sipho", Surname: "Dlamini", Role: "technician"},
			{ID: "14", FirstName: "Anele", Surname: "Khumalo", Role: "technician"},
		},
		"link_manager": {
			{ID: "3", FirstName: "Pieter", Surname: "Botha", Role: "link_manager"},
		},
	}
}

func newCreateState(t *testing.T, key, clientName string) *FormState {
	t.Helper()
	s := NewFormState()
	_, err := s.Initialize(OpenOptions{
		Mode:       jobtype.ModeCreate,
		Config:     mustConfig(t, key),
		ClientName: clientName,
		ClientID:   "21",
		Staff:      testStaff(),
		Now:        fixedNow,
	})
	require.NoError(t, err)
	return s
}

func newEditState(t *testing.T, key string, record map[string]any) *FormState {
	t.Helper()
	s := NewFormState()
	_, err := s.Initialize(OpenOptions{
		Mode:   jobtype.ModeEdit,
		Config: mustConfig(t, key),
		Record: record,
		Staff:  testStaff(),
		Now:    fixedNow,
	})
	require.NoError(t, err)
	return s
}

func jsonUnmarshal(s string, v any) error {
	return json.Unmarshal([]byte(s), v)
}
