package jobtype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dropCableDescriptor(t *testing.T) *Descriptor {
	t.Helper()
	cfg, err := MustDefault().Get("drop-cable")
	require.NoError(t, err)
	return NewDescriptor(cfg, nil)
}

func TestDescriptor_StatusColor(t *testing.T) {
	d := dropCableDescriptor(t)
	assert.Equal(t, "bg-green-100 text-green-800", d.StatusColor("installation_completed"))
	assert.Equal(t, "bg-green-100 text-green-800", d.StatusColor("Installation Completed"))
	assert.Equal(t, "bg-gray-100 text-gray-800", d.StatusColor("something-new"))
}

func TestPalette_Fallbacks(t *testing.T) {
	p, err := LoadPalette([]byte(`
default = "base"
[types.x]
[types.x.statuses]
done = "green"
`))
	require.NoError(t, err)
	assert.Equal(t, "green", p.Color("x", "done"))
	assert.Equal(t, "base", p.Color("x", "other"))
	assert.Equal(t, "base", p.Color("y", "done"))

	_, err = LoadPalette([]byte("default = ["))
	require.Error(t, err)
}

func TestDescriptor_StatusLabel(t *testing.T) {
	d := dropCableDescriptor(t)
	assert.Equal(t, "LLA Received", d.StatusLabel("lla_received"))
	assert.Equal(t, "Waiting On Parts", d.StatusLabel("waiting_on_parts"))
	assert.Equal(t, "", d.StatusLabel(""))
}

func TestDescriptor_Chrome(t *testing.T) {
	d := dropCableDescriptor(t)

	create := d.Chrome(ModeCreate, map[string]any{})
	assert.Equal(t, "New Drop Cable", create.Title)
	assert.Equal(t, "Create a new drop cable job", create.Subtitle)
	assert.Empty(t, create.Status)
	assert.NotEmpty(t, create.StatusOptions)

	edit := d.Chrome(ModeEdit, map[string]any{
		"id":             7,
		"circuit_number": "CKT-7",
		"site_b_name":    "Rosebank",
		"status":         "on_hold",
	})
	assert.Equal(t, "Edit Drop Cable", edit.Title)
	assert.Equal(t, "CKT-7 · Rosebank", edit.Subtitle)
	assert.Equal(t, "On Hold", edit.StatusLabel)
	assert.Equal(t, "bg-purple-100 text-purple-800", edit.StatusClass)

	bare := d.Chrome(ModeEdit, map[string]any{"id": 7})
	assert.Equal(t, "DC #7", bare.Subtitle)
}
