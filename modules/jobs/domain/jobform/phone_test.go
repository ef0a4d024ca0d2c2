package jobform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0821234567", "+27821234567"},
		{"821234567", "+27821234567"},
		{"+27821234567", "+27821234567"},
		{"082 123 4567", "+27821234567"},
		{"(082) 123-4567", "+27821234567"},
		{"+27 82 123 4567", "+27821234567"},
		{"012345678", "012345678"},
		{"12345", "12345"},
		{"ext 204", "ext 204"},
		{"", ""},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizePhone(tc.in))
		})
	}
}
