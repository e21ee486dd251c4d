package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeFileName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"Floor 1", "Floor 1"},
		{"Bldg A/Floor 2", "Bldg A_Floor 2"},
		{`C:\maps`, "C__maps"},
		{"  ..  ", "unnamed"},
		{"", "unnamed"},
		{"what?", "what_"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeFileName(tt.in))
		})
	}
}
