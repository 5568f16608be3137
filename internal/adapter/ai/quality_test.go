package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAcceptableResponse(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"substantive answer", "You should start with the standard library's net/http package.", true},
		{"too short", "ok", false},
		{"whitespace only", "   \n\t  ", false},
		{"refusal", "I cannot assist with that request.", false},
		{"refusal mixed case", "I'm Unable To help with this topic.", false},
		{"provider error leaked", "API Error: upstream returned 500", false},
		{"exactly at minimum", "ten chars!", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, AcceptableResponse(tc.text))
		})
	}
}
