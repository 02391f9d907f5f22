package reconciliation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDepositCode(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "Code Alone", text: "07", want: "07"},
		{name: "Code After Name", text: "KIM 42", want: "42"},
		{name: "Code Between Letters", text: "dep42osit", want: "42"},
		{name: "Same Code Twice", text: "42 / 42", want: "42"},
		{name: "Two Different Codes", text: "12 34", want: ""},
		{name: "Three Digits Are Not A Code", text: "123", want: ""},
		{name: "Long Account Number", text: "110-2233-4455", want: ""},
		{name: "Single Digit", text: "A7", want: ""},
		{name: "Empty", text: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractDepositCode(tt.text))
		})
	}
}

func TestDepositorPattern(t *testing.T) {
	p := depositorPattern("42")
	assert.True(t, p.MatchString("transfer 42"))
	assert.False(t, p.MatchString("transfer 142"))
	assert.Nil(t, depositorPattern("  "))

	// Names are matched literally.
	assert.False(t, depositorPattern("4.").MatchString("transfer 42"))
}
