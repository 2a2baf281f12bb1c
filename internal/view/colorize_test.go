package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColorizeLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{
			"null markers",
			"value was (null) here",
			"value was " + nullColor + "(null)" + reset + " here",
		},
		{
			"hex addresses",
			"ptr 0xdeadBEEF",
			"ptr " + hexColor + "0xdeadBEEF" + reset,
		},
		{
			"bracketed identifiers",
			"[MXSession] started",
			nsColor + "[MXSession]" + reset + " started",
		},
		{
			"user ids",
			"sender @alice:example.org!",
			"sender " + userColor + "@alice:example.org" + reset + "!",
		},
		{
			"camel case function names",
			"call didReceiveMessage: now",
			"call " + fnColor + "didReceiveMessage" + reset + ": now",
		},
		{
			"plain text untouched",
			"nothing special here",
			"nothing special here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, colorizeLine(tt.line))
		})
	}
}

func TestColorizeLineNumbers(t *testing.T) {
	got := colorizeLine("took 42 ms")
	assert.Contains(t, got, numColor+"42"+reset)
}
