package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOS(t *testing.T) {
	tests := []struct {
		input string
		want  OS
		ok    bool
	}{
		{"Application: element-android", OSAndroid, true},
		{"Application: riot-web", OSDesktop, true},
		{"desktop", OSDesktop, true},
		{"Application: element-ios", OSiOS, true},
		{"Application: something-else", OSUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseOS(tt.input)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestParseDetails(t *testing.T) {
	text := "app crashed when opening a room\n" +
		"Application: element-ios\n" +
		"user_id: @alice:example.org\n" +
		"Version: 1.4.2\n" +
		"build: 40103\n"

	md := parseDetails(text)

	assert.Equal(t, "app crashed when opening a room", md.Reason)
	assert.Equal(t, OSiOS, md.OS)
	assert.Equal(t, "@alice:example.org", md.UserID)
	assert.Equal(t, "1.4.2 (40103)", md.Version)
}

func TestParseDetailsFirstOccurrenceWins(t *testing.T) {
	text := "first reason line\n" +
		"user_id: @alice:example.org\n" +
		"user_id: @mallory:example.org\n" +
		"Application: element-android\n" +
		"Application: element-ios\n"

	md := parseDetails(text)

	assert.Equal(t, "@alice:example.org", md.UserID)
	assert.Equal(t, OSAndroid, md.OS)
}

func TestParseDetailsBuildWithoutVersion(t *testing.T) {
	md := parseDetails("reason\nbuild: nightly-123\n")
	assert.Equal(t, "nightly-123", md.Version)
}

func TestParseDetailsAppHashAsVersion(t *testing.T) {
	md := parseDetails("reason\napp_hash: abc123\n")
	assert.Equal(t, "abc123", md.Version)
}

func TestParseDetailsMissingFieldsStayZero(t *testing.T) {
	md := parseDetails("just a reason, nothing else")

	assert.Equal(t, "just a reason, nothing else", md.Reason)
	assert.Equal(t, OSUnknown, md.OS)
	assert.Empty(t, md.UserID)
	assert.Empty(t, md.Version)
}

func TestParseDetailsEmptyInput(t *testing.T) {
	md := parseDetails("")
	assert.Equal(t, Metadata{}, md)
}
