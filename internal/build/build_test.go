package build

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlatform_When_CaseDiffers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Platform
	}{
		{"", PlatformCurrent},
		{"macos", PlatformMacOS},
		{"macOS", PlatformMacOS},
		{"HTML5", PlatformHTML5},
		{"android", PlatformAndroid},
	}
	for _, tt := range tests {
		got, err := ParsePlatform(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParsePlatform_When_Unknown(t *testing.T) {
	t.Parallel()

	_, err := ParsePlatform("switch")
	assert.ErrorContains(t, err, `"switch"`)
}

func TestParseConfiguration_When_EmptyOrUnknown(t *testing.T) {
	t.Parallel()

	c, err := ParseConfiguration("")
	require.NoError(t, err)
	assert.Equal(t, Debug, c)

	c, err = ParseConfiguration("Release")
	require.NoError(t, err)
	assert.Equal(t, Release, c)

	_, err = ParseConfiguration("profile")
	assert.Error(t, err)
}

func TestParseAction_When_EveryActionListed(t *testing.T) {
	t.Parallel()

	for _, a := range Actions {
		got, err := ParseAction(string(a))
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
	_, err := ParseAction("deploy")
	assert.Error(t, err)
}

func TestDescriptor_String(t *testing.T) {
	t.Parallel()

	d := Descriptor{Action: ActionBundle, Configuration: Release, Platform: PlatformAndroid}
	assert.Equal(t, "bundle (release, android)", d.String())
}
