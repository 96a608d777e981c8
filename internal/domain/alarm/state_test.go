package alarm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestLookupState verifies the vendor keyword table and unknown keywords.
func TestLookupState(t *testing.T) {
	t.Parallel()

	cases := map[string]State{
		KeywordDisarm:  StateDisarmed,
		KeywordArmHome: StateArmedHome,
		KeywordArmAway: StateArmedAway,
	}
	for keyword, want := range cases {
		got, ok := LookupState(keyword)
		require.True(t, ok, keyword)
		require.Equal(t, want, got)
	}

	for _, keyword := range []string{"", "unavailable", "ARM", "night"} {
		_, ok := LookupState(keyword)
		require.False(t, ok, keyword)
	}
}

// TestDetectCodeFormat checks digit-only detection across scripts.
func TestDetectCodeFormat(t *testing.T) {
	t.Parallel()

	require.Equal(t, CodeFormatNumber, DetectCodeFormat("1234"))
	require.Equal(t, CodeFormatNumber, DetectCodeFormat("0"))
	require.Equal(t, CodeFormatText, DetectCodeFormat("abcd"))
	require.Equal(t, CodeFormatText, DetectCodeFormat("12a4"))
	require.Equal(t, CodeFormatText, DetectCodeFormat(" 123"))
	require.Equal(t, CodeFormatText, DetectCodeFormat(""))
	require.Equal(t, CodeFormatNumber, DetectCodeFormat("١٢٣"))
	require.Equal(t, CodeFormatNumber, DetectCodeFormat("１２３４"))
	require.Equal(t, CodeFormatText, DetectCodeFormat("½"))
}

// TestFeatureNames ensures flags are rendered in bit order.
func TestFeatureNames(t *testing.T) {
	t.Parallel()

	f := FeatureArmAway | FeatureArmHome
	require.True(t, f.Has(FeatureArmHome))
	require.False(t, f.Has(FeatureTrigger))
	require.Equal(t, []string{"arm_home", "arm_away"}, f.Names())
	require.Empty(t, Feature(0).Names())
}

// TestActorClone verifies that Clone returns a copy and handles nil safely.
func TestActorClone(t *testing.T) {
	t.Parallel()
	require.Nil(t, (*Actor)(nil).Clone())

	a := &Actor{
		Hostname: "front-desk",
		Username: "o.shokin",
	}

	b := a.Clone()

	require.Equal(t, a, b)
	require.NotSame(t, a, b)
	require.Equal(t, "o.shokin@front-desk", a.String())
	require.Equal(t, "<unknown>", (*Actor)(nil).String())
}

// TestCommandError checks the message and unwrapping.
func TestCommandError(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	err := &CommandError{Device: "Hallway", Err: cause}

	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "Hallway")
	require.Contains(t, err.Error(), "connection reset")
	require.True(t, IsCommandError(fmt.Errorf("wrapped: %w", err)))
	require.False(t, IsCommandError(ErrCommandRejected))
}
