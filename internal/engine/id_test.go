package engine

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStreamIDCmpNumericNotLexicographic(t *testing.T) {
	small := StreamID{Ms: big.NewInt(9), Seq: 0}
	big9 := StreamID{Ms: big.NewInt(10), Seq: 0}

	// Lexicographic string comparison would put "10-0" before "9-0"; numeric
	// comparison must not.
	require.Less(t, small.Cmp(big9), 0)
	require.Equal(t, "9-0", small.String())
	require.Equal(t, "10-0", big9.String())
}

func TestStreamIDParseRoundTrip(t *testing.T) {
	id, err := ParseStreamID("123456789012345678901234567890-42")
	require.NoError(t, err)
	require.Equal(t, "123456789012345678901234567890-42", id.String())
}

func TestStreamIDParseRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "-", "abc-1", "1-abc", "1", "-1-1"} {
		_, err := ParseStreamID(s)
		require.Error(t, err, "expected parse error for %q", s)
	}
}

func TestStreamIDIsZero(t *testing.T) {
	require.True(t, ZeroStreamID().IsZero())
	require.False(t, StreamID{Ms: big.NewInt(0), Seq: 1}.IsZero())
}
