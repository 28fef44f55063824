package values

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInteger(t *testing.T) {
	tests := []struct {
		lit  string
		want int64
	}{
		{"0", 0},
		{"42", 42},
		{"-7", -7},
		{"0x1F", 31},
		{"0o17", 15},
		{"0b101", 5},
	}
	for _, tt := range tests {
		v, err := ParseInteger(tt.lit)
		require.Nil(t, err, tt.lit)
		if v.Kind() == KindInteger32 {
			assert.EqualValues(t, tt.want, v.Integer32(), tt.lit)
		} else {
			assert.EqualValues(t, tt.want, v.Long64(), tt.lit)
		}
	}
}

func TestParseIntegerOverflowsToLong64(t *testing.T) {
	v, err := ParseInteger("99999999999")
	require.Nil(t, err)
	assert.Equal(t, KindLong64, v.Kind())
	assert.EqualValues(t, 99999999999, v.Long64())
}

func TestUnescapeText(t *testing.T) {
	s, err := UnescapeText(`a\nb\tc\\d\"e`)
	require.Nil(t, err)
	assert.Equal(t, "a\nb\tc\\d\"e", s)
}

func TestParseTimestampSentinels(t *testing.T) {
	maxV, err := ParseTimestamp("9999-99-99")
	require.Nil(t, err)
	assert.True(t, maxV.Timestamp().Equal(maxTimestamp))

	minV, err := ParseTimestamp("0000-00-00")
	require.Nil(t, err)
	assert.True(t, minV.Timestamp().Equal(minTimestamp))
}

func TestTimestampSubYieldsSeconds(t *testing.T) {
	start, err := ParseTimestamp("2024-01-01T00:00:00")
	require.Nil(t, err)
	stop, err := ParseTimestamp("2024-01-01T00:05:00")
	require.Nil(t, err)
	diff := stop.Sub(start)
	assert.Equal(t, KindReal, diff.Kind())
	assert.InDelta(t, 300.0, diff.Real(), 0.0001)
}

func TestHashFormat(t *testing.T) {
	alg, hex := ParseHash("md5:5d41402abc4b2a76b9719d911017c592")
	assert.Equal(t, "md5", alg)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", hex)

	alg, hex = ParseHash("5d41402abc4b2a76b9719d911017c592")
	assert.Equal(t, "sha1", alg)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", hex)

	assert.Equal(t, "md5:abc", FormatHash("md5", "abc"))
}
