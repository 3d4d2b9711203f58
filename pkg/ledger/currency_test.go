package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseICP(t *testing.T) {
	tests := []struct {
		input string
		want  uint64
	}{
		{"0", 0},
		{"1", E8sPerICP},
		{"1.5", 150_000_000},
		{"0.00000001", 1},
		{" 2.25 ", 225_000_000},
		{"1.50000000", 150_000_000},
		{"184467440737.09551615", 18446744073709551615},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseICP(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseICP_Invalid(t *testing.T) {
	for _, input := range []string{"", "abc", "-1", "0.000000001", "184467440737.09551616"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseICP(input)
			assert.ErrorIs(t, err, ErrInvalidAmount)
		})
	}
}

func TestFormatICP(t *testing.T) {
	assert.Equal(t, "0", FormatICP(0))
	assert.Equal(t, "1", FormatICP(E8sPerICP))
	assert.Equal(t, "1.5", FormatICP(150_000_000))
	assert.Equal(t, "0.00000001", FormatICP(1))
	assert.Equal(t, "184467440737.09551615", FormatICP(18446744073709551615))
}
