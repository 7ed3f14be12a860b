package calc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"12 + 8", "20"},
		{"2 * (3 + 4)", "14"},
		{"1,000 + 5", "1005"},
		{"10 / 4", "2.5"},
		{"-3 + 5", "2"},
		{"2*-3", "-6"},
		{"+7", "7"},
		{"2 ** 3", "8"},
		{"2 ** 3 ** 2", "512"},
		{"0.1 + 0.2", "0.30000000000000004"},
		{".5 * 4", "2"},
		{"5.", "5"},
		{"  ( ( 1 + 1 ) )  ", "2"},
		{"8 - 2 - 1", "5"},
		{"16 / 4 / 2", "2"},
		{"1 - 1", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			v, err := Evaluate(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Format(v))
		})
	}
}

func TestEvaluateRejectsNonFinite(t *testing.T) {
	for _, expr := range []string{"1/0", "0/0", "-1/0"} {
		_, err := Evaluate(expr)
		assert.ErrorIs(t, err, ErrNotFinite, expr)
	}
}

func TestEvaluateRejectsMalformed(t *testing.T) {
	for _, expr := range []string{"", "   ", "(1 + 2", "1 +", "1 2", ".", "()", "2 * * 3", ",", "1)"} {
		_, err := Evaluate(expr)
		assert.ErrorIs(t, err, ErrInvalid, "%q", expr)
	}
}

func TestEvaluateDepthLimit(t *testing.T) {
	expr := strings.Repeat("(", 500) + "1" + strings.Repeat(")", 500)
	_, err := Evaluate(expr)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "1e+21", Format(1e21))
	assert.Equal(t, "1e-07", Format(1e-7))
	assert.Equal(t, "123456789", Format(123456789))
}
