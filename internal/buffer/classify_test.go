package buffer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		in   string
		want Kind
	}{
		{"42", KindInteger},
		{"-42", KindInteger},
		{"  '7' ", KindInteger},
		{"0x1F", KindHex},
		{"-0xAB", KindHex},
		{"3.14", KindDouble},
		{"-.5", KindDouble},
		{"1e10", KindDouble},
		{"1.5e-3", KindDouble},
		{"hello", KindString},
		{"1e", KindString},
		{"", KindString},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Classify(c.in), "input %q", c.in)
	}
}

func TestToNumber(t *testing.T) {
	assert.Equal(t, 42.0, ToNumber("42"))
	assert.Equal(t, 31.0, ToNumber("0x1F"))
	assert.Equal(t, 3.14, ToNumber("3.14"))
	assert.True(t, math.IsNaN(ToNumber("abc")))
}

func TestNumberComparisons(t *testing.T) {
	nan := math.NaN()
	assert.False(t, NumbersEqual(nan, nan))
	assert.False(t, NumbersEqual(1, nan))
	assert.True(t, NumbersNotEqual(nan, nan))
	assert.True(t, NumbersEqual(1, 1))
}
