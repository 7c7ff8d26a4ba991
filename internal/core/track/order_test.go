package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrdinal(t *testing.T) {
	cases := []struct {
		label string
		want  string
	}{
		{"CP9", "9"},
		{"CP10", "10"},
		{"Checkpoint (3)", "3"},
		{"gate_007_b12", "7"},
		{"start", "0"},
		{"CP000", "0"},
		{"", "0"},
		{"x123456789012345678901234567890", "123456789012345678901234567890"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Ordinal(c.label), c.label)
	}
}

func TestCompareLabelsNumericNotLexical(t *testing.T) {
	assert.Negative(t, compareLabels("CP9", "CP10"))
	assert.Positive(t, compareLabels("CP10", "CP9"))
	assert.Negative(t, compareLabels("CP2", "CP0010"))
	assert.Negative(t, compareLabels("finish", "CP1"), "no digits sorts as 0")
	assert.Zero(t, compareLabels("B1", "A1"), "equal ordinals tie")
	assert.Zero(t, compareLabels("Gate B", "Gate A"))
	assert.Zero(t, compareLabels("CP1", "CP1"))
	assert.Positive(t, compareLabels("x99999999999999999999999", "x1"))
}
