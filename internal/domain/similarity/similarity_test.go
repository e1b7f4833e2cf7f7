package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity_KnownPairs(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "both empty", a: "", b: "", want: 1.0},
		{name: "one empty", a: "widget", b: "", want: 0.0},
		{name: "identical", a: "Widget A", b: "Widget A", want: 1.0},
		{name: "case insensitive", a: "WIDGET a", b: "widget A", want: 1.0},
		{name: "classic kitten sitting", a: "kitten", b: "sitting", want: 1.0 - 3.0/7.0},
		{name: "one substitution", a: "Widget A", b: "Widget B", want: 1.0 - 1.0/8.0},
		{name: "completely different", a: "abc", b: "xyz", want: 0.0},
		{name: "multibyte runes", a: "café", b: "cafe", want: 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Similarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSimilarity_Properties(t *testing.T) {
	samples := []string{
		"",
		"Widget A",
		"widget a - blue",
		"Steel bolts M8 x 40mm",
		"Consulting services, October",
		"ÜBER Ärger",
		"12345",
	}

	for _, a := range samples {
		assert.Equal(t, 1.0, Similarity(a, a), "identity for %q", a)

		for _, b := range samples {
			ab := Similarity(a, b)
			ba := Similarity(b, a)

			assert.InDelta(t, ab, ba, 1e-12, "symmetry for %q / %q", a, b)
			assert.GreaterOrEqual(t, ab, 0.0)
			assert.LessOrEqual(t, ab, 1.0)
		}
	}
}
