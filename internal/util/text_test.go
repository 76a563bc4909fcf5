package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokens(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"punctuation", "The Supplier shall PAY, promptly.", []string{"the", "supplier", "shall", "pay", "promptly"}},
		{"digits kept", "within 30 days", []string{"within", "30", "days"}},
		{"compatibility forms", "ﬁnal Ｆee", []string{"final", "fee"}},
		{"empty", "  ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokens(tt.in)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMultisetIoU(t *testing.T) {
	a := Multiset([]string{"x", "x", "y"})
	b := Multiset([]string{"x", "z"})

	// min: x=1 -> 1; max: x=2, y=1, z=1 -> 4
	assert.InDelta(t, 0.25, MultisetIoU(a, b), 1e-12)
	assert.Equal(t, 1.0, MultisetIoU(a, a))
	assert.Equal(t, 1.0, MultisetIoU(nil, nil))
	assert.Equal(t, 0.0, MultisetIoU(a, nil))
}

func TestTokenSimilarityIdentity(t *testing.T) {
	text := "Either party may terminate this Agreement upon thirty (30) days notice."
	assert.Equal(t, 1.0, TokenSimilarity(text, text))
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-0.5))
	assert.Equal(t, 1.0, Clamp01(1.5))
	assert.Equal(t, 0.3, Clamp01(0.3))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcd...", Truncate("abcdefghij", 7))
}
