package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
		ok   bool
	}{
		{"comma separator", "€ 52,30", 52.30, true},
		{"dot separator", "52.30", 52.30, true},
		{"embedded in text", "Totaal: € 8,99 incl. statiegeld", 8.99, true},
		{"no decimals", "Totaal €52", 0, false},
		{"no amount", "winkelwagen is leeg", 0, false},
		{"empty", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseAmount(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestParseAmountFirstMatchWins(t *testing.T) {
	got, ok := ParseAmount("2 voor € 5,00, totaal € 12,50")
	assert.True(t, ok)
	assert.InDelta(t, 5.00, got, 0.001)
}

func TestIsProductURL(t *testing.T) {
	assert.True(t, IsProductURL("https://www.ah.nl/producten/product/wi1234/halfvolle-melk"))
	assert.True(t, IsProductURL("http://example.test/p/1"))
	assert.False(t, IsProductURL("halfvolle melk"))
	assert.False(t, IsProductURL("/producten/product/wi1234"))
	assert.False(t, IsProductURL(""))
}
