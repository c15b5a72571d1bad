package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractUnitInfo(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantSize string
		wantUnit string
		wantOK   bool
	}{
		{name: "grams", text: "Udon Noodles 400g", wantSize: "400g", wantUnit: "g", wantOK: true},
		{name: "millilitres with space", text: "Soy Sauce 500 ml", wantSize: "500ml", wantUnit: "ml", wantOK: true},
		{name: "decimal litres", text: "Oil 1.5L", wantSize: "1.5l", wantUnit: "l", wantOK: true},
		{name: "litre alias", text: "Water 2 litre", wantSize: "2l", wantUnit: "l", wantOK: true},
		{name: "first match wins", text: "2kg bag of 500g packs", wantSize: "2kg", wantUnit: "kg", wantOK: true},
		{name: "absent", text: "Chopsticks", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, unit, ok := ExtractUnitInfo(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantSize, size)
			assert.Equal(t, tt.wantUnit, unit)
		})
	}
}

func TestExtractCaseSize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want *int
	}{
		{name: "case of", text: "Ramen Case of 24", want: intPtr(24)},
		{name: "pack without of", text: "Pack 6 Buns", want: intPtr(6)},
		{name: "box", text: "BOX OF 10", want: intPtr(10)},
		{name: "serving multiply", text: "Instant Noodle 5 x 85g", want: intPtr(425)},
		{name: "serving no spaces", text: "Drink 4x6", want: intPtr(24)},
		{name: "absent", text: "Kimchi 300g", want: nil},
		{name: "overflow yields nil", text: "case of 99999999999999999999999", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractCaseSize(tt.text)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestDetermineUnit(t *testing.T) {
	tests := map[string]string{
		"Coconut Milk Can 400ml": "can",
		"Kimchi Jar":             "jar",
		"Rice 5kg":               "pack",
		"Water 500ml":            "bottle",
		"Chopsticks":             "unit",
		"Tinned Lychee":          "can",
	}
	for name, want := range tests {
		assert.Equal(t, want, DetermineUnit(name), name)
	}
}

func intPtr(n int) *int { return &n }
