package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixturePath = "testdata/longdan_raw.csv"

type fakeResolver struct {
	calls     int
	gotRaw    []string
	overrides map[string]string
	err       error
}

func (f *fakeResolver) Resolve(_ context.Context, raw []string, _ []string) (map[string]string, error) {
	f.calls++
	f.gotRaw = raw
	return f.overrides, f.err
}

func testOptions() Options {
	return Options{
		Currency:         "GBP",
		SourceBaseURL:    "https://longdan.co.uk",
		MissingImagesCap: 200,
		VendorTopN:       50,
	}
}

func cleanFixture(t *testing.T, resolver CategoryResolver, opts Options) (*Result, error) {
	t.Helper()
	rows, err := ReadRawRows(fixturePath)
	require.NoError(t, err)
	return NewCleaner(resolver, opts).Clean(context.Background(), rows)
}

func TestClean_Fixture(t *testing.T) {
	res, err := cleanFixture(t, nil, testOptions())
	require.NoError(t, err)
	require.Len(t, res.Entries, 3)

	// LD-0001 встречается дважды: значения от последней строки, позиция от первой
	udon := res.Entries[0]
	assert.Equal(t, "LD-0001", udon.SKU)
	assert.Equal(t, "Udon Noodles 400g", udon.Name)
	assert.Equal(t, "Noodles & Rice", udon.CanonicalCategory)
	assert.Equal(t, "Noodles", udon.Subcategory)
	assert.Equal(t, "Pantry", udon.Department)
	assert.Equal(t, "Wai Wai", udon.Vendor)
	assert.Equal(t, 2.49, udon.Price)
	assert.Equal(t, "GBP", udon.Currency)
	assert.Equal(t, "asian,noodles", udon.Tags)
	require.NotNil(t, udon.UnitSize)
	assert.Equal(t, "400g", *udon.UnitSize)
	assert.Equal(t, "g", udon.Unit)
	assert.Equal(t, "Ambient", udon.TemperatureZone)
	assert.Equal(t, "udon-noodles-LD-0001.jpg", udon.ImageFilename)
	assert.Equal(t, "https://longdan.co.uk/products/udon-noodles", udon.SourceURL)

	gyoza := res.Entries[1]
	assert.Equal(t, "Frozen Pork Gyoza - Case of 12", gyoza.Name)
	assert.Equal(t, "Frozen & Chilled", gyoza.CanonicalCategory)
	assert.Equal(t, "Frozen", gyoza.Department)
	assert.Equal(t, "Unknown", gyoza.Vendor)
	assert.Equal(t, 0.0, gyoza.Price, "malformed price coerces to 0")
	require.NotNil(t, gyoza.CaseSize)
	assert.Equal(t, 12, *gyoza.CaseSize)
	assert.Nil(t, gyoza.UnitSize)
	assert.Equal(t, "unit", gyoza.Unit)
	assert.Equal(t, "Frozen", gyoza.TemperatureZone)

	mystery := res.Entries[2]
	assert.Equal(t, "Pantry & Misc", mystery.CanonicalCategory)
	assert.Equal(t, "Misc Goods", mystery.Subcategory)
	assert.Equal(t, "mystery-item-LD-0003.jpg", mystery.ImageFilename)
	assert.Nil(t, res.Overrides)
}

func TestClean_Summary(t *testing.T) {
	res, err := cleanFixture(t, nil, testOptions())
	require.NoError(t, err)
	s := res.Summary

	assert.Equal(t, 5, s.TotalRows)
	assert.Equal(t, 3, s.UniqueSKUs)
	assert.Equal(t, []string{"LD-0002"}, s.MissingImages)
	assert.Equal(t, []NameCount{
		{"Frozen & Chilled", 1}, {"Noodles & Rice", 1}, {"Pantry & Misc", 1},
	}, s.CategoryCounts)
	assert.Equal(t, []NameCount{{"Pantry", 2}, {"Frozen", 1}}, s.DepartmentCounts)
	assert.Equal(t, []NameCount{{"Longdan", 1}, {"Unknown", 1}, {"Wai Wai", 1}}, s.VendorCounts)
	assert.Equal(t, map[string][]string{"Misc Goods": {"Mystery Item"}}, s.UncategorizedSamples)
}

func TestClean_LimitCountsUniqueSKUs(t *testing.T) {
	opts := testOptions()
	opts.Limit = 2
	res, err := cleanFixture(t, nil, opts)
	require.NoError(t, err)

	require.Len(t, res.Entries, 2)
	assert.Equal(t, "LD-0002", res.Entries[1].SKU)
	assert.Equal(t, 2, res.Summary.TotalRows)
}

func TestClean_VendorTopN(t *testing.T) {
	opts := testOptions()
	opts.VendorTopN = 1
	res, err := cleanFixture(t, nil, opts)
	require.NoError(t, err)
	assert.Len(t, res.Summary.VendorCounts, 1)
}

func TestClean_ResolverOverridesOnlyFallback(t *testing.T) {
	resolver := &fakeResolver{overrides: map[string]string{
		"Misc Goods": "Snacks & Confectionery",
		"Noodles":    "Bakery", // запись уже классифицирована, не трогаем
	}}
	opts := testOptions()
	opts.UseResolver = true

	res, err := cleanFixture(t, resolver, opts)
	require.NoError(t, err)

	assert.Equal(t, 1, resolver.calls)
	assert.Equal(t, []string{"Misc Goods"}, resolver.gotRaw)
	assert.Equal(t, "Noodles & Rice", res.Entries[0].CanonicalCategory)
	assert.Equal(t, "Snacks & Confectionery", res.Entries[2].CanonicalCategory)
	assert.Equal(t, "Pantry", res.Entries[2].Department)
	assert.NotNil(t, res.Overrides)
}

func TestClean_ResolverIgnoresUnknownCategory(t *testing.T) {
	resolver := &fakeResolver{overrides: map[string]string{"Misc Goods": "Gadgets"}}
	opts := testOptions()
	opts.UseResolver = true

	res, err := cleanFixture(t, resolver, opts)
	require.NoError(t, err)
	assert.Equal(t, "Pantry & Misc", res.Entries[2].CanonicalCategory)
}

func TestClean_ResolverFailureKeepsPartialResult(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("connection refused")}
	opts := testOptions()
	opts.UseResolver = true

	res, err := cleanFixture(t, resolver, opts)
	require.Error(t, err)

	var ce *ClassificationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, ClassificationRequest, ce.Kind)

	require.NotNil(t, res)
	assert.Len(t, res.Entries, 3)
	assert.Equal(t, "Pantry & Misc", res.Entries[2].CanonicalCategory)
}

func TestClean_ResolverNotCalledWithoutFlag(t *testing.T) {
	resolver := &fakeResolver{}
	_, err := cleanFixture(t, resolver, testOptions())
	require.NoError(t, err)
	assert.Zero(t, resolver.calls)
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name, product, variant, sku, want string
	}{
		{"default title", "Kimchi", "Default Title", "S1", "Kimchi"},
		{"variant appended", "Kimchi", "1kg", "S1", "Kimchi - 1kg"},
		{"variant implied", "Kimchi 1KG", "1kg", "S1", "Kimchi 1KG"},
		{"empty title uses sku", "", "", "S1", "S1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayName(tt.product, tt.variant, tt.sku))
		})
	}
}

func TestNormalizeVendor(t *testing.T) {
	assert.Equal(t, "Unknown", NormalizeVendor("  "))
	assert.Equal(t, "Lee Kum Kee", NormalizeVendor("LEE KUM kee"))
	assert.Equal(t, "O'Brien", NormalizeVendor("o'brien"))
}

func TestParsePrice(t *testing.T) {
	assert.Equal(t, 3.5, ParsePrice("3.50"))
	assert.Equal(t, 1.23, ParsePrice("1.2345"))
	assert.Equal(t, 0.12, ParsePrice("0.125"), "half rounds to even")
	assert.Equal(t, 10.62, ParsePrice("10.625"))
	assert.Equal(t, 0.38, ParsePrice("0.375"))
	assert.Equal(t, 0.0, ParsePrice("£3"))
	assert.Equal(t, 0.0, ParsePrice("NaN"))
	assert.Equal(t, 0.0, ParsePrice(""))
}

func TestCleanTags(t *testing.T) {
	assert.Equal(t, "a,b,c", CleanTags(" c, a ,,b, a"))
	assert.Equal(t, "", CleanTags(""))
}

func TestSourceURL(t *testing.T) {
	assert.Equal(t, "https://longdan.co.uk/products/kimchi", SourceURL("https://longdan.co.uk/", "kimchi"))
	assert.Equal(t, "", SourceURL("https://longdan.co.uk", ""))
}
