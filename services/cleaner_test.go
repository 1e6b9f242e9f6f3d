package services

import (
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airbnb-cleaner/models"
	"airbnb-cleaner/utils"
)

func newTestLogger() *utils.Logger {
	return utils.NewLoggerTo(io.Discard, io.Discard, utils.LevelError)
}

func newTestCleaner() *Cleaner {
	return NewCleaner(newTestLogger(), DefaultCleanerOptions())
}

func tableOf(rows ...models.Row) *models.Table {
	t := models.NewTable()
	for _, r := range rows {
		t.Append(r)
	}
	return t
}

func copyTable(t *models.Table) *models.Table {
	out := models.NewTable(t.Columns...)
	for _, r := range t.Rows {
		c := make(models.Row, len(r))
		for k, v := range r {
			c[k] = v
		}
		out.Rows = append(out.Rows, c)
	}
	return out
}

func TestCleanerParsePrice(t *testing.T) {
	tests := []struct {
		raw  any
		want float64
		ok   bool
	}{
		{"$1,234.50", 1234.50, true},
		{"£900", 900, true},
		{"$120.00", 120, true},
		{"N/A", 0, false},
		{"", 0, false},
		{"1.2.3", 0, false},
		{[]byte("$75"), 75, true},
		{99.5, 99.5, true},
		{int64(80), 80, true},
		{-100.0, 100, true},
		{"-100", 100, true},
		{math.Inf(1), 0, false},
		{math.NaN(), 0, false},
	}

	for _, tt := range tests {
		got, ok := parsePrice(tt.raw)
		assert.Equal(t, tt.ok, ok, "parsePrice(%v) ok", tt.raw)
		if tt.ok {
			assert.Equal(t, tt.want, got, "parsePrice(%v)", tt.raw)
		}
	}
}

func TestCleanerCleanPriceMarksFailuresMissing(t *testing.T) {
	tbl := tableOf(
		models.Row{"price": "$1,234.50"},
		models.Row{"price": "N/A"},
		models.Row{"price": nil},
	)

	unparseable := newTestCleaner().CleanPrice(tbl)

	assert.Equal(t, 1, unparseable)
	assert.Equal(t, 1234.50, tbl.Rows[0]["price"])
	assert.Nil(t, tbl.Rows[1]["price"])
	assert.Nil(t, tbl.Rows[2]["price"])
}

func TestCleanerDeduplicatesIDQuarter(t *testing.T) {
	tbl := tableOf(
		models.Row{"id": int64(1), "quarter": "2024Q3", "name": "first"},
		models.Row{"id": int64(1), "quarter": "2024Q3", "name": "second"},
		models.Row{"id": int64(1), "quarter": "2024Q4", "name": "next quarter"},
		models.Row{"id": int64(2), "quarter": "2024Q3", "name": "other"},
		models.Row{"id": int64(2), "quarter": "2024Q3", "name": "other dup"},
	)

	removed := newTestCleaner().RemoveDuplicates(tbl)

	assert.Equal(t, 2, removed)
	require.Equal(t, 3, tbl.Len())
	assert.Equal(t, "first", tbl.Rows[0]["name"])
	assert.Equal(t, "next quarter", tbl.Rows[1]["name"])
	assert.Equal(t, "other", tbl.Rows[2]["name"])
}

func TestCleanerListingStatus(t *testing.T) {
	tbl := tableOf(
		models.Row{"availability_365": int64(0)},
		models.Row{"availability_365": int64(5)},
		models.Row{"availability_365": nil},
		models.Row{"availability_365": "12"},
	)

	newTestCleaner().DeriveListingStatus(tbl)

	assert.Equal(t, StatusInactive, tbl.Rows[0]["listing_status"])
	assert.Equal(t, StatusActive, tbl.Rows[1]["listing_status"])
	assert.Equal(t, StatusInactive, tbl.Rows[2]["listing_status"])
	assert.Equal(t, StatusActive, tbl.Rows[3]["listing_status"])
}

func TestCleanerUnknownAndReviewsFill(t *testing.T) {
	tbl := tableOf(
		models.Row{"host_response_rate": "N/A", "host_is_superhost": nil, "host_identity_verified": "t", "reviews_per_month": nil},
		models.Row{"host_response_rate": "90%", "host_is_superhost": "f", "host_identity_verified": nil, "reviews_per_month": 1.2},
	)

	newTestCleaner().HandleMissingValues(tbl)

	assert.Equal(t, UnknownValue, tbl.Rows[0]["host_response_rate"])
	assert.Equal(t, UnknownValue, tbl.Rows[0]["host_is_superhost"])
	assert.Equal(t, "t", tbl.Rows[0]["host_identity_verified"])
	assert.Equal(t, 0.0, tbl.Rows[0]["reviews_per_month"])

	assert.Equal(t, "90%", tbl.Rows[1]["host_response_rate"])
	assert.Equal(t, UnknownValue, tbl.Rows[1]["host_identity_verified"])
	assert.Equal(t, 1.2, tbl.Rows[1]["reviews_per_month"])
}

func TestCleanerBathroomsFromText(t *testing.T) {
	tbl := tableOf(
		models.Row{"bathrooms": 1.0, "bathrooms_text": "1 bath"},
		models.Row{"bathrooms": 2.0, "bathrooms_text": "2 baths"},
		models.Row{"bathrooms": 3.0, "bathrooms_text": "3 baths"},
		models.Row{"bathrooms": nil, "bathrooms_text": "1.5 baths"},
		models.Row{"bathrooms": nil, "bathrooms_text": "Shared half-bath"},
		models.Row{"bathrooms": nil, "bathrooms_text": "1-2 baths"},
	)

	s := newTestCleaner().HandleMissingValues(tbl)

	assert.Equal(t, 1.5, tbl.Rows[3]["bathrooms"])
	// median of 1, 2, 3, 1.5, 1
	assert.Equal(t, 1.5, tbl.Rows[4]["bathrooms"])
	assert.Equal(t, 1.0, tbl.Rows[5]["bathrooms"], "ranges keep the first number")
	assert.Equal(t, 2, s.BathroomsFromText)
	assert.Equal(t, 1, s.BathroomsMedianFilled)

	assert.False(t, tbl.HasColumn("bathrooms_text"))
	for _, r := range tbl.Rows {
		_, present := r["bathrooms_text"]
		assert.False(t, present)
	}
}

func TestCleanerParseBathrooms(t *testing.T) {
	tests := []struct {
		text any
		want float64
		ok   bool
	}{
		{"1.5 baths", 1.5, true},
		{"2 shared baths", 2, true},
		{"1-2 baths", 1, true},
		{"Half-bath", 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := parseBathrooms(tt.text)
		assert.Equal(t, tt.ok, ok, "parseBathrooms(%v) ok", tt.text)
		assert.Equal(t, tt.want, got, "parseBathrooms(%v)", tt.text)
	}
}

func TestCleanerBedsGlobalMedian(t *testing.T) {
	tbl := tableOf(
		models.Row{"beds": 1.0},
		models.Row{"beds": "3"},
		models.Row{"beds": nil},
		models.Row{"beds": "many"},
	)

	s := newTestCleaner().HandleMissingValues(tbl)

	assert.Equal(t, 2, s.BedsMedianFilled)
	assert.Equal(t, 3.0, tbl.Rows[1]["beds"])
	assert.Equal(t, 2.0, tbl.Rows[2]["beds"])
	assert.Equal(t, 2.0, tbl.Rows[3]["beds"])
}

func TestCleanerBedroomsGroupedByPropertyType(t *testing.T) {
	tbl := tableOf(
		models.Row{"property_type": "Entire rental unit", "bedrooms": 1.0},
		models.Row{"property_type": "Entire rental unit", "bedrooms": 1.0},
		models.Row{"property_type": "Entire rental unit", "bedrooms": nil},
		models.Row{"property_type": "Entire home", "bedrooms": 3.0},
		models.Row{"property_type": "Entire home", "bedrooms": 5.0},
		models.Row{"property_type": "Entire home", "bedrooms": nil},
	)

	s := newTestCleaner().HandleMissingValues(tbl)

	// the global median would be 2
	assert.Equal(t, 1.0, tbl.Rows[2]["bedrooms"])
	assert.Equal(t, 4.0, tbl.Rows[5]["bedrooms"])
	assert.Equal(t, 2, s.BedroomsGroupFilled)
}

func TestCleanerPriceImputationOnlyForActive(t *testing.T) {
	tbl := tableOf(
		models.Row{"neighbourhood_cleansed": "Camden", "room_type": "Private room", "price": 50.0, "listing_status": StatusActive},
		models.Row{"neighbourhood_cleansed": "Camden", "room_type": "Private room", "price": 70.0, "listing_status": StatusInactive},
		models.Row{"neighbourhood_cleansed": "Camden", "room_type": "Private room", "price": nil, "listing_status": StatusActive},
		models.Row{"neighbourhood_cleansed": "Camden", "room_type": "Private room", "price": nil, "listing_status": StatusInactive},
		models.Row{"neighbourhood_cleansed": "Hackney", "room_type": "Shared room", "price": nil, "listing_status": StatusActive},
	)

	s := newTestCleaner().HandleMissingValues(tbl)

	assert.Equal(t, 60.0, tbl.Rows[2]["price"])
	assert.Nil(t, tbl.Rows[3]["price"], "inactive listings are not imputed")
	assert.Nil(t, tbl.Rows[4]["price"], "group without prices stays missing")
	assert.Equal(t, 1, s.PricesImputed)
}

func TestCleanerNegativePriceKeepsRevenueNonNegative(t *testing.T) {
	tbl := tableOf(
		models.Row{"id": int64(1), "quarter": "2024Q3", "price": -100.0, "availability_30": int64(0), "availability_365": int64(10)},
		models.Row{"id": int64(2), "quarter": "2024Q3", "price": "-100", "availability_30": int64(0), "availability_365": int64(10)},
	)

	newTestCleaner().Clean(tbl)

	for _, r := range tbl.Rows {
		assert.Equal(t, 100.0, r["price"], "id %v", r["id"])
		assert.Equal(t, 9000.0, r["revenue_quarter"], "id %v", r["id"])
	}
}

func TestCleanerPriceNotImputedWithoutNeighbourhood(t *testing.T) {
	tbl := tableOf(
		models.Row{"neighbourhood_cleansed": nil, "room_type": "Private room", "price": 50.0, "listing_status": StatusActive},
		models.Row{"neighbourhood_cleansed": nil, "room_type": "Private room", "price": nil, "listing_status": StatusActive},
		models.Row{"neighbourhood_cleansed": "Camden", "room_type": nil, "price": nil, "listing_status": StatusActive},
	)

	s := newTestCleaner().HandleMissingValues(tbl)

	assert.Equal(t, 50.0, tbl.Rows[0]["price"])
	assert.Nil(t, tbl.Rows[1]["price"], "missing neighbourhood is not a price group")
	assert.Nil(t, tbl.Rows[2]["price"], "missing room type is not a price group")
	assert.Zero(t, s.PricesImputed)
}

func TestCleanerFeatures(t *testing.T) {
	tbl := tableOf(
		models.Row{"price": 100.0, "availability_30": int64(10)},
		models.Row{"price": nil, "availability_30": int64(10)},
		models.Row{"price": 80.0, "availability_30": int64(0)},
		models.Row{"price": 80.0, "availability_30": int64(45)},
	)

	newTestCleaner().CreateFeatures(tbl)

	occ, ok := models.Float(tbl.Rows[0]["occ_rate_30"])
	require.True(t, ok)
	assert.InDelta(t, 0.6667, occ, 0.0001)
	rev, ok := models.Float(tbl.Rows[0]["revenue_quarter"])
	require.True(t, ok)
	assert.InDelta(t, 6000.0, rev, 0.05)

	assert.Nil(t, tbl.Rows[1]["occ_rate_30"])
	assert.Nil(t, tbl.Rows[1]["revenue_quarter"])

	assert.Equal(t, 1.0, tbl.Rows[2]["occ_rate_30"])
	assert.Equal(t, 7200.0, tbl.Rows[2]["revenue_quarter"])
	assert.Equal(t, 0.0, tbl.Rows[3]["occ_rate_30"])
	assert.Equal(t, 0.0, tbl.Rows[3]["revenue_quarter"])
}

func TestCleanerFlags(t *testing.T) {
	opts := DefaultCleanerOptions()
	opts.HostInfoColumns = []string{"host_since", "host_response_time"}
	opts.ReviewColumns = []string{"first_review", "last_review"}
	c := NewCleaner(newTestLogger(), opts)

	tbl := tableOf(
		models.Row{"host_since": nil, "host_response_time": nil, "first_review": nil, "last_review": nil},
		models.Row{"host_since": "2019-01-01", "host_response_time": nil, "first_review": "2020-01-01", "last_review": nil},
		models.Row{"host_since": UnknownValue, "host_response_time": nil, "first_review": nil, "last_review": "2021-05-01"},
	)

	c.CreateFeatures(tbl)

	assert.Equal(t, int64(1), tbl.Rows[0]["host_info_missing_flag"])
	assert.Equal(t, int64(1), tbl.Rows[0]["no_reviews_flag"])
	assert.Equal(t, int64(0), tbl.Rows[1]["host_info_missing_flag"])
	assert.Equal(t, int64(0), tbl.Rows[1]["no_reviews_flag"])
	assert.Equal(t, int64(1), tbl.Rows[2]["host_info_missing_flag"], "unknown sentinel counts as missing")
	assert.Equal(t, int64(0), tbl.Rows[2]["no_reviews_flag"])
}

func rawScenario() *models.Table {
	base := func(id int64, price any, avail365 int64) models.Row {
		return models.Row{
			"id": id, "quarter": "2024Q3",
			"neighbourhood_cleansed": "Westminster", "room_type": "Entire home/apt",
			"property_type": "Entire rental unit",
			"price": price, "availability_30": int64(15), "availability_365": avail365,
			"bathrooms": nil, "bathrooms_text": "1 bath", "bedrooms": 1.0, "beds": 1.0,
			"host_response_rate": "N/A", "reviews_per_month": nil,
		}
	}
	return tableOf(
		base(1, "$1,200.00", 100),
		base(1, "$1,200.00", 100),
		base(2, nil, 0),
		base(3, nil, 40),
	)
}

func TestCleanerEndToEnd(t *testing.T) {
	tbl := rawScenario()

	stats := newTestCleaner().Clean(tbl)

	require.Equal(t, 3, tbl.Len())
	assert.Equal(t, 4, stats.RowsIn)
	assert.Equal(t, 3, stats.RowsOut)
	assert.Equal(t, 1, stats.DuplicatesRemoved)
	assert.Equal(t, 1, stats.PricesImputed)

	byID := map[int64]models.Row{}
	for _, r := range tbl.Rows {
		byID[r["id"].(int64)] = r
	}

	assert.Equal(t, 1200.0, byID[1]["price"])
	assert.Equal(t, StatusActive, byID[1]["listing_status"])

	assert.Nil(t, byID[2]["price"])
	assert.Equal(t, StatusInactive, byID[2]["listing_status"])
	assert.Nil(t, byID[2]["revenue_quarter"])

	assert.Equal(t, 1200.0, byID[3]["price"])
	assert.Equal(t, StatusActive, byID[3]["listing_status"])
	assert.Equal(t, 0.5, byID[3]["occ_rate_30"])
	assert.Equal(t, 54000.0, byID[3]["revenue_quarter"])

	for _, r := range tbl.Rows {
		assert.Equal(t, 1.0, r["bathrooms"])
		assert.Equal(t, 0.0, r["reviews_per_month"])
		assert.Equal(t, UnknownValue, r["host_response_rate"])
	}
	assert.False(t, tbl.HasColumn("bathrooms_text"))
}

func TestCleanerIsIdempotent(t *testing.T) {
	tbl := rawScenario()
	c := newTestCleaner()

	c.Clean(tbl)
	once := copyTable(tbl)

	stats := c.Clean(tbl)

	assert.Equal(t, once.Columns, tbl.Columns)
	assert.Equal(t, once.Rows, tbl.Rows)
	assert.Zero(t, stats.DuplicatesRemoved)
	assert.Zero(t, stats.PricesImputed)
}
