package services

import (
	"regexp"
	"strconv"
	"strings"

	"airbnb-cleaner/models"
	"airbnb-cleaner/utils"
)

// Column names the cleaner reads or produces.
const (
	ColID                  = "id"
	ColQuarter             = "quarter"
	ColPrice               = "price"
	ColListingStatus       = "listing_status"
	ColAvailability30      = "availability_30"
	ColAvailability365     = "availability_365"
	ColReviewsPerMonth     = "reviews_per_month"
	ColBathrooms           = "bathrooms"
	ColBathroomsText       = "bathrooms_text"
	ColBeds                = "beds"
	ColBedrooms            = "bedrooms"
	ColPropertyType        = "property_type"
	ColNeighbourhood       = "neighbourhood_cleansed"
	ColRoomType            = "room_type"
	ColHostInfoMissingFlag = "host_info_missing_flag"
	ColNoReviewsFlag       = "no_reviews_flag"
	ColOccRate30           = "occ_rate_30"
	ColRevenueQuarter      = "revenue_quarter"
)

const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"

	// UnknownValue replaces "N/A" and missing values in categorical host fields.
	UnknownValue = "unknown"

	notAvailable    = "N/A"
	quarterNights   = 90
	occupancyNights = 30
)

var (
	// priceStripRegexp matches everything that cannot be part of a plain decimal
	priceStripRegexp = regexp.MustCompile(`[^\d.]`)
	// bathroomsRegexp captures the first number in texts like "1.5 shared baths"
	bathroomsRegexp = regexp.MustCompile(`(\d+(\.\d+)?)`)
)

// CleanerOptions names the columns each stage works on.
type CleanerOptions struct {
	KeyColumns          []string
	UnknownColumns      []string
	HostInfoColumns     []string
	ReviewColumns       []string
	BedroomGroupColumns []string
	PriceGroupColumns   []string
}

// DefaultCleanerOptions returns the column designations of the quarterly
// listings extract.
func DefaultCleanerOptions() CleanerOptions {
	return CleanerOptions{
		KeyColumns:     []string{ColID, ColQuarter},
		UnknownColumns: []string{"host_response_rate", "host_identity_verified", "host_is_superhost"},
		HostInfoColumns: []string{
			"host_since", "host_response_time", "host_identity_verified", "host_acceptance_rate",
			"host_response_rate", "host_listings_count", "host_total_listings_count",
		},
		ReviewColumns: []string{
			"review_scores_rating", "review_scores_accuracy", "review_scores_cleanliness",
			"review_scores_checkin", "review_scores_communication", "review_scores_location",
			"review_scores_value", ColReviewsPerMonth, "first_review", "last_review",
		},
		BedroomGroupColumns: []string{ColPropertyType},
		PriceGroupColumns:   []string{ColNeighbourhood, ColRoomType},
	}
}

// CleanStats summarises what a Clean run changed.
type CleanStats struct {
	RowsIn                int
	RowsOut               int
	DuplicatesRemoved     int
	PricesUnparseable     int
	PricesImputed         int
	BathroomsFromText     int
	BathroomsMedianFilled int
	BedsMedianFilled      int
	BedroomsGroupFilled   int
}

// Cleaner turns the raw listing table into the analysis-ready table.
type Cleaner struct {
	logger *utils.Logger
	opts   CleanerOptions
}

// NewCleaner creates a Cleaner with the given logger and column options.
func NewCleaner(logger *utils.Logger, opts CleanerOptions) *Cleaner {
	return &Cleaner{logger: logger, opts: opts}
}

// Clean runs every stage in order on t and reports what changed.
func (c *Cleaner) Clean(t *models.Table) CleanStats {
	stats := CleanStats{RowsIn: t.Len()}

	stats.DuplicatesRemoved = c.RemoveDuplicates(t)
	stats.PricesUnparseable = c.CleanPrice(t)
	c.DeriveListingStatus(t)

	imputed := c.HandleMissingValues(t)
	stats.PricesImputed = imputed.PricesImputed
	stats.BathroomsFromText = imputed.BathroomsFromText
	stats.BathroomsMedianFilled = imputed.BathroomsMedianFilled
	stats.BedsMedianFilled = imputed.BedsMedianFilled
	stats.BedroomsGroupFilled = imputed.BedroomsGroupFilled

	c.CreateFeatures(t)
	stats.RowsOut = t.Len()

	c.logger.Info("[cleaner] Cleaned %d → %d rows (duplicates %d, unparseable prices %d, imputed prices %d)",
		stats.RowsIn, stats.RowsOut, stats.DuplicatesRemoved, stats.PricesUnparseable, stats.PricesImputed)
	return stats
}

// RemoveDuplicates keeps the first row of every key and preserves the order
// of the survivors. It returns the number of rows removed.
func (c *Cleaner) RemoveDuplicates(t *models.Table) int {
	seen := utils.NewKeySet()
	kept := t.Rows[:0]

	for _, r := range t.Rows {
		key, _ := rowKey(r, c.opts.KeyColumns)
		if !seen.Add(key) {
			continue
		}
		kept = append(kept, r)
	}

	removed := len(t.Rows) - len(kept)
	for i := len(kept); i < len(t.Rows); i++ {
		t.Rows[i] = nil
	}
	t.Rows = kept

	c.logger.Info("[cleaner] Duplicates removed: %d", removed)
	return removed
}

// CleanPrice converts the price column to float64. It returns how many
// present values could not be parsed and were set to missing.
func (c *Cleaner) CleanPrice(t *models.Table) int {
	t.AddColumn(ColPrice)

	unparseable := 0
	for _, r := range t.Rows {
		v := r[ColPrice]
		if models.IsMissing(v) {
			r[ColPrice] = nil
			continue
		}
		price, ok := parsePrice(v)
		if !ok {
			c.logger.Debug("[cleaner] Unparseable price %v", v)
			r[ColPrice] = nil
			unparseable++
			continue
		}
		r[ColPrice] = price
	}

	c.logger.Info("[cleaner] Price cleaned (%d unparseable)", unparseable)
	return unparseable
}

// parsePrice strips currency symbols and separators and parses the rest.
//
//	"$1,234.50" → 1234.5
//	"£900"      → 900
//	"N/A"       → missing
//
// Numeric cells go through the same rule, so a sign is dropped (-100 → 100)
// and infinities become missing.
func parsePrice(v any) (float64, bool) {
	s, ok := models.Text(v)
	if !ok {
		return 0, false
	}
	s = priceStripRegexp.ReplaceAllString(s, "")
	if s == "" {
		return 0, false
	}
	price, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return price, true
}

// DeriveListingStatus marks a listing Active when it has any availability in
// the next 365 days. Missing availability counts as Inactive.
func (c *Cleaner) DeriveListingStatus(t *models.Table) {
	t.AddColumn(ColListingStatus)

	active := 0
	for _, r := range t.Rows {
		if avail, ok := models.Float(r[ColAvailability365]); ok && avail > 0 {
			r[ColListingStatus] = StatusActive
			active++
			continue
		}
		r[ColListingStatus] = StatusInactive
	}

	c.logger.Info("[cleaner] Listing status created (%d active, %d inactive)", active, t.Len()-active)
}

// ImputationStats counts the cells HandleMissingValues filled.
type ImputationStats struct {
	UnknownFilled         int
	ReviewsPerMonthFilled int
	BathroomsFromText     int
	BathroomsMedianFilled int
	BedsMedianFilled      int
	BedroomsGroupFilled   int
	PricesImputed         int
}

// HandleMissingValues fills host categoricals, review rate, room counts and
// prices of active listings. It needs CleanPrice and DeriveListingStatus to
// have run first.
func (c *Cleaner) HandleMissingValues(t *models.Table) ImputationStats {
	c.logger.Info("[cleaner] Handling missing values...")
	var s ImputationStats

	for _, col := range []string{ColBathrooms, ColBeds, ColBedrooms} {
		t.AddColumn(col)
		coerceNumeric(t, col)
	}
	c.logger.Info("[cleaner] Missing before imputation: bathrooms=%d beds=%d bedrooms=%d",
		countMissing(t, ColBathrooms), countMissing(t, ColBeds), countMissing(t, ColBedrooms))

	for _, col := range c.opts.UnknownColumns {
		t.AddColumn(col)
		for _, r := range t.Rows {
			v := r[col]
			if text, ok := v.(string); models.IsMissing(v) || (ok && text == notAvailable) {
				r[col] = UnknownValue
				s.UnknownFilled++
			}
		}
	}

	t.AddColumn(ColReviewsPerMonth)
	for _, r := range t.Rows {
		if f, ok := models.Float(r[ColReviewsPerMonth]); ok {
			r[ColReviewsPerMonth] = f
			continue
		}
		r[ColReviewsPerMonth] = 0.0
		s.ReviewsPerMonthFilled++
	}

	for _, r := range t.Rows {
		if _, ok := models.Float(r[ColBathrooms]); ok {
			continue
		}
		if baths, ok := parseBathrooms(r[ColBathroomsText]); ok {
			r[ColBathrooms] = baths
			s.BathroomsFromText++
		}
	}
	s.BathroomsMedianFilled = fillWithMedian(t, ColBathrooms)
	t.DropColumn(ColBathroomsText)

	s.BedsMedianFilled = fillWithMedian(t, ColBeds)

	bedroomMedians := GroupBroadcast(t, c.opts.BedroomGroupColumns, ColBedrooms, Median)
	s.BedroomsGroupFilled = FillMissing(t, ColBedrooms, bedroomMedians)

	// a listing without a neighbourhood or room type has no price group
	priceMedians := GroupBroadcastKnownKeys(t, c.opts.PriceGroupColumns, ColPrice, Median)
	for i, r := range t.Rows {
		if r[ColListingStatus] != StatusActive {
			continue
		}
		if _, ok := models.Float(r[ColPrice]); ok {
			continue
		}
		if !priceMedians[i].Valid {
			continue
		}
		r[ColPrice] = priceMedians[i].Float64
		s.PricesImputed++
	}

	c.logger.Debug("[cleaner] Imputation: %+v", s)
	c.logger.Info("[cleaner] Missing value handling completed (%d active prices imputed)", s.PricesImputed)
	return s
}

// parseBathrooms extracts the first number from a bathrooms description.
// Ranges keep their first bound: "1-2 baths" → 1.
func parseBathrooms(v any) (float64, bool) {
	text, ok := models.Text(v)
	if !ok {
		return 0, false
	}
	m := bathroomsRegexp.FindStringSubmatch(strings.ToLower(text))
	if len(m) < 2 {
		return 0, false
	}
	baths, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return baths, true
}

// CreateFeatures derives the missing-info flags and the occupancy and
// revenue proxies. Rows without a price get neither proxy.
func (c *Cleaner) CreateFeatures(t *models.Table) {
	c.logger.Info("[cleaner] Creating occupancy and revenue features...")
	for _, col := range []string{ColHostInfoMissingFlag, ColNoReviewsFlag, ColOccRate30, ColRevenueQuarter} {
		t.AddColumn(col)
	}

	withRevenue := 0
	for _, r := range t.Rows {
		r[ColHostInfoMissingFlag] = flag(allMissing(r, c.opts.HostInfoColumns))
		r[ColNoReviewsFlag] = flag(allMissing(r, c.opts.ReviewColumns))

		r[ColOccRate30] = nil
		r[ColRevenueQuarter] = nil

		price, ok := models.Float(r[ColPrice])
		if !ok {
			continue
		}
		avail, ok := models.Float(r[ColAvailability30])
		if !ok {
			continue
		}
		occ := clamp(1-avail/occupancyNights, 0, 1)
		r[ColOccRate30] = occ
		r[ColRevenueQuarter] = price * occ * quarterNights
		withRevenue++
	}

	c.logger.Info("[cleaner] Feature engineering completed (%d rows with revenue proxy)", withRevenue)
}

// allMissing reports whether every listed column is missing or holds the
// unknown sentinel. An empty column list is never all-missing.
func allMissing(r models.Row, cols []string) bool {
	if len(cols) == 0 {
		return false
	}
	for _, col := range cols {
		v := r[col]
		if models.IsMissing(v) {
			continue
		}
		if s, ok := v.(string); ok && s == UnknownValue {
			continue
		}
		return false
	}
	return true
}

func flag(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func clamp(f, lo, hi float64) float64 {
	if f < lo {
		return lo
	}
	if f > hi {
		return hi
	}
	return f
}

// coerceNumeric rewrites column as float64, turning unparseable cells into missing.
func coerceNumeric(t *models.Table, column string) {
	for _, r := range t.Rows {
		if f, ok := models.Float(r[column]); ok {
			r[column] = f
			continue
		}
		r[column] = nil
	}
}

// fillWithMedian fills missing cells of column with the table-wide median.
func fillWithMedian(t *models.Table, column string) int {
	median, ok := Median(ColumnValues(t, column))
	if !ok {
		return 0
	}
	filled := 0
	for _, r := range t.Rows {
		if _, ok := models.Float(r[column]); !ok {
			r[column] = median
			filled++
		}
	}
	return filled
}

func countMissing(t *models.Table, column string) int {
	n := 0
	for _, r := range t.Rows {
		if _, ok := models.Float(r[column]); !ok {
			n++
		}
	}
	return n
}
