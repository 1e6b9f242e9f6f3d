package services

import (
	"database/sql"
	"sort"

	"airbnb-cleaner/models"
	"airbnb-cleaner/utils"
)

// missingKey stands in for a missing grouping value so that such rows form
// their own group instead of being silently dropped.
const missingKey = "\x00"

// Aggregate reduces the non-missing values of one group to a single statistic.
// It returns false when the statistic is undefined (e.g. an empty group).
type Aggregate func(values []float64) (float64, bool)

// Median is the middle value, or the mean of the two middle values for an
// even count. Undefined for an empty slice.
func Median(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	s := make([]float64, len(values))
	copy(s, values)
	sort.Float64s(s)

	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid], true
	}
	return (s[mid-1] + s[mid]) / 2, true
}

// ColumnValues returns every non-missing numeric value of column.
func ColumnValues(t *models.Table, column string) []float64 {
	vals := make([]float64, 0, t.Len())
	for _, r := range t.Rows {
		if f, ok := models.Float(r[column]); ok {
			vals = append(vals, f)
		}
	}
	return vals
}

// GroupBroadcast computes agg over column for every distinct combination of
// the key columns and returns the result aligned with t.Rows. Rows whose
// group statistic is undefined get an invalid NullFloat64. Rows with a
// missing key value are grouped together.
func GroupBroadcast(t *models.Table, keys []string, column string, agg Aggregate) []sql.NullFloat64 {
	return groupBroadcast(t, keys, column, agg, false)
}

// GroupBroadcastKnownKeys is GroupBroadcast except that rows with any missing
// key value belong to no group: they neither contribute to a statistic nor
// receive one.
func GroupBroadcastKnownKeys(t *models.Table, keys []string, column string, agg Aggregate) []sql.NullFloat64 {
	return groupBroadcast(t, keys, column, agg, true)
}

func groupBroadcast(t *models.Table, keys []string, column string, agg Aggregate, knownOnly bool) []sql.NullFloat64 {
	rowKeys := make([]string, t.Len())
	grouped := make([]bool, t.Len())
	groups := make(map[string][]float64)

	for i, r := range t.Rows {
		k, complete := rowKey(r, keys)
		if knownOnly && !complete {
			continue
		}
		rowKeys[i] = k
		grouped[i] = true
		if _, ok := groups[k]; !ok {
			groups[k] = nil
		}
		if f, ok := models.Float(r[column]); ok {
			groups[k] = append(groups[k], f)
		}
	}

	stats := make(map[string]sql.NullFloat64, len(groups))
	for k, vals := range groups {
		v, ok := agg(vals)
		stats[k] = sql.NullFloat64{Float64: v, Valid: ok}
	}

	out := make([]sql.NullFloat64, t.Len())
	for i, k := range rowKeys {
		if grouped[i] {
			out[i] = stats[k]
		}
	}
	return out
}

// FillMissing writes values[i] into row i wherever column is missing and the
// value is valid. It returns the number of cells filled.
func FillMissing(t *models.Table, column string, values []sql.NullFloat64) int {
	filled := 0
	for i, r := range t.Rows {
		if i >= len(values) || !values[i].Valid {
			continue
		}
		if _, ok := models.Float(r[column]); ok {
			continue
		}
		r[column] = values[i].Float64
		filled++
	}
	return filled
}

// rowKey builds the group key of r and reports whether every key value was present.
func rowKey(r models.Row, keys []string) (string, bool) {
	parts := make([]string, len(keys))
	complete := true
	for i, k := range keys {
		s, ok := models.Text(r[k])
		if !ok {
			s = missingKey
			complete = false
		}
		parts[i] = s
	}
	return utils.JoinKey(parts...), complete
}
