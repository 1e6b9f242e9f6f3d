package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"airbnb-cleaner/models"
	"airbnb-cleaner/utils"
)

const topNeighbourhoods = 5

// SummaryService computes headline figures over a cleaned listing table.
type SummaryService struct {
	logger *utils.Logger
}

func NewSummaryService(logger *utils.Logger) *SummaryService {
	return &SummaryService{logger: logger}
}

func (s *SummaryService) Generate(t *models.Table) *models.SummaryReport {
	report := &models.SummaryReport{
		ByQuarter: make(map[string]*models.QuarterSummary),
	}
	if t == nil || t.Len() == 0 {
		return report
	}

	report.TotalListings = t.Len()

	var priceTotal, occTotal float64
	var occCount int
	quarterPrices := make(map[string][]float64)
	hoods := make(map[string]*models.NeighbourhoodRevenue)

	for _, r := range t.Rows {
		quarter, _ := models.Text(r[ColQuarter])
		q, ok := report.ByQuarter[quarter]
		if !ok {
			q = &models.QuarterSummary{}
			report.ByQuarter[quarter] = q
		}
		q.Listings++

		if r[ColListingStatus] == StatusActive {
			report.ActiveListings++
			q.Active++
		} else {
			report.InactiveListings++
		}

		if price, ok := models.Float(r[ColPrice]); ok {
			report.PricedListings++
			priceTotal += price
			quarterPrices[quarter] = append(quarterPrices[quarter], price)
		}
		if occ, ok := models.Float(r[ColOccRate30]); ok {
			occTotal += occ
			occCount++
		}

		rev, ok := models.Float(r[ColRevenueQuarter])
		if !ok {
			continue
		}
		report.TotalRevenue += rev
		q.Revenue += rev

		hood, ok := models.Text(r[ColNeighbourhood])
		if !ok || hood == "" {
			continue
		}
		h, ok := hoods[hood]
		if !ok {
			h = &models.NeighbourhoodRevenue{Neighbourhood: hood}
			hoods[hood] = h
		}
		h.Listings++
		h.Revenue += rev
	}

	if report.PricedListings > 0 {
		report.AveragePrice = round2(priceTotal / float64(report.PricedListings))
	}
	if occCount > 0 {
		report.AverageOccupancy = round4(occTotal / float64(occCount))
	}
	report.TotalRevenue = round2(report.TotalRevenue)

	for quarter, prices := range quarterPrices {
		var total float64
		for _, p := range prices {
			total += p
		}
		report.ByQuarter[quarter].AveragePrice = round2(total / float64(len(prices)))
	}
	for _, q := range report.ByQuarter {
		q.Revenue = round2(q.Revenue)
	}

	ranked := make([]models.NeighbourhoodRevenue, 0, len(hoods))
	for _, h := range hoods {
		h.Revenue = round2(h.Revenue)
		ranked = append(ranked, *h)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Revenue != ranked[j].Revenue {
			return ranked[i].Revenue > ranked[j].Revenue
		}
		return ranked[i].Neighbourhood < ranked[j].Neighbourhood
	})
	if len(ranked) > topNeighbourhoods {
		ranked = ranked[:topNeighbourhoods]
	}
	report.TopNeighbourhoods = ranked

	s.logger.Debug("[summary] %d listings across %d quarters", report.TotalListings, len(report.ByQuarter))
	return report
}

func (s *SummaryService) Print(w io.Writer, r *models.SummaryReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 QUARTERLY LISTINGS SUMMARY\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Total listings    : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Fprintf(w, "  Active / inactive : \033[1m%d / %d\033[0m\n", r.ActiveListings, r.InactiveListings)
	fmt.Fprintf(w, "  With price        : \033[1m%d\033[0m\n", r.PricedListings)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Price & Occupancy\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.PricedListings > 0 {
		fmt.Fprintf(w, "  Average nightly price : \033[1;32m%.2f\033[0m\n", r.AveragePrice)
		fmt.Fprintf(w, "  Average occ_rate_30   : \033[1;32m%.2f%%\033[0m\n", r.AverageOccupancy*100)
		fmt.Fprintf(w, "  Revenue proxy (90d)   : \033[1;32m%.2f\033[0m\n", r.TotalRevenue)
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  By Quarter\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	quarters := make([]string, 0, len(r.ByQuarter))
	for q := range r.ByQuarter {
		quarters = append(quarters, q)
	}
	sort.Strings(quarters)
	for _, q := range quarters {
		qs := r.ByQuarter[q]
		fmt.Fprintf(w, "  %-8s %6d listings  %6d active  avg %9.2f  revenue %14.2f\n",
			q, qs.Listings, qs.Active, qs.AveragePrice, qs.Revenue)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Top Neighbourhoods by Revenue Proxy\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.TopNeighbourhoods) == 0 {
		fmt.Fprintf(w, "  No revenue data\n")
	}
	for i, h := range r.TopNeighbourhoods {
		fmt.Fprintf(w, "  \033[1m%d.\033[0m %-30s %14.2f (%d)\n", i+1, truncate(h.Neighbourhood, 28), h.Revenue, h.Listings)
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}

func round4(f float64) float64 {
	return float64(int64(f*10000+0.5)) / 10000
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
