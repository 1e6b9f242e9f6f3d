package models

// SummaryReport holds the computed analytics over the cleaned dataset.
type SummaryReport struct {
	TotalListings     int
	ActiveListings    int
	InactiveListings  int
	PricedListings    int
	AveragePrice      float64
	AverageOccupancy  float64
	TotalRevenue      float64
	ByQuarter         map[string]*QuarterSummary
	TopNeighbourhoods []NeighbourhoodRevenue
}

// QuarterSummary aggregates one reporting period.
type QuarterSummary struct {
	Listings     int
	Active       int
	AveragePrice float64
	Revenue      float64
}

// NeighbourhoodRevenue is one row of the revenue-proxy ranking.
type NeighbourhoodRevenue struct {
	Neighbourhood string
	Listings      int
	Revenue       float64
}
