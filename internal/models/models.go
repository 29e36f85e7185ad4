package models

import "time"

type DatasetInfo struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Columns  []string  `json:"columns"`
	Rows     int       `json:"rows"`
	Uploaded time.Time `json:"uploaded_at"`
}

type RowsPage struct {
	Columns []string           `json:"columns"`
	Data    []map[string]Value `json:"data"`
	Total   int                `json:"total"`
	Limit   int                `json:"limit"`
	Offset  int                `json:"offset"`
}

// ChartSpec is a declarative chart handed to the browser for rendering.
type ChartSpec struct {
	Kind   string   `json:"kind"` // bar, line, pie, scatter
	Title  string   `json:"title"`
	X      string   `json:"x"`
	Y      string   `json:"y"`
	Color  string   `json:"color,omitempty"`
	Series []Series `json:"series"`
}

type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

type Point struct {
	X Value   `json:"x"`
	Y float64 `json:"y"`
}

// SalesFilters are the sidebar selections of the sales page. A nil list
// means the widget was left at its default (everything selected).
type SalesFilters struct {
	Clients          []string `json:"clients"`
	Salespeople      []string `json:"salespeople"`
	PaymentMethods   []string `json:"payment_methods"`
	From             string   `json:"from"`
	To               string   `json:"to"`
	IncludeCancelled *bool    `json:"include_cancelled"`
}

type SalesOptions struct {
	Clients        []Value `json:"clients"`
	Salespeople    []Value `json:"salespeople"`
	PaymentMethods []Value `json:"payment_methods"`
	From           Value   `json:"from"`
	To             Value   `json:"to"`
}

type SalesDashboard struct {
	Rows                int            `json:"rows"`
	ByClient            ChartSpec      `json:"by_client"`
	SalespeopleOverTime ChartSpec      `json:"salespeople_over_time"`
	BySalesperson       ChartSpec      `json:"by_salesperson"`
	ByOperation         ChartSpec      `json:"by_operation"`
	Forecast            *ForecastChart `json:"forecast,omitempty"`
	ForecastWarning     string         `json:"forecast_warning,omitempty"`
	Diagnostics         Diagnostics    `json:"diagnostics,omitempty"`
}

type SeriesPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

type ForecastPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
	Lower float64   `json:"lower"`
	Upper float64   `json:"upper"`
}

type ForecastChart struct {
	Title    string          `json:"title"`
	Sales    int             `json:"sales"`
	History  []SeriesPoint   `json:"history"`
	Forecast []ForecastPoint `json:"forecast"`
}

type CarrierFilters struct {
	Carriers []string `json:"carriers"`
}

type CarrierReport struct {
	Rows          int        `json:"rows"`
	Usage         ChartSpec  `json:"usage"`
	UsageOverTime *ChartSpec `json:"usage_over_time,omitempty"`
	Warning       string     `json:"warning,omitempty"`
}

type RegionMetrics struct {
	States     int     `json:"states"`
	Cities     int     `json:"cities"`
	TotalSales float64 `json:"total_sales"`
	TotalLabel string  `json:"total_label"`
}

type MapPoint struct {
	City      string  `json:"city"`
	State     string  `json:"state"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Value     Value   `json:"value"`
}

type UnresolvedRows struct {
	Count int                `json:"count"`
	Rows  []map[string]Value `json:"rows"`
}

type RegionReport struct {
	Metrics            RegionMetrics  `json:"metrics"`
	Points             []MapPoint     `json:"points"`
	ClientsByState     ChartSpec      `json:"clients_by_state"`
	TopCitiesByClients ChartSpec      `json:"top_cities_by_clients"`
	SalesByState       ChartSpec      `json:"sales_by_state"`
	TopCitiesBySales   ChartSpec      `json:"top_cities_by_sales"`
	Unresolved         UnresolvedRows `json:"unresolved"`
	Invalid            int            `json:"invalid"`
	Diagnostics        Diagnostics    `json:"diagnostics,omitempty"`
}

type ChatRequest struct {
	Question string `json:"question"`
}

type ChatAnswer struct {
	Answer    string `json:"answer"`
	Truncated bool   `json:"truncated,omitempty"`
}
