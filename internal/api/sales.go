package api

import (
	"net/http"
	"time"

	"github.com/go-kit/log/level"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"salesboard/internal/engine"
	"salesboard/internal/models"
)

// GetSalesOptions lists the choices of the sales page widgets. The UI
// selects all of them by default.
func (h *Handler) GetSalesOptions(c echo.Context) error {
	d, err := h.dataset(c)
	if err != nil {
		return err
	}
	t, _, err := engine.SalesSchema.Bind(d.Table)
	if err != nil {
		return err
	}

	var opts models.SalesOptions
	for col, dst := range map[string]*[]models.Value{
		engine.ColClient:      &opts.Clients,
		engine.ColSalesperson: &opts.Salespeople,
		engine.ColPayment:     &opts.PaymentMethods,
	} {
		if *dst, err = engine.Distinct(t, col); err != nil {
			return err
		}
	}
	dates, err := engine.Distinct(t, engine.ColIssued)
	if err != nil {
		return err
	}
	if len(dates) > 0 {
		opts.From, opts.To = dates[0], dates[len(dates)-1]
	}
	return c.JSON(http.StatusOK, opts)
}

func (h *Handler) salesFilter(t *models.Table, f models.SalesFilters) (engine.FilterSpec, error) {
	var spec engine.FilterSpec
	for _, sel := range []struct {
		col     string
		allowed []string
	}{
		{engine.ColClient, f.Clients},
		{engine.ColSalesperson, f.Salespeople},
		{engine.ColPayment, f.PaymentMethods},
	} {
		if sel.allowed != nil {
			spec.Add(engine.In{Col: sel.col, Allowed: sel.allowed})
		}
	}

	if f.From != "" || f.To != "" {
		dates, err := engine.Distinct(t, engine.ColIssued)
		if err != nil {
			return spec, err
		}
		var from, to time.Time
		if len(dates) > 0 {
			from, _ = dates[0].Time()
			to, _ = dates[len(dates)-1].Time()
		}
		if f.From != "" {
			d, ok := engine.ParseDate(f.From)
			if !ok {
				return spec, echo.NewHTTPError(http.StatusBadRequest, "invalid from date "+f.From)
			}
			from = d
		}
		if f.To != "" {
			d, ok := engine.ParseDate(f.To)
			if !ok {
				return spec, echo.NewHTTPError(http.StatusBadRequest, "invalid to date "+f.To)
			}
			to = d
		}
		spec.Add(engine.DateRange{Col: engine.ColIssued, Start: from, End: to})
	}

	include := f.IncludeCancelled == nil || *f.IncludeCancelled
	spec.Add(engine.Exclude{Col: engine.ColPayment, Value: h.cfg.Sales.CancelledPayment, Include: include})
	return spec, nil
}

// PostSales builds the sales dashboard for the filters in the body.
func (h *Handler) PostSales(c echo.Context) error {
	d, err := h.dataset(c)
	if err != nil {
		return err
	}
	var f models.SalesFilters
	if err := c.Bind(&f); err != nil {
		return err
	}

	t, diags, err := engine.SalesSchema.Bind(d.Table)
	if err != nil {
		return err
	}
	spec, err := h.salesFilter(t, f)
	if err != nil {
		return err
	}
	filtered, fdiags, err := engine.Apply(t, spec)
	if err != nil {
		return err
	}
	diags = append(diags, fdiags...)

	out := models.SalesDashboard{Rows: filtered.Len()}

	byClient, err := engine.GroupSum(filtered, []string{engine.ColClient}, engine.ColValue, engine.ByValueDesc)
	if err != nil {
		return err
	}
	out.ByClient = summaryChart("bar", "Vendas por Cliente", engine.ColClient, engine.ColValue, byClient)
	diags = append(diags, byClient.Diagnostics...)

	overTime, err := engine.GroupSum(filtered, []string{engine.ColIssued, engine.ColSalesperson}, engine.ColValue, engine.Chronological)
	if err != nil {
		return err
	}
	named := engine.Relabel(overTime, engine.ColSalesperson, h.cfg.Sales.Salespeople, !h.cfg.Sales.OnlyNamedSalespeople)
	engine.Sort(named, engine.Chronological)
	out.SalespeopleOverTime = splitChart("line", "Desempenho dos Vendedores ao Longo do Tempo", engine.ColIssued, engine.ColValue, engine.ColSalesperson, named)
	for _, dg := range named.Diagnostics {
		if dg.Row < 0 {
			diags = append(diags, dg)
		}
	}

	bySalesperson, err := engine.GroupSum(filtered, []string{engine.ColSalesperson}, engine.ColValue, engine.ByKeyAsc)
	if err != nil {
		return err
	}
	out.BySalesperson = summaryChart("pie", "Vendas por Vendedor", engine.ColSalesperson, engine.ColValue, bySalesperson)

	byOperation, err := engine.GroupSum(filtered, []string{engine.ColOperation}, engine.ColValue, engine.ByKeyAsc)
	if err != nil {
		return err
	}
	out.ByOperation = summaryChart("pie", "Distribuição das Formas de Pagamento", engine.ColOperation, engine.ColValue, byOperation)

	forecast, fcDiags, err := h.salesForecast(filtered)
	var insufficient *engine.InsufficientDataError
	switch {
	case errors.As(err, &insufficient):
		out.ForecastWarning = insufficient.Error()
	case err != nil:
		level.Warn(h.logger).Log("msg", "forecast failed", "dataset", d.ID, "err", err)
		out.ForecastWarning = "forecast failed: " + err.Error()
	default:
		out.Forecast = forecast
	}
	diags = append(diags, fcDiags...)

	out.Diagnostics = diags
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) salesForecast(filtered *models.Table) (*models.ForecastChart, models.Diagnostics, error) {
	sales, _, err := engine.Apply(filtered, engine.FilterSpec{Predicates: []engine.Predicate{
		engine.In{Col: engine.ColOperation, Allowed: []string{h.cfg.Sales.SaleOperation}},
	}})
	if err != nil {
		return nil, nil, err
	}
	history, diags, err := engine.DailySeries(sales, engine.ColIssued, engine.ColValue)
	if err != nil {
		return nil, diags, err
	}
	points, err := engine.Forecast(h.forecaster, history, h.cfg.Forecast.MinHistory, h.cfg.Forecast.Horizon)
	if err != nil {
		return nil, diags, err
	}
	return &models.ForecastChart{
		Title:    "Projeção de Vendas Futuras",
		Sales:    sales.Len(),
		History:  history,
		Forecast: points,
	}, diags, nil
}
