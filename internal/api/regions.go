package api

import (
	"net/http"

	"github.com/go-kit/log/level"
	"github.com/labstack/echo/v4"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"salesboard/internal/engine"
	"salesboard/internal/geo"
	"salesboard/internal/models"
)

var brl = message.NewPrinter(language.BrazilianPortuguese)

// PostRegions geocodes every sale by city and state and summarizes sales
// per region. Rows that cannot be placed on the map are returned, not
// silently dropped.
func (h *Handler) PostRegions(c echo.Context) error {
	d, err := h.dataset(c)
	if err != nil {
		return err
	}
	t, diags, err := engine.RegionSchema.Bind(d.Table)
	if err != nil {
		return err
	}

	var spec engine.FilterSpec
	for _, city := range h.cfg.Region.ExcludedCities {
		spec.Add(engine.Exclude{Col: engine.ColCity, Value: city})
	}
	filtered, _, err := engine.Apply(t, spec)
	if err != nil {
		return err
	}

	located, err := geo.Locate(c.Request().Context(), h.geo, filtered, engine.ColCity, engine.ColState)
	if err != nil {
		return err
	}
	if n := located.Unresolved.Len(); n > 0 {
		level.Info(h.logger).Log("msg", "rows could not be geocoded", "dataset", d.ID, "rows", n, "invalid", located.Invalid)
	}

	lt := located.Table
	out := models.RegionReport{
		Points:      make([]models.MapPoint, 0, lt.Len()),
		Invalid:     located.Invalid,
		Diagnostics: diags,
		Unresolved: models.UnresolvedRows{
			Count: located.Unresolved.Len(),
			Rows:  located.Unresolved.Records(),
		},
	}
	for i := 0; i < lt.Len(); i++ {
		lat, _ := lt.Value(i, geo.ColLatitude).Float()
		lon, _ := lt.Value(i, geo.ColLongitude).Float()
		out.Points = append(out.Points, models.MapPoint{
			City:      lt.Value(i, engine.ColCity).Key(),
			State:     lt.Value(i, engine.ColState).Key(),
			Latitude:  lat,
			Longitude: lon,
			Value:     lt.Value(i, engine.ColValue),
		})
	}

	clientsByState, err := engine.GroupCount(lt, []string{engine.ColState}, engine.ByValueDesc)
	if err != nil {
		return err
	}
	clientsByCity, err := engine.GroupCount(lt, []string{engine.ColCity}, engine.ByValueDesc)
	if err != nil {
		return err
	}
	salesByState, err := engine.GroupSum(lt, []string{engine.ColState}, engine.ColValue, engine.ByValueDesc)
	if err != nil {
		return err
	}
	salesByCity, err := engine.GroupSum(lt, []string{engine.ColCity}, engine.ColValue, engine.ByValueDesc)
	if err != nil {
		return err
	}
	out.Diagnostics = append(out.Diagnostics, salesByState.Diagnostics...)

	total := salesByState.Total()
	out.Metrics = models.RegionMetrics{
		States:     clientsByState.Len(),
		Cities:     clientsByCity.Len(),
		TotalSales: total,
		TotalLabel: brl.Sprintf("R$ %.2f", total),
	}
	out.ClientsByState = summaryChart("pie", "Clientes por Estado", "Estado", "Clientes", clientsByState)
	out.TopCitiesByClients = summaryChart("bar", "Top 5 Cidades com Mais Clientes", "Cidade", "Clientes", clientsByCity.Top(5))
	out.SalesByState = summaryChart("pie", "Valor Total de Vendas por Estado", engine.ColState, engine.ColValue, salesByState)
	out.TopCitiesBySales = summaryChart("bar", "Top 5 Cidades por Valor de Venda", engine.ColCity, engine.ColValue, salesByCity.Top(5))
	return c.JSON(http.StatusOK, out)
}
