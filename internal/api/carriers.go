package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"salesboard/internal/engine"
	"salesboard/internal/models"
)

// PostCarriers counts how often each selected carrier was used, overall and
// per DATA when the file has that column.
func (h *Handler) PostCarriers(c echo.Context) error {
	d, err := h.dataset(c)
	if err != nil {
		return err
	}
	var f models.CarrierFilters
	if err := c.Bind(&f); err != nil {
		return err
	}

	t, _, err := engine.CarrierSchema.Bind(d.Table)
	if err != nil {
		return err
	}
	var spec engine.FilterSpec
	if f.Carriers != nil {
		spec.Add(engine.In{Col: engine.ColCarrier, Allowed: f.Carriers})
	}
	filtered, _, err := engine.Apply(t, spec)
	if err != nil {
		return err
	}

	usage, err := engine.GroupCount(filtered, []string{engine.ColCarrier}, engine.ByValueDesc)
	if err != nil {
		return err
	}
	out := models.CarrierReport{
		Rows:  filtered.Len(),
		Usage: summaryChart("bar", "Número de Utilizações", engine.ColCarrier, "Número de Utilizações", usage),
	}

	if !filtered.Has(engine.ColDate) {
		out.Warning = "column \"DATA\" is missing; usage over time is not available"
		return c.JSON(http.StatusOK, out)
	}
	perDay, err := engine.GroupCount(filtered, []string{engine.ColDate, engine.ColCarrier}, engine.Chronological)
	if err != nil {
		return err
	}
	overTime := splitChart("line", "Utilizações por Data", engine.ColDate, "Número de Utilizações", engine.ColCarrier, perDay)
	out.UsageOverTime = &overTime
	if undated := filtered.Len() - countDated(perDay); undated > 0 {
		out.Warning = "rows without a valid DATA were left out of usage over time"
	}
	return c.JSON(http.StatusOK, out)
}

func countDated(s *models.SummaryTable) int {
	n := 0
	for _, r := range s.Rows {
		if !r.Key[0].IsNull() {
			n += r.Count
		}
	}
	return n
}
