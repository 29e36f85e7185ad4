package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"salesboard/internal/config"
	"salesboard/internal/engine"
	"salesboard/internal/geo"
	"salesboard/internal/models"
)

// Asker answers questions about a table.
type Asker interface {
	Ask(ctx context.Context, t *models.Table, question string) (string, bool, error)
}

type Handler struct {
	cfg        config.Config
	store      *engine.Store
	geo        geo.Resolver
	chat       Asker
	forecaster engine.Forecaster
	logger     log.Logger

	uploads *prometheus.CounterVec
}

func NewHandler(cfg config.Config, store *engine.Store, resolver geo.Resolver, asker Asker, forecaster engine.Forecaster, logger log.Logger, reg prometheus.Registerer) *Handler {
	return &Handler{
		cfg:        cfg,
		store:      store,
		geo:        resolver,
		chat:       asker,
		forecaster: forecaster,
		logger:     logger,
		uploads: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "salesboard",
			Name:      "uploads_total",
			Help:      "Uploaded files by outcome (parsed, reused, rejected).",
		}, []string{"outcome"}),
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")
	api.POST("/datasets", h.UploadDataset)
	api.GET("/datasets/:id", h.GetDataset)
	api.GET("/datasets/:id/rows", h.GetRows)
	api.GET("/datasets/:id/chart", h.GetChart)
	api.GET("/datasets/:id/arrow", h.GetArrow)
	api.GET("/datasets/:id/sales/options", h.GetSalesOptions)
	api.POST("/datasets/:id/sales", h.PostSales)
	api.POST("/datasets/:id/carriers", h.PostCarriers)
	api.POST("/datasets/:id/regions", h.PostRegions)
	api.POST("/datasets/:id/chat", h.PostChat)
}

// --- HANDLERS ---
func getPaginationParams(c echo.Context, defaultLimit int) (int, int) {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	offset, err := strconv.Atoi(c.QueryParam("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (h *Handler) dataset(c echo.Context) (*engine.Dataset, error) {
	d, ok := h.store.Get(c.Param("id"))
	if !ok {
		return nil, echo.NewHTTPError(http.StatusNotFound, "dataset not found; upload the file again")
	}
	return d, nil
}

// UploadDataset accepts a multipart "file" field holding a .csv or .xlsx.
func (h *Handler) UploadDataset(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing upload field \"file\"").SetInternal(err)
	}
	if !engine.SupportedExtension(fh.Filename) {
		h.uploads.WithLabelValues("rejected").Inc()
		return &engine.ParseError{File: fh.Filename, Reason: "unsupported file type, expected .csv or .xlsx"}
	}
	if fh.Size > h.cfg.Server.MaxUploadBytes {
		h.uploads.WithLabelValues("rejected").Inc()
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
	}

	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	content, err := io.ReadAll(io.LimitReader(f, h.cfg.Server.MaxUploadBytes))
	if err != nil {
		return err
	}

	fp := engine.Fingerprint(fh.Filename, content)
	if d, ok := h.store.Lookup(fp); ok {
		h.uploads.WithLabelValues("reused").Inc()
		return c.JSON(http.StatusOK, d.Info())
	}

	t, err := engine.Load(bytes.NewReader(content), fh.Filename)
	if err != nil {
		h.uploads.WithLabelValues("rejected").Inc()
		return err
	}
	d := h.store.Add(fh.Filename, fp, t)
	h.uploads.WithLabelValues("parsed").Inc()
	level.Info(h.logger).Log("msg", "dataset uploaded", "id", d.ID, "file", d.Name, "rows", t.Len(), "columns", len(t.Columns()))
	return c.JSON(http.StatusCreated, d.Info())
}

func (h *Handler) GetDataset(c echo.Context) error {
	d, err := h.dataset(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d.Info())
}

// GetRows pages through the table, optionally keeping only the columns
// listed in ?columns=A,B.
func (h *Handler) GetRows(c echo.Context) error {
	d, err := h.dataset(c)
	if err != nil {
		return err
	}
	t := d.Table
	if cols := splitList(c.QueryParam("columns")); len(cols) > 0 {
		if t, err = engine.Project(t, cols); err != nil {
			return err
		}
	}

	total := t.Len()
	limit, offset := getPaginationParams(c, total)
	page := t.Slice(offset, limit)
	return c.JSON(http.StatusOK, models.RowsPage{
		Columns: t.Columns(),
		Data:    page.Records(),
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

type chartResponse struct {
	Chart   models.ChartSpec `json:"chart"`
	Skipped int              `json:"skipped"`
}

// GetChart plots column y against column x as kind (line, bar, scatter).
// Rows whose y is not a number are skipped and counted.
func (h *Handler) GetChart(c echo.Context) error {
	d, err := h.dataset(c)
	if err != nil {
		return err
	}
	x, y := c.QueryParam("x"), c.QueryParam("y")
	kind := c.QueryParam("kind")
	switch kind {
	case "":
		kind = "line"
	case "line", "bar", "scatter":
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "kind must be line, bar or scatter")
	}
	if x == "" || y == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "x and y columns are required")
	}
	t, err := engine.Project(d.Table, []string{x, y})
	if err != nil {
		return err
	}

	series := models.Series{Name: y, Points: make([]models.Point, 0, t.Len())}
	skipped := 0
	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		v, ok := row[1].Float()
		if !ok {
			skipped++
			continue
		}
		series.Points = append(series.Points, models.Point{X: row[0], Y: v})
	}
	return c.JSON(http.StatusOK, chartResponse{
		Chart: models.ChartSpec{
			Kind:   kind,
			Title:  "Gráfico de " + x + " vs " + y,
			X:      x,
			Y:      y,
			Series: []models.Series{series},
		},
		Skipped: skipped,
	})
}

// GetArrow streams the whole table in the Arrow IPC stream format.
func (h *Handler) GetArrow(c echo.Context) error {
	d, err := h.dataset(c)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := engine.WriteArrowStream(&buf, d.Table); err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "application/vnd.apache.arrow.stream", buf.Bytes())
}

func splitList(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}
