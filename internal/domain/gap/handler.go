package gap

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nexahealth/qscore/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/gaps/import", h.ImportCSV)
	api.GET("/gaps", h.ListGaps)
	api.GET("/gaps/export", h.ExportCSV)
	api.GET("/gaps/summary", h.Summary)
	api.GET("/gaps/clinics", h.Clinics)
	api.GET("/gaps/measures", h.Measures)
	api.POST("/gaps/outreach", h.BulkEnqueue)
}

// ImportCSV accepts either a multipart upload under the "file" field or
// a raw CSV body.
func (h *Handler) ImportCSV(c echo.Context) error {
	replace := c.QueryParam("replace") == "true"

	body := c.Request().Body
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "open upload: "+err.Error())
		}
		defer f.Close()
		body = f
	}

	report, err := h.svc.ImportCSV(c.Request().Context(), body, replace)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) ListGaps(c echo.Context) error {
	pg := pagination.FromContext(c)
	filter := ListFilter{
		Clinic:           c.QueryParam("clinic"),
		MeasureCode:      c.QueryParam("measure"),
		OnlyNonCompliant: c.QueryParam("non_compliant") == "true",
	}
	items, total, err := h.svc.ListGaps(c.Request().Context(), filter, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ExportCSV(c echo.Context) error {
	filter := ListFilter{
		Clinic:           c.QueryParam("clinic"),
		MeasureCode:      c.QueryParam("measure"),
		OnlyNonCompliant: c.QueryParam("non_compliant") == "true",
	}
	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="gaps_export.csv"`)
	c.Response().WriteHeader(http.StatusOK)
	return h.svc.ExportCSV(c.Request().Context(), filter, c.Response())
}

func (h *Handler) Summary(c echo.Context) error {
	summaries, err := h.svc.Summary(c.Request().Context(), c.QueryParam("clinic"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, summaries)
}

func (h *Handler) Clinics(c echo.Context) error {
	clinics, err := h.svc.Clinics(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, clinics)
}

func (h *Handler) Measures(c echo.Context) error {
	measures, err := h.svc.Measures(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, measures)
}

type bulkEnqueueRequest struct {
	Clinic  string `json:"clinic"`
	Measure string `json:"measure"`
	Channel string `json:"channel"`
}

func (h *Handler) BulkEnqueue(c echo.Context) error {
	var req bulkEnqueueRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	report, err := h.svc.BulkEnqueue(c.Request().Context(), ListFilter{
		Clinic:      req.Clinic,
		MeasureCode: req.Measure,
	}, req.Channel)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}
