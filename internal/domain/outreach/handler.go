package outreach

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
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
	api.POST("/outreach/enqueue", h.Enqueue)
	api.POST("/outreach/send-queued", h.SendQueued)
	api.GET("/outreach", h.ListOutreach)
	api.GET("/outreach/funnel", h.Funnel)
	api.GET("/outreach/:id", h.GetOutreach)
	api.POST("/outreach/:id/dispatched", h.MarkDispatched)
	api.POST("/outreach/:id/failed", h.MarkDispatchFailed)
}

func (h *Handler) Enqueue(c echo.Context) error {
	var req EnqueueRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	o, err := h.svc.Enqueue(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) SendQueued(c echo.Context) error {
	report, err := h.svc.SendQueued(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) ListOutreach(c echo.Context) error {
	pg := pagination.FromContext(c)
	filter := ListFilter{
		Status:      c.QueryParam("status"),
		PatientID:   c.QueryParam("patient_id"),
		MeasureCode: c.QueryParam("measure"),
	}
	items, total, err := h.svc.ListOutreach(c.Request().Context(), filter, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetOutreach(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	o, err := h.svc.GetOutreach(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "outreach not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, o)
}

type dispatchedRequest struct {
	ProviderMessageID string `json:"provider_message_id"`
}

func (h *Handler) MarkDispatched(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req dispatchedRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.MarkDispatched(c.Request().Context(), id, req.ProviderMessageID); err != nil {
		return transitionError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type failedRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) MarkDispatchFailed(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req failedRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.MarkDispatchFailed(c.Request().Context(), id, req.Reason); err != nil {
		return transitionError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Funnel(c echo.Context) error {
	counts, err := h.svc.Funnel(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, counts)
}

func transitionError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "outreach not found")
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, "outreach is not queued")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
