// Package landing serves the unauthenticated patient-facing pages
// reached through magic links: the care-action menu, the reading and
// referral forms, and the thank-you page.
package landing

import (
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/nexahealth/qscore/internal/domain/measure"
	"github.com/nexahealth/qscore/internal/domain/outreach"
	"github.com/nexahealth/qscore/internal/platform/magiclink"
)

type Handler struct {
	svc *outreach.Service
	log zerolog.Logger
}

func NewHandler(svc *outreach.Service, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// RegisterRoutes mounts the landing pages at the server root so links
// stay short.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/go", h.Menu)
	e.GET("/bp", h.BPForm)
	e.POST("/bp", h.BPSubmit)
	e.GET("/referral", h.ReferralForm)
	e.POST("/referral", h.ReferralSubmit)
	e.GET("/thanks", h.Thanks)
}

func renderHTML(c echo.Context, status int, t *template.Template, data interface{}) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(status)
	return t.ExecuteTemplate(c.Response(), "base", data)
}

// linkError renders the one generic 401 page for every token problem.
// Expired and invalid are never distinguished to the patient.
func (h *Handler) linkError(c echo.Context) error {
	return renderHTML(c, http.StatusUnauthorized, linkErrorTmpl, nil)
}

func isTokenError(err error) bool {
	return errors.Is(err, magiclink.ErrInvalidToken) || errors.Is(err, magiclink.ErrExpiredToken)
}

func (h *Handler) Menu(c echo.Context) error {
	result, err := h.svc.HandleClick(c.Request().Context(), c.QueryParam("t"))
	if err != nil {
		if isTokenError(err) {
			return h.linkError(c)
		}
		return err
	}
	return renderHTML(c, http.StatusOK, menuTmpl, result)
}

type formData struct {
	Token string
}

func (h *Handler) BPForm(c echo.Context) error {
	token := c.QueryParam("t")
	if err := h.svc.VerifyToken(token); err != nil {
		return h.linkError(c)
	}
	return renderHTML(c, http.StatusOK, bpFormTmpl, formData{Token: token})
}

func (h *Handler) BPSubmit(c echo.Context) error {
	token := c.FormValue("t")
	sys, errSys := strconv.Atoi(c.FormValue("sys"))
	dia, errDia := strconv.Atoi(c.FormValue("dia"))
	if errSys != nil || errDia != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "systolic and diastolic must be numbers")
	}

	_, err := h.svc.HandleReadingSubmission(c.Request().Context(), token, measure.Reading{Systolic: sys, Diastolic: dia})
	if err != nil {
		if isTokenError(err) {
			return h.linkError(c)
		}
		h.log.Error().Err(err).Msg("reading submission failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "could not record reading")
	}
	return c.Redirect(http.StatusSeeOther, "/thanks")
}

func (h *Handler) ReferralForm(c echo.Context) error {
	token := c.QueryParam("t")
	if err := h.svc.VerifyToken(token); err != nil {
		return h.linkError(c)
	}
	return renderHTML(c, http.StatusOK, referralTmpl, formData{Token: token})
}

func (h *Handler) ReferralSubmit(c echo.Context) error {
	token := c.FormValue("t")
	reason := c.FormValue("reason")
	if reason == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "reason is required")
	}

	err := h.svc.HandleReferralSubmission(c.Request().Context(), token, reason, c.FormValue("ft"))
	if err != nil {
		if isTokenError(err) {
			return h.linkError(c)
		}
		h.log.Error().Err(err).Msg("referral submission failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "could not file referral request")
	}
	return c.Redirect(http.StatusSeeOther, "/thanks")
}

func (h *Handler) Thanks(c echo.Context) error {
	return renderHTML(c, http.StatusOK, thanksTmpl, nil)
}
