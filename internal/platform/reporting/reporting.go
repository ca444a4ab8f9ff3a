// Package reporting exposes predefined SQL reports over the outreach
// ledger, gap data, and readings.
package reporting

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// ReportDefinition defines a reporting query.
type ReportDefinition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SQL         string `json:"sql"`
}

// Report holds the results of evaluating a report.
type Report struct {
	ReportID    string                   `json:"report_id"`
	ReportName  string                   `json:"report_name"`
	GeneratedAt time.Time                `json:"generated_at"`
	Results     []map[string]interface{} `json:"results"`
}

// PredefinedReports is the list of available reports.
var PredefinedReports = []ReportDefinition{
	{
		ID:          "compliance-rate-by-measure",
		Name:        "Compliance Rate by Measure",
		Description: "Share of gap rows marked compliant, per quality measure",
		SQL: `SELECT measure_code, COUNT(*) AS patients,
			SUM(CASE WHEN compliant THEN 1 ELSE 0 END) AS compliant,
			ROUND(AVG(CASE WHEN compliant THEN 1.0 ELSE 0.0 END), 3) AS rate
		FROM measure_gap GROUP BY measure_code ORDER BY measure_code`,
	},
	{
		ID:          "compliance-rate-by-clinic",
		Name:        "Compliance Rate by Clinic",
		Description: "Share of gap rows marked compliant, per clinic",
		SQL: `SELECT clinic, COUNT(*) AS patients,
			SUM(CASE WHEN compliant THEN 1 ELSE 0 END) AS compliant,
			ROUND(AVG(CASE WHEN compliant THEN 1.0 ELSE 0.0 END), 3) AS rate
		FROM measure_gap GROUP BY clinic ORDER BY clinic`,
	},
	{
		ID:          "monthly-compliance-trend",
		Name:        "Monthly Compliance Trend",
		Description: "Compliance rate per month and measure over the gap dataset",
		SQL: `SELECT DATE_TRUNC('month', recorded_at) AS month, measure_code,
			ROUND(AVG(CASE WHEN compliant THEN 1.0 ELSE 0.0 END), 3) AS rate
		FROM measure_gap GROUP BY month, measure_code ORDER BY month, measure_code`,
	},
	{
		ID:          "outreach-funnel",
		Name:        "Outreach Funnel",
		Description: "Outreach ledger counts by lifecycle status",
		SQL:         `SELECT status, COUNT(*) AS total FROM outreach GROUP BY status ORDER BY total DESC`,
	},
	{
		ID:          "readings-volume",
		Name:        "Readings Volume",
		Description: "Patient-submitted readings per day over the last 30 days",
		SQL: `SELECT DATE_TRUNC('day', reported_at) AS day, COUNT(*) AS total
		FROM clinical_reading WHERE reported_at > NOW() - INTERVAL '30 days'
		GROUP BY day ORDER BY day`,
	},
}

// Handler provides HTTP handlers for the reporting API.
type Handler struct {
	pool *pgxpool.Pool
}

func NewHandler(pool *pgxpool.Pool) *Handler {
	return &Handler{pool: pool}
}

// RegisterRoutes registers the reporting API routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/reports", h.ListReports)
	api.GET("/reports/:id/evaluate", h.EvaluateReport)
}

// ListReports returns all available report definitions.
func (h *Handler) ListReports(c echo.Context) error {
	return c.JSON(http.StatusOK, PredefinedReports)
}

// EvaluateReport executes a report's SQL and returns the results.
func (h *Handler) EvaluateReport(c echo.Context) error {
	def := FindReport(c.Param("id"))
	if def == nil {
		return echo.NewHTTPError(http.StatusNotFound, "report not found")
	}

	results, err := h.executeSQL(c.Request().Context(), def.SQL)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("query failed: %v", err))
	}

	return c.JSON(http.StatusOK, Report{
		ReportID:    def.ID,
		ReportName:  def.Name,
		GeneratedAt: time.Now(),
		Results:     results,
	})
}

// executeSQL runs a query and returns results as a slice of maps.
func (h *Handler) executeSQL(ctx context.Context, sql string) ([]map[string]interface{}, error) {
	rows, err := h.pool.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	var results []map[string]interface{}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(fieldDescs))
		for i, fd := range fieldDescs {
			row[string(fd.Name)] = values[i]
		}
		results = append(results, row)
	}

	if results == nil {
		results = []map[string]interface{}{}
	}
	return results, rows.Err()
}

// FindReport looks up a report by ID.
func FindReport(id string) *ReportDefinition {
	for i := range PredefinedReports {
		if PredefinedReports[i].ID == id {
			return &PredefinedReports[i]
		}
	}
	return nil
}
