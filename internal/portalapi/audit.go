package portalapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/toughportal/internal/webserver"
	"github.com/talkincode/toughportal/pkg/metrics"
)

type registerLogQuery struct {
	Username string `query:"username" validate:"required"`
}

type metricQuery struct {
	Name    string `query:"name" validate:"required,oneof=portal_register_total portal_register_failed portal_contact_warnings portal_activate_warnings system_cpuuse system_memuse toughportal_cpuuse toughportal_memuse"`
	Minutes int    `query:"minutes" validate:"omitempty,min=1,max=10080"`
}

type metricPoint struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

func registerAuditRoutes() {
	webserver.ApiGET("/register-logs", listRegisterLogs)
	webserver.ApiGET("/metrics", queryMetric)
}

func listRegisterLogs(c echo.Context) error {
	var q registerLogQuery
	if err := c.Bind(&q); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid query parameters")
	}
	if err := c.Validate(&q); err != nil {
		return fail(c, http.StatusBadRequest, "username is required")
	}

	logs, err := appCtx.RegisterLogs().GetByUsername(c.Request().Context(), q.Username)
	if err != nil {
		return fail(c, http.StatusInternalServerError, err.Error())
	}
	return ok(c, logs)
}

func queryMetric(c echo.Context) error {
	var q metricQuery
	if err := c.Bind(&q); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid query parameters")
	}
	if err := c.Validate(&q); err != nil {
		return fail(c, http.StatusBadRequest, "unknown metric or minutes out of range")
	}
	if q.Minutes == 0 {
		q.Minutes = 60
	}

	end := time.Now().Add(time.Second)
	points, err := metrics.Query(q.Name, end.Add(-time.Duration(q.Minutes)*time.Minute), end)
	if err != nil {
		return fail(c, http.StatusInternalServerError, err.Error())
	}
	series := make([]metricPoint, 0, len(points))
	for _, p := range points {
		series = append(series, metricPoint{Time: p.Timestamp, Value: p.Value})
	}
	return ok(c, series)
}
