package portalapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/toughportal/internal/webserver"
	"github.com/talkincode/toughportal/pkg/metrics"
)

func registerHealthRoutes() {
	webserver.ApiGET("/health", getHealth)
}

func getHealth(c echo.Context) error {
	sqlDB, err := appCtx.DB().DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request().Context())
	}
	if err != nil {
		return fail(c, http.StatusServiceUnavailable, "database unavailable: "+err.Error())
	}

	return ok(c, map[string]interface{}{
		"database":         "ok",
		"register_total":   metrics.Counter(metrics.RegisterTotal),
		"register_failed":  metrics.Counter(metrics.RegisterFailed),
		"contact_warnings": metrics.Counter(metrics.ContactWarnings),
	})
}
