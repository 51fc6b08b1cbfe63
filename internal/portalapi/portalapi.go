package portalapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/toughportal/internal/app"
)

var appCtx app.AppContext

// Init registers the portal routes on the global web server.
func Init(ctx app.AppContext) {
	appCtx = ctx
	registerRegisterRoutes()
	registerContactRoutes()
	registerHealthRoutes()
	registerAuditRoutes()
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "data": data})
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]interface{}{"success": false, "error": msg})
}
