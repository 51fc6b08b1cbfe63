package portalapi

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/toughportal/internal/portal"
	"github.com/talkincode/toughportal/internal/webserver"
)

func registerRegisterRoutes() {
	webserver.ApiPOST("/register", postRegister)
}

func postRegister(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return fail(c, http.StatusBadRequest, "Failed to read request body")
	}

	req, err := portal.ParseRequest(c.Request().Header.Get(echo.HeaderContentType), body)
	if err != nil {
		return fail(c, portal.StatusCode(err), err.Error())
	}

	result, err := appCtx.Registrar().Register(c.Request().Context(), req)
	if err != nil {
		return fail(c, portal.StatusCode(err), err.Error())
	}

	resp := result.Response
	if resp.Location != "" {
		return c.Redirect(resp.Status, resp.Location)
	}
	return c.Blob(resp.Status, resp.ContentType, resp.Body)
}
