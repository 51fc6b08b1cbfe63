package portalapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
	"github.com/talkincode/toughportal/internal/webserver"
)

const defaultContactLimit = 5

type contactQuery struct {
	Limit int `query:"limit" validate:"omitempty,min=1,max=500"`
}

func registerContactRoutes() {
	webserver.ApiGET("/contacts", listContacts)
	webserver.ApiGET("/contacts/export", exportContacts)
}

func listContacts(c echo.Context) error {
	var q contactQuery
	if err := c.Bind(&q); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid query parameters")
	}
	if err := c.Validate(&q); err != nil {
		return fail(c, http.StatusBadRequest, "limit must be between 1 and 500")
	}
	if q.Limit == 0 {
		q.Limit = defaultContactLimit
	}

	contacts, err := appCtx.Contacts().Recent(c.Request().Context(), q.Limit)
	if err != nil {
		return fail(c, http.StatusInternalServerError, err.Error())
	}
	return ok(c, contacts)
}

func exportContacts(c echo.Context) error {
	contacts, err := appCtx.Contacts().All(c.Request().Context())
	if err != nil {
		return fail(c, http.StatusInternalServerError, err.Error())
	}

	data, err := gocsv.MarshalBytes(contacts)
	if err != nil {
		return fail(c, http.StatusInternalServerError, err.Error())
	}

	filename := fmt.Sprintf("hotspot_contacts_%s.csv", time.Now().Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", data)
}
