package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type referenceApi struct {
	refs References
}

func registerReferenceAPI(g *echo.Group, refs References) {
	api := referenceApi{refs: refs}
	g.GET("/reference/:kind", api.retrieve)
}

func (api *referenceApi) retrieve(ctx echo.Context) error {
	data, err := api.refs.Lookup(ctx.Request().Context(), ctx.Param("kind"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, data)
}
