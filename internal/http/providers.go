package http

import (
	"net/http"

	"github.com/jmehdipour/messaging-gateway/internal/repository"
	"github.com/labstack/echo/v4"
)

func listProvidersHandler(repo repository.ProvidersRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		rows, err := repo.List(c.Request().Context())
		if err != nil {
			c.Logger().Errorf("list providers: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		out := make([]map[string]any, 0, len(rows))
		for _, p := range rows {
			out = append(out, map[string]any{"id": p.ID, "name": p.Name, "type": p.Type.String()})
		}
		return c.JSON(http.StatusOK, out)
	}
}
