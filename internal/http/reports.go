package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/jmehdipour/messaging-gateway/internal/model"
	"github.com/jmehdipour/messaging-gateway/internal/repository"
	"github.com/jmehdipour/messaging-gateway/internal/util"
	echo "github.com/labstack/echo/v4"
)

func listReportsHandler(chRepo repository.CHMessagesRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		f := repository.ReportFilter{Limit: 50}
		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				f.Limit = n
			}
		}
		if v := c.QueryParam("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				f.Offset = n
			}
		}

		if raw := strings.TrimSpace(c.QueryParam("direction")); raw != "" {
			d := model.Direction(strings.ToLower(raw))
			if !d.Valid() {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid direction"})
			}
			f.Direction = d.String()
		}

		if raw := c.QueryParam("type"); raw != "" {
			t, ok := model.ParseMessageType(raw)
			if !ok {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid type"})
			}
			f.Type = t.String()
		}

		if raw := strings.TrimSpace(c.QueryParam("address")); raw != "" {
			f.Address = strings.ToLower(raw)
			if p, ok := util.NormalizePhone(raw); ok {
				f.Address = p
			}
		}

		if raw := c.QueryParam("delivered"); raw != "" {
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid delivered flag"})
			}
			f.Delivered = &b
		}

		rows, err := chRepo.List(c.Request().Context(), f)
		if err != nil {
			c.Logger().Errorf("clickhouse list failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   f.Limit,
			"offset":  f.Offset,
			"count":   len(rows),
			"results": rows,
		})
	}
}
