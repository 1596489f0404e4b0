package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	forecastdomain "github.com/smallbiznis/greentrack/internal/forecast/domain"
)

const defaultForecastHorizon = 1

func (s *Server) GetForecast(c *gin.Context) {
	var query struct {
		Scope   string `form:"scope"`
		Horizon string `form:"horizon"`
		Window  string `form:"window"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	scope, err := forecastdomain.ParseScope(strings.TrimSpace(query.Scope))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	horizon, err := parseOptionalInt(query.Horizon)
	if err != nil {
		AbortWithError(c, newValidationError("horizon", "invalid_horizon", "invalid horizon"))
		return
	}
	window, err := parseOptionalInt(query.Window)
	if err != nil {
		AbortWithError(c, newValidationError("window", "invalid_window", "invalid window"))
		return
	}

	req := forecastdomain.Request{Scope: scope, HorizonMonths: defaultForecastHorizon}
	if horizon != nil {
		req.HorizonMonths = *horizon
	}
	if window != nil {
		req.WindowMonths = *window
	}
	if scope.ProgramID != nil {
		setProgramID(c, scope.ProgramID.String())
	}

	resp, err := s.tracker.RequestForecast(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
