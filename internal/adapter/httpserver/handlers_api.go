package httpserver

import (
	"fmt"
	"net/http"

	apperrors "github.com/haibadguy/websocket-vs-sse/internal/platform/errors"
	"github.com/labstack/echo/v4"
)

type latencyRequest struct {
	Min *int `json:"min"`
	Max *int `json:"max"`
}

type lossRequest struct {
	Percent *float64 `json:"percent"`
}

func (s *Server) registerAPIRoutes() {
	api := s.echo.Group("/api", s.corsMiddleware())
	api.GET("/stats", s.handleStats)

	simulate := api.Group("/simulate", newRateLimiter(s.config.ControlRate, s.config.ControlBurst))
	simulate.POST("/outage", s.handleToggleOutage)
	simulate.POST("/latency", s.handleSetLatency)
	simulate.POST("/loss", s.handleSetLoss)
	simulate.GET("", s.handleSimulation)
}

func (s *Server) handleStats(c echo.Context) error {
	if err := c.JSON(http.StatusOK, s.stats.Snapshot()); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleSimulation(c echo.Context) error {
	if err := c.JSON(http.StatusOK, s.simulator.Params()); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleToggleOutage(c echo.Context) error {
	outage := s.simulator.ToggleOutage()
	if err := c.JSON(http.StatusOK, map[string]bool{"outage": outage}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleSetLatency(c echo.Context) error {
	var req latencyRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid JSON body")
	}
	if req.Min == nil || req.Max == nil {
		return apperrors.ValidationError("min and max are required")
	}

	params, err := s.simulator.SetLatencyRange(*req.Min, *req.Max)
	if err != nil {
		return apperrors.ValidationError(err.Error()).
			WithField("min", *req.Min).
			WithField("max", *req.Max)
	}

	if err := c.JSON(http.StatusOK, params); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleSetLoss(c echo.Context) error {
	var req lossRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid JSON body")
	}
	if req.Percent == nil {
		return apperrors.ValidationError("percent is required")
	}

	params, err := s.simulator.SetLossPercent(*req.Percent)
	if err != nil {
		return apperrors.ValidationError(err.Error()).WithField("percent", *req.Percent)
	}

	if err := c.JSON(http.StatusOK, params); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
