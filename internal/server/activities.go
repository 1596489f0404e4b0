package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	trackerdomain "github.com/smallbiznis/greentrack/internal/tracker/domain"
)

type recordActivityRequest struct {
	Name           string   `json:"name"`
	Category       string   `json:"category"`
	Intent         string   `json:"intent"`
	Quantity       float64  `json:"quantity"`
	Unit           string   `json:"unit"`
	Date           string   `json:"date"`
	EmissionFactor *float64 `json:"emission_factor"`
	ProgramID      string   `json:"program_id"`
	Source         string   `json:"source"`
	Notes          string   `json:"notes"`
}

type updateActivityRequest struct {
	Category       *string  `json:"category"`
	Intent         *string  `json:"intent"`
	Quantity       *float64 `json:"quantity"`
	Unit           *string  `json:"unit"`
	Date           *string  `json:"date"`
	EmissionFactor *float64 `json:"emission_factor"`
	ProgramID      *string  `json:"program_id"`
	Notes          *string  `json:"notes"`
}

func (s *Server) RecordActivity(c *gin.Context) {
	var req recordActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		AbortWithError(c, newValidationError("date", "invalid_date", "invalid date"))
		return
	}
	setProgramID(c, req.ProgramID)

	resp, err := s.tracker.RecordActivity(c.Request.Context(), trackerdomain.RecordActivityRequest{
		Name:           strings.TrimSpace(req.Name),
		Category:       req.Category,
		Intent:         req.Intent,
		Quantity:       req.Quantity,
		Unit:           req.Unit,
		Date:           date,
		EmissionFactor: req.EmissionFactor,
		ProgramID:      strings.TrimSpace(req.ProgramID),
		Source:         req.Source,
		Notes:          req.Notes,
		IdempotencyKey: strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) UpdateActivity(c *gin.Context) {
	var req updateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	date, err := parseOptionalDate(req.Date)
	if err != nil {
		AbortWithError(c, newValidationError("date", "invalid_date", "invalid date"))
		return
	}
	if req.ProgramID != nil {
		setProgramID(c, *req.ProgramID)
	}

	resp, err := s.tracker.UpdateActivity(c.Request.Context(), trackerdomain.UpdateActivityRequest{
		ID:             strings.TrimSpace(c.Param("id")),
		Category:       req.Category,
		Intent:         req.Intent,
		Quantity:       req.Quantity,
		Unit:           req.Unit,
		Date:           date,
		EmissionFactor: req.EmissionFactor,
		ProgramID:      req.ProgramID,
		Notes:          req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteActivity(c *gin.Context) {
	if err := s.tracker.DeleteActivity(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
