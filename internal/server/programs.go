package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	programdomain "github.com/smallbiznis/greentrack/internal/program/domain"
)

type createProgramRequest struct {
	Name               string  `json:"name"`
	Description        string  `json:"description"`
	Category           string  `json:"category"`
	Status             string  `json:"status"`
	StartDate          string  `json:"start_date"`
	EndDate            *string `json:"end_date"`
	TargetCO2Reduction float64 `json:"target_co2_reduction"`
}

type updateProgramRequest struct {
	Name               *string  `json:"name"`
	Description        *string  `json:"description"`
	Category           *string  `json:"category"`
	Status             *string  `json:"status"`
	StartDate          *string  `json:"start_date"`
	EndDate            *string  `json:"end_date"`
	TargetCO2Reduction *float64 `json:"target_co2_reduction"`
}

type createGoalRequest struct {
	Name               string  `json:"name"`
	Description        string  `json:"description"`
	TargetCO2Reduction float64 `json:"target_co2_reduction"`
	TargetDate         string  `json:"target_date"`
	RewardPoints       *int    `json:"reward_points"`
}

func (s *Server) CreateProgram(c *gin.Context) {
	var req createProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		AbortWithError(c, newValidationError("start_date", "invalid_start_date", "invalid start_date"))
		return
	}
	end, err := parseOptionalDate(req.EndDate)
	if err != nil {
		AbortWithError(c, newValidationError("end_date", "invalid_end_date", "invalid end_date"))
		return
	}

	resp, err := s.programs.CreateProgram(c.Request.Context(), programdomain.CreateProgramRequest{
		Name:               req.Name,
		Description:        req.Description,
		Category:           req.Category,
		Status:             req.Status,
		StartDate:          start,
		EndDate:            end,
		TargetCO2Reduction: req.TargetCO2Reduction,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetProgram(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	setProgramID(c, id)

	resp, err := s.tracker.ProgramSummary(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateProgram(c *gin.Context) {
	var req updateProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	start, err := parseOptionalDate(req.StartDate)
	if err != nil {
		AbortWithError(c, newValidationError("start_date", "invalid_start_date", "invalid start_date"))
		return
	}
	end, err := parseOptionalDate(req.EndDate)
	if err != nil {
		AbortWithError(c, newValidationError("end_date", "invalid_end_date", "invalid end_date"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	setProgramID(c, id)

	resp, err := s.programs.UpdateProgram(c.Request.Context(), programdomain.UpdateProgramRequest{
		ID:                 id,
		Name:               req.Name,
		Description:        req.Description,
		Category:           req.Category,
		Status:             req.Status,
		StartDate:          start,
		EndDate:            end,
		TargetCO2Reduction: req.TargetCO2Reduction,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListGoals(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	setProgramID(c, id)

	resp, err := s.programs.ListGoals(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateGoal(c *gin.Context) {
	var req createGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	target, err := parseDate(req.TargetDate)
	if err != nil {
		AbortWithError(c, newValidationError("target_date", "invalid_target_date", "invalid target_date"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	setProgramID(c, id)

	resp, err := s.programs.CreateGoal(c.Request.Context(), programdomain.CreateGoalRequest{
		ProgramID:          id,
		Name:               req.Name,
		Description:        req.Description,
		TargetCO2Reduction: req.TargetCO2Reduction,
		TargetDate:         target,
		RewardPoints:       req.RewardPoints,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) RecomputeProgram(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	setProgramID(c, id)

	resp, err := s.tracker.RecomputeProgram(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
