package aggregation

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/smallbiznis/greentrack/internal/activity/domain"
	"github.com/smallbiznis/greentrack/internal/clock"
	programdomain "github.com/smallbiznis/greentrack/internal/program/domain"
	"gorm.io/gorm"
)

// pass carries the values of one recompute while the graph is walked.
type pass struct {
	ctx       context.Context
	tx        *gorm.DB
	engine    *Engine
	programID snowflake.ID
	goalID    *snowflake.ID

	activities []activitydomain.Activity
	program    *programdomain.Program
	goals      []programdomain.Goal
	today      time.Time

	programActual  float64
	programCount   int
	programPercent float64

	goalActual  []float64
	goalPercent []float64
	goalState   []programdomain.GoalState
	goalAwarded []bool
}

type step func(p *pass) error

func defaultSteps() map[Attribute]step {
	return map[Attribute]step{
		AttrActivityCO2:    loadActivities,
		AttrProgramTarget:  loadProgram,
		AttrGoalTarget:     loadGoals,
		AttrToday:          loadToday,
		AttrProgramActual:  sumProgramSavings,
		AttrProgramCount:   countProgramActivities,
		AttrProgramPercent: programProgress,
		AttrGoalActual:     sumGoalSavings,
		AttrGoalPercent:    goalAchievement,
		AttrGoalState:      goalStates,
		AttrGoalPoints:     goalPoints,
	}
}

func loadActivities(p *pass) error {
	activities, err := p.engine.activityRepo.FindActivities(p.ctx, p.tx, activitydomain.Filter{
		ProgramID: &p.programID,
	})
	if err != nil {
		return storageErr(err)
	}
	p.activities = activities
	return nil
}

func loadProgram(p *pass) error {
	program, err := p.engine.programRepo.FindProgramByID(p.ctx, p.tx, p.programID)
	if err != nil {
		return storageErr(err)
	}
	if program == nil {
		return programdomain.ErrProgramNotFound
	}
	p.program = program
	return nil
}

func loadGoals(p *pass) error {
	if p.goalID != nil {
		goal, err := p.engine.programRepo.FindGoalByID(p.ctx, p.tx, *p.goalID)
		if err != nil {
			return storageErr(err)
		}
		if goal == nil || goal.ProgramID != p.programID {
			return programdomain.ErrGoalNotFound
		}
		p.goals = []programdomain.Goal{*goal}
	} else {
		goals, err := p.engine.programRepo.FindGoals(p.ctx, p.tx, p.programID)
		if err != nil {
			return storageErr(err)
		}
		p.goals = goals
	}

	n := len(p.goals)
	p.goalActual = make([]float64, n)
	p.goalPercent = make([]float64, n)
	p.goalState = make([]programdomain.GoalState, n)
	p.goalAwarded = make([]bool, n)
	return nil
}

func loadToday(p *pass) error {
	p.today = clock.Today(p.engine.clock)
	return nil
}

func sumProgramSavings(p *pass) error {
	total := 0.0
	for _, a := range p.activities {
		total += a.CO2Saved()
	}
	p.programActual = total
	return nil
}

func countProgramActivities(p *pass) error {
	p.programCount = len(p.activities)
	return nil
}

func programProgress(p *pass) error {
	p.programPercent = programdomain.Percentage(p.programActual, p.program.TargetCO2Reduction)
	return nil
}

func sumGoalSavings(p *pass) error {
	for i, goal := range p.goals {
		cutoff := activitydomain.CalendarDay(goal.TargetDate)
		total := 0.0
		for _, a := range p.activities {
			if activitydomain.CalendarDay(a.Date).After(cutoff) {
				continue
			}
			total += a.CO2Saved()
		}
		p.goalActual[i] = total
	}
	return nil
}

func goalAchievement(p *pass) error {
	for i, goal := range p.goals {
		p.goalPercent[i] = programdomain.Percentage(p.goalActual[i], goal.TargetCO2Reduction)
	}
	return nil
}

func goalStates(p *pass) error {
	for i, goal := range p.goals {
		p.goalState[i] = programdomain.DeriveGoalState(p.goalPercent[i], p.today, goal.TargetDate)
	}
	return nil
}

// goalPoints never revokes points once awarded.
func goalPoints(p *pass) error {
	for i, goal := range p.goals {
		p.goalAwarded[i] = goal.PointsAwarded || p.goalState[i] == programdomain.GoalStateAchieved
	}
	return nil
}
