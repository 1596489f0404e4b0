package domain

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Category string

const (
	CategoryElectricity Category = "electricity"
	CategoryFuel        Category = "fuel"
	CategoryPaper       Category = "paper"
	CategoryTravel      Category = "travel"
	CategoryWaste       Category = "waste"
	CategoryWater       Category = "water"
)

// Categories lists every known category in name order.
var Categories = []Category{
	CategoryElectricity,
	CategoryFuel,
	CategoryPaper,
	CategoryTravel,
	CategoryWaste,
	CategoryWater,
}

var categoryLabels = map[Category]string{
	CategoryElectricity: "Electricity Usage",
	CategoryFuel:        "Fuel Consumption",
	CategoryPaper:       "Paper Usage",
	CategoryTravel:      "Travel (Car/Transport)",
	CategoryWaste:       "Waste Generated",
	CategoryWater:       "Water Usage",
}

var defaultUnits = map[Category]Unit{
	CategoryElectricity: UnitKWh,
	CategoryFuel:        UnitLiters,
	CategoryPaper:       UnitSheets,
	CategoryTravel:      UnitKm,
	CategoryWaste:       UnitKg,
	CategoryWater:       UnitLiters,
}

func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

func (c Category) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return string(c)
}

func (c Category) DefaultUnit() Unit {
	return defaultUnits[c]
}

type Unit string

const (
	UnitKWh    Unit = "kwh"
	UnitLiters Unit = "liters"
	UnitKg     Unit = "kg"
	UnitKm     Unit = "km"
	UnitSheets Unit = "sheets"
)

func (u Unit) Valid() bool {
	switch u {
	case UnitKWh, UnitLiters, UnitKg, UnitKm, UnitSheets:
		return true
	}
	return false
}

// Intent tells whether the co2 amount was emitted or avoided.
type Intent string

const (
	IntentEmission  Intent = "emission"
	IntentReduction Intent = "reduction"
)

func (i Intent) Valid() bool {
	return i == IntentEmission || i == IntentReduction
}

type Source string

const (
	SourceManual Source = "manual"
	SourceAPI    Source = "api"
	SourceSystem Source = "system"
)

func (s Source) Valid() bool {
	return s == SourceManual || s == SourceAPI || s == SourceSystem
}

type FactorSource string

const (
	FactorSourceProvider FactorSource = "provider"
	FactorSourceFallback FactorSource = "fallback"
	FactorSourceExplicit FactorSource = "explicit"
)

// Activity is a single dated carbon event. It is the only source of truth
// for program and goal aggregates.
type Activity struct {
	ID             snowflake.ID  `json:"id" gorm:"primaryKey"`
	Name           string        `json:"name" gorm:"type:text;not null"`
	Category       Category      `json:"category" gorm:"type:varchar(32);not null;index"`
	Intent         Intent        `json:"intent" gorm:"type:varchar(16);not null"`
	Quantity       float64       `json:"quantity" gorm:"not null"`
	Unit           Unit          `json:"unit" gorm:"type:varchar(16);not null"`
	Date           time.Time     `json:"date" gorm:"column:activity_date;not null;index"`
	EmissionFactor float64       `json:"emission_factor" gorm:"not null"`
	CO2Amount      float64       `json:"co2_amount" gorm:"column:co2_amount;not null"`
	FactorSource   FactorSource  `json:"factor_source" gorm:"type:varchar(16);not null"`
	ProgramID      *snowflake.ID `json:"program_id,omitempty" gorm:"column:program_id;index"`
	ActorID        string        `json:"actor_id,omitempty" gorm:"type:varchar(128)"`
	Source         Source        `json:"source" gorm:"type:varchar(16);not null;default:manual"`
	Notes          string        `json:"notes,omitempty" gorm:"type:text"`
	IdempotencyKey *string       `json:"-" gorm:"type:varchar(128);uniqueIndex"`
	CreatedAt      time.Time     `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time     `json:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (Activity) TableName() string { return "activities" }

// CO2Saved is the avoided CO2 for reduction activities and 0 otherwise.
func (a Activity) CO2Saved() float64 {
	if a.Intent == IntentReduction {
		return a.CO2Amount
	}
	return 0
}

// CO2Generated is the emitted CO2 for emission activities and 0 otherwise.
func (a Activity) CO2Generated() float64 {
	if a.Intent == IntentEmission {
		return a.CO2Amount
	}
	return 0
}

func (a Activity) BelongsTo(programID snowflake.ID) bool {
	return a.ProgramID != nil && *a.ProgramID == programID
}

// Describe builds the display name, e.g. "Electricity Usage - 100 kwh on 2024-03-05".
func Describe(category Category, quantity float64, unit Unit, date time.Time) string {
	return fmt.Sprintf("%s - %s %s on %s",
		category.Label(),
		strconv.FormatFloat(quantity, 'f', -1, 64),
		unit,
		date.UTC().Format(time.DateOnly),
	)
}

// CalendarDay truncates t to midnight UTC.
func CalendarDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
