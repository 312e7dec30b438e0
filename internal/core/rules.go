package core

import "carecore/pkg/domain"

// Rule names shared between the transactional engine and the weekly
// compliance evaluator.
const (
	RuleBedOccupancy  = "bed_occupancy"
	RuleShiftPerDay   = "shift_per_day"
	RuleRosterEmpty   = "roster_empty"
	RuleDailyDoctor   = "daily_doctor"
	RuleNurseCoverage = "nurse_coverage"
	RuleNurseHours    = "nurse_hours"
)

// NewDefaultRulesEngine builds a rules engine with the built-in policy set
// evaluated on every transaction.
func NewDefaultRulesEngine() *RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewBedOccupancyRule())
	engine.Register(NewShiftPerDayRule())
	return engine
}
