package core

import (
	"carecore/pkg/domain"
	"fmt"
	"strings"
	"time"
)

// complianceWindowDays is the length of the rolling window checked by the
// weekly evaluator, anchored at the earliest rostered day.
const complianceWindowDays = 7

// IsRostered reports whether the staff member has a shift covering the
// instant. A shift covers the instant when its day matches and the time of
// day falls inside the shift type's fixed window.
func IsRostered(shifts []Shift, staffID string, at time.Time) bool {
	for _, sh := range shifts {
		if strings.EqualFold(sh.StaffID, staffID) && sh.Covers(at) {
			return true
		}
	}
	return false
}

// EvaluateCompliance runs the weekly roster check over a read-only view.
// The window anchors at the earliest day present in the roster, not today,
// so an identical roster always yields an identical verdict. Days are
// evaluated in order and each day's rules in sequence; the first failure is
// returned with the offending day and rule.
func EvaluateCompliance(view domain.RuleView) error {
	shifts := view.ListShifts()
	if len(shifts) == 0 {
		return domain.ErrCompliance{Rule: RuleRosterEmpty, Message: "no shifts scheduled"}
	}

	start := domain.DayOf(shifts[0].Day)
	for _, sh := range shifts[1:] {
		if d := domain.DayOf(sh.Day); d.Before(start) {
			start = d
		}
	}

	roleOf := func(staffID string) Role {
		st, ok := view.FindStaff(staffID)
		if !ok {
			return ""
		}
		return st.Role
	}

	for i := 0; i < complianceWindowDays; i++ {
		day := start.AddDate(0, 0, i)

		hasDoctor := false
		nurseDay := false
		nurseEve := false
		nurseShifts := make(map[string]int)
		for _, sh := range shifts {
			if !domain.DayOf(sh.Day).Equal(day) {
				continue
			}
			switch roleOf(sh.StaffID) {
			case RoleDoctor:
				hasDoctor = true
			case RoleNurse:
				nurseShifts[strings.ToLower(sh.StaffID)]++
				if sh.Type == ShiftDay {
					nurseDay = true
				}
				if sh.Type == ShiftEve {
					nurseEve = true
				}
			}
		}

		if !hasDoctor {
			return domain.ErrCompliance{Day: day, Rule: RuleDailyDoctor,
				Message: "no doctor assigned"}
		}
		if !nurseDay || !nurseEve {
			return domain.ErrCompliance{Day: day, Rule: RuleNurseCoverage,
				Message: "nurse coverage missing (needs DAY and EVE)"}
		}
		for nurse, count := range nurseShifts {
			if count > 1 {
				return domain.ErrCompliance{Day: day, Rule: RuleNurseHours,
					Message: fmt.Sprintf("nurse %s over 8 hours", nurse)}
			}
		}
	}
	return nil
}
