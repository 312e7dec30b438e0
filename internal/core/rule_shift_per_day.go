package core

import (
	"carecore/pkg/domain"
	"context"
	"fmt"
	"strings"
)

// NewShiftPerDayRule returns the in-transaction rule capping every staff
// member at one shift block per calendar day. Assigning a second same-day
// shift therefore rolls back at commit instead of needing a pre-check.
func NewShiftPerDayRule() domain.Rule {
	return shiftPerDayRule{}
}

type shiftPerDayRule struct{}

func (shiftPerDayRule) Name() string { return RuleShiftPerDay }

func (shiftPerDayRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	type slot struct {
		staff string
		day   string
	}
	counts := make(map[slot]int)
	res := domain.Result{}
	for _, sh := range view.ListShifts() {
		day := domain.DayOf(sh.Day)
		key := slot{staff: strings.ToLower(sh.StaffID), day: day.Format("2006-01-02")}
		counts[key]++
		if counts[key] == 2 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     RuleShiftPerDay,
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("staff %s already has a shift on %s", sh.StaffID, key.day),
				Entity:   domain.EntityShift,
				EntityID: sh.StaffID,
				Day:      day,
			})
		}
	}
	return res, nil
}
