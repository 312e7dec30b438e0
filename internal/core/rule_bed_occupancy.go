package core

import (
	"carecore/pkg/domain"
	"context"
	"fmt"
)

// NewBedOccupancyRule returns the in-transaction rule enforcing that every
// bed holds at most one resident and every resident occupies at most one bed.
func NewBedOccupancyRule() domain.Rule {
	return bedOccupancyRule{}
}

type bedOccupancyRule struct{}

func (bedOccupancyRule) Name() string { return RuleBedOccupancy }

func (bedOccupancyRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	beds := make(map[string]string)
	for bedID, residentID := range view.Occupancy() {
		if _, ok := view.FindBed(bedID); !ok {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     RuleBedOccupancy,
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("occupancy references unknown bed %s", bedID),
				Entity:   domain.EntityBed,
				EntityID: bedID,
			})
			continue
		}
		if _, ok := view.FindResident(residentID); !ok {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     RuleBedOccupancy,
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("bed %s occupied by unknown resident %s", bedID, residentID),
				Entity:   domain.EntityBed,
				EntityID: bedID,
			})
			continue
		}
		if other, seen := beds[residentID]; seen {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     RuleBedOccupancy,
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("resident %s occupies beds %s and %s", residentID, other, bedID),
				Entity:   domain.EntityResident,
				EntityID: residentID,
			})
			continue
		}
		beds[residentID] = bedID
	}
	return res, nil
}
