package interval

import (
	"gymdesk/internal/domain/month"
)

// CarveOutPlan is the full mutation set produced by PlanCarveOut. A plan
// is applied atomically by the interval store so a half-applied
// carve-out can never leave a member's history overlapping.
type CarveOutPlan struct {
	Updates []Interval // existing intervals with trimmed/shifted dates
	Deletes []string   // interval IDs swallowed whole by the target month
	Inserts []Interval // split right-halves plus the new month interval
}

// Empty returns true when the plan contains no mutations.
func (p CarveOutPlan) Empty() bool {
	return len(p.Updates) == 0 && len(p.Deletes) == 0 && len(p.Inserts) == 0
}

// PlanCarveOut reshapes the member's existing intervals so targetMonth is
// covered by exactly one interval carrying repl's status/plan/fee.
//
// Each existing interval overlapping the month is classified:
//   - fully inside the month           -> deleted
//   - straddling both month boundaries -> split: original trimmed to end
//     at monthStart-1, a new interval inserted from monthEnd+1 carrying
//     the same status/plan/fee/studio and the ORIGINAL end date
//     (open-endedness preserved)
//   - overlapping only on the left     -> end trimmed to monthStart-1
//   - overlapping only on the right    -> start shifted to monthEnd+1
//
// repl.StartDate/EndDate are overwritten with the month boundaries; its
// StudioID, when empty, is inherited from the latest-starting
// overlapping interval that has one.
//
// PRE: every interval in existing belongs to repl.MemberID and overlaps targetMonth
// POST: applying the plan leaves the member with non-overlapping intervals
//
//	and exactly one interval spanning targetMonth
func PlanCarveOut(existing []Interval, targetMonth month.Month, repl Interval, newID func() string) (CarveOutPlan, error) {
	monthStart := targetMonth.FirstDay()
	monthEnd := targetMonth.LastDay()

	beforeMonth, err := month.DayBefore(monthStart)
	if err != nil {
		return CarveOutPlan{}, err
	}
	afterMonth, err := month.DayAfter(monthEnd)
	if err != nil {
		return CarveOutPlan{}, err
	}

	var plan CarveOutPlan
	inheritedStudio := ""
	inheritedStart := ""

	for _, iv := range existing {
		if !iv.Overlaps(monthStart, monthEnd) {
			continue
		}
		if iv.StudioID != "" && iv.StartDate >= inheritedStart {
			inheritedStudio = iv.StudioID
			inheritedStart = iv.StartDate
		}

		startsBefore := iv.StartDate < monthStart
		endsAfter := iv.IsOpen() || iv.EndDate > monthEnd

		switch {
		case !startsBefore && !endsAfter:
			// Fully inside the month.
			plan.Deletes = append(plan.Deletes, iv.ID)

		case startsBefore && endsAfter:
			// Straddles both boundaries: trim the original, insert the
			// right half with the original end date.
			right := iv
			right.ID = newID()
			right.StartDate = afterMonth
			plan.Inserts = append(plan.Inserts, right)

			iv.EndDate = beforeMonth
			plan.Updates = append(plan.Updates, iv)

		case startsBefore:
			// Left overlap only.
			iv.EndDate = beforeMonth
			plan.Updates = append(plan.Updates, iv)

		default:
			// Right overlap only.
			iv.StartDate = afterMonth
			plan.Updates = append(plan.Updates, iv)
		}
	}

	repl.StartDate = monthStart
	repl.EndDate = monthEnd
	if repl.Status == "" {
		repl.Status = StatusActive
	}
	if repl.StudioID == "" {
		repl.StudioID = inheritedStudio
	}
	if repl.ID == "" {
		repl.ID = newID()
	}
	if err := repl.Validate(); err != nil {
		return CarveOutPlan{}, err
	}
	plan.Inserts = append(plan.Inserts, repl)

	return plan, nil
}

// PlanStatusChange closes the member's open interval (if any) at
// effectiveDate-1 and opens a new interval at effectiveDate with the
// replacement status/plan/fee.
//
// PRE: open is the member's open interval, or nil when none exists
// POST: at most one open interval remains for the member
func PlanStatusChange(open *Interval, effectiveDate string, repl Interval, newID func() string) (CarveOutPlan, error) {
	var plan CarveOutPlan

	if open != nil {
		closeDate, err := month.DayBefore(effectiveDate)
		if err != nil {
			return CarveOutPlan{}, err
		}
		closed := *open
		closed.EndDate = closeDate
		// An open interval that started on the effective date would be
		// inverted by the close; swallow it instead.
		if closed.EndDate < closed.StartDate {
			plan.Deletes = append(plan.Deletes, closed.ID)
		} else {
			plan.Updates = append(plan.Updates, closed)
		}
		if repl.StudioID == "" {
			repl.StudioID = open.StudioID
		}
	}

	repl.StartDate = effectiveDate
	repl.EndDate = ""
	if repl.ID == "" {
		repl.ID = newID()
	}
	if err := repl.Validate(); err != nil {
		return CarveOutPlan{}, err
	}
	plan.Inserts = append(plan.Inserts, repl)

	return plan, nil
}
