// Package planname classifies free-text plan labels into a closed set of
// billing categories. Classification happens once when a plan label is
// recorded; billing logic branches on the category, never on the label.
package planname

import "strings"

// Category is the billing behavior of a plan.
type Category string

const (
	// CategoryRecurring bills a fixed monthly fee.
	CategoryRecurring Category = "recurring"
	// CategoryOneTime is a pay-per-visit plan; never billed monthly.
	CategoryOneTime Category = "one_time"
	// CategoryTrial is a trial session; never billed monthly.
	CategoryTrial Category = "trial"
	// CategoryCounseling is a counseling session; never billed monthly.
	CategoryCounseling Category = "counseling"
	// CategoryDietCourse is a prepaid diet course; never billed monthly.
	CategoryDietCourse Category = "diet_course"
	// CategorySessionPack is a prepaid N-session package; never billed monthly.
	CategorySessionPack Category = "session_pack"
)

// nonRecurringMarkers maps plan-label substrings to their category.
// Labels come from the admin UI in Japanese; the markers are the ones
// that appear in production plan names.
var nonRecurringMarkers = []struct {
	marker   string
	category Category
}{
	{"都度", CategoryOneTime},
	{"体験", CategoryTrial},
	{"カウンセリング", CategoryCounseling},
	{"ダイエットコース", CategoryDietCourse},
	{"回数券", CategorySessionPack},
	{"回券", CategorySessionPack},
}

// Classify maps a free-text plan label to its billing category.
// PRE: none; empty labels classify as recurring
// POST: Returns a stable category for the label
func Classify(label string) Category {
	for _, m := range nonRecurringMarkers {
		if strings.Contains(label, m.marker) {
			return m.category
		}
	}
	return CategoryRecurring
}

// Recurring reports whether the category generates a monthly due.
func (c Category) Recurring() bool {
	return c == CategoryRecurring
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryRecurring, CategoryOneTime, CategoryTrial, CategoryCounseling, CategoryDietCourse, CategorySessionPack:
		return true
	}
	return false
}
