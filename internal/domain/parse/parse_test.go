package parse

import (
	"strconv"
	"strings"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Monday 2026-01-05.
var ref = date(2026, time.January, 5)

func TestParseMonthFirstRange(t *testing.T) {
	intent := Parse("I need leave jan 20-23rd for a family trip", ref)
	if intent.Invalid != nil {
		t.Fatalf("unexpected invalid date: %v", intent.Invalid)
	}
	if !intent.StartDate.Equal(date(2026, time.January, 20)) {
		t.Fatalf("start = %v", intent.StartDate)
	}
	if !intent.EndDate.Equal(date(2026, time.January, 23)) {
		t.Fatalf("end = %v", intent.EndDate)
	}
	if got := intent.DurationDays.String(); got != "4" {
		t.Fatalf("duration = %s", got)
	}
	if intent.Category != CategoryAnnual {
		t.Fatalf("category = %s", intent.Category)
	}
}

func TestParseDefaultCategory(t *testing.T) {
	intent := Parse("jan 20-23", ref)
	if intent.Category != CategoryCasual {
		t.Fatalf("category = %s, want casual", intent.Category)
	}
}

func TestParseInvalidFeb30(t *testing.T) {
	intent := Parse("I want leave on feb 30", ref)
	if intent.Invalid == nil {
		t.Fatal("expected invalid date diagnostic")
	}
	if !strings.Contains(intent.Invalid.Reason, "28 days in 2026") {
		t.Fatalf("reason = %q", intent.Invalid.Reason)
	}
	if len(intent.Invalid.Suggestions) != 2 {
		t.Fatalf("suggestions = %v", intent.Invalid.Suggestions)
	}
	if !intent.Invalid.Suggestions[0].Equal(date(2026, time.February, 28)) {
		t.Fatalf("first suggestion = %v", intent.Invalid.Suggestions[0])
	}
	if !intent.Invalid.Suggestions[1].Equal(date(2026, time.March, 1)) {
		t.Fatalf("second suggestion = %v", intent.Invalid.Suggestions[1])
	}
	if !intent.StartDate.IsZero() || !intent.EndDate.IsZero() {
		t.Fatalf("dates must be unset on invalid input: %v %v", intent.StartDate, intent.EndDate)
	}
}

func TestParseFeb29LeapYear(t *testing.T) {
	intent := Parse("vacation feb 29", date(2027, time.January, 4))
	if intent.Invalid == nil {
		t.Fatal("expected invalid date, 2027 is not a leap year")
	}
	if !strings.Contains(intent.Invalid.Reason, "28 days in 2027") {
		t.Fatalf("reason = %q", intent.Invalid.Reason)
	}

	intent = Parse("vacation feb 29", date(2028, time.January, 4))
	if intent.Invalid != nil {
		t.Fatalf("feb 29 2028 is valid: %v", intent.Invalid)
	}
	if !intent.StartDate.Equal(date(2028, time.February, 29)) {
		t.Fatalf("start = %v", intent.StartDate)
	}
}

func TestParseDecemberJanuaryRollover(t *testing.T) {
	intent := Parse("off dec 30 to jan 2", date(2026, time.December, 1))
	if intent.Invalid != nil {
		t.Fatalf("unexpected invalid: %v", intent.Invalid)
	}
	if !intent.StartDate.Equal(date(2026, time.December, 30)) {
		t.Fatalf("start = %v", intent.StartDate)
	}
	if !intent.EndDate.Equal(date(2027, time.January, 2)) {
		t.Fatalf("end = %v", intent.EndDate)
	}
}

func TestParseYearRollForward(t *testing.T) {
	intent := Parse("leave on march 10", date(2026, time.June, 1))
	if !intent.StartDate.Equal(date(2027, time.March, 10)) {
		t.Fatalf("start = %v", intent.StartDate)
	}
}

func TestParseSameMonthEarlierDayRollsForward(t *testing.T) {
	intent := Parse("leave on jan 2", ref)
	if !intent.StartDate.Equal(date(2027, time.January, 2)) {
		t.Fatalf("start = %v", intent.StartDate)
	}
}

func TestParseTomorrowOverridesExplicitDate(t *testing.T) {
	intent := Parse("I am sick, need tomorrow off instead of jan 20", ref)
	if !intent.StartDate.Equal(date(2026, time.January, 6)) {
		t.Fatalf("start = %v", intent.StartDate)
	}
	if intent.Category != CategorySick {
		t.Fatalf("category = %s", intent.Category)
	}
}

func TestParseToday(t *testing.T) {
	intent := Parse("feeling unwell, taking today off", ref)
	if !intent.StartDate.Equal(ref) {
		t.Fatalf("start = %v", intent.StartDate)
	}
	if !intent.EndDate.Equal(ref) {
		t.Fatalf("end = %v", intent.EndDate)
	}
	if got := intent.DurationDays.String(); got != "1" {
		t.Fatalf("duration = %s", got)
	}
}

func TestParseDurationPhraseExtendsStart(t *testing.T) {
	// Ref is Monday, start defaults to Tuesday, 5 working days end Monday.
	intent := Parse("I need a week off", ref)
	if !intent.StartDate.Equal(date(2026, time.January, 6)) {
		t.Fatalf("start = %v", intent.StartDate)
	}
	if !intent.EndDate.Equal(date(2026, time.January, 12)) {
		t.Fatalf("end = %v", intent.EndDate)
	}
	if got := intent.DurationDays.String(); got != "5" {
		t.Fatalf("duration = %s", got)
	}
}

func TestParseExplicitDayCount(t *testing.T) {
	intent := Parse("requesting 3 days from jan 21", ref)
	if !intent.StartDate.Equal(date(2026, time.January, 21)) {
		t.Fatalf("start = %v", intent.StartDate)
	}
	// Wednesday start, 3 working days end Friday.
	if !intent.EndDate.Equal(date(2026, time.January, 23)) {
		t.Fatalf("end = %v", intent.EndDate)
	}
	if got := intent.DurationDays.String(); got != "3" {
		t.Fatalf("duration = %s", got)
	}
}

func TestParseDayFirstRange(t *testing.T) {
	intent := Parse("off from 20th to 22nd jan", ref)
	if intent.Invalid != nil {
		t.Fatalf("unexpected invalid: %v", intent.Invalid)
	}
	if !intent.StartDate.Equal(date(2026, time.January, 20)) {
		t.Fatalf("start = %v", intent.StartDate)
	}
	if !intent.EndDate.Equal(date(2026, time.January, 22)) {
		t.Fatalf("end = %v", intent.EndDate)
	}
}

func TestParseHalfDay(t *testing.T) {
	intent := Parse("half day tomorrow for a doctor visit", ref)
	if !intent.IsHalfDay {
		t.Fatal("expected half day")
	}
	if got := intent.DurationDays.String(); got != "0.5" {
		t.Fatalf("duration = %s", got)
	}
	if !intent.EndDate.Equal(intent.StartDate) {
		t.Fatalf("half day must be a single day: %v %v", intent.StartDate, intent.EndDate)
	}
	if intent.Category != CategorySick {
		t.Fatalf("category = %s", intent.Category)
	}
}

func TestParseNextWeekday(t *testing.T) {
	intent := Parse("personal errand next friday", ref)
	if !intent.StartDate.Equal(date(2026, time.January, 9)) {
		t.Fatalf("start = %v", intent.StartDate)
	}
	if intent.Category != CategoryPersonal {
		t.Fatalf("category = %s", intent.Category)
	}
}

func TestParseCategories(t *testing.T) {
	cases := map[string]Category{
		"emergency at home tomorrow":          CategoryEmergency,
		"maternity leave starting march 1":    CategoryMaternity,
		"paternity leave for our newborn":     CategoryPaternity,
		"attending a funeral on jan 21":       CategoryBereavement,
		"comp off for weekend release work":   CategoryCompOff,
		"vacation trip jan 20 to jan 24":      CategoryAnnual,
		"need some time off jan 20":           CategoryCasual,
		"private appointment tomorrow":        CategoryPersonal,
		"fever and flu, staying home":         CategorySick,
	}
	for text, want := range cases {
		if got := Parse(text, ref).Category; got != want {
			t.Errorf("Parse(%q).Category = %s, want %s", text, got, want)
		}
	}
}

func TestParseAllValidDaysResolveLiterally(t *testing.T) {
	reference := date(2026, time.January, 1)
	for month := time.January; month <= time.December; month++ {
		limit := daysInMonth(2026, month)
		for day := 1; day <= limit; day++ {
			intent := Parse("leave on "+strings.ToLower(month.String())+" "+strconv.Itoa(day), reference)
			if intent.Invalid != nil {
				t.Fatalf("%s %d: unexpected invalid: %v", month, day, intent.Invalid)
			}
			if intent.StartDate.Day() != day || intent.StartDate.Month() != month {
				t.Fatalf("%s %d resolved to %v", month, day, intent.StartDate)
			}
		}
	}
}
