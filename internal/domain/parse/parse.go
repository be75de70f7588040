package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var monthNumbers = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June, "july": time.July,
	"august": time.August, "september": time.September, "october": time.October,
	"november": time.November, "december": time.December,
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"jun": time.June, "jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var weekdayNames = []struct {
	name string
	day  time.Weekday
	re   *regexp.Regexp
}{
	{"monday", time.Monday, regexp.MustCompile(`\bmonday\b`)},
	{"tuesday", time.Tuesday, regexp.MustCompile(`\btuesday\b`)},
	{"wednesday", time.Wednesday, regexp.MustCompile(`\bwednesday\b`)},
	{"thursday", time.Thursday, regexp.MustCompile(`\bthursday\b`)},
	{"friday", time.Friday, regexp.MustCompile(`\bfriday\b`)},
	{"saturday", time.Saturday, regexp.MustCompile(`\bsaturday\b`)},
	{"sunday", time.Sunday, regexp.MustCompile(`\bsunday\b`)},
}

const monthPattern = `(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|oct|nov|dec)`

var (
	reDaysPhrase     = regexp.MustCompile(`(\d+)\s*days?\b`)
	reMonthFirst     = regexp.MustCompile(monthPattern + `\s*(\d{1,2})(?:st|nd|rd|th)?(?:\s*(?:-|to|until|through)\s*(\d{1,2})(?:st|nd|rd|th)?)?`)
	reDayFirst       = regexp.MustCompile(`(\d{1,2})(?:st|nd|rd|th)?(?:\s*(?:-|to|until|through)\s*(\d{1,2})(?:st|nd|rd|th)?)?\s*(?:of\s+)?` + monthPattern)
	reSingleDayWords = regexp.MustCompile(`\b(a|one|1)\s*day\b`)
)

var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{CategorySick, []string{"sick", "ill", "fever", "cold", "flu", "doctor", "medical", "hospital", "unwell", "not feeling well", "not well"}},
	{CategoryEmergency, []string{"emergency", "urgent", "crisis"}},
	{CategoryAnnual, []string{"vacation", "holiday", "trip", "travel", "annual"}},
	{CategoryMaternity, []string{"maternity", "pregnancy"}},
	{CategoryPaternity, []string{"paternity", "newborn"}},
	{CategoryBereavement, []string{"funeral", "bereavement", "passed away", "death"}},
	{CategoryCompOff, []string{"comp off", "comp-off", "compensatory"}},
	{CategoryPersonal, []string{"personal", "private"}},
}

// Parse extracts a structured leave intent from free text. It is a pure
// function of the text and the reference date: no store or calendar lookups
// happen here, and the same inputs always produce the same intent.
func Parse(text string, ref time.Time) Intent {
	lower := strings.ToLower(text)
	ref = truncateDay(ref)

	intent := Intent{
		Category:     classify(lower),
		OriginalText: text,
	}

	days := extractDuration(lower)
	halfDay := strings.Contains(lower, "half day") || strings.Contains(lower, "half-day")

	start, end, invalid := extractDates(lower, ref)
	if invalid != nil {
		intent.Invalid = invalid
		return intent
	}

	// Relative keywords override any explicitly mentioned date.
	if strings.Contains(lower, "tomorrow") {
		start = ref.AddDate(0, 0, 1)
		end = time.Time{}
	} else if strings.Contains(lower, "today") {
		start = ref
		end = time.Time{}
	} else if start.IsZero() {
		if wd, ok := findWeekday(lower, ref); ok {
			start = wd
		} else if strings.Contains(lower, "next week") {
			start = ref.AddDate(0, 0, 7-mondayIndexed(ref.Weekday()))
		}
	}

	if start.IsZero() {
		start = ref.AddDate(0, 0, 1)
	}
	if end.IsZero() {
		end = addBusinessDays(start, days)
	}
	if end.Before(start) {
		end = start
	}

	intent.StartDate = start
	intent.EndDate = end

	if halfDay {
		intent.IsHalfDay = true
		intent.EndDate = start
		intent.DurationDays = decimal.NewFromFloat(0.5)
		return intent
	}

	intent.DurationDays = Duration(start, intent.EndDate)
	return intent
}

// Duration charges business days for the inclusive range. A weekend-only
// span still charges the literal day count.
func Duration(start, end time.Time) decimal.Decimal {
	days := decimal.NewFromInt(int64(businessDays(start, end)))
	if days.IsZero() {
		days = decimal.NewFromInt(int64(end.Sub(start)/(24*time.Hour)) + 1)
	}
	return days
}

func classify(lower string) Category {
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.category
			}
		}
	}
	return CategoryCasual
}

func extractDuration(lower string) int {
	days := 1
	if m := reDaysPhrase.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			days = n
		}
	}
	if reSingleDayWords.MatchString(lower) {
		days = 1
	}
	switch {
	case strings.Contains(lower, "a week") || strings.Contains(lower, "one week") || strings.Contains(lower, "1 week"):
		days = 5
	case strings.Contains(lower, "two weeks") || strings.Contains(lower, "2 weeks"):
		days = 10
	case strings.Contains(lower, "a month") || strings.Contains(lower, "one month") || strings.Contains(lower, "1 month"):
		days = 22
	}
	return days
}

// extractDates tries a month-first mention ("jan 20-23"), then a day-first
// mention ("20th to 22nd jan"). A day that does not exist in the resolved
// month aborts the parse with a diagnostic instead of clamping.
func extractDates(lower string, ref time.Time) (start, end time.Time, invalid *InvalidDateError) {
	var month, endMonth time.Month
	var startDay, endDay int
	var mention string

	if matches := reMonthFirst.FindAllStringSubmatch(lower, 2); len(matches) > 0 {
		m := matches[0]
		mention = strings.TrimSpace(m[0])
		month = monthNumbers[m[1]]
		startDay, _ = strconv.Atoi(m[2])
		if m[3] != "" {
			endMonth = month
			endDay, _ = strconv.Atoi(m[3])
		} else if len(matches) == 2 {
			// Two separate mentions form a range ("dec 30 to jan 2").
			endMonth = monthNumbers[matches[1][1]]
			endDay, _ = strconv.Atoi(matches[1][2])
		}
	} else if m := reDayFirst.FindStringSubmatch(lower); m != nil {
		mention = strings.TrimSpace(m[0])
		month = monthNumbers[m[3]]
		startDay, _ = strconv.Atoi(m[1])
		if m[2] != "" {
			endMonth = month
			endDay, _ = strconv.Atoi(m[2])
		}
	} else {
		return time.Time{}, time.Time{}, nil
	}

	year := ref.Year()
	if month < ref.Month() {
		year++
	}

	start, invalid = resolveDay(mention, year, month, startDay)
	if invalid != nil {
		return time.Time{}, time.Time{}, invalid
	}
	if start.Before(ref) {
		year++
		start, invalid = resolveDay(mention, year, month, startDay)
		if invalid != nil {
			return time.Time{}, time.Time{}, invalid
		}
	}

	if endDay > 0 {
		endYear := year
		if endMonth == month && endDay < startDay {
			// "dec 30 - 2" style ranges spill into the next month.
			endMonth++
			if endMonth > time.December {
				endMonth = time.January
			}
		}
		if endMonth < month {
			endYear++
		}
		end, invalid = resolveDay(mention, endYear, endMonth, endDay)
		if invalid != nil {
			return time.Time{}, time.Time{}, invalid
		}
	}
	return start, end, nil
}

func resolveDay(requested string, year int, month time.Month, day int) (time.Time, *InvalidDateError) {
	limit := daysInMonth(year, month)
	if day < 1 || day > limit {
		lastValid := time.Date(year, month, limit, 0, 0, 0, 0, time.UTC)
		return time.Time{}, &InvalidDateError{
			RequestedText: requested,
			Reason:        fmt.Sprintf("%s only has %d days in %d", month.String(), limit, year),
			Suggestions: []time.Time{
				lastValid,
				lastValid.AddDate(0, 0, 1),
			},
		}
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), nil
}

func findWeekday(lower string, ref time.Time) (time.Time, bool) {
	for _, entry := range weekdayNames {
		if !strings.Contains(lower, "next "+entry.name) && !entry.re.MatchString(lower) {
			continue
		}
		ahead := (int(entry.day) - int(ref.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return ref.AddDate(0, 0, ahead), true
	}
	return time.Time{}, false
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// mondayIndexed maps Sunday=6 so week arithmetic matches a Monday-start week.
func mondayIndexed(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// addBusinessDays returns the date reached by spending n working days
// starting at (and counting) start, skipping weekends.
func addBusinessDays(start time.Time, n int) time.Time {
	end := start
	counted := 1
	for counted < n {
		end = end.AddDate(0, 0, 1)
		if end.Weekday() != time.Saturday && end.Weekday() != time.Sunday {
			counted++
		}
	}
	return end
}

func businessDays(start, end time.Time) int {
	count := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			count++
		}
	}
	return count
}
