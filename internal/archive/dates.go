package archive

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateTriple is a [year, month, day] triple. Comparisons are
// component-wise and lexicographic, not calendar-aware: day names are
// the source of truth and are not guaranteed to be valid dates, so a
// month of 13 is accepted and compared normally.
type DateTriple [3]uint16

func (d DateTriple) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d[0], d[1], d[2])
}

// Less reports whether d is strictly before other, deciding on the
// first differing component. Equal triples are not "before".
func (d DateTriple) Less(other DateTriple) bool {
	for i := range d {
		if d[i] < other[i] {
			return true
		}
		if d[i] > other[i] {
			return false
		}
	}
	return false
}

// ParseDate parses a day string such as "2021-07-21" into a triple.
// A trailing directory separator is tolerated.
func ParseDate(input string) (DateTriple, bool) {
	fixed := strings.ReplaceAll(input, "/", "")
	parts := strings.SplitN(fixed, "-", 3)
	if len(parts) != 3 {
		return DateTriple{}, false
	}

	var triple DateTriple
	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 16)
		if err != nil {
			return DateTriple{}, false
		}
		triple[i] = uint16(n)
	}
	return triple, true
}

// ParseDayExpr parses a single user-supplied day expression: an ISO
// date, "today", "yesterday", or a weekday name ("friday" means the
// most recent Friday before today; today's weekday means a week ago).
func ParseDayExpr(input string, now time.Time) (DateTriple, bool) {
	if triple, ok := ParseDate(input); ok {
		return triple, true
	}

	var daysAgo int
	switch {
	case strings.HasPrefix(input, "today"):
		daysAgo = 0
	case strings.HasPrefix(input, "yesterday"):
		daysAgo = 1
	default:
		weekday, ok := parseWeekday(input)
		if !ok {
			return DateTriple{}, false
		}
		fromNow := int(now.Weekday())
		fromThen := int(weekday)
		if fromNow == fromThen {
			daysAgo = 7
		} else {
			daysAgo = (fromNow + 7 - fromThen) % 7
		}
	}

	then := now.AddDate(0, 0, -daysAgo)
	return DateTriple{uint16(then.Year()), uint16(then.Month()), uint16(then.Day())}, true
}

// ParseDayExprList parses a comma-separated list of day expressions,
// dropping the pieces that do not parse.
func ParseDayExprList(input string, now time.Time) []DateTriple {
	var triples []DateTriple
	for _, piece := range strings.Split(input, ",") {
		if triple, ok := ParseDayExpr(strings.TrimSpace(piece), now); ok {
			triples = append(triples, triple)
		}
	}
	return triples
}

func parseWeekday(input string) (time.Weekday, bool) {
	names := map[string]time.Weekday{
		"sunday": time.Sunday, "sun": time.Sunday,
		"monday": time.Monday, "mon": time.Monday,
		"tuesday": time.Tuesday, "tue": time.Tuesday,
		"wednesday": time.Wednesday, "wed": time.Wednesday,
		"thursday": time.Thursday, "thu": time.Thursday,
		"friday": time.Friday, "fri": time.Friday,
		"saturday": time.Saturday, "sat": time.Saturday,
	}
	day, ok := names[strings.ToLower(strings.TrimSpace(input))]
	return day, ok
}
