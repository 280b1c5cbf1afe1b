package scheduler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Slot is a (day, period) cell of the weekly grid. Day follows ISO numbering (1=Monday ... 7=Sunday).
type Slot struct {
	Day    int `json:"dayOfWeek"`
	Period int `json:"period"`
}

// Less orders slots by day then period.
func (s Slot) Less(other Slot) bool {
	if s.Day == other.Day {
		return s.Period < other.Period
	}
	return s.Day < other.Day
}

// String renders the slot as a block token, e.g. MON-1.
func (s Slot) String() string {
	return fmt.Sprintf("%s-%d", dayAbbrev(s.Day), s.Period)
}

var dayAbbrevs = map[int]string{1: "MON", 2: "TUE", 3: "WED", 4: "THU", 5: "FRI", 6: "SAT", 7: "SUN"}

var dayTokens = map[string]int{
	"MON": 1, "MONDAY": 1,
	"TUE": 2, "TUESDAY": 2,
	"WED": 3, "WEDNESDAY": 3,
	"THU": 4, "THURSDAY": 4,
	"FRI": 5, "FRIDAY": 5,
	"SAT": 6, "SATURDAY": 6,
	"SUN": 7, "SUNDAY": 7,
}

func dayAbbrev(day int) string {
	if name, ok := dayAbbrevs[day]; ok {
		return name
	}
	return strconv.Itoa(day)
}

// DayName returns the upper-case English weekday name for an ISO day index.
func DayName(day int) string {
	if day < 1 || day > 7 {
		return ""
	}
	return strings.ToUpper(time.Weekday(day % 7).String())
}

// ParseSlot decodes a block token. Accepted forms: MON-1, MONDAY-1, 1-1 (separators '-', ':' or '_').
func ParseSlot(token string) (Slot, error) {
	raw := strings.ToUpper(strings.TrimSpace(token))
	sep := strings.IndexAny(raw, "-:_")
	if sep <= 0 || sep == len(raw)-1 {
		return Slot{}, fmt.Errorf("invalid block token %q", token)
	}
	dayPart, periodPart := strings.TrimSpace(raw[:sep]), strings.TrimSpace(raw[sep+1:])

	day, ok := dayTokens[dayPart]
	if !ok {
		n, err := strconv.Atoi(dayPart)
		if err != nil || n < 1 || n > 7 {
			return Slot{}, fmt.Errorf("invalid day in block token %q", token)
		}
		day = n
	}
	period, err := strconv.Atoi(periodPart)
	if err != nil || period < 1 {
		return Slot{}, fmt.Errorf("invalid period in block token %q", token)
	}
	return Slot{Day: day, Period: period}, nil
}

// ISODay converts a date's weekday to the 1=Monday ... 7=Sunday numbering used by Slot.
func ISODay(t time.Time) int {
	return (int(t.Weekday())+6)%7 + 1
}

// Grid is the fixed weekly grid of teaching days and periods per day.
type Grid struct {
	Days          []int `json:"days"`
	PeriodsPerDay int   `json:"periodsPerDay"`
}

// NewGrid normalises days (dedup, sorted, 1..7 only).
func NewGrid(days []int, periodsPerDay int) Grid {
	seen := make(map[int]struct{}, len(days))
	normalized := make([]int, 0, len(days))
	for _, day := range days {
		if day < 1 || day > 7 {
			continue
		}
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		normalized = append(normalized, day)
	}
	sort.Ints(normalized)
	return Grid{Days: normalized, PeriodsPerDay: periodsPerDay}
}

// DefaultGrid is Monday to Friday with eight periods.
func DefaultGrid() Grid {
	return NewGrid([]int{1, 2, 3, 4, 5}, 8)
}

// Contains reports whether the slot lies inside the grid.
func (g Grid) Contains(s Slot) bool {
	if s.Period < 1 || s.Period > g.PeriodsPerDay {
		return false
	}
	for _, day := range g.Days {
		if day == s.Day {
			return true
		}
	}
	return false
}

// Slots enumerates the grid in (day, period) order.
func (g Grid) Slots() []Slot {
	slots := make([]Slot, 0, len(g.Days)*g.PeriodsPerDay)
	for _, day := range g.Days {
		for period := 1; period <= g.PeriodsPerDay; period++ {
			slots = append(slots, Slot{Day: day, Period: period})
		}
	}
	return slots
}

// Size is the number of slots in the grid.
func (g Grid) Size() int {
	return len(g.Days) * g.PeriodsPerDay
}
