package entity

import "time"

// Period is the reporting window selected by the caller
type Period string

const (
	Period24h Period = "24h"
	Period7d  Period = "7d"
	Period30d Period = "30d"
	Period90d Period = "90d"
)

// DefaultPeriod is used when the requested period is missing or unknown
const DefaultPeriod = Period7d

// ParsePeriod converts a query value into a Period, falling back to DefaultPeriod
func ParsePeriod(s string) Period {
	p := Period(s)
	if p.IsValid() {
		return p
	}
	return DefaultPeriod
}

// IsValid checks if the period is one of the supported windows
func (p Period) IsValid() bool {
	switch p {
	case Period24h, Period7d, Period30d, Period90d:
		return true
	}
	return false
}

// Days returns the window length in days
func (p Period) Days() int {
	switch p {
	case Period24h:
		return 1
	case Period30d:
		return 30
	case Period90d:
		return 90
	default:
		return 7
	}
}

// Window is a pair of equally long, adjacent reporting windows.
// Current is [Start, End], Previous is [PrevStart, Start).
type Window struct {
	PrevStart time.Time
	Start     time.Time
	End       time.Time
}

// WindowAt computes the current and previous windows ending at now
func (p Period) WindowAt(now time.Time) Window {
	n := p.Days()
	start := now.AddDate(0, 0, -n)
	return Window{
		PrevStart: start.AddDate(0, 0, -n),
		Start:     start,
		End:       now,
	}
}
