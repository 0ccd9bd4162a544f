package service

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/vadim/glance/internal/domain/analytics/entity"
)

const dateLayout = "2006-01-02"

// roundPercent rounds a ratio to a percentage with one decimal, half away from zero
func roundPercent(ratio float64) float64 {
	return math.Round(ratio*1000) / 10
}

// conversionRate is the share of visitors that opened a widget, in percent
func conversionRate(uniqueOpens, visitors int) float64 {
	if visitors == 0 {
		return 0
	}
	return roundPercent(float64(uniqueOpens) / float64(visitors))
}

// PctChange returns the percentage change from prev to curr with one decimal.
// A zero baseline yields 100 for any growth and 0 otherwise.
func PctChange(curr, prev float64) float64 {
	if prev == 0 {
		if curr > 0 {
			return 100
		}
		return 0
	}
	return roundPercent((curr - prev) / prev)
}

// ComputeStats folds one window's events into headline stats
func ComputeStats(events []entity.WidgetEvent, usersCreated int) entity.Stats {
	stats := entity.Stats{UsersCreated: usersCreated}

	// session -> has opened a widget
	sessions := make(map[string]bool)
	for _, ev := range events {
		opened := sessions[ev.SessionID]
		switch ev.Type {
		case entity.EventWidgetOpened:
			stats.WidgetOpens++
			opened = true
		case entity.EventFormSubmitted:
			stats.FormSubmissions++
		case entity.EventChatStarted:
			stats.ChatsInitiated++
		}
		sessions[ev.SessionID] = opened
	}

	stats.Visitors = len(sessions)
	for _, opened := range sessions {
		if opened {
			stats.UniqueWidgetOpens++
		}
	}
	stats.ConversionRate = conversionRate(stats.UniqueWidgetOpens, stats.Visitors)

	return stats
}

// ComputeChanges applies PctChange to every stat
func ComputeChanges(curr, prev entity.Stats) entity.Changes {
	return entity.Changes{
		Visitors:          PctChange(float64(curr.Visitors), float64(prev.Visitors)),
		WidgetOpens:       PctChange(float64(curr.WidgetOpens), float64(prev.WidgetOpens)),
		UniqueWidgetOpens: PctChange(float64(curr.UniqueWidgetOpens), float64(prev.UniqueWidgetOpens)),
		UsersCreated:      PctChange(float64(curr.UsersCreated), float64(prev.UsersCreated)),
		FormSubmissions:   PctChange(float64(curr.FormSubmissions), float64(prev.FormSubmissions)),
		ChatsInitiated:    PctChange(float64(curr.ChatsInitiated), float64(prev.ChatsInitiated)),
		ConversionRate:    PctChange(curr.ConversionRate, prev.ConversionRate),
	}
}

// DateKeys lists every UTC calendar date from start through end, inclusive
func DateKeys(start, end time.Time) []string {
	start, end = start.UTC(), end.UTC()
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)

	var keys []string
	for !day.After(last) {
		keys = append(keys, day.Format(dateLayout))
		day = day.AddDate(0, 0, 1)
	}
	return keys
}

type dayBucket struct {
	point       entity.TimeSeriesPoint
	visitors    map[string]struct{}
	uniqueOpens map[string]struct{}
}

// ComputeTimeSeries builds a gapless daily series for [start, end].
// Buckets are created from the calendar first, then events and account
// creations are folded in by their UTC date.
func ComputeTimeSeries(start, end time.Time, events []entity.WidgetEvent, usersCreatedAt []time.Time) []entity.TimeSeriesPoint {
	keys := DateKeys(start, end)
	buckets := make(map[string]*dayBucket, len(keys))
	for _, k := range keys {
		buckets[k] = &dayBucket{
			point:       entity.TimeSeriesPoint{Date: k},
			visitors:    make(map[string]struct{}),
			uniqueOpens: make(map[string]struct{}),
		}
	}

	for _, ev := range events {
		b, ok := buckets[ev.CreatedAt.UTC().Format(dateLayout)]
		if !ok {
			continue
		}
		b.visitors[ev.SessionID] = struct{}{}
		switch ev.Type {
		case entity.EventWidgetOpened:
			b.point.WidgetOpens++
			b.uniqueOpens[ev.SessionID] = struct{}{}
		case entity.EventFormSubmitted:
			b.point.FormSubmissions++
		case entity.EventChatStarted:
			b.point.ChatsInitiated++
		}
	}

	for _, t := range usersCreatedAt {
		if b, ok := buckets[t.UTC().Format(dateLayout)]; ok {
			b.point.UsersCreated++
		}
	}

	series := make([]entity.TimeSeriesPoint, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		b.point.Visitors = len(b.visitors)
		b.point.UniqueWidgetOpens = len(b.uniqueOpens)
		b.point.ConversionRate = conversionRate(b.point.UniqueWidgetOpens, b.point.Visitors)
		series = append(series, b.point)
	}
	return series
}

type sessionSpan struct {
	first, last time.Time
}

// ComputeGlances builds the per-widget breakdown sorted by visitors, most first.
// Single-event sessions count as visitors but not toward the average duration.
func ComputeGlances(events []entity.WidgetEvent, names map[string]string) []entity.GlanceStats {
	byWidget := make(map[string]map[string]*sessionSpan)
	for _, ev := range events {
		sessions, ok := byWidget[ev.WidgetID]
		if !ok {
			sessions = make(map[string]*sessionSpan)
			byWidget[ev.WidgetID] = sessions
		}
		span, ok := sessions[ev.SessionID]
		if !ok {
			sessions[ev.SessionID] = &sessionSpan{first: ev.CreatedAt, last: ev.CreatedAt}
			continue
		}
		if ev.CreatedAt.Before(span.first) {
			span.first = ev.CreatedAt
		}
		if ev.CreatedAt.After(span.last) {
			span.last = ev.CreatedAt
		}
	}

	glances := make([]entity.GlanceStats, 0, len(byWidget))
	for widgetID, sessions := range byWidget {
		var (
			total   float64
			counted int
		)
		for _, span := range sessions {
			if span.last.After(span.first) {
				total += span.last.Sub(span.first).Seconds()
				counted++
			}
		}

		var avg int64
		if counted > 0 {
			avg = int64(math.Round(total / float64(counted)))
		}

		name, ok := names[widgetID]
		if !ok {
			name = entity.UnknownGlanceName
		}

		glances = append(glances, entity.GlanceStats{
			ID:                widgetID,
			Name:              name,
			Visitors:          len(sessions),
			AvgSessionSeconds: avg,
		})
	}

	slices.SortFunc(glances, func(a, b entity.GlanceStats) int {
		if c := cmp.Compare(b.Visitors, a.Visitors); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	return glances
}

// EmptyReport is the zero-valued result for a workspace without widgets
func EmptyReport(period entity.Period, w entity.Window) *entity.Report {
	return &entity.Report{
		Period:      period,
		PeriodStart: w.Start,
		PeriodEnd:   w.End,
		TimeSeries:  []entity.TimeSeriesPoint{},
		Glances:     []entity.GlanceStats{},
	}
}
