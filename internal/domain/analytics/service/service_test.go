package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadim/glance/internal/domain/analytics/entity"
)

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

type fakeWidgets struct {
	widgets []entity.Widget
	err     error
}

func (f *fakeWidgets) GetByWorkspaceID(_ context.Context, _ string) ([]entity.Widget, error) {
	return f.widgets, f.err
}

// fakeEvents serves events whose timestamp falls inside the requested filter
type fakeEvents struct {
	mu      sync.Mutex
	events  []entity.WidgetEvent
	filters []entity.EventFilter
	failOn  func(entity.EventFilter) error
}

func (f *fakeEvents) List(_ context.Context, filter entity.EventFilter) ([]entity.WidgetEvent, error) {
	f.mu.Lock()
	f.filters = append(f.filters, filter)
	f.mu.Unlock()

	if f.failOn != nil {
		if err := f.failOn(filter); err != nil {
			return nil, err
		}
	}

	ids := make(map[string]bool, len(filter.WidgetIDs))
	for _, id := range filter.WidgetIDs {
		ids[id] = true
	}

	var out []entity.WidgetEvent
	for _, ev := range f.events {
		if !ids[ev.WidgetID] || !inRange(ev.CreatedAt, filter.From, filter.To, filter.ToInclusive) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

type fakeUsers struct {
	createdAt  []time.Time
	countErr   error
	listErr    error
	mu         sync.Mutex
	countCalls int
}

func (f *fakeUsers) Count(_ context.Context, filter entity.UserFilter) (int, error) {
	f.mu.Lock()
	f.countCalls++
	f.mu.Unlock()

	if f.countErr != nil {
		return 0, f.countErr
	}
	n := 0
	for _, t := range f.createdAt {
		if inRange(t, filter.From, filter.To, filter.ToInclusive) {
			n++
		}
	}
	return n, nil
}

func (f *fakeUsers) ListCreatedAt(_ context.Context, filter entity.UserFilter) ([]time.Time, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []time.Time
	for _, t := range f.createdAt {
		if inRange(t, filter.From, filter.To, filter.ToInclusive) {
			out = append(out, t)
		}
	}
	return out, nil
}

func inRange(t, from, to time.Time, inclusive bool) bool {
	if t.Before(from) {
		return false
	}
	if inclusive {
		return !t.After(to)
	}
	return t.Before(to)
}

func newTestService(w *fakeWidgets, e *fakeEvents, u *fakeUsers) *Service {
	return New(w, e, u, WithClock(func() time.Time { return testNow }))
}

func TestService_GetReport_MissingWorkspace(t *testing.T) {
	svc := newTestService(&fakeWidgets{}, &fakeEvents{}, &fakeUsers{})

	report, err := svc.GetReport(context.Background(), GetReportInput{})

	assert.Nil(t, report)
	assert.ErrorIs(t, err, entity.ErrMissingWorkspaceID)
}

func TestService_GetReport_NoWidgets(t *testing.T) {
	events := &fakeEvents{}
	users := &fakeUsers{}
	svc := newTestService(&fakeWidgets{}, events, users)

	report, err := svc.GetReport(context.Background(), GetReportInput{WorkspaceID: "ws1", Period: entity.Period30d})

	require.NoError(t, err)
	assert.Equal(t, entity.Period30d, report.Period)
	assert.Equal(t, testNow, report.PeriodEnd)
	assert.Equal(t, testNow.AddDate(0, 0, -30), report.PeriodStart)
	assert.Equal(t, entity.StatsWithChanges{}, report.Stats)
	assert.NotNil(t, report.TimeSeries)
	assert.Empty(t, report.TimeSeries)
	assert.NotNil(t, report.Glances)
	assert.Empty(t, report.Glances)

	// no event or user reads for an empty workspace
	assert.Empty(t, events.filters)
	assert.Zero(t, users.countCalls)
}

func TestService_GetReport_SingleSession(t *testing.T) {
	t0 := testNow.Add(-26 * time.Hour)
	widgets := &fakeWidgets{widgets: []entity.Widget{{ID: "w1", WorkspaceID: "ws1", Name: "Support"}}}
	events := &fakeEvents{events: []entity.WidgetEvent{
		ev("s1", "w1", entity.EventPageView, t0),
		ev("s1", "w1", entity.EventWidgetOpened, t0.Add(5*time.Second)),
		ev("s1", "w1", entity.EventWidgetOpened, t0.Add(40*time.Second)),
	}}
	svc := newTestService(widgets, events, &fakeUsers{})

	report, err := svc.GetReport(context.Background(), GetReportInput{WorkspaceID: "ws1", Period: entity.Period7d})

	require.NoError(t, err)
	stats := report.Stats
	assert.Equal(t, 1, stats.Visitors)
	assert.Equal(t, 2, stats.WidgetOpens)
	assert.Equal(t, 1, stats.UniqueWidgetOpens)
	assert.Equal(t, 100.0, stats.ConversionRate)
	assert.Equal(t, 100.0, stats.Changes.Visitors)
	assert.Equal(t, 100.0, stats.Changes.ConversionRate)

	require.Len(t, report.Glances, 1)
	assert.Equal(t, entity.GlanceStats{ID: "w1", Name: "Support", Visitors: 1, AvgSessionSeconds: 40}, report.Glances[0])

	require.Len(t, report.TimeSeries, 8)
	var total int
	for _, p := range report.TimeSeries {
		total += p.WidgetOpens
	}
	assert.Equal(t, stats.WidgetOpens, total)
}

func TestService_GetReport_ComparesWithPreviousWindow(t *testing.T) {
	widgets := &fakeWidgets{widgets: []entity.Widget{{ID: "w1", Name: "Support"}}}

	var evs []entity.WidgetEvent
	for i := 0; i < 10; i++ {
		evs = append(evs, ev(string(rune('a'+i)), "w1", entity.EventPageView, testNow.Add(-time.Duration(i+1)*time.Hour)))
	}
	for i := 0; i < 5; i++ {
		evs = append(evs, ev(string(rune('A'+i)), "w1", entity.EventPageView, testNow.AddDate(0, 0, -10)))
	}
	users := &fakeUsers{createdAt: []time.Time{
		testNow.Add(-time.Hour),
		testNow.AddDate(0, 0, -9),
		testNow.AddDate(0, 0, -9),
	}}
	svc := newTestService(widgets, &fakeEvents{events: evs}, users)

	report, err := svc.GetReport(context.Background(), GetReportInput{WorkspaceID: "ws1", Period: entity.Period7d})

	require.NoError(t, err)
	assert.Equal(t, 10, report.Stats.Visitors)
	assert.Equal(t, 100.0, report.Stats.Changes.Visitors)
	assert.Equal(t, 1, report.Stats.UsersCreated)
	assert.Equal(t, -50.0, report.Stats.Changes.UsersCreated)
	assert.Equal(t, 0.0, report.Stats.Changes.WidgetOpens)
}

func TestService_GetReport_WindowBoundaries(t *testing.T) {
	widgets := &fakeWidgets{widgets: []entity.Widget{{ID: "w1", Name: "Support"}}}
	start := testNow.AddDate(0, 0, -7)
	events := &fakeEvents{events: []entity.WidgetEvent{
		// period start belongs to the current window only
		ev("boundary", "w1", entity.EventPageView, start),
		// now is inclusive
		ev("edge", "w1", entity.EventPageView, testNow),
		ev("old", "w1", entity.EventPageView, start.Add(-time.Second)),
	}}
	svc := newTestService(widgets, events, &fakeUsers{})

	report, err := svc.GetReport(context.Background(), GetReportInput{WorkspaceID: "ws1", Period: entity.Period7d})

	require.NoError(t, err)
	assert.Equal(t, 2, report.Stats.Visitors)
	// previous window had one visitor
	assert.Equal(t, 100.0, report.Stats.Changes.Visitors)

	require.Len(t, events.filters, 2)
	for _, f := range events.filters {
		assert.Equal(t, []string{"w1"}, f.WidgetIDs)
		if f.From.Equal(start) {
			assert.True(t, f.ToInclusive)
			assert.Equal(t, testNow, f.To)
		} else {
			assert.Equal(t, start.AddDate(0, 0, -7), f.From)
			assert.Equal(t, start, f.To)
			assert.False(t, f.ToInclusive)
		}
	}
}

func TestService_GetReport_InvalidPeriodFallsBack(t *testing.T) {
	svc := newTestService(&fakeWidgets{}, &fakeEvents{}, &fakeUsers{})

	report, err := svc.GetReport(context.Background(), GetReportInput{WorkspaceID: "ws1", Period: "1y"})

	require.NoError(t, err)
	assert.Equal(t, entity.DefaultPeriod, report.Period)
	assert.Equal(t, testNow.AddDate(0, 0, -7), report.PeriodStart)
}

func TestService_GetReport_StageFailures(t *testing.T) {
	dbErr := errors.New("connection reset")
	widgets := []entity.Widget{{ID: "w1", Name: "Support"}}

	tests := []struct {
		name    string
		widgets *fakeWidgets
		events  *fakeEvents
		users   *fakeUsers
		stage   string
	}{
		{
			name:    "widgets",
			widgets: &fakeWidgets{err: dbErr},
			events:  &fakeEvents{},
			users:   &fakeUsers{},
			stage:   entity.StageWidgets,
		},
		{
			name:    "previous events",
			widgets: &fakeWidgets{widgets: widgets},
			events: &fakeEvents{failOn: func(f entity.EventFilter) error {
				if !f.ToInclusive {
					return dbErr
				}
				return nil
			}},
			users: &fakeUsers{},
			stage: entity.StagePreviousEvents,
		},
		{
			name:    "daily users",
			widgets: &fakeWidgets{widgets: widgets},
			events:  &fakeEvents{},
			users:   &fakeUsers{listErr: dbErr},
			stage:   entity.StageDailyUsers,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(tt.widgets, tt.events, tt.users)

			report, err := svc.GetReport(context.Background(), GetReportInput{WorkspaceID: "ws1"})

			assert.Nil(t, report)
			require.Error(t, err)
			assert.ErrorIs(t, err, entity.ErrAggregationFailure)
			assert.ErrorIs(t, err, dbErr)

			var aggErr *entity.AggregationError
			require.ErrorAs(t, err, &aggErr)
			assert.Equal(t, tt.stage, aggErr.Stage)
		})
	}
}

func TestService_GetReport_UserCountFailure(t *testing.T) {
	dbErr := errors.New("timeout")
	svc := newTestService(
		&fakeWidgets{widgets: []entity.Widget{{ID: "w1"}}},
		&fakeEvents{},
		&fakeUsers{countErr: dbErr},
	)

	_, err := svc.GetReport(context.Background(), GetReportInput{WorkspaceID: "ws1"})

	var aggErr *entity.AggregationError
	require.ErrorAs(t, err, &aggErr)
	// both counts fail, whichever lands first wins
	assert.Contains(t, []string{entity.StageCurrentUsers, entity.StagePreviousUsers}, aggErr.Stage)
}

func TestService_GetReport_Idempotent(t *testing.T) {
	t0 := testNow.Add(-3 * time.Hour)
	widgets := &fakeWidgets{widgets: []entity.Widget{{ID: "w1", Name: "A"}, {ID: "w2", Name: "B"}}}
	events := &fakeEvents{events: []entity.WidgetEvent{
		ev("s1", "w1", entity.EventWidgetOpened, t0),
		ev("s2", "w2", entity.EventPageView, t0),
		ev("s2", "w2", entity.EventChatStarted, t0.Add(time.Minute)),
		ev("s3", "w2", entity.EventFormSubmitted, t0.Add(time.Hour)),
	}}
	users := &fakeUsers{createdAt: []time.Time{t0}}
	svc := newTestService(widgets, events, users)

	in := GetReportInput{WorkspaceID: "ws1", Period: entity.Period24h}
	first, err := svc.GetReport(context.Background(), in)
	require.NoError(t, err)
	second, err := svc.GetReport(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, first.Glances, 2)
	assert.Equal(t, "w2", first.Glances[0].ID)
}
