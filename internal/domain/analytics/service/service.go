package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vadim/glance/internal/domain/analytics/entity"
)

// WidgetRepository resolves the widgets of a workspace
type WidgetRepository interface {
	GetByWorkspaceID(ctx context.Context, workspaceID string) ([]entity.Widget, error)
}

// EventRepository reads widget events
type EventRepository interface {
	List(ctx context.Context, filter entity.EventFilter) ([]entity.WidgetEvent, error)
}

// UserRepository reads widget user (account) creations
type UserRepository interface {
	Count(ctx context.Context, filter entity.UserFilter) (int, error)
	ListCreatedAt(ctx context.Context, filter entity.UserFilter) ([]time.Time, error)
}

// Service computes analytics reports
type Service struct {
	widgets WidgetRepository
	events  EventRepository
	users   UserRepository
	now     func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the time source used to place the reporting window
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a new analytics service
func New(widgets WidgetRepository, events EventRepository, users UserRepository, opts ...Option) *Service {
	s := &Service{
		widgets: widgets,
		events:  events,
		users:   users,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetReportInput represents input for computing a report
type GetReportInput struct {
	WorkspaceID string
	Period      entity.Period
}

// GetReport aggregates the current and previous windows of a workspace.
// Any read failure aborts the whole report with an *entity.AggregationError.
func (s *Service) GetReport(ctx context.Context, in GetReportInput) (*entity.Report, error) {
	if in.WorkspaceID == "" {
		return nil, entity.ErrMissingWorkspaceID
	}

	period := in.Period
	if !period.IsValid() {
		period = entity.DefaultPeriod
	}
	window := period.WindowAt(s.now().UTC())

	widgets, err := s.widgets.GetByWorkspaceID(ctx, in.WorkspaceID)
	if err != nil {
		return nil, &entity.AggregationError{Stage: entity.StageWidgets, Err: err}
	}
	if len(widgets) == 0 {
		return EmptyReport(period, window), nil
	}

	names := make(map[string]string, len(widgets))
	widgetIDs := make([]string, 0, len(widgets))
	for _, w := range widgets {
		names[w.ID] = w.Name
		widgetIDs = append(widgetIDs, w.ID)
	}

	var (
		currEvents, prevEvents []entity.WidgetEvent
		currUsers, prevUsers   int
		dailyUsers             []time.Time
	)

	currentUsers := entity.UserFilter{WorkspaceID: in.WorkspaceID, From: window.Start, To: window.End, ToInclusive: true}
	previousUsers := entity.UserFilter{WorkspaceID: in.WorkspaceID, From: window.PrevStart, To: window.Start}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		currEvents, err = s.events.List(gctx, entity.EventFilter{
			WidgetIDs: widgetIDs, From: window.Start, To: window.End, ToInclusive: true,
		})
		return stageErr(entity.StageCurrentEvents, err)
	})
	g.Go(func() error {
		var err error
		prevEvents, err = s.events.List(gctx, entity.EventFilter{
			WidgetIDs: widgetIDs, From: window.PrevStart, To: window.Start,
		})
		return stageErr(entity.StagePreviousEvents, err)
	})
	g.Go(func() error {
		var err error
		currUsers, err = s.users.Count(gctx, currentUsers)
		return stageErr(entity.StageCurrentUsers, err)
	})
	g.Go(func() error {
		var err error
		prevUsers, err = s.users.Count(gctx, previousUsers)
		return stageErr(entity.StagePreviousUsers, err)
	})
	g.Go(func() error {
		var err error
		dailyUsers, err = s.users.ListCreatedAt(gctx, currentUsers)
		return stageErr(entity.StageDailyUsers, err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	curr := ComputeStats(currEvents, currUsers)
	prev := ComputeStats(prevEvents, prevUsers)

	return &entity.Report{
		Period:      period,
		PeriodStart: window.Start,
		PeriodEnd:   window.End,
		Stats: entity.StatsWithChanges{
			Stats:   curr,
			Changes: ComputeChanges(curr, prev),
		},
		TimeSeries: ComputeTimeSeries(window.Start, window.End, currEvents, dailyUsers),
		Glances:    ComputeGlances(currEvents, names),
	}, nil
}

func stageErr(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &entity.AggregationError{Stage: stage, Err: err}
}
