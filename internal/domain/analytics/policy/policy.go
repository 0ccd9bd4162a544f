package policy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vadim/glance/internal/domain/analytics/entity"
	"github.com/vadim/glance/internal/domain/analytics/service"
	"github.com/vadim/glance/internal/storage"
)

// ReportService computes analytics reports
type ReportService interface {
	GetReport(ctx context.Context, in service.GetReportInput) (*entity.Report, error)
}

// MembershipChecker verifies that a user belongs to a workspace
type MembershipChecker interface {
	IsMember(ctx context.Context, workspaceID, userID string) (bool, error)
}

// ReportCache stores recently computed reports
type ReportCache interface {
	Get(ctx context.Context, workspaceID string, period entity.Period) (*entity.Report, error)
	Set(ctx context.Context, workspaceID string, report *entity.Report) error
}

// ReportStore persists exported reports
type ReportStore interface {
	PutReport(ctx context.Context, in storage.PutReportInput) (*storage.PutReportOutput, error)
}

// Recorder receives aggregation metrics
type Recorder interface {
	ObserveAggregation(period string, d time.Duration)
	IncAggregationFailure(stage string)
	IncCacheHit()
	IncCacheMiss()
	IncExport(status string)
}

// Policy authorizes analytics access and fronts the service with a cache
type Policy struct {
	svc          ReportService
	members      MembershipChecker
	cache        ReportCache
	store        ReportStore
	metrics      Recorder
	logger       *slog.Logger
	exportPeriod entity.Period
}

// Config holds optional policy dependencies. Nil Cache disables caching,
// nil Store disables exports.
type Config struct {
	Cache        ReportCache
	Store        ReportStore
	ExportPeriod entity.Period
}

// New creates a new analytics policy
func New(svc ReportService, members MembershipChecker, metrics Recorder, logger *slog.Logger, cfg Config) *Policy {
	exportPeriod := cfg.ExportPeriod
	if !exportPeriod.IsValid() {
		exportPeriod = entity.DefaultPeriod
	}
	return &Policy{
		svc:          svc,
		members:      members,
		cache:        cfg.Cache,
		store:        cfg.Store,
		metrics:      metrics,
		logger:       logger,
		exportPeriod: exportPeriod,
	}
}

// GetReportInput represents input for reading a report
type GetReportInput struct {
	UserID      string
	WorkspaceID string
	Period      entity.Period
}

// GetReport returns the analytics report for a workspace the user belongs to
func (p *Policy) GetReport(ctx context.Context, in GetReportInput) (*entity.Report, error) {
	if err := p.authorize(ctx, in.UserID, in.WorkspaceID); err != nil {
		return nil, err
	}

	period := in.Period
	if !period.IsValid() {
		period = entity.DefaultPeriod
	}

	if p.cache != nil {
		cached, err := p.cache.Get(ctx, in.WorkspaceID, period)
		if err != nil {
			p.logger.Warn("report cache read failed", "workspace_id", in.WorkspaceID, "period", period, "error", err)
		} else if cached != nil {
			p.metrics.IncCacheHit()
			return cached, nil
		}
		p.metrics.IncCacheMiss()
	}

	report, err := p.compute(ctx, in.WorkspaceID, period)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, in.WorkspaceID, report); err != nil {
			p.logger.Warn("report cache write failed", "workspace_id", in.WorkspaceID, "period", period, "error", err)
		}
	}

	return report, nil
}

// ExportInput represents input for exporting a report
type ExportInput struct {
	UserID      string
	WorkspaceID string
	Period      entity.Period
}

// ExportOutput describes an exported report
type ExportOutput struct {
	Key  string
	URL  string
	Size int64
}

// Export computes a fresh report and stores it as JSON
func (p *Policy) Export(ctx context.Context, in ExportInput) (*ExportOutput, error) {
	if err := p.authorize(ctx, in.UserID, in.WorkspaceID); err != nil {
		return nil, err
	}
	period := in.Period
	if !period.IsValid() {
		period = entity.DefaultPeriod
	}
	return p.export(ctx, in.WorkspaceID, period)
}

// ExportSnapshot exports the default snapshot period for a workspace.
// It runs on behalf of the system and skips membership checks.
func (p *Policy) ExportSnapshot(ctx context.Context, workspaceID string) (*ExportOutput, error) {
	if workspaceID == "" {
		return nil, entity.ErrMissingWorkspaceID
	}
	return p.export(ctx, workspaceID, p.exportPeriod)
}

func (p *Policy) export(ctx context.Context, workspaceID string, period entity.Period) (*ExportOutput, error) {
	if p.store == nil {
		return nil, fmt.Errorf("%w: report storage is not configured", entity.ErrExportFailure)
	}

	report, err := p.compute(ctx, workspaceID, period)
	if err != nil {
		p.metrics.IncExport("error")
		return nil, err
	}

	body, err := json.Marshal(report)
	if err != nil {
		p.metrics.IncExport("error")
		return nil, fmt.Errorf("%w: encoding report: %w", entity.ErrExportFailure, err)
	}

	out, err := p.store.PutReport(ctx, storage.PutReportInput{
		WorkspaceID: workspaceID,
		Period:      string(period),
		Body:        body,
	})
	if err != nil {
		p.metrics.IncExport("error")
		p.logger.Error("report export failed", "workspace_id", workspaceID, "period", period, "error", err)
		return nil, fmt.Errorf("%w: %w", entity.ErrExportFailure, err)
	}

	p.metrics.IncExport("success")
	p.logger.Info("report exported", "workspace_id", workspaceID, "period", period, "key", out.Key)

	return &ExportOutput{Key: out.Key, URL: out.URL, Size: out.Size}, nil
}

func (p *Policy) authorize(ctx context.Context, userID, workspaceID string) error {
	if workspaceID == "" {
		return entity.ErrMissingWorkspaceID
	}
	if userID == "" {
		return entity.ErrUnauthorized
	}

	ok, err := p.members.IsMember(ctx, workspaceID, userID)
	if err != nil {
		p.logger.Error("membership check failed", "workspace_id", workspaceID, "user_id", userID, "error", err)
		return fmt.Errorf("authorizing workspace access: %w", err)
	}
	if !ok {
		return entity.ErrForbidden
	}
	return nil
}

func (p *Policy) compute(ctx context.Context, workspaceID string, period entity.Period) (*entity.Report, error) {
	start := time.Now()

	report, err := p.svc.GetReport(ctx, service.GetReportInput{
		WorkspaceID: workspaceID,
		Period:      period,
	})
	if err != nil {
		stage := "unknown"
		var aggErr *entity.AggregationError
		if errors.As(err, &aggErr) {
			stage = aggErr.Stage
		}
		p.metrics.IncAggregationFailure(stage)
		p.logger.Error("analytics aggregation failed",
			"workspace_id", workspaceID,
			"period", period,
			"stage", stage,
			"error", err,
		)
		return nil, err
	}

	p.metrics.ObserveAggregation(string(period), time.Since(start))
	return report, nil
}
