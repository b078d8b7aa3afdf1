package main

import (
	"context"
	"log/slog"

	"github.com/moxie99/ai-reputation/pkg/person"
	"github.com/moxie99/ai-reputation/pkg/pipeline"
	"github.com/moxie99/ai-reputation/pkg/store"
)

// reportService runs the pipeline and persists finished reports.
type reportService struct {
	p      *pipeline.Pipeline
	db     *store.Store
	logger *slog.Logger
}

func (s reportService) Generate(ctx context.Context, target person.Target) (person.ReputationReport, error) {
	report, err := s.p.Generate(ctx, target)
	if err != nil {
		return person.ReputationReport{}, err
	}

	if s.db != nil {
		if err := s.db.SaveReport(report); err != nil {
			s.logger.WarnContext(ctx, "report not persisted", "report_id", report.ID, "error", err)
		}
	}
	return report, nil
}
