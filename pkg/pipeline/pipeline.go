// Package pipeline ties retrieval and report building into the single
// generate-report operation.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/moxie99/ai-reputation/pkg/person"
	"github.com/moxie99/ai-reputation/pkg/report"
	"github.com/moxie99/ai-reputation/pkg/retrieval"
)

// Pipeline runs retrieval and assembles reports.
type Pipeline struct {
	orchestrator *retrieval.Orchestrator
	builder      *report.Builder
	logger       *slog.Logger
}

// New creates a Pipeline.
func New(orchestrator *retrieval.Orchestrator, builder *report.Builder, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{orchestrator: orchestrator, builder: builder, logger: logger}
}

// Generate retrieves everything available about the target and builds the
// report. Individual source and analysis failures degrade the report
// rather than failing it; Generate errors only when retrieval cannot run
// at all.
func (p *Pipeline) Generate(ctx context.Context, target person.Target) (person.ReputationReport, error) {
	result, err := p.orchestrator.Run(ctx, target)
	if err != nil {
		return person.ReputationReport{}, fmt.Errorf("retrieval: %w", err)
	}

	if len(result.Results) == 0 {
		p.logger.WarnContext(ctx, "no records retrieved",
			"target", target.Name, "failed_sources", len(result.SourceErrors))
	}

	return p.builder.Build(ctx, target, result.Results), nil
}
