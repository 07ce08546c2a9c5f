package polling

import (
	"context"
	"fmt"

	"gitlab.com/judge-relay.net/internal/core/ports/primary"
	"gitlab.com/judge-relay.net/internal/core/ports/secondary"
	"gitlab.com/judge-relay.net/internal/domain"
	"gitlab.com/judge-relay.net/internal/static/errs"
)

var _ IPollingGateway = (*PollingGateway)(nil)

type PollingGateway struct {
	submissions secondary.SubmissionRepository
	ephemeral   secondary.EphemeralResultStore
	logger      primary.Logger
}

func NewPollingGateway(submissions secondary.SubmissionRepository, ephemeral secondary.EphemeralResultStore, logger primary.Logger) *PollingGateway {
	return &PollingGateway{
		submissions: submissions,
		ephemeral:   ephemeral,
		logger:      logger,
	}
}

func (g *PollingGateway) GetStatus(ctx context.Context, jobID string) (*domain.StatusView, error) {
	ref, err := domain.ParseJobRef(jobID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrJobNotFound, err)
	}

	if ref.IsEphemeral() {
		result, err := g.ephemeral.Get(ctx, ref.String())
		if err != nil {
			g.logger.Error("Failed to read run result", "jobId", ref.String(), "error", err)
			return nil, fmt.Errorf("failed to read run result: %w", err)
		}
		if result == nil {
			return nil, errs.ErrExpired
		}
		return result.StatusView(), nil
	}

	submission, err := g.submissions.Get(ctx, ref.LedgerID())
	if err != nil {
		g.logger.Error("Failed to read submission", "jobId", ref.String(), "error", err)
		return nil, fmt.Errorf("failed to read submission: %w", err)
	}
	if submission == nil {
		return nil, errs.ErrJobNotFound
	}
	return submission.StatusView(), nil
}
