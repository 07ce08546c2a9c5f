package secondary

import (
	"context"

	"gitlab.com/judge-relay.net/internal/domain"
)

type ProblemRepository interface {
	GetProblem(ctx context.Context, id int64) (*domain.Problem, error)
	GetEvent(ctx context.Context, id int64) (*domain.Event, error)
	// ListProblemsByEvent returns the event's problems ordered by id
	ListProblemsByEvent(ctx context.Context, eventID int64) ([]*domain.Problem, error)
}

type OwnerRepository interface {
	GetOwner(ctx context.Context, kind domain.OwnerKind, id int64) (*domain.OwnerAggregate, error)
	ListOwnersByEvent(ctx context.Context, kind domain.OwnerKind, eventID int64) ([]*domain.OwnerAggregate, error)
}
