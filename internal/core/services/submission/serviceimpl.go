package submission

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"gitlab.com/judge-relay.net/internal/config"
	"gitlab.com/judge-relay.net/internal/core/ports/primary"
	"gitlab.com/judge-relay.net/internal/core/ports/secondary"
	"gitlab.com/judge-relay.net/internal/core/services/dispatch"
	"gitlab.com/judge-relay.net/internal/core/services/encoder"
	"gitlab.com/judge-relay.net/internal/domain"
	"gitlab.com/judge-relay.net/internal/static/errs"
)

var _ ISubmissionService = (*SubmissionService)(nil)

type SubmissionService struct {
	submissions secondary.SubmissionRepository
	problems    secondary.ProblemRepository
	ephemeral   secondary.EphemeralResultStore
	encoder     encoder.IEncoder
	dispatcher  dispatch.IDispatcher
	cfg         *config.SubmissionConfig
	logger      primary.Logger
	now         func() time.Time
}

func NewSubmissionService(
	submissions secondary.SubmissionRepository,
	problems secondary.ProblemRepository,
	ephemeral secondary.EphemeralResultStore,
	enc encoder.IEncoder,
	dispatcher dispatch.IDispatcher,
	cfg *config.SubmissionConfig,
	logger primary.Logger,
) *SubmissionService {
	return &SubmissionService{
		submissions: submissions,
		problems:    problems,
		ephemeral:   ephemeral,
		encoder:     enc,
		dispatcher:  dispatcher,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock replaces the clock used for event windows and timestamps.
func (s *SubmissionService) WithClock(now func() time.Time) *SubmissionService {
	s.now = now
	return s
}

func (s *SubmissionService) Submit(ctx context.Context, p domain.Principal, req SubmitRequest) (*Accepted, error) {
	language, err := s.validate(req.ProblemID, req.Code, req.Language)
	if err != nil {
		return nil, err
	}
	ownerID, err := p.OwnerID(s.cfg.OwnerKind)
	if err != nil {
		return nil, err
	}
	problem, err := s.authorize(ctx, p, req.ProblemID)
	if err != nil {
		return nil, err
	}

	submission := domain.NewPendingSubmission(s.cfg.OwnerKind, ownerID, problem, req.Code, language, s.now())
	if err := s.submissions.Create(ctx, submission); err != nil {
		s.logger.Error("Failed to create submission", "problemId", problem.ID, "owner", ownerID, "error", err)
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}

	s.logger.Info("Submission created",
		"submissionId", submission.ID,
		"problemId", problem.ID,
		"ownerKind", s.cfg.OwnerKind,
		"owner", ownerID,
		"language", language)

	s.dispatch(ctx, domain.TaskClassSubmit, domain.TaskRequest{
		JobID:      submission.JobRef(),
		SourceCode: submission.Code,
		Language:   language,
		ProblemID:  problem.ID,
		InputPath:  problem.TestCasePath,
	})

	return &Accepted{JobID: submission.JobRef().String(), Verdict: domain.VerdictPending}, nil
}

func (s *SubmissionService) Run(ctx context.Context, p domain.Principal, req RunRequest) (*Accepted, error) {
	language, err := s.validate(req.ProblemID, req.Code, req.Language)
	if err != nil {
		return nil, err
	}
	problem, err := s.authorize(ctx, p, req.ProblemID)
	if err != nil {
		return nil, err
	}

	return s.runEphemeral(ctx, domain.TaskClassRun, problem, req, language, problem.TestCasePath)
}

func (s *SubmissionService) RunReference(ctx context.Context, p domain.Principal, req RunRequest) (*Accepted, error) {
	if !p.IsAdmin() {
		return nil, errs.ErrAdminOnly
	}
	language, err := s.validate(req.ProblemID, req.Code, req.Language)
	if err != nil {
		return nil, err
	}
	problem, err := s.loadProblem(ctx, req.ProblemID)
	if err != nil {
		return nil, err
	}

	return s.runEphemeral(ctx, domain.TaskClassReference, problem, req, language, problem.SolutionPath)
}

func (s *SubmissionService) History(ctx context.Context, p domain.Principal) ([]*domain.Submission, error) {
	ownerID, err := p.OwnerID(s.cfg.OwnerKind)
	if err != nil {
		return nil, err
	}

	list, err := s.submissions.ListByOwner(ctx, s.cfg.OwnerKind, ownerID, s.cfg.HistoryLimit)
	if err != nil {
		s.logger.Error("Failed to list submissions", "owner", ownerID, "error", err)
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return list, nil
}

func (s *SubmissionService) runEphemeral(
	ctx context.Context,
	class domain.TaskClass,
	problem *domain.Problem,
	req RunRequest,
	language, inputPath string,
) (*Accepted, error) {
	ref, err := encoder.NewEphemeralID(class)
	if err != nil {
		return nil, fmt.Errorf("failed to mint job id: %w", err)
	}

	// an immediate poll must see Pending rather than "expired"
	pending := &domain.EphemeralResult{
		JobID:     ref.String(),
		Class:     class,
		Verdict:   domain.VerdictPending,
		UpdatedAt: s.now(),
	}
	if err := s.ephemeral.Put(ctx, pending); err != nil {
		s.logger.Warn("Failed to record pending run", "jobId", ref.String(), "error", err)
	}

	s.dispatch(ctx, class, domain.TaskRequest{
		JobID:       ref,
		SourceCode:  req.Code,
		Language:    language,
		ProblemID:   problem.ID,
		InputPath:   inputPath,
		CustomInput: req.CustomInput,
	})

	return &Accepted{JobID: ref.String(), Verdict: domain.VerdictPending}, nil
}

func (s *SubmissionService) dispatch(ctx context.Context, class domain.TaskClass, req domain.TaskRequest) {
	payload, err := s.encoder.Encode(req)
	if err != nil {
		s.logger.Error("Failed to encode task", "jobId", req.JobID.String(), "class", class, "error", err)
		return
	}
	s.dispatcher.Dispatch(ctx, class, payload)
}

func (s *SubmissionService) validate(problemID int64, code, language string) (string, error) {
	if problemID <= 0 {
		return "", errs.Validation("problem_id is required")
	}
	if strings.TrimSpace(code) == "" {
		return "", errs.Validation("code is required")
	}
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		return "", errs.Validation("language is required")
	}
	if !slices.Contains(s.cfg.SupportedLanguages, language) {
		return "", errs.Validation("unsupported language %q", language)
	}
	return language, nil
}

func (s *SubmissionService) loadProblem(ctx context.Context, problemID int64) (*domain.Problem, error) {
	problem, err := s.problems.GetProblem(ctx, problemID)
	if err != nil {
		s.logger.Error("Failed to load problem", "problemId", problemID, "error", err)
		return nil, fmt.Errorf("failed to load problem: %w", err)
	}
	if problem == nil {
		return nil, errs.ErrProblemNotFound
	}
	return problem, nil
}

// authorize checks that the problem belongs to the caller's event and that
// the event is running.
func (s *SubmissionService) authorize(ctx context.Context, p domain.Principal, problemID int64) (*domain.Problem, error) {
	problem, err := s.loadProblem(ctx, problemID)
	if err != nil {
		return nil, err
	}
	if problem.EventID != p.EventID {
		return nil, errs.ErrEventMismatch
	}

	event, err := s.problems.GetEvent(ctx, problem.EventID)
	if err != nil {
		s.logger.Error("Failed to load event", "eventId", problem.EventID, "error", err)
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	if event == nil {
		return nil, fmt.Errorf("event %d of problem %d does not exist", problem.EventID, problem.ID)
	}
	if err := event.CheckOpen(s.now()); err != nil {
		return nil, err
	}
	return problem, nil
}
