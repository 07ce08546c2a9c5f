package submissions

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"gitlab.com/judge-relay.net/internal/core/ports/primary"
	"gitlab.com/judge-relay.net/internal/core/services/submission"
	"gitlab.com/judge-relay.net/internal/handlers"
	"gitlab.com/judge-relay.net/internal/handlers/response"
	"gitlab.com/judge-relay.net/internal/static/errs"
)

// SubmissionHandler is the intake API for graded submissions and runs
type SubmissionHandler struct {
	submissionService submission.ISubmissionService
	logger            primary.Logger
}

func NewSubmissionHandler(submissionService submission.ISubmissionService, logger primary.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		submissionService: submissionService,
		logger:            logger,
	}
}

// RegisterRoutes registers the routes on an authenticated router
func (h *SubmissionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/submissions/submit", h.Submit).Methods(http.MethodPost)
	router.HandleFunc("/submissions/run", h.Run).Methods(http.MethodPost)
	router.HandleFunc("/submissions/history", h.History).Methods(http.MethodGet)
}

// RegisterAdminRoutes registers the routes on an admin-only router
func (h *SubmissionHandler) RegisterAdminRoutes(router *mux.Router) {
	router.HandleFunc("/problems/{problemId}/reference-run", h.RunReference).Methods(http.MethodPost)
}

func (h *SubmissionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	principal, ok := handlers.MustPrincipal(w, r)
	if !ok {
		return
	}

	var req submission.SubmitRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		response.FromError(w, err)
		return
	}

	accepted, err := h.submissionService.Submit(r.Context(), principal, req)
	if err != nil {
		h.logger.Debug("Submission rejected", "userId", principal.UserID, "error", err)
		response.FromError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusAccepted, accepted)
}

func (h *SubmissionHandler) Run(w http.ResponseWriter, r *http.Request) {
	principal, ok := handlers.MustPrincipal(w, r)
	if !ok {
		return
	}

	var req submission.RunRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		response.FromError(w, err)
		return
	}

	accepted, err := h.submissionService.Run(r.Context(), principal, req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusAccepted, accepted)
}

func (h *SubmissionHandler) RunReference(w http.ResponseWriter, r *http.Request) {
	principal, ok := handlers.MustPrincipal(w, r)
	if !ok {
		return
	}

	problemID, err := strconv.ParseInt(mux.Vars(r)["problemId"], 10, 64)
	if err != nil {
		response.FromError(w, errs.Validation("invalid problem id"))
		return
	}

	var req submission.RunRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		response.FromError(w, err)
		return
	}
	req.ProblemID = problemID

	accepted, err := h.submissionService.RunReference(r.Context(), principal, req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusAccepted, accepted)
}

func (h *SubmissionHandler) History(w http.ResponseWriter, r *http.Request) {
	principal, ok := handlers.MustPrincipal(w, r)
	if !ok {
		return
	}

	list, err := h.submissionService.History(r.Context(), principal)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.WriteSuccess(w, map[string]interface{}{"submissions": list})
}
