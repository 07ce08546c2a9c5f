package results

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"gitlab.com/judge-relay.net/internal/core/services/standing"
	"gitlab.com/judge-relay.net/internal/handlers"
	"gitlab.com/judge-relay.net/internal/handlers/response"
	"gitlab.com/judge-relay.net/internal/static/errs"
)

type ResultHandler struct {
	standingService standing.IStandingService
}

func NewResultHandler(standingService standing.IStandingService) *ResultHandler {
	return &ResultHandler{standingService: standingService}
}

func (h *ResultHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/result", h.GetStanding).Methods(http.MethodGet)
	router.HandleFunc("/leaderboard", h.GetLeaderboard).Methods(http.MethodGet)
}

// GetStanding reports the caller's score, accuracy and rank
func (h *ResultHandler) GetStanding(w http.ResponseWriter, r *http.Request) {
	principal, ok := handlers.MustPrincipal(w, r)
	if !ok {
		return
	}

	st, err := h.standingService.GetStanding(r.Context(), principal)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.WriteSuccess(w, st)
}

// GetLeaderboard ranks the caller's event; ?page= and ?limit= page through it
func (h *ResultHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	principal, ok := handlers.MustPrincipal(w, r)
	if !ok {
		return
	}

	page, err := queryInt(r, "page")
	if err != nil {
		response.FromError(w, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		response.FromError(w, err)
		return
	}

	board, err := h.standingService.GetLeaderboard(r.Context(), principal.EventID, page, limit)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.WriteSuccess(w, board)
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errs.Validation("%s must be a non-negative integer", key)
	}
	return n, nil
}
