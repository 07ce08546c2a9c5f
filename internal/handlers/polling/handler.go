package polling

import (
	"net/http"

	"github.com/gorilla/mux"

	"gitlab.com/judge-relay.net/internal/core/services/polling"
	"gitlab.com/judge-relay.net/internal/handlers/response"
)

type PollingHandler struct {
	gateway polling.IPollingGateway
}

func NewPollingHandler(gateway polling.IPollingGateway) *PollingHandler {
	return &PollingHandler{gateway: gateway}
}

func (h *PollingHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/polling/{jobId}", h.GetStatus).Methods(http.MethodGet)
}

func (h *PollingHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	view, err := h.gateway.GetStatus(r.Context(), mux.Vars(r)["jobId"])
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.WriteSuccess(w, view)
}
