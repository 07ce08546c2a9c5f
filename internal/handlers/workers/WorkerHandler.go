package workers

import (
	"net/http"

	"github.com/gorilla/mux"

	"gitlab.com/judge-relay.net/internal/core/services/worker"
	"gitlab.com/judge-relay.net/internal/handlers"
	"gitlab.com/judge-relay.net/internal/handlers/response"
)

// ApiHandler exposes the TCP worker registry to admins
type ApiHandler struct {
	WorkerService worker.IWorkerRegistrationService
}

func NewHandler(WorkerService worker.IWorkerRegistrationService) *ApiHandler {
	return &ApiHandler{
		WorkerService: WorkerService,
	}
}

func (api *ApiHandler) Register(r *mux.Router) {
	r.HandleFunc("/workers", api.GetWorkers).Methods(http.MethodGet)
	r.HandleFunc("/workers/languages", api.GetLanguages).Methods(http.MethodGet)
}

func (api *ApiHandler) GetWorkers(w http.ResponseWriter, r *http.Request) {
	var err error
	var list interface{}
	if language := r.URL.Query().Get("language"); language != "" {
		list, err = api.WorkerService.GetAvailableWorkers(r.Context(), language)
	} else {
		list, err = api.WorkerService.GetAllWorkers(r.Context())
	}
	if err != nil {
		response.FromError(w, err)
		return
	}

	handlers.ResponseWithJson(w, http.StatusOK, map[string]interface{}{"workers": list})
}

func (api *ApiHandler) GetLanguages(w http.ResponseWriter, r *http.Request) {
	languages, err := api.WorkerService.GetLanguages(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}

	handlers.ResponseWithJson(w, http.StatusOK, map[string][]string{"languages": languages})
}
