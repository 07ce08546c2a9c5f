package webhook

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/gorilla/mux"

	"gitlab.com/judge-relay.net/internal/core/ports/primary"
	"gitlab.com/judge-relay.net/internal/core/services/callback"
	"gitlab.com/judge-relay.net/internal/handlers"
	"gitlab.com/judge-relay.net/internal/handlers/response"
	"gitlab.com/judge-relay.net/internal/static/errs"
)

const SecretHeader = "X-Webhook-Secret"

// WebhookHandler receives verdict callbacks from the execution fleet
type WebhookHandler struct {
	callbacks callback.ICallbackService
	secret    string
	logger    primary.Logger
}

// NewWebhookHandler creates the handler. An empty secret disables the
// shared-secret check.
func NewWebhookHandler(callbacks callback.ICallbackService, secret string, logger primary.Logger) *WebhookHandler {
	return &WebhookHandler{
		callbacks: callbacks,
		secret:    secret,
		logger:    logger,
	}
}

func (h *WebhookHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/webhook/submit", h.handle("submit", h.callbacks.HandleSubmit)).Methods(http.MethodPost)
	router.HandleFunc("/webhook/run", h.handle("run", h.callbacks.HandleRun)).Methods(http.MethodPost)
	router.HandleFunc("/webhook/reference", h.handle("reference", h.callbacks.HandleReference)).Methods(http.MethodPost)
}

type handleFunc func(ctx context.Context, cb callback.Callback) (*callback.Result, error)

func (h *WebhookHandler) handle(kind string, fn handleFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.authorized(r) {
			response.FromError(w, errs.ErrInvalidSignature)
			return
		}

		var req CallbackRequest
		if err := handlers.DecodeJSON(r, &req); err != nil {
			response.FromError(w, err)
			return
		}

		cb := req.toCallback()
		res, err := fn(r.Context(), cb)
		if err != nil {
			// the sender retries 5xx responses only
			if response.StatusOf(err) >= http.StatusInternalServerError {
				h.logger.Error("Callback failed", "endpoint", kind, "jobId", cb.JobID, "error", err)
			} else {
				h.logger.Warn("Callback rejected", "endpoint", kind, "jobId", cb.JobID, "error", err)
			}
			response.FromError(w, err)
			return
		}

		response.WriteSuccess(w, CallbackResponse{
			Message:   kind + " webhook processed",
			JobID:     res.JobID,
			Verdict:   res.Verdict,
			Applied:   res.Applied,
			Delivered: res.Delivered,
		})
	}
}

func (h *WebhookHandler) authorized(r *http.Request) bool {
	if h.secret == "" {
		return true
	}
	got := r.Header.Get(SecretHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) == 1
}
