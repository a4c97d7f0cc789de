package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/settleline/conveyor/internal/adapters/security"
	"github.com/settleline/conveyor/internal/application"
)

// Handler is the HTTP adapter entrypoint for the intake and matter
// surfaces. Keeping only the application dependency here preserves clean
// adapter boundaries.
type Handler struct {
	service  *application.Service
	verifier *security.WebhookVerifier
}

func NewHandler(service *application.Service, verifier *security.WebhookVerifier) *Handler {
	return &Handler{service: service, verifier: verifier}
}

// NewRouter registers routes and the middleware stack. Both the webhook
// intake and the ops API sit behind the shared-secret bearer check; health
// probes do not.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/webhooks/v1", func(r chi.Router) {
		r.Use(handler.webhookAuthMiddleware)
		r.Post("/typeform", handler.typeformWebhook)
		r.Post("/pipedrive", handler.pipedriveWebhook)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(handler.webhookAuthMiddleware)
		r.Post("/matters", handler.createMatter)
		r.Get("/matters", handler.listMatters)
		r.Get("/matters/{matter_id}", handler.getMatter)
		r.Get("/matters/{matter_id}/feedback-link", handler.feedbackLink)
		r.Post("/jobs/{job_id}/corrections", handler.submitCorrection)
		r.Get("/jobs/{job_id}/validation", handler.validateJob)
	})

	return r
}
