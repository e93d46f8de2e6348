package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kudupay/kuduq-backend/pkg/auth"
)

// NewRouter wires the payment API. Payment routes sit behind the bearer-token
// middleware; with no secret configured the middleware passes everything
// through, matching the open surface the platform launched with.
func NewRouter(handler *Handler, jwtConfig *auth.JWTConfig, metrics http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(corsMiddleware)

	r.Get("/pings", handler.ping)
	r.Get("/healthz", handler.ping)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(jwtConfig))
		r.Post("/can-pay", handler.canPay)
		r.Post("/pay-user", handler.payUser)
		r.Post("/fund-user", handler.fundUser)
		r.Post("/sponsor-user", handler.sponsorUser)
	})

	return r
}
