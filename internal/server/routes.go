package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Unagi-Games/evm-whitelabel/pkg/httpx/reply"
)

func (s Server) RegisterRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Route("/sales", func(r chi.Router) {
			r.Post("/", handler(s.postV1Sales))
			r.Route("/{tokenID}", func(r chi.Router) {
				r.Get("/", handler(s.getV1Sale))
				r.Put("/", handler(s.putV1Sale))
				r.Delete("/", handler(s.deleteV1Sale))
				r.Post("/accept", handler(s.postV1SaleAccept))
			})
		})

		r.Route("/escrows", func(r chi.Router) {
			r.Post("/", handler(s.postV1Escrows))
			r.Route("/{correlationID}", func(r chi.Router) {
				r.Get("/", handler(s.getV1Escrow))
				r.Post("/execute", handler(s.postV1EscrowExecute))
				r.Post("/revert", handler(s.postV1EscrowRevert))
			})
		})

		r.Route("/fees", func(r chi.Router) {
			r.Get("/", handler(s.getV1Fees))
			r.Put("/", handler(s.putV1Fees))
			r.Put("/receiver", handler(s.putV1FeeReceiver))
		})

		r.Put("/paused", handler(s.putV1Paused))
	})
}

func handler(f func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := f(w, r); err != nil {
			reply.Error(r.Context(), w, err)
		}
	}
}
