package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Unagi-Games/evm-whitelabel/internal/domain"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/service/relay"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/value"
	"github.com/Unagi-Games/evm-whitelabel/pkg/httpx/reply"
	"github.com/Unagi-Games/evm-whitelabel/pkg/httpx/req"
	"github.com/Unagi-Games/evm-whitelabel/pkg/rest"
)

// RelayServer exposes the escrow relay over HTTP.
type RelayServer struct {
	relay *relay.Service
}

func NewRelayServer(relay *relay.Service) RelayServer {
	return RelayServer{relay: relay}
}

func (s RelayServer) postV1Escrows(w http.ResponseWriter, r *http.Request) error {
	caller, err := callerAddress(r)
	if err != nil {
		return err
	}

	var request rest.ReserveEscrowRequest
	if err := req.Read(r, &request); err != nil {
		return err
	}

	tokenIDs, err := parseTokenIDs(request.TokenIDs)
	if err != nil {
		return err
	}

	from, err := value.ParseAddress(request.From)
	if err != nil {
		return err
	}
	if from.IsZero() {
		from = caller
	}

	record, err := s.relay.Reserve(r.Context(), caller, from, request.CorrelationID, tokenIDs, request.Amount)
	if err != nil {
		return err
	}

	reply.JSON(r.Context(), w, http.StatusCreated, newRESTEscrow(record))

	return nil
}

func (s RelayServer) getV1Escrow(w http.ResponseWriter, r *http.Request) error {
	correlationID := chi.URLParam(r, "correlationID")

	from, err := value.ParseAddress(r.URL.Query().Get("from"))
	if err != nil {
		return err
	}
	if from.IsZero() {
		return domain.NewPreconditionError("from query parameter required")
	}

	record, err := s.relay.GetRecord(r.Context(), correlationID, from)
	if err != nil {
		return err
	}

	reply.JSON(r.Context(), w, http.StatusOK, newRESTEscrow(record))

	return nil
}

func (s RelayServer) postV1EscrowExecute(w http.ResponseWriter, r *http.Request) error {
	return s.release(w, r, s.relay.Execute)
}

func (s RelayServer) postV1EscrowRevert(w http.ResponseWriter, r *http.Request) error {
	return s.release(w, r, s.relay.Revert)
}

type releaseOp func(ctx context.Context, caller value.Address, correlationID string, from value.Address) error

func (s RelayServer) release(w http.ResponseWriter, r *http.Request, op releaseOp) error {
	caller, err := callerAddress(r)
	if err != nil {
		return err
	}

	correlationID := chi.URLParam(r, "correlationID")

	var request rest.ReleaseEscrowRequest
	if err := req.Read(r, &request); err != nil {
		return err
	}

	from, err := value.ParseAddress(request.From)
	if err != nil {
		return err
	}
	if from.IsZero() {
		return domain.NewPreconditionError("from address required")
	}

	if err := op(r.Context(), caller, correlationID, from); err != nil {
		return err
	}

	reply.OK(w)

	return nil
}
