package server

import (
	"net/http"

	"github.com/Unagi-Games/evm-whitelabel/internal/domain/service/policy"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/value"
	"github.com/Unagi-Games/evm-whitelabel/pkg/httpx/reply"
	"github.com/Unagi-Games/evm-whitelabel/pkg/httpx/req"
	"github.com/Unagi-Games/evm-whitelabel/pkg/rest"
)

// PolicyServer exposes the fee and pause policy over HTTP.
type PolicyServer struct {
	policy *policy.Service
}

func NewPolicyServer(policy *policy.Service) PolicyServer {
	return PolicyServer{policy: policy}
}

func (s PolicyServer) getV1Fees(w http.ResponseWriter, r *http.Request) error {
	fees, err := s.policy.Fees(r.Context())
	if err != nil {
		return err
	}

	reply.JSON(r.Context(), w, http.StatusOK, newRESTFeePolicy(fees))

	return nil
}

func (s PolicyServer) putV1Fees(w http.ResponseWriter, r *http.Request) error {
	caller, err := callerAddress(r)
	if err != nil {
		return err
	}

	var request rest.UpdateFeesRequest
	if err := req.Read(r, &request); err != nil {
		return err
	}

	if err := s.policy.SetFees(r.Context(), caller, request.SellPercent, request.BuyPercent, request.BurnPercent); err != nil {
		return err
	}

	reply.OK(w)

	return nil
}

func (s PolicyServer) putV1FeeReceiver(w http.ResponseWriter, r *http.Request) error {
	caller, err := callerAddress(r)
	if err != nil {
		return err
	}

	var request rest.UpdateFeeReceiverRequest
	if err := req.Read(r, &request); err != nil {
		return err
	}

	receiver, err := value.ParseAddress(request.Receiver)
	if err != nil {
		return err
	}

	if err := s.policy.SetFeeReceiver(r.Context(), caller, receiver); err != nil {
		return err
	}

	reply.OK(w)

	return nil
}

func (s PolicyServer) putV1Paused(w http.ResponseWriter, r *http.Request) error {
	caller, err := callerAddress(r)
	if err != nil {
		return err
	}

	var request rest.SetPausedRequest
	if err := req.Read(r, &request); err != nil {
		return err
	}

	if err := s.policy.SetPaused(r.Context(), caller, *request.Paused); err != nil {
		return err
	}

	reply.OK(w)

	return nil
}
