package server

import (
	"net/http"

	"github.com/Unagi-Games/evm-whitelabel/internal/domain/service/market"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/value"
	"github.com/Unagi-Games/evm-whitelabel/pkg/httpx/reply"
	"github.com/Unagi-Games/evm-whitelabel/pkg/httpx/req"
	"github.com/Unagi-Games/evm-whitelabel/pkg/rest"
)

// MarketServer exposes the sale ledger over HTTP.
type MarketServer struct {
	market *market.Service
}

func NewMarketServer(market *market.Service) MarketServer {
	return MarketServer{market: market}
}

func (s MarketServer) postV1Sales(w http.ResponseWriter, r *http.Request) error {
	caller, err := callerAddress(r)
	if err != nil {
		return err
	}

	var request rest.CreateSaleRequest
	if err := req.Read(r, &request); err != nil {
		return err
	}

	tokenID, err := value.NewTokenID(request.TokenID)
	if err != nil {
		return err
	}

	owner, err := value.ParseAddress(request.Owner)
	if err != nil {
		return err
	}

	reserve, err := value.ParseAddress(request.Reserve)
	if err != nil {
		return err
	}

	sale, err := s.market.Create(r.Context(), caller, owner, tokenID, request.Price, reserve)
	if err != nil {
		return err
	}

	reply.JSON(r.Context(), w, http.StatusCreated, newRESTSale(sale))

	return nil
}

func (s MarketServer) getV1Sale(w http.ResponseWriter, r *http.Request) error {
	tokenID, err := pathTokenID(r)
	if err != nil {
		return err
	}

	quote, err := s.market.Quote(r.Context(), tokenID)
	if err != nil {
		return err
	}

	reply.JSON(r.Context(), w, http.StatusOK, newRESTQuote(quote))

	return nil
}

func (s MarketServer) putV1Sale(w http.ResponseWriter, r *http.Request) error {
	caller, err := callerAddress(r)
	if err != nil {
		return err
	}

	tokenID, err := pathTokenID(r)
	if err != nil {
		return err
	}

	var request rest.UpdateSaleRequest
	if err := req.Read(r, &request); err != nil {
		return err
	}

	owner, err := value.ParseAddress(request.Owner)
	if err != nil {
		return err
	}

	reserve, err := value.ParseAddress(request.Reserve)
	if err != nil {
		return err
	}

	sale, err := s.market.Update(r.Context(), caller, owner, tokenID, request.Price, reserve)
	if err != nil {
		return err
	}

	reply.JSON(r.Context(), w, http.StatusOK, newRESTSale(sale))

	return nil
}

func (s MarketServer) deleteV1Sale(w http.ResponseWriter, r *http.Request) error {
	caller, err := callerAddress(r)
	if err != nil {
		return err
	}

	tokenID, err := pathTokenID(r)
	if err != nil {
		return err
	}

	owner, err := value.ParseAddress(r.URL.Query().Get("owner"))
	if err != nil {
		return err
	}

	if err := s.market.Destroy(r.Context(), caller, owner, tokenID); err != nil {
		return err
	}

	reply.OK(w)

	return nil
}

func (s MarketServer) postV1SaleAccept(w http.ResponseWriter, r *http.Request) error {
	caller, err := callerAddress(r)
	if err != nil {
		return err
	}

	tokenID, err := pathTokenID(r)
	if err != nil {
		return err
	}

	var request rest.AcceptSaleRequest
	if err := req.Read(r, &request); err != nil {
		return err
	}

	receiver, err := value.ParseAddress(request.Receiver)
	if err != nil {
		return err
	}

	receipt, err := s.market.Accept(r.Context(), caller, tokenID, request.Price, receiver)
	if err != nil {
		return err
	}

	reply.JSON(r.Context(), w, http.StatusOK, newRESTReceipt(receipt))

	return nil
}
