// Package handler exposes the JSON endpoints of the ordering gateway.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"orderdesk/internal/catalog"
	"orderdesk/internal/chat"
	"orderdesk/internal/draft"
	"orderdesk/internal/extract"
	"orderdesk/internal/gateway/repository/document"
	llmclient "orderdesk/internal/llmClient"
	"orderdesk/internal/orders"
)

// Service holds every dependency the endpoints need.
type Service struct {
	Generator *draft.Generator
	Extractor *extract.Extractor
	Catalog   catalog.Store
	Orders    orders.Store
	Chat      *chat.Manager
	Documents document.Store
	Logger    *slog.Logger
}

func NewService(g *draft.Generator, e *extract.Extractor, cat catalog.Store, ord orders.Store, ch *chat.Manager, docs document.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		Generator: g,
		Extractor: e,
		Catalog:   cat,
		Orders:    ord,
		Chat:      ch,
		Documents: docs,
		Logger:    logger,
	}
}

// Register wires the endpoints onto the mux.
func (s *Service) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/drafts/generate", s.HandleGenerate)
	mux.HandleFunc("POST /api/v1/drafts/merge", s.HandleMerge)
	mux.HandleFunc("POST /api/v1/drafts/validate", s.HandleValidate)
	mux.HandleFunc("POST /api/v1/orders/commit", s.HandleCommit)
	mux.HandleFunc("GET /api/v1/orders", s.HandleListOrders)
	mux.HandleFunc("GET /api/v1/orders/{id}", s.HandleGetOrder)
	mux.HandleFunc("GET /api/v1/orders/{id}/document", s.HandleGetDocument)

	mux.HandleFunc("GET /api/v1/catalog/suppliers", s.HandleListSuppliers)
	mux.HandleFunc("POST /api/v1/catalog/suppliers", s.HandleCreateSupplier)
	mux.HandleFunc("DELETE /api/v1/catalog/suppliers/{id}", s.HandleDeleteSupplier)
	mux.HandleFunc("GET /api/v1/catalog/price-rows", s.HandleListPriceRows)
	mux.HandleFunc("POST /api/v1/catalog/price-rows", s.HandleCreatePriceRow)
	mux.HandleFunc("DELETE /api/v1/catalog/price-rows/{id}", s.HandleDeletePriceRow)
	mux.HandleFunc("GET /api/v1/catalog/rules", s.HandleListRules)
	mux.HandleFunc("PUT /api/v1/catalog/rules", s.HandlePutRule)
	mux.HandleFunc("DELETE /api/v1/catalog/rules/{key}", s.HandleDeleteRule)

	mux.HandleFunc("POST /api/v1/extract", s.HandleExtract)
	mux.HandleFunc("POST /api/v1/extract/confirm", s.HandleExtractConfirm)

	mux.HandleFunc("POST /api/v1/chat/{conversation}", s.HandleChatMessage)
	mux.HandleFunc("GET /api/v1/chat/{conversation}/transcript", s.HandleChatTranscript)
	mux.HandleFunc("GET /api/v1/chat/{conversation}/watch", s.HandleChatWatch)
}

type errorBody struct {
	Error    string               `json:"error"`
	Missing  []draft.MissingField `json:"missing,omitempty"`
	Unknown  []string             `json:"unknown_question_ids,omitempty"`
	Rejected map[string]string    `json:"rejected_answers,omitempty"`
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("write response", "err", err)
	}
}

func (s *Service) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

// writeError maps the error taxonomy to HTTP statuses. Upstream engine
// failures keep their category so clients can tell a rate limit from an
// outage; anything unrecognized is logged and returned as a 500.
func (s *Service) writeError(w http.ResponseWriter, err error) {
	var incomplete *draft.IncompleteDraftError
	var unknown *draft.UnknownQuestionError
	var rejected *draft.RejectedAnswerError

	switch {
	case errors.As(err, &incomplete):
		s.writeJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Missing: incomplete.Missing})
	case errors.As(err, &unknown):
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Unknown: unknown.IDs})
	case errors.As(err, &rejected):
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Rejected: rejected.Reasons})
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, orders.ErrNotFound), errors.Is(err, document.ErrNotFound):
		s.writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, llmclient.ErrUpstreamRateLimited):
		s.writeJSON(w, http.StatusTooManyRequests, errorBody{Error: err.Error()})
	case errors.Is(err, llmclient.ErrUpstreamAuth), errors.Is(err, llmclient.ErrMissingCredentials):
		s.writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error()})
	case errors.Is(err, llmclient.ErrUpstreamUnavailable):
		s.writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
	case errors.Is(err, llmclient.ErrUpstreamNetwork),
		errors.Is(err, llmclient.ErrEmptyResponse),
		errors.Is(err, llmclient.ErrUnparsableResponse):
		s.writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error()})
	default:
		s.Logger.Error("internal error", "err", err)
		s.writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}
