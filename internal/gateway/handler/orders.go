package handler

import (
	"errors"
	"net/http"

	"orderdesk/internal/draft"
	"orderdesk/internal/gateway/repository/document"
	"orderdesk/internal/orders"
)

type commitRequest struct {
	Draft draft.DraftOrder `json:"draft"`
}

// HandleCommit runs the commit gate: validate against the live catalog,
// finalize totals, persist atomically, and render the document.
func (s *Service) HandleCommit(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if !s.decode(w, r, &req) {
		return
	}
	snap, err := s.Catalog.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if missing := draft.Validate(req.Draft, snap); len(missing) > 0 {
		s.writeError(w, &draft.IncompleteDraftError{Missing: missing})
		return
	}
	po, err := orders.FromDraft(draft.Finalize(req.Draft))
	if err != nil {
		s.writeError(w, err)
		return
	}
	saved, err := s.Orders.Commit(r.Context(), po)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if s.Documents != nil {
		if err := s.Documents.Put(r.Context(), saved.ID, document.DefaultPath, document.Render(saved)); err != nil {
			// The order is already committed; the document can be re-rendered.
			s.Logger.Error("store order document", "po_id", saved.ID, "err", err)
		}
	}
	s.writeJSON(w, http.StatusCreated, saved)
}

func (s *Service) HandleListOrders(w http.ResponseWriter, r *http.Request) {
	pos, err := s.Orders.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, pos)
}

func (s *Service) HandleGetOrder(w http.ResponseWriter, r *http.Request) {
	po, err := s.Orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, po)
}

func (s *Service) HandleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	content, err := s.Documents.Get(r.Context(), id, document.DefaultPath)
	if errors.Is(err, document.ErrNotFound) {
		// Render on demand when the stored copy is missing.
		po, getErr := s.Orders.Get(r.Context(), id)
		if getErr != nil {
			s.writeError(w, getErr)
			return
		}
		content = document.Render(po)
	} else if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}
