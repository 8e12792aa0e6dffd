package handler

import (
	"net/http"

	"orderdesk/internal/extract"
)

type extractRequest struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

type extractResponse struct {
	Rows        []extract.ExtractedRow `json:"rows"`
	NeedsReview int                    `json:"needs_review"`
}

func (s *Service) HandleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if !s.decode(w, r, &req) {
		return
	}
	rows, err := s.Extractor.Extract(r.Context(), req.Filename, req.Content)
	if err != nil {
		s.writeError(w, err)
		return
	}
	review := 0
	for _, row := range rows {
		if row.NeedsReview() {
			review++
		}
	}
	s.writeJSON(w, http.StatusOK, extractResponse{Rows: rows, NeedsReview: review})
}

type confirmRequest struct {
	SupplierID string                 `json:"supplier_id"`
	Rows       []extract.ExtractedRow `json:"rows"`
}

type confirmResponse struct {
	Imported int `json:"imported"`
}

func (s *Service) HandleExtractConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if !s.decode(w, r, &req) {
		return
	}
	n, err := extract.Confirm(r.Context(), s.Catalog, req.SupplierID, req.Rows)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, confirmResponse{Imported: n})
}
