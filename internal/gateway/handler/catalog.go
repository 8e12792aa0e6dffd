package handler

import (
	"net/http"

	"orderdesk/internal/catalog"
)

func (s *Service) HandleListSuppliers(w http.ResponseWriter, r *http.Request) {
	sups, err := s.Catalog.ListSuppliers(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sups)
}

func (s *Service) HandleCreateSupplier(w http.ResponseWriter, r *http.Request) {
	var sup catalog.Supplier
	if !s.decode(w, r, &sup) {
		return
	}
	saved, err := s.Catalog.CreateSupplier(r.Context(), sup)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, saved)
}

func (s *Service) HandleDeleteSupplier(w http.ResponseWriter, r *http.Request) {
	if err := s.Catalog.DeleteSupplier(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) HandleListPriceRows(w http.ResponseWriter, r *http.Request) {
	rows, err := s.Catalog.ListPriceRows(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rows)
}

func (s *Service) HandleCreatePriceRow(w http.ResponseWriter, r *http.Request) {
	var row catalog.PriceRow
	if !s.decode(w, r, &row) {
		return
	}
	saved, err := s.Catalog.CreatePriceRow(r.Context(), row)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, saved)
}

func (s *Service) HandleDeletePriceRow(w http.ResponseWriter, r *http.Request) {
	if err := s.Catalog.DeletePriceRow(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) HandleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.Catalog.ListBusinessRules(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rules)
}

func (s *Service) HandlePutRule(w http.ResponseWriter, r *http.Request) {
	var rule catalog.BusinessRule
	if !s.decode(w, r, &rule) {
		return
	}
	if err := s.Catalog.PutBusinessRule(r.Context(), rule); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rule)
}

func (s *Service) HandleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := s.Catalog.DeleteBusinessRule(r.Context(), r.PathValue("key")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
