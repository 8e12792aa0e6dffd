package handler

import (
	"net/http"
	"strings"

	"orderdesk/internal/draft"
)

type generateRequest struct {
	Request string `json:"request"`
}

type draftResponse struct {
	Draft     draft.DraftOrder              `json:"draft"`
	Questions []draft.ClarificationQuestion `json:"questions"`
	Summary   draft.ReasoningSummary        `json:"reasoning_summary,omitempty"`
	CanCommit bool                          `json:"can_commit"`
}

func (s *Service) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Request) == "" {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "request text is required"})
		return
	}
	snap, err := s.Catalog.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.Generator.Generate(r.Context(), req.Request, snap)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, draftResponse{
		Draft:     res.Draft,
		Questions: res.Questions,
		Summary:   res.Summary,
		CanCommit: draft.CanCommit(res.Draft),
	})
}

type mergeRequest struct {
	Draft     draft.DraftOrder              `json:"draft"`
	Questions []draft.ClarificationQuestion `json:"questions"`
	Answers   map[string]draft.AnswerValue  `json:"answers"`
}

func (s *Service) HandleMerge(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if !s.decode(w, r, &req) {
		return
	}
	snap, err := s.Catalog.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	d, qs, err := draft.Merge(req.Draft, req.Questions, req.Answers, snap)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, draftResponse{
		Draft:     d,
		Questions: qs,
		CanCommit: draft.CanCommit(d),
	})
}

type validateRequest struct {
	Draft draft.DraftOrder `json:"draft"`
}

type validateResponse struct {
	CanCommit bool                 `json:"can_commit"`
	Missing   []draft.MissingField `json:"missing,omitempty"`
}

func (s *Service) HandleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !s.decode(w, r, &req) {
		return
	}
	snap, err := s.Catalog.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	missing := draft.Validate(req.Draft, snap)
	s.writeJSON(w, http.StatusOK, validateResponse{
		CanCommit: len(missing) == 0,
		Missing:   missing,
	})
}
