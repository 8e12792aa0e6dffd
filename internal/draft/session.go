package draft

import "orderdesk/internal/catalog"

// Session is the full refinement state a caller holds between rounds. The
// engine keeps nothing server-side: the prior draft and its open questions
// are passed back in on every round and a new Session is returned.
type Session struct {
	Draft         DraftOrder              `json:"draft"`
	OpenQuestions []ClarificationQuestion `json:"open_questions"`
	Answers       map[string]AnswerValue  `json:"answers,omitempty"`
}

// HasPendingDraft reports whether a draft round exists to merge into.
func (s Session) HasPendingDraft() bool {
	return s.Draft.Status == StatusDraft && (len(s.Draft.Items) > 0 || len(s.OpenQuestions) > 0)
}

// HasPendingAnswers reports whether the caller supplied answers this round.
func (s Session) HasPendingAnswers() bool {
	return len(s.Answers) > 0
}

// NextRound folds the session's answers into its draft and returns a new
// session with the answers consumed.
func (s Session) NextRound(snap catalog.Snapshot) (Session, error) {
	d, qs, err := Merge(s.Draft, s.OpenQuestions, s.Answers, snap)
	if err != nil {
		return Session{}, err
	}
	return Session{Draft: d, OpenQuestions: qs}, nil
}
