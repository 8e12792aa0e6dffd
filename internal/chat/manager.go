// Package chat is the conversational front-end over the draft refinement
// loop. It owns per-conversation state and a deterministic routing of each
// incoming message to generate, merge, catalog action, or commit.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"orderdesk/internal/catalog"
	"orderdesk/internal/draft"
	"orderdesk/internal/orders"
)

// CatalogAction is a side-channel request raised from the conversation, e.g.
// "add this product first". A successful action can resolve a pending
// question out of band.
type CatalogAction struct {
	Kind     string           `json:"kind"` // "create_supplier" | "create_price_row"
	Supplier catalog.Supplier `json:"supplier,omitempty"`
	PriceRow catalog.PriceRow `json:"price_row,omitempty"`
}

// Message is one inbound conversation turn. Exactly one of the routing
// inputs is expected; when several are present they are handled in the fixed
// order action, answers, commit, text.
type Message struct {
	Text    string                       `json:"text,omitempty"`
	Answers map[string]draft.AnswerValue `json:"answers,omitempty"`
	Action  *CatalogAction               `json:"action,omitempty"`
	Commit  bool                         `json:"commit,omitempty"`
}

// Turn is one transcript entry, pushed to watchers as it is appended.
type Turn struct {
	Role      string                        `json:"role"` // "user" | "assistant"
	Text      string                        `json:"text,omitempty"`
	Draft     *draft.DraftOrder             `json:"draft,omitempty"`
	Questions []draft.ClarificationQuestion `json:"questions,omitempty"`
	Missing   []draft.MissingField          `json:"missing,omitempty"`
	Order     *orders.PurchaseOrder         `json:"order,omitempty"`
	CreatedAt time.Time                     `json:"created_at"`
}

type conversation struct {
	mu         sync.Mutex
	session    draft.Session
	transcript []Turn
	watchers   map[chan Turn]struct{}
}

// Manager routes conversation messages. One conversation at a time makes
// progress; concurrent messages for the same id serialize on its lock.
type Manager struct {
	generator *draft.Generator
	catalog   catalog.Store
	orders    orders.Store

	mu    sync.RWMutex
	convs map[string]*conversation
}

func NewManager(g *draft.Generator, cat catalog.Store, ord orders.Store) *Manager {
	return &Manager{
		generator: g,
		catalog:   cat,
		orders:    ord,
		convs:     make(map[string]*conversation),
	}
}

func (m *Manager) conv(id string) *conversation {
	id = strings.TrimSpace(id)
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convs[id]
	if !ok {
		c = &conversation{watchers: make(map[chan Turn]struct{})}
		m.convs[id] = c
	}
	return c
}

// Transcript returns a copy of the conversation's transcript.
func (m *Manager) Transcript(id string) []Turn {
	c := m.conv(id)
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Turn(nil), c.transcript...)
}

// Watch subscribes to transcript turns appended after the call. The returned
// cancel must be called when the watcher goes away.
func (m *Manager) Watch(id string) (<-chan Turn, func()) {
	c := m.conv(id)
	ch := make(chan Turn, 32)
	c.mu.Lock()
	c.watchers[ch] = struct{}{}
	c.mu.Unlock()
	cancel := func() {
		c.mu.Lock()
		if _, ok := c.watchers[ch]; ok {
			delete(c.watchers, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

func (c *conversation) appendLocked(t Turn) {
	t.CreatedAt = time.Now().UTC()
	c.transcript = append(c.transcript, t)
	for ch := range c.watchers {
		select {
		case ch <- t:
		default:
			// slow watcher; drop rather than block the conversation
		}
	}
}

// HandleMessage routes one inbound message and returns the assistant turn.
// The route is a pure function of (pending draft, pending answers, message
// shape); the reasoning engine is only consulted for fresh generation.
func (m *Manager) HandleMessage(ctx context.Context, convID string, msg Message) (Turn, error) {
	c := m.conv(convID)
	c.mu.Lock()
	defer c.mu.Unlock()

	c.appendLocked(userTurn(msg))

	snap, err := m.catalog.Snapshot(ctx)
	if err != nil {
		return Turn{}, err
	}

	var reply Turn
	switch {
	case msg.Action != nil:
		reply, err = m.handleAction(ctx, c, *msg.Action, snap)
	case len(msg.Answers) > 0 && c.session.HasPendingDraft():
		reply, err = m.handleAnswers(c, msg.Answers, snap)
	case msg.Commit && c.session.HasPendingDraft():
		reply, err = m.handleCommit(ctx, c, snap)
	case strings.TrimSpace(msg.Text) != "":
		reply, err = m.handleRequest(ctx, c, msg.Text, snap)
	default:
		err = fmt.Errorf("chat: message carries nothing to act on")
	}
	if err != nil {
		return Turn{}, err
	}
	c.appendLocked(reply)
	return reply, nil
}

func userTurn(msg Message) Turn {
	t := Turn{Role: "user", Text: strings.TrimSpace(msg.Text)}
	if t.Text == "" {
		switch {
		case msg.Action != nil:
			t.Text = "(catalog action)"
		case len(msg.Answers) > 0:
			t.Text = "(answers)"
		case msg.Commit:
			t.Text = "(commit)"
		}
	}
	return t
}

func (m *Manager) handleRequest(ctx context.Context, c *conversation, text string, snap catalog.Snapshot) (Turn, error) {
	res, err := m.generator.Generate(ctx, text, snap)
	if err != nil {
		return Turn{}, err
	}
	c.session = draft.Session{Draft: res.Draft, OpenQuestions: res.Questions}
	d := res.Draft
	return Turn{
		Role:      "assistant",
		Text:      assistantText(res.Questions, res.Summary),
		Draft:     &d,
		Questions: res.Questions,
	}, nil
}

func (m *Manager) handleAnswers(c *conversation, answers map[string]draft.AnswerValue, snap catalog.Snapshot) (Turn, error) {
	s := c.session
	s.Answers = answers
	next, err := s.NextRound(snap)
	if err != nil {
		return Turn{}, err
	}
	c.session = next
	d := next.Draft
	return Turn{
		Role:      "assistant",
		Text:      assistantText(next.OpenQuestions, draft.ReasoningSummary{}),
		Draft:     &d,
		Questions: next.OpenQuestions,
	}, nil
}

func (m *Manager) handleCommit(ctx context.Context, c *conversation, snap catalog.Snapshot) (Turn, error) {
	missing := draft.Validate(c.session.Draft, snap)
	if len(missing) > 0 {
		// Not an error: the user is routed back into clarification.
		return Turn{
			Role:      "assistant",
			Text:      "I can't commit this order yet; a few details are still open.",
			Draft:     cloneDraft(c.session.Draft),
			Questions: c.session.OpenQuestions,
			Missing:   missing,
		}, nil
	}
	po, err := orders.FromDraft(draft.Finalize(c.session.Draft))
	if err != nil {
		return Turn{}, err
	}
	saved, err := m.orders.Commit(ctx, po)
	if err != nil {
		return Turn{}, err
	}
	c.session = draft.Session{}
	return Turn{
		Role:  "assistant",
		Text:  fmt.Sprintf("Order %s committed to %s, subtotal %.2f %s.", saved.ID, saved.SupplierName, saved.Subtotal, saved.Currency),
		Order: &saved,
	}, nil
}

// handleAction performs the catalog write, then feeds a synthesized answer
// into the pending draft when the new record resolves an open question.
func (m *Manager) handleAction(ctx context.Context, c *conversation, action CatalogAction, snap catalog.Snapshot) (Turn, error) {
	var resolved map[string]draft.AnswerValue
	var text string

	switch action.Kind {
	case "create_supplier":
		sup, err := m.catalog.CreateSupplier(ctx, action.Supplier)
		if err != nil {
			return Turn{}, err
		}
		text = fmt.Sprintf("Added supplier %s.", sup.Name)
		resolved = answersMatching(c.session.OpenQuestions, func(q draft.ClarificationQuestion) (draft.AnswerValue, bool) {
			if len(q.RelatedItemIndexes) == 0 && strings.Contains(strings.ToLower(q.Question), "supplier") {
				return draft.ChoiceAnswer(sup.Name), true
			}
			return draft.AnswerValue{}, false
		})

	case "create_price_row":
		row, err := m.catalog.CreatePriceRow(ctx, action.PriceRow)
		if err != nil {
			return Turn{}, err
		}
		text = fmt.Sprintf("Added %s (%s) to the price list.", row.ProductName, row.SKU)
		resolved = answersMatching(c.session.OpenQuestions, func(q draft.ClarificationQuestion) (draft.AnswerValue, bool) {
			if q.Kind == draft.KindSKU {
				return draft.TextAnswer(row.SKU), true
			}
			return draft.AnswerValue{}, false
		})

	default:
		return Turn{}, fmt.Errorf("chat: unknown catalog action %q", action.Kind)
	}

	if len(resolved) == 0 || !c.session.HasPendingDraft() {
		return Turn{Role: "assistant", Text: text}, nil
	}

	// Re-snapshot so the merge sees the record written above.
	snap, err := m.catalog.Snapshot(ctx)
	if err != nil {
		return Turn{}, err
	}
	s := c.session
	s.Answers = resolved
	next, err := s.NextRound(snap)
	if err != nil {
		// The catalog write stands; a synthesized answer the merge will not
		// take just leaves the question open.
		var unknown *draft.UnknownQuestionError
		var rejected *draft.RejectedAnswerError
		if errors.As(err, &unknown) || errors.As(err, &rejected) {
			return Turn{Role: "assistant", Text: text}, nil
		}
		return Turn{}, err
	}
	c.session = next
	d := next.Draft
	return Turn{
		Role:      "assistant",
		Text:      text + " " + assistantText(next.OpenQuestions, draft.ReasoningSummary{}),
		Draft:     &d,
		Questions: next.OpenQuestions,
	}, nil
}

func answersMatching(qs []draft.ClarificationQuestion, match func(draft.ClarificationQuestion) (draft.AnswerValue, bool)) map[string]draft.AnswerValue {
	var out map[string]draft.AnswerValue
	for _, q := range qs {
		if v, ok := match(q); ok {
			if out == nil {
				out = make(map[string]draft.AnswerValue)
			}
			out[q.ID] = v
		}
	}
	return out
}

func assistantText(qs []draft.ClarificationQuestion, summary draft.ReasoningSummary) string {
	if len(qs) == 0 {
		if s := strings.TrimSpace(summary.OverallDecision); s != "" {
			return s
		}
		return "The draft looks complete; say commit when you are ready."
	}
	if len(qs) == 1 {
		return qs[0].Question
	}
	return fmt.Sprintf("I have %d questions before this order is ready.", len(qs))
}

func cloneDraft(d draft.DraftOrder) *draft.DraftOrder {
	cp := d.Clone()
	return &cp
}
