package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"orderdesk/internal/chat"
)

func (s *Service) HandleChatMessage(w http.ResponseWriter, r *http.Request) {
	convID := strings.TrimSpace(r.PathValue("conversation"))
	if convID == "" {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "conversation id is required"})
		return
	}
	var msg chat.Message
	if !s.decode(w, r, &msg) {
		return
	}
	reply, err := s.Chat.HandleMessage(r.Context(), convID, msg)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, reply)
}

func (s *Service) HandleChatTranscript(w http.ResponseWriter, r *http.Request) {
	convID := strings.TrimSpace(r.PathValue("conversation"))
	if convID == "" {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "conversation id is required"})
		return
	}
	s.writeJSON(w, http.StatusOK, s.Chat.Transcript(convID))
}

const (
	chatWSWriteWait = 10 * time.Second
	chatWSPongWait  = 60 * time.Second
	chatWSPingEvery = (chatWSPongWait * 9) / 10
)

var chatWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// HandleChatWatch streams transcript turns over a websocket as they are
// appended to the conversation.
func (s *Service) HandleChatWatch(w http.ResponseWriter, r *http.Request) {
	convID := strings.TrimSpace(r.PathValue("conversation"))
	if convID == "" {
		http.Error(w, "conversation id is required", http.StatusBadRequest)
		return
	}

	conn, err := chatWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	turns, cancel := s.Chat.Watch(convID)
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(chatWSPongWait)); err != nil {
		s.Logger.Error("chat ws set read deadline", "err", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(chatWSPongWait))
	})

	// Reader goroutine: the client sends nothing meaningful, but reads are
	// required to process pongs and detect the close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(chatWSPingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case turn, ok := <-turns:
			if !ok {
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(chatWSWriteWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(turn); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(chatWSWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
