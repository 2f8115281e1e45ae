package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/luminary-chat/luminary/internal/api"
	"github.com/luminary-chat/luminary/internal/service"
)

// ChatService is the chat surface the handler consumes.
type ChatService interface {
	StreamReply(ctx context.Context, input service.ChatInput) (*service.ChatTurn, service.CompletionStream, error)
}

type ChatHandler struct {
	chat ChatService
}

func NewChatHandler(chat ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type ChatRequest struct {
	PersonaSlug string `json:"persona_slug"`
	Message     string `json:"message"`
}

// Chat streams the persona's reply as server-sent events. Retrieval
// diagnostics travel in headers so the stream body stays pure content.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	turn, stream, err := h.chat.StreamReply(r.Context(), service.ChatInput{
		PersonaSlug: req.PersonaSlug,
		Message:     req.Message,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Search-Mode", string(turn.SearchMode))
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	for {
		delta, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Already streaming: nothing useful left to send the client.
			log.Printf("chat stream interrupted: %v", err)
			break
		}
		if delta == "" {
			continue
		}

		payload, err := json.Marshal(map[string]string{"delta": delta})
		if err != nil {
			log.Printf("chat delta marshal error: %v", err)
			break
		}
		if _, err := w.Write([]byte("data: " + string(payload) + "\n\n")); err != nil {
			break
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	w.Write([]byte("data: [DONE]\n\n"))
	if flusher != nil {
		flusher.Flush()
	}
}
