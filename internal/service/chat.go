package service

import (
	"context"
	"strings"

	"github.com/luminary-chat/luminary/internal/domain"
	"github.com/luminary-chat/luminary/internal/telemetry"
)

// CompletionStream yields completion deltas; Recv returns io.EOF when the
// completion is finished.
type CompletionStream interface {
	Recv() (string, error)
	Close() error
}

// CompletionClient defines the interface for the chat model provider.
type CompletionClient interface {
	StreamCompletion(ctx context.Context, systemPrompt, userMessage string) (CompletionStream, error)
}

// PersonaRepository defines the persona lookups the chat and search flows need.
type PersonaRepository interface {
	GetBySlug(ctx context.Context, slug string) (*domain.Persona, error)
}

// ChatInput is one chat turn.
type ChatInput struct {
	PersonaSlug string
	Message     string
}

// ChatTurn is a prepared chat turn: the grounded system prompt plus the
// retrieval diagnostics, ready to stream a completion from.
type ChatTurn struct {
	Persona      *domain.Persona
	SystemPrompt string
	Chunks       []*domain.RankedChunk
	SearchMode   domain.SearchMode
}

// ChatService composes chat-preset retrieval, prompt building, and the
// completion stream. Conversations are not persisted.
type ChatService struct {
	personas  PersonaRepository
	retrieval *RetrievalService
	ai        CompletionClient
}

// NewChatService creates a new ChatService. The retrieval service must use
// the chat preset so grounding fails open.
func NewChatService(personas PersonaRepository, retrieval *RetrievalService, ai CompletionClient) *ChatService {
	return &ChatService{
		personas:  personas,
		retrieval: retrieval,
		ai:        ai,
	}
}

// PrepareTurn validates the input, retrieves grounding (degrading to an
// ungrounded prompt on any retrieval failure), and builds the system prompt.
func (s *ChatService) PrepareTurn(ctx context.Context, input ChatInput) (*ChatTurn, error) {
	if strings.TrimSpace(input.PersonaSlug) == "" {
		return nil, domain.ErrMissingPersonaSlug
	}
	if strings.TrimSpace(input.Message) == "" {
		return nil, domain.ErrMissingQuery
	}

	ctx, span := telemetry.StartSpan(ctx, "ChatService.PrepareTurn", telemetry.SpanAttributes{
		PersonaSlug: input.PersonaSlug,
		Operation:   "chat",
	})
	defer span.End()

	persona, err := s.personas.GetBySlug(ctx, input.PersonaSlug)
	if err != nil {
		return nil, err
	}
	if persona.Archived {
		return nil, domain.ErrPersonaNotFound
	}

	// Chat preset: store errors fail open inside Retrieve, so err here is
	// only validation, which the checks above already rule out.
	out, err := s.retrieval.Retrieve(ctx, RetrieveInput{
		Query:       input.Message,
		PersonaSlug: input.PersonaSlug,
	})
	if err != nil {
		return nil, err
	}

	return &ChatTurn{
		Persona:      persona,
		SystemPrompt: BuildPersonaPrompt(persona, out.Chunks),
		Chunks:       out.Chunks,
		SearchMode:   out.SearchMode,
	}, nil
}

// StreamReply prepares the turn and opens the completion stream. The caller
// owns the stream and must Close it.
func (s *ChatService) StreamReply(ctx context.Context, input ChatInput) (*ChatTurn, CompletionStream, error) {
	turn, err := s.PrepareTurn(ctx, input)
	if err != nil {
		return nil, nil, err
	}

	stream, err := s.ai.StreamCompletion(ctx, turn.SystemPrompt, input.Message)
	if err != nil {
		return nil, nil, domain.NewDomainErrorWithCause(domain.ErrCodeProvider, "chat completion failed", err)
	}

	return turn, stream, nil
}
